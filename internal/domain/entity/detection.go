package entity

// BoundingBox прямоугольник обнаруженного объекта в координатах изображения
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Detection одна размеченная область, найденная моделью
type Detection struct {
	Label string      `json:"label"` // имя класса, например "port3_connected"
	Score float64     `json:"score"` // уверенность модели [0, 1]
	Box   BoundingBox `json:"box"`
}

// DetectionResult результат одного прогона модели на одном изображении
type DetectionResult struct {
	Model      string
	Detections []Detection
}
