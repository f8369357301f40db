package entity

import "time"

// Inspection итог проверки одного изображения всеми моделями.
type Inspection struct {
	ID        string         `json:"id"`
	Image     string         `json:"image"`
	Ports     PortReport     `json:"ports"`
	Models    []ModelVerdict `json:"models,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ModelVerdict голоса одной модели, на итог не влияет.
type ModelVerdict struct {
	Model      string     `json:"model"`
	Detections int        `json:"detections"`
	Ports      PortReport `json:"ports"`
}

// ConnectedCount количество подключённых портов в итоговом отчёте
func (i *Inspection) ConnectedCount() int {
	n := 0
	for _, p := range i.Ports {
		if p.Status == StatusConnected {
			n++
		}
	}
	return n
}
