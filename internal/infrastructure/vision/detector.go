//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"

	"port-vision/internal/domain/entity"
	"port-vision/internal/domain/port"
)

// YOLODetector прогоняет ONNX-экспорт модели YOLOv8 через OpenCV DNN.
type YOLODetector struct {
	InputSize      int
	ScoreThreshold float32
	NMSThreshold   float32

	name   string
	labels []string

	// gocv.Net не потокобезопасен
	mu  sync.Mutex
	net gocv.Net
}

// NewYOLODetector загружает модель один раз; держите детектор всё время жизни процесса.
func NewYOLODetector(name, modelPath string, labels []string) (*YOLODetector, error) {
	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("load model %s: empty network", modelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("load model %s: %w", modelPath, err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("load model %s: %w", modelPath, err)
	}

	return &YOLODetector{
		InputSize:      defaultInputSize,
		ScoreThreshold: defaultScoreThreshold,
		NMSThreshold:   defaultNMSThreshold,
		name:           name,
		labels:         labels,
		net:            net,
	}, nil
}

// Name возвращает имя модели
func (d *YOLODetector) Name() string {
	return d.name
}

// Close освобождает сеть
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// Detect ищет на изображении размеченные области портов.
func (d *YOLODetector) Detect(ctx context.Context, imageData []byte) (*entity.DetectionResult, error) {
	mat, err := decodeToMat(imageData)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, errors.New("empty image")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lb := newLetterbox(mat.Cols(), mat.Rows(), d.InputSize)
	input := letterboxMat(mat, lb)
	defer input.Close()

	// Каналы остаются в порядке BGR (swapRB=false)
	blob := gocv.BlobFromImage(input, 1.0/255.0, image.Pt(d.InputSize, d.InputSize), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	d.mu.Unlock()
	defer out.Close()

	sizes := out.Size()
	if len(sizes) != 3 {
		return nil, fmt.Errorf("model %s: unexpected output dims %v", d.name, sizes)
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("model %s: read output: %w", d.name, err)
	}

	cands, err := decodeYOLOv8(data, sizes[1], sizes[2], d.ScoreThreshold, lb)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", d.name, err)
	}

	result := &entity.DetectionResult{Model: d.name}
	if len(cands) == 0 {
		return result, nil
	}

	rects := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		rects[i] = nmsRect(c)
		scores[i] = c.score
	}
	keep := gocv.NMSBoxes(rects, scores, d.ScoreThreshold, d.NMSThreshold)

	result.Detections = toDetections(cands, keep, d.labels)
	return result, nil
}

// letterboxMat масштабирует кадр с сохранением пропорций и добавляет серые поля
func letterboxMat(src gocv.Mat, lb letterbox) gocv.Mat {
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(src, &resized, image.Pt(lb.width, lb.height), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMat()
	gocv.CopyMakeBorder(resized, &padded, lb.top, lb.bottom, lb.left, lb.right,
		gocv.BorderConstant, color.RGBA{R: letterboxPad, G: letterboxPad, B: letterboxPad})
	return padded
}

// decodeToMat превращает байты изображения в gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	return gocv.NewMat(), errors.New("failed to decode image")
}

var _ port.PortDetector = (*YOLODetector)(nil)
