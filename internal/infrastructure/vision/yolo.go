package vision

import (
	"fmt"
	"image"
	"math"

	"port-vision/internal/domain/entity"
)

const (
	defaultInputSize      = 640
	defaultScoreThreshold = 0.25
	defaultNMSThreshold   = 0.45

	// Серый цвет полей letterbox
	letterboxPad = 114

	// Смещение рамок по классу, чтобы NMS не подавлял рамки разных классов.
	classOffset = 7680
)

type candidate struct {
	class int
	score float32
	box   entity.BoundingBox
}

// letterbox вписывает кадр в квадратный вход модели без искажения пропорций:
// кадр масштабируется, остаток заполняется полями поровну с двух сторон.
type letterbox struct {
	scale         float64
	width, height int // размер кадра после масштабирования
	left, right   int
	top, bottom   int
	srcW, srcH    int
}

func newLetterbox(cols, rows, size int) letterbox {
	scale := math.Min(float64(size)/float64(rows), float64(size)/float64(cols))
	w := int(math.Round(float64(cols) * scale))
	h := int(math.Round(float64(rows) * scale))
	dw := float64(size-w) / 2
	dh := float64(size-h) / 2

	return letterbox{
		scale:  scale,
		width:  w,
		height: h,
		left:   int(math.Round(dw - 0.1)),
		right:  int(math.Round(dw + 0.1)),
		top:    int(math.Round(dh - 0.1)),
		bottom: int(math.Round(dh + 0.1)),
		srcW:   cols,
		srcH:   rows,
	}
}

// toImage переводит точку входа модели в координаты исходного кадра
func (l letterbox) toImage(x, y float64) (float64, float64) {
	x = (x - float64(l.left)) / l.scale
	y = (y - float64(l.top)) / l.scale
	return clamp(x, float64(l.srcW)), clamp(y, float64(l.srcH))
}

func clamp(v, hi float64) float64 {
	return math.Max(0, math.Min(v, hi))
}

// decodeYOLOv8 разбирает выход модели формы [1, 4+nc, N]:
// для каждого из N якорей cx, cy, w, h и оценки nc классов.
// Оставляет лучший класс якоря, если его оценка не ниже порога.
func decodeYOLOv8(out []float32, channels, anchors int, threshold float32, lb letterbox) ([]candidate, error) {
	if channels <= 4 || anchors <= 0 {
		return nil, fmt.Errorf("unexpected output shape [1 %d %d]", channels, anchors)
	}
	if len(out) < channels*anchors {
		return nil, fmt.Errorf("output has %d values, want %d", len(out), channels*anchors)
	}

	at := func(ch, i int) float32 { return out[ch*anchors+i] }

	var cands []candidate
	for i := 0; i < anchors; i++ {
		best, bestScore := -1, float32(0)
		for c := 4; c < channels; c++ {
			if s := at(c, i); s > bestScore {
				best, bestScore = c-4, s
			}
		}
		if best < 0 || bestScore < threshold {
			continue
		}

		cx, cy, w, h := float64(at(0, i)), float64(at(1, i)), float64(at(2, i)), float64(at(3, i))
		x1, y1 := lb.toImage(cx-w/2, cy-h/2)
		x2, y2 := lb.toImage(cx+w/2, cy+h/2)
		cands = append(cands, candidate{
			class: best,
			score: bestScore,
			box:   entity.BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2},
		})
	}
	return cands, nil
}

// nmsRect рамка для NMS, сдвинутая по номеру класса
func nmsRect(c candidate) image.Rectangle {
	off := c.class * classOffset
	return image.Rect(
		int(c.box.X1)+off, int(c.box.Y1)+off,
		int(c.box.X2)+off, int(c.box.Y2)+off,
	)
}

func labelFor(labels []string, class int) string {
	if class >= 0 && class < len(labels) {
		return labels[class]
	}
	return fmt.Sprintf("class_%d", class)
}

func toDetections(cands []candidate, keep []int, labels []string) []entity.Detection {
	out := make([]entity.Detection, 0, len(keep))
	for _, idx := range keep {
		if idx < 0 || idx >= len(cands) {
			continue
		}
		c := cands[idx]
		out = append(out, entity.Detection{
			Label: labelFor(labels, c.class),
			Score: float64(c.score),
			Box:   c.box,
		})
	}
	return out
}
