package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"port-vision/internal/domain/entity"
	"port-vision/internal/domain/port"
)

var supportedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

// SupportedImage проверяет расширение файла изображения (без учёта регистра)
func SupportedImage(name string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// InspectionService прогоняет изображение через все модели и объединяет их голоса.
type InspectionService struct {
	detectors []port.PortDetector
	parser    LabelParser
	reports   port.ReportRepository
	images    port.ImageArchive
	log       *logrus.Entry
	now       func() time.Time

	// mu делает запись изображения и отчёта одной операцией для параллельных загрузок.
	mu sync.Mutex
}

// NewInspectionService создаёт сервис проверки. Модели загружаются один раз и передаются сюда.
func NewInspectionService(detectors []port.PortDetector, reports port.ReportRepository, images port.ImageArchive, parser LabelParser, log *logrus.Entry) *InspectionService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &InspectionService{
		detectors: detectors,
		parser:    parser,
		reports:   reports,
		images:    images,
		log:       log.WithField("component", "inspection"),
		now:       time.Now,
	}
}

// Inspect проверяет изображение, сохраняет и возвращает итоговый отчёт по портам.
func (s *InspectionService) Inspect(ctx context.Context, imageName string, data []byte) (*entity.Inspection, error) {
	if len(s.detectors) == 0 {
		return nil, entity.ErrNoDetectors
	}
	if len(data) == 0 {
		return nil, entity.ErrEmptyImage
	}
	if !SupportedImage(imageName) {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnsupportedImage, imageName)
	}

	results, err := s.detectAll(ctx, data)
	if err != nil {
		return nil, err
	}

	tables := make([]entity.PortTable, 0, len(results))
	models := make([]entity.ModelVerdict, 0, len(results))
	for _, res := range results {
		table := ExtractPorts(res, s.parser)
		tables = append(tables, table)
		models = append(models, entity.ModelVerdict{
			Model:      res.Model,
			Detections: len(res.Detections),
			Ports:      table.Report(),
		})
	}
	final := AggregatePorts(tables...)

	inspection := &entity.Inspection{
		ID:        uuid.NewString(),
		Image:     filepath.Base(imageName),
		Ports:     final.Report(),
		Models:    models,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store(ctx, inspection, data); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"inspection_id": inspection.ID,
		"tally":         TallyVotes(tables...),
	}).Debug("port votes")
	s.log.WithFields(logrus.Fields{
		"inspection_id": inspection.ID,
		"image":         inspection.Image,
		"connected":     final.ConnectedPorts(),
	}).Info("inspection finished")

	return inspection, nil
}

// detectAll запускает модели параллельно: таблицы моделей независимы, ждать нужно только свёртку.
func (s *InspectionService) detectAll(ctx context.Context, data []byte) ([]*entity.DetectionResult, error) {
	results := make([]*entity.DetectionResult, len(s.detectors))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range s.detectors {
		g.Go(func() error {
			started := time.Now()
			res, err := d.Detect(gctx, data)
			if err != nil {
				return fmt.Errorf("model %s: %w", d.Name(), err)
			}
			if res == nil {
				res = &entity.DetectionResult{}
			}
			if res.Model == "" {
				res.Model = d.Name()
			}
			s.log.WithFields(logrus.Fields{
				"model":      res.Model,
				"detections": len(res.Detections),
				"elapsed":    time.Since(started).String(),
			}).Debug("model finished")
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (s *InspectionService) store(ctx context.Context, inspection *entity.Inspection, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.images != nil {
		if err := s.images.Put(ctx, inspection.Image, data); err != nil {
			return fmt.Errorf("archive image: %w", err)
		}
	}
	if s.reports != nil {
		if err := s.reports.Save(ctx, inspection); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
	}
	return nil
}

// Latest возвращает последний сохранённый отчёт.
func (s *InspectionService) Latest(ctx context.Context) (*entity.Inspection, error) {
	if s.reports == nil {
		return nil, entity.ErrNoReport
	}
	return s.reports.Latest(ctx)
}

// History возвращает последние отчёты, новые первыми.
func (s *InspectionService) History(ctx context.Context, limit int) ([]*entity.Inspection, error) {
	if s.reports == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return s.reports.List(ctx, limit)
}

// Models возвращает имена подключённых моделей в порядке голосования.
func (s *InspectionService) Models() []string {
	names := make([]string, 0, len(s.detectors))
	for _, d := range s.detectors {
		names = append(names, d.Name())
	}
	return names
}
