package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"port-vision/config"
	"port-vision/internal/api/rest"
	telegram "port-vision/internal/api/telegram"
	app "port-vision/internal/application"
	"port-vision/internal/container"
	"port-vision/internal/domain/port"
	"port-vision/internal/infrastructure/inference"
	"port-vision/internal/infrastructure/storage"
	"port-vision/internal/infrastructure/vision"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	setupLogger(log, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Модели загружаются один раз и живут до завершения процесса
	detectors, closeDetectors, err := buildDetectors(cfg, log)
	if err != nil {
		log.Fatalf("Failed to load models: %v", err)
	}
	defer closeDetectors()

	reports, closeReports, err := buildReportRepository(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open report store: %v", err)
	}
	defer closeReports()

	images, err := storage.NewFileImageArchive(cfg.InputDir)
	if err != nil {
		log.Fatalf("Failed to prepare input dir: %v", err)
	}

	// Собираем сервисы приложения
	appContainer := container.New(
		storage.NewMemoryUserRepository(),
		detectors,
		reports,
		images,
		app.LabelParser{StrictPolarity: cfg.StrictPolarity},
		logrus.NewEntry(log),
	)

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, appContainer.UserService, appContainer.InspectionService, logrus.NewEntry(log))
		if err != nil {
			log.Fatalf("Failed to create bot: %v", err)
		}
		go func() {
			log.Info("Bot is running...")
			if err := bot.Run(ctx); err != nil {
				log.Errorf("Bot error: %v", err)
			}
		}()
	}

	srv := rest.New(appContainer.InspectionService, cfg.MaxUploadMB<<20, logrus.NewEntry(log))
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    cfg.HTTPAddr,
			"backend": cfg.DetectorBackend,
			"store":   cfg.ReportStore,
			"models":  appContainer.InspectionService.Models(),
		}).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down...")
	case err := <-errCh:
		log.Errorf("http server: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown error: %v", err)
	}
}

func setupLogger(log *logrus.Logger, cfg *config.Config) {
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
}

func buildDetectors(cfg *config.Config, log *logrus.Logger) ([]port.PortDetector, func(), error) {
	var (
		detectors []port.PortDetector
		closers   []io.Closer
	)
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	for _, m := range cfg.Models {
		switch cfg.DetectorBackend {
		case config.BackendGoCV:
			labels, err := vision.LoadLabels(m.Labels)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("model %s: %w", m.Name, err)
			}
			d, err := vision.NewYOLODetector(m.Name, m.Path, labels)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("model %s: %w", m.Name, err)
			}
			closers = append(closers, d)
			detectors = append(detectors, d)
		case config.BackendHTTP:
			client := inference.NewClient(m.Name, m.URL, inference.WithHTTPClient(&http.Client{Timeout: cfg.InferenceTimeout}))
			detectors = append(detectors, client)
		}
		log.WithFields(logrus.Fields{"model": m.Name, "backend": cfg.DetectorBackend}).Info("model loaded")
	}
	return detectors, closeAll, nil
}

func buildReportRepository(ctx context.Context, cfg *config.Config) (port.ReportRepository, func(), error) {
	noop := func() {}

	switch cfg.ReportStore {
	case config.StoreMemory:
		return storage.NewMemoryReportRepository(0), noop, nil
	case config.StoreSQLite:
		repo, err := storage.NewSQLiteReportRepository(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	case config.StorePostgres:
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		repo, err := storage.NewPostgresReportRepository(connectCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case config.StoreRedis:
		repo, err := storage.NewRedisReportRepository(ctx, cfg.RedisAddr, 0)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	default:
		repo, err := storage.NewFileReportRepository(cfg.OutputDir)
		if err != nil {
			return nil, nil, err
		}
		return repo, noop, nil
	}
}
