package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RequiredModels количество моделей, голоса которых объединяются
const RequiredModels = 3

const (
	BackendGoCV = "gocv"
	BackendHTTP = "http"

	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Model описание одной модели детекции
type Model struct {
	Name   string
	Path   string // ONNX-файл (gocv)
	Labels string // data.yaml или список классов (gocv)
	URL    string // адрес сервера инференса (http)
}

type Config struct {
	HTTPAddr      string
	TelegramToken string

	DetectorBackend  string
	Models           []Model
	InferenceTimeout time.Duration
	StrictPolarity   bool

	ReportStore string
	OutputDir   string
	InputDir    string
	SQLitePath  string
	DatabaseURL string
	RedisAddr   string

	MaxUploadMB int64
	LogLevel    string
	LogFormat   string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	env := &envReader{}
	cfg := &Config{
		HTTPAddr:         getenv("HTTP_ADDR", ":5000"),
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		DetectorBackend:  strings.ToLower(getenv("DETECTOR_BACKEND", BackendGoCV)),
		InferenceTimeout: env.durationVal("INFERENCE_TIMEOUT", 30*time.Second),
		StrictPolarity:   env.boolVal("STRICT_POLARITY", false),
		ReportStore:      strings.ToLower(getenv("REPORT_STORE", StoreFile)),
		OutputDir:        getenv("OUTPUT_DIR", "output"),
		InputDir:         getenv("INPUT_DIR", "input"),
		SQLitePath:       getenv("SQLITE_PATH", filepath.Join("data", "reports.db")),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		MaxUploadMB:      int64(env.intVal("MAX_UPLOAD_MB", 20)),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		LogFormat:        strings.ToLower(getenv("LOG_FORMAT", "text")),
	}
	if err := env.err(); err != nil {
		return nil, err
	}

	models, err := loadModels(cfg.DetectorBackend)
	if err != nil {
		return nil, err
	}
	cfg.Models = models

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadModels(backend string) ([]Model, error) {
	names := listEnv("MODEL_NAMES")

	var models []Model
	switch backend {
	case BackendGoCV:
		paths := listEnv("MODEL_PATHS")
		if len(paths) != RequiredModels {
			return nil, fmt.Errorf("MODEL_PATHS must list %d models, got %d", RequiredModels, len(paths))
		}
		labels := listEnv("MODEL_LABELS")
		if len(labels) != 1 && len(labels) != RequiredModels {
			return nil, fmt.Errorf("MODEL_LABELS must list 1 or %d files, got %d", RequiredModels, len(labels))
		}
		for i, p := range paths {
			m := Model{Path: p, Labels: labels[0]}
			if len(labels) == RequiredModels {
				m.Labels = labels[i]
			}
			models = append(models, m)
		}
	case BackendHTTP:
		urls := listEnv("INFERENCE_URLS")
		if len(urls) != RequiredModels {
			return nil, fmt.Errorf("INFERENCE_URLS must list %d models, got %d", RequiredModels, len(urls))
		}
		for _, u := range urls {
			models = append(models, Model{URL: u})
		}
	default:
		return nil, fmt.Errorf("unknown DETECTOR_BACKEND %q", backend)
	}

	if len(names) != 0 && len(names) != len(models) {
		return nil, fmt.Errorf("MODEL_NAMES must list %d names, got %d", len(models), len(names))
	}
	for i := range models {
		switch {
		case len(names) > 0:
			models[i].Name = names[i]
		case models[i].Path != "":
			models[i].Name = strings.TrimSuffix(filepath.Base(models[i].Path), filepath.Ext(models[i].Path))
		default:
			models[i].Name = fmt.Sprintf("model%d", i+1)
		}
	}
	return models, nil
}

func (c *Config) validate() error {
	switch c.ReportStore {
	case StoreFile, StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for REPORT_STORE=%s", c.ReportStore)
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for REPORT_STORE=%s", c.ReportStore)
		}
	default:
		return fmt.Errorf("unknown REPORT_STORE %q", c.ReportStore)
	}

	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if c.InferenceTimeout <= 0 {
		return fmt.Errorf("INFERENCE_TIMEOUT must be positive")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func listEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// envReader разбирает типизированные переменные и копит ошибки разбора
type envReader struct {
	errs []error
}

func (r *envReader) lookup(key string) (string, bool) {
	val := strings.TrimSpace(os.Getenv(key))
	return val, val != ""
}

func (r *envReader) fail(key, val, kind string) {
	r.errs = append(r.errs, fmt.Errorf("%s: invalid %s %q", key, kind, val))
}

func (r *envReader) intVal(key string, fallback int) int {
	val, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		r.fail(key, val, "integer")
		return fallback
	}
	return n
}

func (r *envReader) boolVal(key string, fallback bool) bool {
	val, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		r.fail(key, val, "boolean")
		return fallback
	}
	return b
}

func (r *envReader) durationVal(key string, fallback time.Duration) time.Duration {
	val, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		r.fail(key, val, "duration")
		return fallback
	}
	return parsed
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}
