package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// clearEnv сбрасывает переменные, чтобы окружение разработчика не влияло на тесты
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HTTP_ADDR", "TELEGRAM_TOKEN", "DETECTOR_BACKEND", "MODEL_PATHS", "MODEL_LABELS",
		"MODEL_NAMES", "INFERENCE_URLS", "INFERENCE_TIMEOUT", "STRICT_POLARITY", "REPORT_STORE",
		"OUTPUT_DIR", "INPUT_DIR", "SQLITE_PATH", "DATABASE_URL", "REDIS_ADDR", "MAX_UPLOAD_MB",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_GoCVDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_PATHS", "models/M9.onnx, models/M8.onnx,models/M4.onnx")
	t.Setenv("MODEL_LABELS", "models/data.yaml")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":5000", cfg.HTTPAddr)
	require.Equal(t, BackendGoCV, cfg.DetectorBackend)
	require.Equal(t, StoreFile, cfg.ReportStore)
	require.Equal(t, "output", cfg.OutputDir)
	require.Equal(t, "input", cfg.InputDir)
	require.Equal(t, int64(20), cfg.MaxUploadMB)
	require.Equal(t, 30*time.Second, cfg.InferenceTimeout)
	require.False(t, cfg.StrictPolarity)

	require.Len(t, cfg.Models, RequiredModels)
	require.Equal(t, Model{Name: "M9", Path: "models/M9.onnx", Labels: "models/data.yaml"}, cfg.Models[0])
	require.Equal(t, "M4", cfg.Models[2].Name)
}

func TestLoad_HTTPBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("DETECTOR_BACKEND", "HTTP")
	t.Setenv("INFERENCE_URLS", "http://a/predict,http://b/predict,http://c/predict")
	t.Setenv("MODEL_NAMES", "m9,m8,m4")
	t.Setenv("STRICT_POLARITY", "true")
	t.Setenv("INFERENCE_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendHTTP, cfg.DetectorBackend)
	require.Equal(t, Model{Name: "m8", URL: "http://b/predict"}, cfg.Models[1])
	require.True(t, cfg.StrictPolarity)
	require.Equal(t, 5*time.Second, cfg.InferenceTimeout)
}

func TestLoad_PerModelLabels(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL_PATHS", "a.onnx,b.onnx,c.onnx")
	t.Setenv("MODEL_LABELS", "a.yaml,b.yaml,c.yaml")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "b.yaml", cfg.Models[1].Labels)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"two models":        {"MODEL_PATHS": "a.onnx,b.onnx", "MODEL_LABELS": "x.yaml"},
		"no labels":         {"MODEL_PATHS": "a.onnx,b.onnx,c.onnx"},
		"two label files":   {"MODEL_PATHS": "a.onnx,b.onnx,c.onnx", "MODEL_LABELS": "x.yaml,y.yaml"},
		"unknown backend":   {"DETECTOR_BACKEND": "tflite"},
		"http without urls": {"DETECTOR_BACKEND": "http"},
		"bad names":         {"DETECTOR_BACKEND": "http", "INFERENCE_URLS": "a,b,c", "MODEL_NAMES": "x"},
		"postgres no url":   {"DETECTOR_BACKEND": "http", "INFERENCE_URLS": "a,b,c", "REPORT_STORE": "postgres"},
		"redis no addr":     {"DETECTOR_BACKEND": "http", "INFERENCE_URLS": "a,b,c", "REPORT_STORE": "redis"},
		"unknown store":     {"DETECTOR_BACKEND": "http", "INFERENCE_URLS": "a,b,c", "REPORT_STORE": "mongo"},
		"bad upload limit":  {"DETECTOR_BACKEND": "http", "INFERENCE_URLS": "a,b,c", "MAX_UPLOAD_MB": "0"},
		"bad log format":    {"DETECTOR_BACKEND": "http", "INFERENCE_URLS": "a,b,c", "LOG_FORMAT": "xml"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_InvalidTypedValues(t *testing.T) {
	cases := map[string]map[string]string{
		"polarity yes":     {"STRICT_POLARITY": "yes"},
		"upload not int":   {"MAX_UPLOAD_MB": "twenty"},
		"timeout no units": {"INFERENCE_TIMEOUT": "30"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DETECTOR_BACKEND", "http")
			t.Setenv("INFERENCE_URLS", "a,b,c")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			for k := range env {
				require.Contains(t, err.Error(), k)
			}
		})
	}
}
