package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"port-vision/internal/domain/entity"
)

const (
	welcomeText       = "Welcome to the Image Processing API!"
	defaultHistory    = 20
	maxHistory        = 100
	multipartMemLimit = 8 << 20
)

// Inspections то, что HTTP-слою нужно от сервиса проверки
type Inspections interface {
	Inspect(ctx context.Context, imageName string, data []byte) (*entity.Inspection, error)
	Latest(ctx context.Context) (*entity.Inspection, error)
	History(ctx context.Context, limit int) ([]*entity.Inspection, error)
	Models() []string
}

// Server HTTP API загрузки изображений и выдачи отчётов
type Server struct {
	inspections Inspections
	log         *logrus.Entry
	maxUpload   int64
}

// New создаёт сервер; maxUploadBytes ограничивает размер тела запроса /upload
func New(inspections Inspections, maxUploadBytes int64, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		inspections: inspections,
		log:         log.WithField("component", "http"),
		maxUpload:   maxUploadBytes,
	}
}

// Handler возвращает корневой обработчик
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: s.log, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))

	r.Get("/", s.index)
	r.Post("/upload", s.upload)
	r.Get("/get_json", s.latest)
	r.Get("/reports", s.history)
	r.Get("/models", s.models)

	return r
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, welcomeText)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}
	if err := r.ParseMultipartForm(multipartMemLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeMessage(w, "No file part", http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		// Часть без имени файла multipart считает обычным полем формы.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			writeMessage(w, "No selected file", http.StatusBadRequest)
			return
		}
		writeMessage(w, "No file part", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeMessage(w, "No selected file", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErr(w, r, err, http.StatusBadRequest)
		return
	}

	inspection, err := s.inspections.Inspect(r.Context(), header.Filename, data)
	if err != nil {
		status := inspectStatus(err)
		if status < http.StatusInternalServerError {
			s.log.WithError(err).WithFields(logrus.Fields{
				"image":      header.Filename,
				"request_id": middleware.GetReqID(r.Context()),
			}).Warn("inspection rejected")
		}
		s.writeErr(w, r, err, status)
		return
	}

	writeJSON(w, http.StatusOK, inspection)
}

func inspectStatus(err error) int {
	switch {
	case errors.Is(err, entity.ErrEmptyImage), errors.Is(err, entity.ErrUnsupportedImage):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrNoDetectors):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) latest(w http.ResponseWriter, r *http.Request) {
	inspection, err := s.inspections.Latest(r.Context())
	if errors.Is(err, entity.ErrNoReport) {
		writeMessage(w, "No JSON data available", http.StatusNotFound)
		return
	}
	if err != nil {
		s.writeErr(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, inspection)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistory
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeMessage(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistory)
	}

	reports, err := s.inspections.History(r.Context(), limit)
	if err != nil {
		s.writeErr(w, r, err, http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []*entity.Inspection{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (s *Server) models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": s.inspections.Models()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeErr отдаёт текст ошибки клиенту только для 4xx; детали 5xx остаются в логе
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WithFields(logrus.Fields{
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		}).Error("request failed")
		writeMessage(w, http.StatusText(status), status)
		return
	}
	writeMessage(w, err.Error(), status)
}

func writeMessage(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
