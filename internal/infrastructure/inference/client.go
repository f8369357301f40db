package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"port-vision/internal/domain/entity"
	"port-vision/internal/domain/port"
)

const (
	defaultRetries = 3
	defaultBackoff = 200 * time.Millisecond
	maxErrorBody   = 512
)

// Client вызывает модель, развёрнутую на отдельном сервере инференса.
type Client struct {
	name       string
	url        string
	httpClient *http.Client
	retries    uint64
	backoff    time.Duration
}

// Option настраивает клиент
type Option func(*Client)

// WithHTTPClient задаёт HTTP-клиент (таймауты, транспорт)
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithRetry задаёт число повторов и начальную задержку
func WithRetry(retries uint64, backoff time.Duration) Option {
	return func(cl *Client) {
		cl.retries = retries
		cl.backoff = backoff
	}
}

// NewClient создаёт клиент модели name по адресу url
func NewClient(name, url string, opts ...Option) *Client {
	c := &Client{
		name:       name,
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retries:    defaultRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type detectResponse struct {
	Model      string `json:"model"`
	Detections []struct {
		Label      string     `json:"label"`
		Confidence float64    `json:"confidence"`
		Box        [4]float64 `json:"box"`
	} `json:"detections"`
}

// Name возвращает имя модели
func (c *Client) Name() string {
	return c.name
}

// Detect отправляет изображение на сервер; сетевые ошибки и 5xx повторяются.
func (c *Client) Detect(ctx context.Context, imageData []byte) (*entity.DetectionResult, error) {
	body, contentType, err := multipartImage(imageData)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	b := retry.WithMaxRetries(c.retries, retry.NewFibonacci(c.backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		return c.post(ctx, body, contentType, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("inference %s: %w", c.name, err)
	}

	result := &entity.DetectionResult{Model: resp.Model, Detections: make([]entity.Detection, 0, len(resp.Detections))}
	if result.Model == "" {
		result.Model = c.name
	}
	for _, d := range resp.Detections {
		result.Detections = append(result.Detections, entity.Detection{
			Label: d.Label,
			Score: d.Confidence,
			Box:   entity.BoundingBox{X1: d.Box[0], Y1: d.Box[1], X2: d.Box[2], Y2: d.Box[3]},
		})
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, body []byte, contentType string, out *detectResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return retry.RetryableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return retry.RetryableError(fmt.Errorf("server returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg)))
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	*out = detectResponse{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func multipartImage(imageData []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", "image")
	if err != nil {
		return nil, "", fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, "", fmt.Errorf("build multipart: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("build multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var _ port.PortDetector = (*Client)(nil)
