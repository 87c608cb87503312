package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// WhisperConfig configures the speech recognizer binding.
type WhisperConfig struct {
	BaseURL  string
	Language string
	Timeout  time.Duration
}

// DefaultWhisperConfig returns defaults for a local whisper-server.
func DefaultWhisperConfig() WhisperConfig {
	return WhisperConfig{
		BaseURL:  "http://localhost:8080",
		Language: "ru",
		Timeout:  60 * time.Second,
	}
}

// WhisperClient implements Recognizer against the whisper-server /inference
// endpoint: multipart audio upload in, JSON transcript out.
type WhisperClient struct {
	baseURL    string
	language   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWhisperClient creates the recognizer binding.
func NewWhisperClient(cfg WhisperConfig, logger *zap.Logger) *WhisperClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhisperClient{
		baseURL:  cfg.BaseURL,
		language: cfg.Language,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type whisperResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Transcribe uploads the recording and returns the recognized text.
func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("transcribe: empty audio")
	}
	if filename == "" {
		filename = "audio.webm"
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("transcribe: build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("transcribe: write audio: %w", err)
	}
	if err := form.WriteField("language", c.language); err != nil {
		return "", fmt.Errorf("transcribe: write field: %w", err)
	}
	if err := form.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("transcribe: write field: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("transcribe: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("transcribe: build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("transcribe: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcribe: status %d", resp.StatusCode)
	}

	var parsed whisperResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("transcribe: decode response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("transcribe: %s", parsed.Error)
	}

	text := strings.TrimSpace(parsed.Text)
	c.logger.Debug("audio transcribed",
		zap.Int("audio_bytes", len(audio)),
		zap.Int("text_len", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}
