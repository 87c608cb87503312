package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ttsChunkRunes is the per-request text limit of the translate endpoint.
// Longer replies are split at whitespace and the MP3 segments concatenated,
// which is valid for MPEG audio streams.
const ttsChunkRunes = 100

// TTSConfig configures the synthesizer binding.
type TTSConfig struct {
	BaseURL   string
	Language  string
	StaticDir string
	Timeout   time.Duration
}

// DefaultTTSConfig returns defaults matching the translate_tts endpoint.
func DefaultTTSConfig() TTSConfig {
	return TTSConfig{
		BaseURL:   "https://translate.google.com",
		Language:  "ru",
		StaticDir: "static",
		Timeout:   30 * time.Second,
	}
}

// GoogleTTS implements Synthesizer against the translate_tts endpoint, the
// same service the gTTS library wraps. Synthesized files are written to the
// static directory as audio_<uuid>.mp3.
type GoogleTTS struct {
	baseURL    string
	language   string
	staticDir  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGoogleTTS creates the synthesizer binding and ensures the static
// directory exists.
func NewGoogleTTS(cfg TTSConfig, logger *zap.Logger) (*GoogleTTS, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.StaticDir, 0o755); err != nil {
		return nil, fmt.Errorf("tts: create static dir: %w", err)
	}
	return &GoogleTTS{
		baseURL:   cfg.BaseURL,
		language:  cfg.Language,
		staticDir: cfg.StaticDir,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}, nil
}

// Synthesize renders text to an MP3 file and returns its name relative to
// the static directory. Unspeakable input is rejected before any network
// call so formatting bugs surface immediately instead of being voiced.
func (g *GoogleTTS) Synthesize(ctx context.Context, text string) (string, error) {
	if err := CheckSpeakable(text); err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)

	var audio []byte
	for _, chunk := range splitChunks(text, ttsChunkRunes) {
		segment, err := g.fetchChunk(ctx, chunk)
		if err != nil {
			return "", err
		}
		audio = append(audio, segment...)
	}

	name := fmt.Sprintf("audio_%s.mp3", uuid.NewString())
	path := filepath.Join(g.staticDir, name)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("tts: write audio file: %w", err)
	}

	g.logger.Debug("speech synthesized",
		zap.Int("text_len", len(text)),
		zap.Int("audio_bytes", len(audio)),
		zap.String("file", name))
	return name, nil
}

func (g *GoogleTTS) fetchChunk(ctx context.Context, chunk string) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", g.language)
	q.Set("q", chunk)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/translate_tts?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("tts: build request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("tts: read audio: %w", err)
	}
	return data, nil
}

// splitChunks splits text into chunks of at most maxRunes, breaking at
// whitespace where possible.
func splitChunks(text string, maxRunes int) []string {
	words := strings.Fields(text)
	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, w := range words {
		wl := len([]rune(w))
		if currentLen > 0 && currentLen+1+wl > maxRunes {
			flush()
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		// A single word longer than the limit goes out as its own chunk.
		current.WriteString(w)
		currentLen += wl
	}
	flush()
	return chunks
}
