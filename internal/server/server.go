// Package server is the owning HTTP layer around the dialog core: request
// decoding, CORS, static audio serving and the voice upload path. It holds
// no banking state and converts every failure into a user-facing reply;
// transport-level 5xx responses are reserved for malformed requests to the
// service itself.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"voicebank/internal/dialog"
	"voicebank/internal/speech"
)

// maxUploadBytes caps voice uploads.
const maxUploadBytes = 10 << 20

// defaultSession is used when the client does not identify itself. Single
// anonymous clients then behave like the original single-user assistant
// while identified clients get isolated confirmation state.
const defaultSession = "default"

// Engine is the dialog entry point the server drives.
type Engine interface {
	HandleTurn(ctx context.Context, sessionID, utterance string) dialog.Result
}

// Config holds the server's own settings.
type Config struct {
	StaticDir     string
	PublicBaseURL string
	AllowOrigins  []string
}

// Server wires the dialog engine and the speech bindings to HTTP.
type Server struct {
	engine      Engine
	recognizer  speech.Recognizer
	synthesizer speech.Synthesizer
	cfg         Config
	logger      *zap.Logger
	speaking    atomic.Bool
}

// New creates the server. recognizer and synthesizer may be nil, which
// disables the voice path and audio replies respectively.
func New(engine Engine, recognizer speech.Recognizer, synthesizer speech.Synthesizer, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:      engine,
		recognizer:  recognizer,
		synthesizer: synthesizer,
		cfg:         cfg,
		logger:      logger,
	}
}

// Router builds the chi router with CORS and the API surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Post("/api/message", s.handleMessage)
	r.Post("/api/chat/voice", s.handleVoice)
	r.Get("/api/speaking", s.handleSpeaking)

	if s.cfg.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.StaticDir))))
	}
	return r
}

type messageRequest struct {
	Text string `json:"text"`
}

type messageResponse struct {
	Answer   string  `json:"answer"`
	AudioURL *string `json:"audio_url"`
}

type voiceResponse struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	AudioURL *string `json:"audio_url"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	res := s.engine.HandleTurn(r.Context(), sessionID(r), req.Text)
	s.writeJSON(w, messageResponse{
		Answer:   res.Message,
		AudioURL: s.maybeSpeak(r.Context(), res),
	})
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if s.recognizer == nil {
		http.Error(w, "voice input is not configured", http.StatusNotImplemented)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("audio_file")
	if err != nil {
		http.Error(w, "audio_file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	question, err := s.recognizer.Transcribe(r.Context(), audio, header.Filename)
	if err != nil {
		// Recognition failure is surfaced as the reply; no turn is processed
		// and no state changes.
		s.logger.Warn("speech recognition failed", zap.Error(err))
		s.writeJSON(w, voiceResponse{
			Answer: "Ошибка распознавания речи: " + err.Error(),
		})
		return
	}

	res := s.engine.HandleTurn(r.Context(), sessionID(r), question)
	s.writeJSON(w, voiceResponse{
		Question: question,
		Answer:   res.Message,
		AudioURL: s.maybeSpeak(r.Context(), res),
	})
}

func (s *Server) handleSpeaking(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]bool{"speaking": s.speaking.Load()})
}

// maybeSpeak synthesizes the reply and returns its public URL. Confirmation
// prompts are never voiced (the original behavior: the user answers them by
// typing or speaking, not after playback). Synthesis failures degrade to a
// text-only reply.
func (s *Server) maybeSpeak(ctx context.Context, res dialog.Result) *string {
	if s.synthesizer == nil || res.RequiresConfirmation {
		return nil
	}

	s.speaking.Store(true)
	defer s.speaking.Store(false)

	name, err := s.synthesizer.Synthesize(ctx, res.Message)
	if err != nil {
		if errors.Is(err, speech.ErrUnspeakable) {
			s.logger.Error("reply rejected by synthesizer, check message rendering", zap.String("message", res.Message))
		} else {
			s.logger.Warn("speech synthesis failed", zap.Error(err))
		}
		return nil
	}
	url := s.cfg.PublicBaseURL + "/static/" + name
	return &url
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func sessionID(r *http.Request) string {
	if id := r.Header.Get("X-Session-Id"); id != "" {
		return id
	}
	return defaultSession
}
