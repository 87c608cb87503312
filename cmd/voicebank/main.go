// voicebank is a conversational front-end for a toy banking account: it
// turns free-text or transcribed-speech utterances into banking actions and
// speaks the replies back.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"voicebank/internal/bank"
	"voicebank/internal/config"
	"voicebank/internal/dialog"
	"voicebank/internal/llm"
	"voicebank/internal/nlu"
	"voicebank/internal/server"
	"voicebank/internal/speech"
)

var (
	configPath string
	addr       string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "voicebank",
	Short: "Voice banking assistant",
	Long: `voicebank serves a conversational banking assistant: balance inquiries,
card lookups and confirmed money transfers, over text or voice.

Intent extraction runs deterministic fuzzy rules first and delegates to a
chat model when no rule matches (configurable via nlu.strategy).`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config")
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level %q: %w", cfg.Level, err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	account, err := bank.NewAccount(cfg.Account.Owner, cfg.Account.CardNumber, cfg.OpeningBalance())
	if err != nil {
		return fmt.Errorf("account: %w", err)
	}

	entries := make([]bank.DirectoryEntry, 0, len(cfg.Contacts))
	for _, c := range cfg.Contacts {
		entries = append(entries, bank.DirectoryEntry{
			Alias:   c.Alias,
			Contact: bank.Contact{DisplayName: c.Name, CardNumber: c.CardNumber},
		})
	}
	directory := bank.NewDirectory(entries)

	llmTimeout, _ := cfg.LLMTimeout()
	client := llm.NewOllamaClient(llm.OllamaConfig{
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     llmTimeout,
	}, logger.Named("llm"))

	model := nlu.NewModelExtractor(client, account, directory, logger.Named("nlu"))
	var extractor nlu.Extractor = model
	if cfg.NLU.Strategy == config.StrategyRules {
		extractor = nlu.NewRuleExtractor(directory, model, logger.Named("nlu"))
	}

	engine := dialog.NewEngine(extractor, dialog.NewExecutor(account, directory, logger.Named("dialog")), logger.Named("dialog"))

	speechTimeout, _ := cfg.SpeechTimeout()
	recognizer := speech.NewWhisperClient(speech.WhisperConfig{
		BaseURL:  cfg.Speech.WhisperBaseURL,
		Language: cfg.Speech.Language,
		Timeout:  speechTimeout,
	}, logger.Named("stt"))

	synthesizer, err := speech.NewGoogleTTS(speech.TTSConfig{
		BaseURL:   cfg.Speech.TTSBaseURL,
		Language:  cfg.Speech.Language,
		StaticDir: cfg.Server.StaticDir,
		Timeout:   speechTimeout,
	}, logger.Named("tts"))
	if err != nil {
		return err
	}

	srv := server.New(engine, recognizer, synthesizer, server.Config{
		StaticDir:     cfg.Server.StaticDir,
		PublicBaseURL: cfg.Server.PublicBaseURL,
		AllowOrigins:  cfg.Server.AllowOrigins,
	}, logger.Named("http"))

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("strategy", cfg.NLU.Strategy),
			zap.String("model", cfg.LLM.Model))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
