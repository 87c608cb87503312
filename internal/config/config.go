// Package config loads the voicebank configuration: defaults first, then an
// optional YAML file, then environment overrides for endpoints and
// addresses. Validation happens once at load time so the rest of the process
// can trust the values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds all voicebank configuration.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	LLM      LLMConfig       `yaml:"llm"`
	Speech   SpeechConfig    `yaml:"speech"`
	Account  AccountConfig   `yaml:"account"`
	Contacts []ContactConfig `yaml:"contacts"`
	NLU      NLUConfig       `yaml:"nlu"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP service layer.
type ServerConfig struct {
	Addr          string   `yaml:"addr"`
	StaticDir     string   `yaml:"static_dir"`
	PublicBaseURL string   `yaml:"public_base_url"`
	AllowOrigins  []string `yaml:"allow_origins"`
}

// LLMConfig configures the chat-completion backend.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	Timeout     string  `yaml:"timeout"`
}

// SpeechConfig configures the STT and TTS bindings.
type SpeechConfig struct {
	WhisperBaseURL string `yaml:"whisper_base_url"`
	TTSBaseURL     string `yaml:"tts_base_url"`
	Language       string `yaml:"language"`
	Timeout        string `yaml:"timeout"`
}

// AccountConfig seeds the in-memory ledger.
type AccountConfig struct {
	Owner      string `yaml:"owner"`
	Balance    string `yaml:"balance"`
	CardNumber string `yaml:"card_number"`
}

// ContactConfig seeds one directory entry.
type ContactConfig struct {
	Alias      string `yaml:"alias"`
	Name       string `yaml:"name"`
	CardNumber string `yaml:"card_number"`
}

// NLU strategies.
const (
	StrategyRules = "rules" // deterministic classifier with model fallback
	StrategyModel = "model" // model-delegated extraction only
)

// NLUConfig selects the intent extraction strategy.
type NLUConfig struct {
	Strategy string `yaml:"strategy"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration: a local Ollama daemon, a local
// whisper-server, and the demo account with its three contacts.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          ":8000",
			StaticDir:     "static",
			PublicBaseURL: "http://localhost:8000",
			AllowOrigins:  []string{"http://localhost:5173"},
		},
		LLM: LLMConfig{
			BaseURL:     "http://localhost:11434",
			Model:       "qwen2.5:1.5b",
			Temperature: 0.2,
			Timeout:     "60s",
		},
		Speech: SpeechConfig{
			WhisperBaseURL: "http://localhost:8080",
			TTSBaseURL:     "https://translate.google.com",
			Language:       "ru",
			Timeout:        "60s",
		},
		Account: AccountConfig{
			Owner:      "Иван Иванов",
			Balance:    "10000",
			CardNumber: "1234 5678 9012 3456",
		},
		Contacts: []ContactConfig{
			{Alias: "алексей", Name: "Алексей Петров", CardNumber: "4321 8765 2109 6543"},
			{Alias: "мария", Name: "Мария Смирнова", CardNumber: "9876 5432 1098 7654"},
			{Alias: "мама", Name: "Анна Владимировна", CardNumber: "3939 1223 8292 5436"},
		},
		NLU: NLUConfig{
			Strategy: StrategyRules,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path (when path is non-empty), applies
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Environment override variables.
const (
	envAddr           = "VOICEBANK_ADDR"
	envLLMBaseURL     = "VOICEBANK_LLM_BASE_URL"
	envLLMModel       = "VOICEBANK_LLM_MODEL"
	envWhisperBaseURL = "VOICEBANK_WHISPER_BASE_URL"
	envTTSBaseURL     = "VOICEBANK_TTS_BASE_URL"
)

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(envAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(envLLMBaseURL); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv(envLLMModel); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv(envWhisperBaseURL); v != "" {
		c.Speech.WhisperBaseURL = v
	}
	if v := os.Getenv(envTTSBaseURL); v != "" {
		c.Speech.TTSBaseURL = v
	}
}

// Validate checks invariants the rest of the process relies on.
func (c *Config) Validate() error {
	switch c.NLU.Strategy {
	case StrategyRules, StrategyModel:
	default:
		return fmt.Errorf("nlu.strategy %q: must be %q or %q", c.NLU.Strategy, StrategyRules, StrategyModel)
	}

	balance, err := decimal.NewFromString(c.Account.Balance)
	if err != nil {
		return fmt.Errorf("account.balance %q: %w", c.Account.Balance, err)
	}
	if balance.IsNegative() {
		return fmt.Errorf("account.balance %q: must not be negative", c.Account.Balance)
	}

	if _, err := c.LLMTimeout(); err != nil {
		return fmt.Errorf("llm.timeout %q: %w", c.LLM.Timeout, err)
	}
	if _, err := c.SpeechTimeout(); err != nil {
		return fmt.Errorf("speech.timeout %q: %w", c.Speech.Timeout, err)
	}
	return nil
}

// OpeningBalance returns the validated opening balance.
func (c *Config) OpeningBalance() decimal.Decimal {
	d, _ := decimal.NewFromString(c.Account.Balance)
	return d
}

// LLMTimeout parses the LLM call timeout.
func (c *Config) LLMTimeout() (time.Duration, error) {
	return time.ParseDuration(c.LLM.Timeout)
}

// SpeechTimeout parses the speech call timeout.
func (c *Config) SpeechTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Speech.Timeout)
}
