// Package config loads process configuration from the environment. Defaults
// mirror the documented provider setup: OpenAI for both generation and
// embeddings, with Anthropic available as an alternative LLM provider.
package config

import (
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Supported provider identifiers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Config holds all configuration values.
type Config struct {
	// Provider selection
	LLMProvider       string `envconfig:"LLM_PROVIDER" default:"openai"`
	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER" default:"openai"`

	// API keys
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`

	// Model settings
	OpenAILLMModel       string `envconfig:"OPENAI_LLM_MODEL" default:"gpt-4.1-2025-04-14"`
	OpenAIEmbeddingModel string `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	AnthropicLLMModel    string `envconfig:"ANTHROPIC_LLM_MODEL" default:"claude-opus-4-20250514"`

	// Session storage
	DataDir string `envconfig:"DATA_DIR" default:"DATA"`

	// Retrieval
	TopK           int  `envconfig:"RETRIEVAL_TOP_K" default:"4"`
	ExpandQueries  bool `envconfig:"RETRIEVAL_EXPAND_QUERIES" default:"true"`
	ExpandedCount  int  `envconfig:"RETRIEVAL_EXPANDED_COUNT" default:"3"`

	// Server
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// Logging
	LogFile  string `envconfig:"LOG_FILE"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SlogLevel converts the configured log level string into a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
