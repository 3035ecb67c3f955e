// Package embedding provides text embedding generation with multiple backend
// support. Implementations satisfy core.Embedder; OpenAI serves production
// use while the hashing embedder keeps tests and offline demos deterministic.
package embedding

import (
	"fmt"

	"github.com/kumar8074/SpectraRAG/core"
)

// ProviderType identifies the embedding provider.
type ProviderType string

const (
	// ProviderOpenAI uses the OpenAI embeddings API.
	ProviderOpenAI ProviderType = "openai"

	// ProviderHash uses the local deterministic hashing embedder. No network
	// access, stable vectors; intended for tests and offline runs.
	ProviderHash ProviderType = "hash"
)

// Config holds configuration for creating an Embedder.
type Config struct {
	// Provider specifies which embedding backend to use.
	Provider ProviderType

	// Model is the embedding model name (provider-specific).
	Model string

	// OpenAI-specific
	OpenAIAPIKey string
}

// New creates a core.Embedder based on the provided configuration.
func New(cfg Config) (core.Embedder, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.Model), nil

	case ProviderHash:
		return NewHashEmbedder(0), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
