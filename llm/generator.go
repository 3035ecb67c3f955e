// Package llm provides core.Generator implementations for the supported LLM
// providers (OpenAI, Anthropic) plus a deterministic mock for tests and
// examples. Adapters convert provider failures into collaborator errors with
// the stable PROVIDER_ERROR code so agents can surface them uniformly.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/kumar8074/SpectraRAG/core"
)

// Config holds configuration for creating a Generator.
type Config struct {
	// Provider is "openai", "anthropic" or "mock".
	Provider string

	// Model is the provider-specific model name; empty selects the
	// provider default.
	Model string

	// API keys
	OpenAIAPIKey    string
	AnthropicAPIKey string
}

// New creates a core.Generator based on the provided configuration.
func New(cfg Config) (core.Generator, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAI(func(o *OpenAIOptions) {
			o.APIKey = cfg.OpenAIAPIKey
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		}), nil

	case "anthropic":
		return NewAnthropic(func(o *AnthropicOptions) {
			o.APIKey = cfg.AnthropicAPIKey
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		}), nil

	case "mock":
		return NewMockGenerator(), nil

	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

// MockGenerator is a lightweight in-memory Generator useful for tests &
// examples. Canned completions are matched by prompt substring; unmatched
// prompts fall through to a deterministic echo.
type MockGenerator struct {
	responses map[string]string
	failWith  error
}

// NewMockGenerator constructs an empty MockGenerator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{responses: make(map[string]string)}
}

// AddResponse registers a canned completion returned for any prompt
// containing the given substring.
func (m *MockGenerator) AddResponse(promptContains, response string) {
	m.responses[promptContains] = response
}

// FailWith makes every subsequent Generate call return err.
func (m *MockGenerator) FailWith(err error) { m.failWith = err }

// Generate implements core.Generator.
func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.failWith != nil {
		return "", core.WrapCollaborator(core.CodeProviderError, "mock generation failed", m.failWith)
	}
	for contains, response := range m.responses {
		if contains != "" && containsFold(prompt, contains) {
			return response, nil
		}
	}
	return fmt.Sprintf("Mock response to: %s", prompt), nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
