// Package cli provides the command-line interface for spectrarag.
package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	spectrarag "github.com/kumar8074/SpectraRAG"
	"github.com/kumar8074/SpectraRAG/config"
	"github.com/kumar8074/SpectraRAG/embedding"
	"github.com/kumar8074/SpectraRAG/llm"
	"github.com/kumar8074/SpectraRAG/logging"
)

// Version is set at build time.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "spectrarag",
	Short: "Multi-agent RAG over per-session documents",
	Long: `SpectraRAG coordinates a small team of agents (ingestion, retrieval,
response, general) over an in-process message bus to answer questions
grounded in per-session documents.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() error {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
}

// newInstance wires a SpectraRAG façade from the loaded configuration.
func newInstance(cfg config.Config, logger logging.Logger) (*spectrarag.SpectraRAG, error) {
	gen, err := llm.New(llm.Config{
		Provider:        cfg.LLMProvider,
		Model:           llmModelFor(cfg),
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}

	emb, err := embedding.New(embedding.Config{
		Provider:     embedding.ProviderType(cfg.EmbeddingProvider),
		Model:        cfg.OpenAIEmbeddingModel,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return spectrarag.New(func(o *spectrarag.Options) {
		o.DataDir = cfg.DataDir
		o.Generator = gen
		o.Embedder = emb
		o.TopK = cfg.TopK
		o.ExpandQueries = cfg.ExpandQueries
		o.ExpandedCount = cfg.ExpandedCount
		o.Logger = logger
	}), nil
}

func llmModelFor(cfg config.Config) string {
	if cfg.LLMProvider == config.ProviderAnthropic {
		return cfg.AnthropicLLMModel
	}
	return cfg.OpenAILLMModel
}
