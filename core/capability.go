package core

import "context"

// Parser is the document parsing capability consumed by the ingestion agent.
// Implementations dispatch on file format and return ordered chunks.
// Failures are reported as *Error with UNSUPPORTED_FORMAT or PARSE_FAILED.
type Parser interface {
	Parse(ctx context.Context, fileRef string) ([]DocumentChunk, error)
}

// Embedder is the text embedding capability. EmbedBatch is preferred for
// bulk ingestion; Embed serves single query vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the name of the embedding model being used.
	Model() string
}

// VectorIndex is the session-scoped vector storage capability. Each session
// owns exactly one logical index; Replace swaps the whole index atomically so
// retried ingestion never duplicates vectors.
type VectorIndex interface {
	// Replace builds a fresh index for the session from the given vectors
	// and chunks (parallel slices) and atomically replaces any prior index.
	// It returns the new index reference.
	Replace(ctx context.Context, sessionID string, vectors [][]float32, chunks []DocumentChunk) (string, error)

	// Search returns up to k chunks ranked by similarity, most relevant
	// first. It fails with VECTOR_STORE_MISSING when the session has no
	// index or the index is empty.
	Search(ctx context.Context, sessionID string, vector []float32, k int) ([]RetrievedChunk, error)

	// Drop releases the session's index and deletes persisted vectors.
	// Dropping an absent index is a no-op.
	Drop(sessionID string) error
}

// Generator is the text generation capability backed by an LLM provider.
// Failures are reported as *Error with PROVIDER_ERROR.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
