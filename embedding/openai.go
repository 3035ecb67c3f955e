package embedding

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kumar8074/SpectraRAG/core"
)

const defaultOpenAIModel = "text-embedding-3-small"

// OpenAIClient implements core.Embedder using the OpenAI embeddings API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient constructs an embedder for the given model. An empty model
// selects text-embedding-3-small; an empty apiKey falls back to the
// OPENAI_API_KEY environment variable handled by the SDK.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := openai.NewClient(opts...)
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{client: &client, model: model}
}

// Embed generates an embedding vector for a single text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in a single request.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, core.WrapCollaborator(core.CodeEmbeddingFailed, "openai embeddings request failed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, core.WrapCollaborator(core.CodeEmbeddingFailed, "openai returned unexpected embedding count", nil)
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Model returns the embedding model name.
func (c *OpenAIClient) Model() string { return c.model }
