package llm

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kumar8074/SpectraRAG/core"
)

// OpenAIOptions configure the OpenAI generator.
type OpenAIOptions struct {
	APIKey              string
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// OpenAI wraps the OpenAI Chat Completions API behind core.Generator.
type OpenAI struct {
	client *openai.Client
	opts   OpenAIOptions
}

// NewOpenAI creates a new OpenAI generator using the official client. An
// empty APIKey falls back to the OPENAI_API_KEY environment variable handled
// by the SDK.
func NewOpenAI(optFns ...func(o *OpenAIOptions)) *OpenAI {
	opts := OpenAIOptions{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)

	return &OpenAI{client: &client, opts: opts}
}

// Generate implements core.Generator with a single-turn completion.
func (g *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:               g.opts.Model,
		Temperature:         openai.Float(g.opts.Temperature),
		MaxCompletionTokens: openai.Int(g.opts.MaxCompletionTokens),
	})
	if err != nil {
		return "", core.WrapCollaborator(core.CodeProviderError, "openai api error", err)
	}
	if len(resp.Choices) == 0 {
		return "", core.WrapCollaborator(core.CodeProviderError, "openai returned no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}
