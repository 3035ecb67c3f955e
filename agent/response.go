package agent

import (
	"context"

	"github.com/kumar8074/SpectraRAG/core"
	"github.com/kumar8074/SpectraRAG/logging"
)

// Response handles GENERATE_REQUEST messages carrying retrieved context. It
// constrains the generator to the supplied chunks; when no chunks matched it
// still answers, marked as context-free with Grounded set to false.
type Response struct {
	generator core.Generator
	logger    logging.Logger
}

// ResponseOptions holds dependency overrides passed to NewResponse.
type ResponseOptions struct {
	Logger logging.Logger
}

// NewResponse constructs the response handler.
func NewResponse(generator core.Generator, optFns ...func(o *ResponseOptions)) *Response {
	opts := ResponseOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Response{generator: generator, logger: opts.Logger}
}

// Name implements core.Handler.
func (a *Response) Name() core.AgentName { return core.AgentResponse }

// Handle implements core.Handler.
func (a *Response) Handle(ctx context.Context, msg core.Message) core.Message {
	p, ok := msg.Payload.(core.GenerateRequestPayload)
	if !ok {
		return msg.ReplyError(a.Name(), core.NewProtocolError(core.CodeMalformedMessage, "expected a generate request payload"))
	}

	grounded := len(p.Chunks) > 0
	var prompt string
	if grounded {
		prompt = groundedPrompt(p.Query, p.Chunks)
	} else {
		prompt = contextFreePrompt(p.Query)
	}

	answer, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		return msg.ReplyError(a.Name(), err)
	}
	if !grounded {
		answer = contextFreeMarker + "\n\n" + answer
	}
	if p.Notice != "" {
		answer = p.Notice + "\n\n" + answer
	}

	a.logger.Debug("response generated", "trace_id", msg.TraceID, "grounded", grounded, "sources", len(p.Chunks))
	return msg.Reply(a.Name(), core.GenerateResult, core.GenerateResultPayload{
		Answer:   answer,
		Sources:  p.Chunks,
		Grounded: grounded,
	})
}
