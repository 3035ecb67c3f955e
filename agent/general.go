package agent

import (
	"context"

	"github.com/kumar8074/SpectraRAG/core"
	"github.com/kumar8074/SpectraRAG/logging"
)

// General handles GENERATE_REQUEST messages without document context. It
// answers from the model's own knowledge and never reports sources.
type General struct {
	generator core.Generator
	logger    logging.Logger
}

// GeneralOptions holds dependency overrides passed to NewGeneral.
type GeneralOptions struct {
	Logger logging.Logger
}

// NewGeneral constructs the general handler.
func NewGeneral(generator core.Generator, optFns ...func(o *GeneralOptions)) *General {
	opts := GeneralOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &General{generator: generator, logger: opts.Logger}
}

// Name implements core.Handler.
func (a *General) Name() core.AgentName { return core.AgentGeneral }

// Handle implements core.Handler.
func (a *General) Handle(ctx context.Context, msg core.Message) core.Message {
	p, ok := msg.Payload.(core.GenerateRequestPayload)
	if !ok {
		return msg.ReplyError(a.Name(), core.NewProtocolError(core.CodeMalformedMessage, "expected a generate request payload"))
	}

	answer, err := a.generator.Generate(ctx, generalPrompt(p.Query))
	if err != nil {
		return msg.ReplyError(a.Name(), err)
	}
	if p.Notice != "" {
		answer = p.Notice + "\n\n" + answer
	}

	a.logger.Debug("general answer generated", "trace_id", msg.TraceID)
	return msg.Reply(a.Name(), core.GenerateResult, core.GenerateResultPayload{Answer: answer, Grounded: false})
}
