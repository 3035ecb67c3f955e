package agent

import (
	"context"

	"github.com/kumar8074/SpectraRAG/core"
	"github.com/kumar8074/SpectraRAG/logging"
)

// SessionResolver is the narrow session lookup surface the agents need. It
// fails with ErrSessionNotFound or ErrSessionDestroyed so an in-flight
// pipeline step aborts instead of writing into released storage.
type SessionResolver interface {
	Get(sessionID string) (*core.Session, error)
}

// Ingestion handles EMBED_REQUEST messages: it parses the referenced file
// into chunks, embeds them in batch and atomically replaces the session's
// vector index. Re-running ingestion for the same session is idempotent at
// the index level since Replace swaps the whole index.
type Ingestion struct {
	parser   core.Parser
	embedder core.Embedder
	index    core.VectorIndex
	sessions SessionResolver
	logger   logging.Logger
}

// IngestionOptions holds dependency overrides passed to NewIngestion.
type IngestionOptions struct {
	Logger logging.Logger
}

// NewIngestion constructs the ingestion handler.
func NewIngestion(parser core.Parser, embedder core.Embedder, index core.VectorIndex, sessions SessionResolver, optFns ...func(o *IngestionOptions)) *Ingestion {
	opts := IngestionOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Ingestion{
		parser:   parser,
		embedder: embedder,
		index:    index,
		sessions: sessions,
		logger:   opts.Logger,
	}
}

// Name implements core.Handler.
func (a *Ingestion) Name() core.AgentName { return core.AgentIngestion }

// Handle implements core.Handler.
func (a *Ingestion) Handle(ctx context.Context, msg core.Message) core.Message {
	p, ok := msg.Payload.(core.EmbedRequestPayload)
	if !ok {
		return msg.ReplyError(a.Name(), core.NewProtocolError(core.CodeMalformedMessage, "expected an embed request payload"))
	}

	chunks, err := a.parser.Parse(ctx, p.FileRef)
	if err != nil {
		return msg.ReplyError(a.Name(), err)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := a.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return msg.ReplyError(a.Name(), err)
	}

	// The session may have been destroyed while parsing and embedding ran.
	if _, err := a.sessions.Get(p.SessionID); err != nil {
		return msg.ReplyError(a.Name(), err)
	}

	ref, err := a.index.Replace(ctx, p.SessionID, vectors, chunks)
	if err != nil {
		return msg.ReplyError(a.Name(), err)
	}

	a.logger.Info("document ingested",
		"session_id", p.SessionID,
		"trace_id", msg.TraceID,
		"file_ref", p.FileRef,
		"chunks", len(chunks),
		"vector_ref", ref,
		"embedding_model", a.embedder.Model(),
	)
	return msg.Reply(a.Name(), core.EmbedDone, core.EmbedDonePayload{VectorRef: ref, ChunkCount: len(chunks)})
}
