// Package spectrarag provides a high-level façade over the coordination
// substrate (message bus, agent handlers, coordinator, session resources)
// enabling retrieval-augmented conversations over per-session documents.
// Most applications interact with this package by:
//  1. Creating a SpectraRAG via New() (optionally overriding collaborators)
//  2. Creating a session and uploading a document (UploadDocument)
//  3. Asking questions against the session (Ask)
//
// The façade delegates turn orchestration to coordinator.Coordinator while
// keeping setup ergonomics concise. All defaults are safe for local use and
// testing: a deterministic hashing embedder, a mock generator and on-disk
// storage under ./DATA. Production deployments supply provider-backed
// collaborators and a structured logger.
package spectrarag

import (
	"context"

	"github.com/kumar8074/SpectraRAG/agent"
	"github.com/kumar8074/SpectraRAG/bus"
	"github.com/kumar8074/SpectraRAG/coordinator"
	"github.com/kumar8074/SpectraRAG/core"
	"github.com/kumar8074/SpectraRAG/embedding"
	"github.com/kumar8074/SpectraRAG/llm"
	"github.com/kumar8074/SpectraRAG/logging"
	"github.com/kumar8074/SpectraRAG/parser"
	"github.com/kumar8074/SpectraRAG/session"
	"github.com/kumar8074/SpectraRAG/uploads"
	"github.com/kumar8074/SpectraRAG/vectorstore"
)

// Options configures the SpectraRAG instance.
type Options struct {
	// DataDir is the root of per-session storage (uploads plus persisted
	// vector indexes).
	DataDir string

	// Collaborators (defaults to local implementations if not provided).
	Embedder  core.Embedder
	Generator core.Generator
	Parser    core.Parser

	// Retrieval tuning.
	TopK          int
	ExpandQueries bool
	ExpandedCount int

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// SpectraRAG is the high-level façade aggregating the coordinator and the
// session resource manager.
type SpectraRAG struct {
	opts     Options
	sessions *session.Manager
	bus      *bus.Bus
	coord    *coordinator.Coordinator
}

// New creates a SpectraRAG instance with optional overrides. Any unset
// collaborator is initialized with a local implementation.
func New(optFns ...func(o *Options)) *SpectraRAG {
	opts := Options{
		DataDir:       "DATA",
		TopK:          4,
		ExpandQueries: true,
		ExpandedCount: 3,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Embedder == nil {
		opts.Embedder = embedding.NewHashEmbedder(0)
	}
	if opts.Generator == nil {
		opts.Generator = llm.NewMockGenerator()
	}
	if opts.Parser == nil {
		opts.Parser = parser.NewSet()
	}

	index := vectorstore.New(func(o *vectorstore.Options) { o.Root = opts.DataDir })
	files := uploads.NewStore(opts.DataDir)
	sessions := session.NewManager(files, index, func(o *session.Options) { o.Logger = opts.Logger })

	b := bus.New(func(o *bus.Options) { o.Logger = opts.Logger })
	b.Register(agent.NewIngestion(opts.Parser, opts.Embedder, index, sessions,
		func(o *agent.IngestionOptions) { o.Logger = opts.Logger }))
	b.Register(agent.NewRetrieval(opts.Embedder, index, opts.Generator, func(o *agent.RetrievalOptions) {
		o.TopK = opts.TopK
		o.ExpandQueries = opts.ExpandQueries
		o.ExpandedCount = opts.ExpandedCount
		o.Logger = opts.Logger
	}))
	b.Register(agent.NewResponse(opts.Generator, func(o *agent.ResponseOptions) { o.Logger = opts.Logger }))
	b.Register(agent.NewGeneral(opts.Generator, func(o *agent.GeneralOptions) { o.Logger = opts.Logger }))

	coord := coordinator.New(sessions, b, func(o *coordinator.Options) { o.Logger = opts.Logger })

	return &SpectraRAG{opts: opts, sessions: sessions, bus: b, coord: coord}
}

// CreateSession allocates a fresh empty session and returns its id.
func (s *SpectraRAG) CreateSession() (string, error) {
	sess, err := s.sessions.Create()
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

// Session returns the live session record.
func (s *SpectraRAG) Session(sessionID string) (*core.Session, error) {
	return s.sessions.Get(sessionID)
}

// UploadDocument stores the document in the session's upload directory and
// runs the ingestion pipeline. It returns the turn result carrying the chunk
// count and the trace id.
func (s *SpectraRAG) UploadDocument(ctx context.Context, sessionID, name string, data []byte) (*coordinator.TurnResult, error) {
	path, err := s.sessions.SaveUpload(sessionID, name, data)
	if err != nil {
		return nil, err
	}
	return s.coord.HandleTurn(ctx, sessionID, coordinator.EmbedOnlyMarker, path)
}

// Ask runs one conversational turn against the session.
func (s *SpectraRAG) Ask(ctx context.Context, sessionID, query string) (*coordinator.TurnResult, error) {
	return s.coord.HandleTurn(ctx, sessionID, query, "")
}

// HandleTurn exposes the raw coordinator entrypoint, including the
// embed-only sentinel route.
func (s *SpectraRAG) HandleTurn(ctx context.Context, sessionID, query, fileRef string) (*coordinator.TurnResult, error) {
	return s.coord.HandleTurn(ctx, sessionID, query, fileRef)
}

// History returns the session's chat history.
func (s *SpectraRAG) History(sessionID string) ([]core.ChatRecord, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.History(), nil
}

// DestroySession releases the session's resources: vector index, uploads and
// pending bus traffic. Idempotent.
func (s *SpectraRAG) DestroySession(sessionID string) error {
	if err := s.sessions.Destroy(sessionID); err != nil {
		return err
	}
	s.bus.Release(sessionID)
	return nil
}
