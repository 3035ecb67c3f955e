// Package coordinator implements the pipeline state machine driving one user
// turn: it decides the route (ingestion, retrieval plus response, or general
// answer), publishes the pipeline messages, applies the session lifecycle
// transitions and assembles the turn result.
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kumar8074/SpectraRAG/bus"
	"github.com/kumar8074/SpectraRAG/core"
	"github.com/kumar8074/SpectraRAG/logging"
)

// EmbedOnlyMarker is the sentinel query that requests ingestion of the
// attached file without generating an answer.
const EmbedOnlyMarker = "__EMBED_ONLY__"

// ingestingNotice is surfaced on answers produced while the session's
// document is still being embedded.
const ingestingNotice = "Note: your document is still being processed; this answer is based on general knowledge, not the document."

// TurnResult is the outcome of one coordinated turn. TraceID correlates the
// result with every message the turn produced; Messages is that per-trace
// history in delivery order.
type TurnResult struct {
	TraceID    string
	Answer     string
	Sources    []core.RetrievedChunk
	Grounded   bool
	Status     core.Status
	ChunkCount int
	Messages   []core.Message
}

// SessionStore is the session lookup surface the coordinator needs.
type SessionStore interface {
	Get(sessionID string) (*core.Session, error)
}

// Coordinator drives turns across the message bus. It owns no conversation
// state itself; everything lives in the session record and the bus history.
type Coordinator struct {
	sessions SessionStore
	bus      *bus.Bus
	logger   logging.Logger
}

// Options holds dependency overrides passed to New.
type Options struct {
	Logger logging.Logger
}

// New constructs a coordinator on top of a wired bus.
func New(sessions SessionStore, b *bus.Bus, optFns ...func(o *Options)) *Coordinator {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Coordinator{sessions: sessions, bus: b, logger: opts.Logger}
}

// HandleTurn executes one user turn against a session. The route depends on
// the query and the session state:
//
//   - query == EmbedOnlyMarker with a file: ingestion pipeline
//   - session READY: retrieval followed by grounded response
//   - session INGESTING: general answer carrying a processing notice
//   - otherwise: general answer
//
// On a pipeline ERROR the turn short-circuits: the returned error carries
// the stable code and the TurnResult still carries the trace id and message
// history. Chat history records only successful answer turns. There are no
// automatic retries.
func (c *Coordinator) HandleTurn(ctx context.Context, sessionID, query, fileRef string) (*TurnResult, error) {
	sess, err := c.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	trace := core.NewTraceID()

	if query == EmbedOnlyMarker {
		if fileRef == "" {
			return nil, core.NewValidationError(core.CodeMissingFile, "embed request carries no file")
		}
		return c.embedTurn(ctx, sess, trace, fileRef)
	}
	if query == "" {
		return nil, core.ErrEmptyQuery
	}

	// Turns observing a running ingestion bypass the turn gate and answer
	// from general knowledge; blocking them behind the embed would stall
	// the conversation for the whole ingestion.
	if sess.Status() == core.StatusIngesting {
		return c.generalTurn(ctx, sess, trace, query, ingestingNotice)
	}

	unlock := sess.LockTurn()
	defer unlock()
	if sess.Destroyed() {
		return nil, core.ErrSessionDestroyed
	}

	if sess.Status() == core.StatusReady {
		return c.documentTurn(ctx, sess, trace, query)
	}
	return c.generalTurn(ctx, sess, trace, query, "")
}

// embedTurn runs the ingestion pipeline under the at-most-one-ingestion
// gate. A failed embed leaves the session in ERROR with any prior vector
// index untouched.
func (c *Coordinator) embedTurn(ctx context.Context, sess *core.Session, trace, fileRef string) (*TurnResult, error) {
	if err := sess.BeginIngestion(); err != nil {
		return nil, err
	}

	c.logger.Info("embed turn started", "session_id", sess.ID, "trace_id", trace, "file_ref", fileRef)

	msg := core.NewMessage(trace, core.AgentCoordinator, core.AgentIngestion,
		core.EmbedRequest, core.EmbedRequestPayload{SessionID: sess.ID, FileRef: fileRef})
	reply, err := c.roundTrip(ctx, sess.ID, msg)
	if err != nil {
		sess.FinishIngestion("", false)
		return nil, err
	}
	if reply.IsError() {
		sess.FinishIngestion("", false)
		return c.failedTurn(sess, trace, reply.ErrorPayloadOf())
	}

	done, ok := reply.Payload.(core.EmbedDonePayload)
	if !ok {
		sess.FinishIngestion("", false)
		return c.failedTurn(sess, trace, core.ErrorPayload{Code: core.CodeInternal, Reason: fmt.Sprintf("unexpected reply type %s", reply.Type)})
	}

	sess.FinishIngestion(done.VectorRef, true)
	c.logger.Info("embed turn finished", "session_id", sess.ID, "trace_id", trace, "chunks", done.ChunkCount)
	return &TurnResult{
		TraceID:    trace,
		Status:     sess.Status(),
		ChunkCount: done.ChunkCount,
		Messages:   c.bus.History(sess.ID, trace),
	}, nil
}

// documentTurn runs retrieval followed by grounded generation. Zero
// retrieved chunks still go to the response agent, which marks its answer as
// context-free.
func (c *Coordinator) documentTurn(ctx context.Context, sess *core.Session, trace, query string) (*TurnResult, error) {
	retrieve := core.NewMessage(trace, core.AgentCoordinator, core.AgentRetrieval,
		core.RetrieveRequest, core.RetrieveRequestPayload{SessionID: sess.ID, Query: query, VectorRef: sess.VectorRef()})
	reply, err := c.roundTrip(ctx, sess.ID, retrieve)
	if err != nil {
		return nil, err
	}
	if reply.IsError() {
		return c.failedTurn(sess, trace, reply.ErrorPayloadOf())
	}
	retrieved, ok := reply.Payload.(core.RetrieveResultPayload)
	if !ok {
		return c.failedTurn(sess, trace, core.ErrorPayload{Code: core.CodeInternal, Reason: fmt.Sprintf("unexpected reply type %s", reply.Type)})
	}

	return c.generate(ctx, sess, trace, query, core.AgentResponse, core.GenerateRequestPayload{
		Query:  query,
		Chunks: retrieved.Chunks,
	})
}

// generalTurn answers from the model's knowledge without touching the
// vector index.
func (c *Coordinator) generalTurn(ctx context.Context, sess *core.Session, trace, query, notice string) (*TurnResult, error) {
	return c.generate(ctx, sess, trace, query, core.AgentGeneral, core.GenerateRequestPayload{
		Query:  query,
		Notice: notice,
	})
}

// generate runs the final generation step, appends the chat record and
// assembles the turn result.
func (c *Coordinator) generate(ctx context.Context, sess *core.Session, trace, query string, receiver core.AgentName, payload core.GenerateRequestPayload) (*TurnResult, error) {
	msg := core.NewMessage(trace, core.AgentCoordinator, receiver, core.GenerateRequest, payload)
	reply, err := c.roundTrip(ctx, sess.ID, msg)
	if err != nil {
		return nil, err
	}
	if reply.IsError() {
		return c.failedTurn(sess, trace, reply.ErrorPayloadOf())
	}
	result, ok := reply.Payload.(core.GenerateResultPayload)
	if !ok {
		return c.failedTurn(sess, trace, core.ErrorPayload{Code: core.CodeInternal, Reason: fmt.Sprintf("unexpected reply type %s", reply.Type)})
	}

	sess.AppendRecord(core.ChatRecord{Query: query, Answer: result.Answer, TraceID: trace, CreatedAt: time.Now()})

	return &TurnResult{
		TraceID:  trace,
		Answer:   result.Answer,
		Sources:  result.Sources,
		Grounded: result.Grounded,
		Status:   sess.Status(),
		Messages: c.bus.History(sess.ID, trace),
	}, nil
}

// roundTrip publishes one message and drains its trace queue, returning the
// single coordinator-addressed reply for the trace.
func (c *Coordinator) roundTrip(ctx context.Context, sessionID string, msg core.Message) (core.Message, error) {
	if err := c.bus.Publish(sessionID, msg); err != nil {
		return core.Message{}, err
	}
	replies, err := c.bus.Dispatch(ctx, sessionID, msg.TraceID)
	if err != nil {
		return core.Message{}, err
	}
	for i := len(replies) - 1; i >= 0; i-- {
		if replies[i].TraceID == msg.TraceID {
			return replies[i], nil
		}
	}
	return core.Message{}, core.NewProtocolError(core.CodeInternal, "pipeline produced no reply")
}

// failedTurn short-circuits the turn: chat history stays untouched and the
// caller receives both the partial result (trace id, message history) and a
// typed error reconstructed from the payload code.
func (c *Coordinator) failedTurn(sess *core.Session, trace string, p core.ErrorPayload) (*TurnResult, error) {
	c.logger.Warn("turn failed", "session_id", sess.ID, "trace_id", trace, "code", p.Code, "reason", p.Reason)
	return &TurnResult{
		TraceID:  trace,
		Status:   sess.Status(),
		Messages: c.bus.History(sess.ID, trace),
	}, core.ErrorFromCode(p.Code, p.Reason)
}
