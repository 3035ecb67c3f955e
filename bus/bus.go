// Package bus implements the in-process message bus connecting the
// coordinator to the worker agents. Delivery is scoped per session and per
// trace: every session owns an isolated FIFO queue per turn plus an
// append-only message history, so traffic for one session never interleaves
// with another's and concurrent turns within a session never steal each
// other's replies.
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/kumar8074/SpectraRAG/core"
	"github.com/kumar8074/SpectraRAG/logging"
)

// Bus routes messages between registered handlers. Registration is expected
// to happen once at wiring time; Publish and Dispatch are safe for
// concurrent use. Dispatch for a single trace is serialized by a per-trace
// mutex so FIFO order holds even under concurrent callers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[core.AgentName]core.Handler
	queues   map[string]*sessionQueue

	logger logging.Logger
}

// Options holds dependency overrides passed to New.
type Options struct {
	Logger logging.Logger
}

// New constructs an empty bus.
func New(optFns ...func(o *Options)) *Bus {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Bus{
		handlers: make(map[core.AgentName]core.Handler),
		queues:   make(map[string]*sessionQueue),
		logger:   opts.Logger,
	}
}

// sessionQueue is the per-session delivery state: one pending FIFO per
// trace plus the session-wide history.
type sessionQueue struct {
	mu      sync.Mutex
	traces  map[string]*traceQueue
	history []core.Message
}

// traceQueue carries the pending messages of a single turn. dispatchMu
// serializes draining so two Dispatch calls for the same trace cannot
// reorder messages.
type traceQueue struct {
	dispatchMu sync.Mutex

	mu      sync.Mutex
	pending []core.Message
}

func (q *sessionQueue) trace(traceID string) *traceQueue {
	q.mu.Lock()
	defer q.mu.Unlock()
	tq, ok := q.traces[traceID]
	if !ok {
		tq = &traceQueue{}
		q.traces[traceID] = tq
	}
	return tq
}

func (q *sessionQueue) push(msg core.Message) {
	tq := q.trace(msg.TraceID)
	tq.mu.Lock()
	tq.pending = append(tq.pending, msg)
	tq.mu.Unlock()
	q.record(msg)
}

func (q *sessionQueue) record(msg core.Message) {
	q.mu.Lock()
	q.history = append(q.history, msg)
	q.mu.Unlock()
}

func (tq *traceQueue) pop() (core.Message, bool) {
	tq.mu.Lock()
	defer tq.mu.Unlock()
	if len(tq.pending) == 0 {
		return core.Message{}, false
	}
	msg := tq.pending[0]
	tq.pending = tq.pending[1:]
	return msg, true
}

// Register adds a handler as the receiver for its agent name. Registering
// the same name twice replaces the previous handler.
func (b *Bus) Register(h core.Handler) {
	b.mu.Lock()
	b.handlers[h.Name()] = h
	b.mu.Unlock()
}

// Publish validates msg and appends it to the FIFO queue of its trace within
// the session. It fails with ErrUnknownReceiver when no handler is
// registered for the receiver and with ErrMalformedMessage when routing or
// correlation fields are missing. Publishing never invokes a handler;
// delivery happens in Dispatch.
func (b *Bus) Publish(sessionID string, msg core.Message) error {
	if msg.TraceID == "" || msg.Sender == "" || msg.Receiver == "" || msg.Type == "" {
		return fmt.Errorf("%w: id=%q trace_id=%q sender=%q receiver=%q type=%q",
			core.ErrMalformedMessage, msg.ID, msg.TraceID, msg.Sender, msg.Receiver, msg.Type)
	}

	b.mu.RLock()
	_, known := b.handlers[msg.Receiver]
	b.mu.RUnlock()
	if !known {
		return fmt.Errorf("%w: %q", core.ErrUnknownReceiver, msg.Receiver)
	}

	b.queue(sessionID).push(msg)
	return nil
}

// Dispatch drains the trace's queue within the session in FIFO order,
// invoking the registered handler for each message. Replies addressed to
// the coordinator are collected and returned; replies addressed to another
// agent are re-enqueued and delivered within the same drain. No bus lock is
// held while a handler runs, so a slow collaborator call never blocks other
// traces or sessions.
func (b *Bus) Dispatch(ctx context.Context, sessionID, traceID string) ([]core.Message, error) {
	q := b.queue(sessionID)
	tq := q.trace(traceID)
	tq.dispatchMu.Lock()
	defer tq.dispatchMu.Unlock()

	var collected []core.Message
	for {
		if err := ctx.Err(); err != nil {
			return collected, err
		}

		msg, ok := tq.pop()
		if !ok {
			return collected, nil
		}

		b.mu.RLock()
		handler, known := b.handlers[msg.Receiver]
		b.mu.RUnlock()
		if !known {
			// The receiver was deregistered between publish and drain.
			reply := msg.ReplyError(msg.Receiver, fmt.Errorf("%w: %q", core.ErrUnknownReceiver, msg.Receiver))
			q.record(reply)
			collected = append(collected, reply)
			continue
		}

		b.logger.Debug("dispatching message",
			"session_id", sessionID,
			"trace_id", msg.TraceID,
			"sender", msg.Sender,
			"receiver", msg.Receiver,
			"type", msg.Type,
		)

		reply := handler.Handle(ctx, msg)

		if reply.Receiver == core.AgentCoordinator {
			q.record(reply)
			collected = append(collected, reply)
			continue
		}
		q.push(reply)
	}
}

// History returns the messages recorded for one trace within a session, in
// delivery order. The returned slice is a copy.
func (b *Bus) History(sessionID, traceID string) []core.Message {
	b.mu.RLock()
	q, ok := b.queues[sessionID]
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	var out []core.Message
	for _, msg := range q.history {
		if msg.TraceID == traceID {
			out = append(out, msg)
		}
	}
	return out
}

// Release drops the session's queues and history. Pending messages are
// discarded. Releasing an unknown session is a no-op.
func (b *Bus) Release(sessionID string) {
	b.mu.Lock()
	delete(b.queues, sessionID)
	b.mu.Unlock()
}

func (b *Bus) queue(sessionID string) *sessionQueue {
	b.mu.RLock()
	q, ok := b.queues[sessionID]
	b.mu.RUnlock()
	if ok {
		return q
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if q, ok := b.queues[sessionID]; ok {
		return q
	}
	q = &sessionQueue{traces: make(map[string]*traceQueue)}
	b.queues[sessionID] = q
	return q
}
