package core

import (
	"time"

	"github.com/google/uuid"
)

// AgentName identifies a participant on the message bus. The set is closed:
// the coordinator plus the four worker agents.
type AgentName string

const (
	// AgentCoordinator drives the pipeline and is the implicit reply target.
	AgentCoordinator AgentName = "coordinator"
	// AgentIngestion parses, chunks, embeds and persists uploaded documents.
	AgentIngestion AgentName = "ingestion"
	// AgentRetrieval performs similarity search against a session's vector index.
	AgentRetrieval AgentName = "retrieval"
	// AgentResponse generates answers grounded in retrieved context.
	AgentResponse AgentName = "response"
	// AgentGeneral answers open-domain questions without document context.
	AgentGeneral AgentName = "general"
)

// MessageType tags the semantic category of a message. The payload shape is
// determined by the type (see payload.go).
type MessageType string

const (
	// EmbedRequest asks the ingestion agent to embed an uploaded document.
	EmbedRequest MessageType = "EMBED_REQUEST"
	// EmbedDone reports a successfully built vector index.
	EmbedDone MessageType = "EMBED_DONE"
	// RetrieveRequest asks the retrieval agent for relevant chunks.
	RetrieveRequest MessageType = "RETRIEVE_REQUEST"
	// RetrieveResult carries ranked chunks back to the coordinator.
	RetrieveResult MessageType = "RETRIEVE_RESULT"
	// GenerateRequest asks the response or general agent for an answer.
	GenerateRequest MessageType = "GENERATE_REQUEST"
	// GenerateResult carries the generated answer and its sources.
	GenerateResult MessageType = "GENERATE_RESULT"
	// ErrorMsg reports a failed step. The payload carries a stable error code.
	ErrorMsg MessageType = "ERROR"
)

// Message is the immutable unit of communication between the coordinator and
// the agents. After construction it must never be mutated; a reply is always
// a new Message carrying the same TraceID. It captures:
//
//   - Identity (ID) and end-to-end correlation (TraceID)
//   - Routing (Sender, Receiver)
//   - Semantics (Type) and typed payload data
//   - A high precision UTC timestamp for ordering and diagnostics
type Message struct {
	ID        string      `json:"id"`
	TraceID   string      `json:"trace_id"`
	Sender    AgentName   `json:"sender"`
	Receiver  AgentName   `json:"receiver"`
	Type      MessageType `json:"type"`
	Payload   Payload     `json:"payload,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewMessage creates a message bound to an existing trace. The trace id is
// minted once per user turn (see NewTraceID) and propagated unchanged through
// every downstream message.
func NewMessage(traceID string, sender, receiver AgentName, typ MessageType, payload Payload) Message {
	return Message{
		ID:        NewID(),
		TraceID:   traceID,
		Sender:    sender,
		Receiver:  receiver,
		Type:      typ,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// Reply constructs a response message addressed back to the sender of m,
// preserving the trace id.
func (m Message) Reply(from AgentName, typ MessageType, payload Payload) Message {
	return NewMessage(m.TraceID, from, m.Sender, typ, payload)
}

// ReplyError constructs an ERROR reply carrying the stable code and reason
// extracted from err (see CodeOf).
func (m Message) ReplyError(from AgentName, err error) Message {
	return m.Reply(from, ErrorMsg, ErrorPayload{Code: CodeOf(err), Reason: err.Error()})
}

// IsError reports whether the message is an ERROR reply.
func (m Message) IsError() bool { return m.Type == ErrorMsg }

// ErrorPayloadOf returns the error payload of an ERROR message, or a zero
// payload when the message is not an error.
func (m Message) ErrorPayloadOf() ErrorPayload {
	if p, ok := m.Payload.(ErrorPayload); ok {
		return p
	}
	return ErrorPayload{}
}

// NewID generates a new unique identifier for messages.
func NewID() string { return uuid.NewString() }

// NewTraceID mints the correlation identifier for one user turn. Every
// message and the final turn result carry it unchanged.
func NewTraceID() string { return uuid.NewString() }
