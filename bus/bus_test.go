package bus

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kumar8074/SpectraRAG/core"
)

// echoHandler replies to every message with a GENERATE_RESULT addressed to
// the coordinator and records the order in which messages arrived.
type echoHandler struct {
	name core.AgentName

	mu   sync.Mutex
	seen []core.Message
}

func (h *echoHandler) Name() core.AgentName { return h.name }

func (h *echoHandler) Handle(_ context.Context, msg core.Message) core.Message {
	h.mu.Lock()
	h.seen = append(h.seen, msg)
	h.mu.Unlock()
	return msg.Reply(h.name, core.GenerateResult, core.GenerateResultPayload{Answer: "echo:" + msg.ID})
}

// forwardHandler relays every message to another agent instead of replying
// to the coordinator.
type forwardHandler struct {
	name core.AgentName
	to   core.AgentName
}

func (h *forwardHandler) Name() core.AgentName { return h.name }

func (h *forwardHandler) Handle(_ context.Context, msg core.Message) core.Message {
	return core.NewMessage(msg.TraceID, h.name, h.to, msg.Type, msg.Payload)
}

func TestBus_DispatchPreservesFIFOOrder(t *testing.T) {
	b := New()
	h := &echoHandler{name: core.AgentRetrieval}
	b.Register(h)

	trace := core.NewTraceID()
	var published []string
	for i := 0; i < 5; i++ {
		msg := core.NewMessage(trace, core.AgentCoordinator, core.AgentRetrieval,
			core.RetrieveRequest, core.RetrieveRequestPayload{Query: fmt.Sprintf("q%d", i)})
		published = append(published, msg.ID)
		require.NoError(t, b.Publish("s1", msg))
	}

	replies, err := b.Dispatch(context.Background(), "s1", trace)
	require.NoError(t, err)
	require.Len(t, replies, 5)

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, msg := range h.seen {
		assert.Equal(t, published[i], msg.ID)
		assert.Equal(t, trace, msg.TraceID)
	}
}

func TestBus_PublishUnknownReceiver(t *testing.T) {
	b := New()

	msg := core.NewMessage(core.NewTraceID(), core.AgentCoordinator, core.AgentIngestion,
		core.EmbedRequest, core.EmbedRequestPayload{SessionID: "s1", FileRef: "doc.txt"})
	err := b.Publish("s1", msg)
	assert.ErrorIs(t, err, core.ErrUnknownReceiver)
	assert.Equal(t, core.CodeUnknownReceiver, core.CodeOf(err))
}

func TestBus_PublishMalformedMessage(t *testing.T) {
	b := New()
	b.Register(&echoHandler{name: core.AgentRetrieval})

	msg := core.NewMessage("", core.AgentCoordinator, core.AgentRetrieval,
		core.RetrieveRequest, core.RetrieveRequestPayload{Query: "x"})
	err := b.Publish("s1", msg)
	assert.ErrorIs(t, err, core.ErrMalformedMessage)
}

func TestBus_SessionIsolation(t *testing.T) {
	b := New()
	h := &echoHandler{name: core.AgentGeneral}
	b.Register(h)

	msgA := core.NewMessage(core.NewTraceID(), core.AgentCoordinator, core.AgentGeneral,
		core.GenerateRequest, core.GenerateRequestPayload{Query: "a"})
	msgB := core.NewMessage(core.NewTraceID(), core.AgentCoordinator, core.AgentGeneral,
		core.GenerateRequest, core.GenerateRequestPayload{Query: "b"})
	require.NoError(t, b.Publish("session-a", msgA))
	require.NoError(t, b.Publish("session-b", msgB))

	replies, err := b.Dispatch(context.Background(), "session-a", msgA.TraceID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "echo:"+msgA.ID, replies[0].Payload.(core.GenerateResultPayload).Answer)

	// session-b is untouched by draining session-a.
	replies, err = b.Dispatch(context.Background(), "session-b", msgB.TraceID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "echo:"+msgB.ID, replies[0].Payload.(core.GenerateResultPayload).Answer)
}

func TestBus_TraceIsolationWithinSession(t *testing.T) {
	b := New()
	h := &echoHandler{name: core.AgentGeneral}
	b.Register(h)

	msgA := core.NewMessage(core.NewTraceID(), core.AgentCoordinator, core.AgentGeneral,
		core.GenerateRequest, core.GenerateRequestPayload{Query: "a"})
	msgB := core.NewMessage(core.NewTraceID(), core.AgentCoordinator, core.AgentGeneral,
		core.GenerateRequest, core.GenerateRequestPayload{Query: "b"})
	require.NoError(t, b.Publish("s1", msgA))
	require.NoError(t, b.Publish("s1", msgB))

	// Draining one turn must not consume the other turn's messages.
	replies, err := b.Dispatch(context.Background(), "s1", msgA.TraceID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, msgA.TraceID, replies[0].TraceID)

	replies, err = b.Dispatch(context.Background(), "s1", msgB.TraceID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, msgB.TraceID, replies[0].TraceID)
}

func TestBus_AgentToAgentForwarding(t *testing.T) {
	b := New()
	b.Register(&forwardHandler{name: core.AgentRetrieval, to: core.AgentResponse})
	echo := &echoHandler{name: core.AgentResponse}
	b.Register(echo)

	msg := core.NewMessage(core.NewTraceID(), core.AgentCoordinator, core.AgentRetrieval,
		core.GenerateRequest, core.GenerateRequestPayload{Query: "relay"})
	require.NoError(t, b.Publish("s1", msg))

	replies, err := b.Dispatch(context.Background(), "s1", msg.TraceID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, core.AgentResponse, replies[0].Sender)
	assert.Equal(t, msg.TraceID, replies[0].TraceID)
}

func TestBus_HistoryFiltersByTrace(t *testing.T) {
	b := New()
	b.Register(&echoHandler{name: core.AgentGeneral})

	msgA := core.NewMessage(core.NewTraceID(), core.AgentCoordinator, core.AgentGeneral,
		core.GenerateRequest, core.GenerateRequestPayload{Query: "a"})
	msgB := core.NewMessage(core.NewTraceID(), core.AgentCoordinator, core.AgentGeneral,
		core.GenerateRequest, core.GenerateRequestPayload{Query: "b"})
	require.NoError(t, b.Publish("s1", msgA))
	require.NoError(t, b.Publish("s1", msgB))

	_, err := b.Dispatch(context.Background(), "s1", msgA.TraceID)
	require.NoError(t, err)
	_, err = b.Dispatch(context.Background(), "s1", msgB.TraceID)
	require.NoError(t, err)

	history := b.History("s1", msgA.TraceID)
	require.Len(t, history, 2) // request plus reply
	for _, msg := range history {
		assert.Equal(t, msgA.TraceID, msg.TraceID)
	}

	assert.Nil(t, b.History("unknown", msgA.TraceID))
}

func TestBus_ReleaseDropsQueueAndHistory(t *testing.T) {
	b := New()
	b.Register(&echoHandler{name: core.AgentGeneral})

	msg := core.NewMessage(core.NewTraceID(), core.AgentCoordinator, core.AgentGeneral,
		core.GenerateRequest, core.GenerateRequestPayload{Query: "x"})
	require.NoError(t, b.Publish("s1", msg))

	b.Release("s1")
	assert.Nil(t, b.History("s1", msg.TraceID))

	replies, err := b.Dispatch(context.Background(), "s1", msg.TraceID)
	require.NoError(t, err)
	assert.Empty(t, replies)

	b.Release("never-existed")
}

func TestBus_DispatchHonorsContextCancellation(t *testing.T) {
	b := New()
	b.Register(&echoHandler{name: core.AgentGeneral})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg := core.NewMessage(core.NewTraceID(), core.AgentCoordinator, core.AgentGeneral,
		core.GenerateRequest, core.GenerateRequestPayload{Query: "x"})
	require.NoError(t, b.Publish("s1", msg))

	_, err := b.Dispatch(ctx, "s1", msg.TraceID)
	assert.ErrorIs(t, err, context.Canceled)
}
