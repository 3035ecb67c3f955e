package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kumar8074/SpectraRAG/agent"
	"github.com/kumar8074/SpectraRAG/bus"
	"github.com/kumar8074/SpectraRAG/core"
	"github.com/kumar8074/SpectraRAG/embedding"
	"github.com/kumar8074/SpectraRAG/llm"
	"github.com/kumar8074/SpectraRAG/parser"
	"github.com/kumar8074/SpectraRAG/session"
	"github.com/kumar8074/SpectraRAG/uploads"
	"github.com/kumar8074/SpectraRAG/vectorstore"
)

type fixture struct {
	coord    *Coordinator
	sessions *session.Manager
	bus      *bus.Bus
	index    *vectorstore.Store
	parser   *parser.Set
	gen      *llm.MockGenerator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	index := vectorstore.New(func(o *vectorstore.Options) { o.Root = root })
	sessions := session.NewManager(uploads.NewStore(root), index)
	embedder := embedding.NewHashEmbedder(0)
	small := parser.NewChunkerWithConfig(parser.ChunkConfig{Size: 80, Overlap: 0})
	parsers := parser.NewSet(func(o *parser.Options) { o.Chunker = small })
	gen := llm.NewMockGenerator()

	b := bus.New()
	b.Register(agent.NewIngestion(parsers, embedder, index, sessions))
	b.Register(agent.NewRetrieval(embedder, index, gen, func(o *agent.RetrievalOptions) {
		o.ExpandQueries = false
		o.TopK = 4
	}))
	b.Register(agent.NewResponse(gen))
	b.Register(agent.NewGeneral(gen))

	return &fixture{
		coord:    New(sessions, b),
		sessions: sessions,
		bus:      b,
		index:    index,
		parser:   parsers,
		gen:      gen,
	}
}

func (f *fixture) newSession(t *testing.T) *core.Session {
	t.Helper()
	sess, err := f.sessions.Create()
	require.NoError(t, err)
	return sess
}

func (f *fixture) upload(t *testing.T, sessionID, name, content string) string {
	t.Helper()
	path, err := f.sessions.SaveUpload(sessionID, name, []byte(content))
	require.NoError(t, err)
	return path
}

func (f *fixture) embed(t *testing.T, sessionID, fileRef string) *TurnResult {
	t.Helper()
	res, err := f.coord.HandleTurn(context.Background(), sessionID, EmbedOnlyMarker, fileRef)
	require.NoError(t, err)
	return res
}

func TestHandleTurn_EmbedThenGroundedAnswer(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	path := f.upload(t, sess.ID, "report.txt", "The total for the invoice was $42.\n\nPayment is due in thirty days.")
	f.gen.AddResponse("$42", "The total was $42.")

	res := f.embed(t, sess.ID, path)
	assert.Equal(t, core.StatusReady, res.Status)
	assert.Greater(t, res.ChunkCount, 0)
	assert.NotEmpty(t, res.TraceID)

	res, err := f.coord.HandleTurn(context.Background(), sess.ID, "What was the total?", "")
	require.NoError(t, err)
	assert.Equal(t, "The total was $42.", res.Answer)
	assert.True(t, res.Grounded)
	require.NotEmpty(t, res.Sources)
	assert.Contains(t, res.Sources[0].Content, "$42")

	// A turn's entire message trail carries its trace id.
	require.NotEmpty(t, res.Messages)
	for _, msg := range res.Messages {
		assert.Equal(t, res.TraceID, msg.TraceID)
	}
}

func TestHandleTurn_GeneralAnswerWithoutDocument(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	f.gen.AddResponse("capital of France", "The capital of France is Paris.")

	res, err := f.coord.HandleTurn(context.Background(), sess.ID, "What is the capital of France?", "")
	require.NoError(t, err)
	assert.Equal(t, "The capital of France is Paris.", res.Answer)
	assert.False(t, res.Grounded)
	assert.Empty(t, res.Sources)
	assert.Equal(t, core.StatusEmpty, res.Status)
}

func TestHandleTurn_EmptyQuery(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)

	_, err := f.coord.HandleTurn(context.Background(), sess.ID, "   ", "")
	assert.ErrorIs(t, err, core.ErrEmptyQuery)
}

func TestHandleTurn_EmbedWithoutFile(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)

	_, err := f.coord.HandleTurn(context.Background(), sess.ID, EmbedOnlyMarker, "")
	assert.Equal(t, core.CodeMissingFile, core.CodeOf(err))
}

func TestHandleTurn_UnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.HandleTurn(context.Background(), "missing", "hello", "")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestHandleTurn_ReembedKeepsSingleIndex(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	path := f.upload(t, sess.ID, "doc.txt", "alpha beta gamma delta")

	first := f.embed(t, sess.ID, path)
	second := f.embed(t, sess.ID, path)

	assert.Equal(t, core.StatusReady, second.Status)
	assert.NotEqual(t, first.TraceID, second.TraceID)
	assert.Equal(t, sess.VectorRef(), f.index.Ref(sess.ID))
}

func TestHandleTurn_EmbedFailureSetsErrorAndKeepsPriorIndex(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	good := f.upload(t, sess.ID, "doc.txt", "alpha beta gamma")
	bad := f.upload(t, sess.ID, "image.png", "binary")

	f.embed(t, sess.ID, good)
	priorRef := sess.VectorRef()

	res, err := f.coord.HandleTurn(context.Background(), sess.ID, EmbedOnlyMarker, bad)
	require.Error(t, err)
	assert.Equal(t, core.CodeUnsupportedFormat, core.CodeOf(err))
	require.NotNil(t, res)
	assert.Equal(t, core.StatusError, res.Status)
	assert.NotEmpty(t, res.TraceID)
	assert.NotEmpty(t, res.Messages)

	// The previously built index survives the failed re-embed.
	assert.Equal(t, priorRef, sess.VectorRef())
	assert.Equal(t, priorRef, f.index.Ref(sess.ID))
	assert.Empty(t, sess.History())
}

func TestHandleTurn_FailedTurnLeavesHistoryUntouched(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	path := f.upload(t, sess.ID, "doc.txt", "alpha beta gamma")
	f.embed(t, sess.ID, path)

	f.gen.FailWith(assert.AnError)
	res, err := f.coord.HandleTurn(context.Background(), sess.ID, "what is alpha", "")
	require.Error(t, err)
	assert.Equal(t, core.CodeProviderError, core.CodeOf(err))
	require.NotNil(t, res)
	assert.Empty(t, res.Answer)
	assert.Empty(t, sess.History())
}

func TestHandleTurn_SuccessAppendsChatHistory(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	f.gen.AddResponse("weather", "I cannot check live weather.")

	res, err := f.coord.HandleTurn(context.Background(), sess.ID, "How is the weather?", "")
	require.NoError(t, err)

	history := sess.History()
	require.Len(t, history, 1)
	assert.Equal(t, "How is the weather?", history[0].Query)
	assert.Equal(t, res.Answer, history[0].Answer)
	assert.Equal(t, res.TraceID, history[0].TraceID)
}

func TestHandleTurn_DestroyedSession(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	require.NoError(t, f.sessions.Destroy(sess.ID))

	_, err := f.coord.HandleTurn(context.Background(), sess.ID, "hello", "")
	assert.ErrorIs(t, err, core.ErrSessionDestroyed)

	_, err = f.coord.HandleTurn(context.Background(), sess.ID, EmbedOnlyMarker, "doc.txt")
	assert.ErrorIs(t, err, core.ErrSessionDestroyed)
}

// blockingLoader parks ingestion until released, letting tests observe the
// INGESTING state and the concurrent-embed gate.
type blockingLoader struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingLoader() *blockingLoader {
	return &blockingLoader{entered: make(chan struct{}), release: make(chan struct{})}
}

func (l *blockingLoader) load(ctx context.Context, _ string) (string, error) {
	l.once.Do(func() { close(l.entered) })
	select {
	case <-l.release:
		return "slow document content", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestHandleTurn_QueryDuringIngestionGetsNotice(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	path := f.upload(t, sess.ID, "doc.slow", "ignored")

	loader := newBlockingLoader()
	f.parser.Register("slow", loader.load)
	f.gen.AddResponse("capital of France", "Paris.")

	done := make(chan error, 1)
	go func() {
		_, err := f.coord.HandleTurn(context.Background(), sess.ID, EmbedOnlyMarker, path)
		done <- err
	}()
	<-loader.entered

	res, err := f.coord.HandleTurn(context.Background(), sess.ID, "What is the capital of France?", "")
	require.NoError(t, err)
	assert.Contains(t, res.Answer, "still being processed")
	assert.Contains(t, res.Answer, "Paris.")
	assert.False(t, res.Grounded)

	close(loader.release)
	require.NoError(t, <-done)
	assert.Equal(t, core.StatusReady, sess.Status())
}

func TestHandleTurn_ConcurrentEmbedsAdmitExactlyOne(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	path := f.upload(t, sess.ID, "doc.slow", "ignored")

	loader := newBlockingLoader()
	f.parser.Register("slow", loader.load)

	done := make(chan error, 1)
	go func() {
		_, err := f.coord.HandleTurn(context.Background(), sess.ID, EmbedOnlyMarker, path)
		done <- err
	}()
	<-loader.entered

	_, err := f.coord.HandleTurn(context.Background(), sess.ID, EmbedOnlyMarker, path)
	assert.ErrorIs(t, err, core.ErrEmbedInProgress)

	close(loader.release)
	require.NoError(t, <-done)
	assert.Equal(t, core.StatusReady, sess.Status())
}

// stubRetrieval always returns an empty chunk set so the zero-context
// response path can be exercised end to end.
type stubRetrieval struct{}

func (stubRetrieval) Name() core.AgentName { return core.AgentRetrieval }

func (stubRetrieval) Handle(_ context.Context, msg core.Message) core.Message {
	p := msg.Payload.(core.RetrieveRequestPayload)
	return msg.Reply(core.AgentRetrieval, core.RetrieveResult, core.RetrieveResultPayload{Query: p.Query})
}

func TestHandleTurn_ZeroChunksStillAnsweredByResponseAgent(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)
	path := f.upload(t, sess.ID, "doc.txt", "unrelated content entirely")
	f.embed(t, sess.ID, path)

	f.bus.Register(stubRetrieval{})
	f.gen.AddResponse("general knowledge", "Paris is the capital of France.")

	res, err := f.coord.HandleTurn(context.Background(), sess.ID, "What is the capital of France?", "")
	require.NoError(t, err)
	assert.False(t, res.Grounded)
	assert.Empty(t, res.Sources)
	assert.Contains(t, res.Answer, "Paris is the capital of France.")
	assert.Contains(t, res.Answer, "No relevant passages were found")
}

func TestHandleTurn_SerializesQueryTurnsPerSession(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)

	var mu sync.Mutex
	var active, maxActive int
	slowGen := llm.NewMockGenerator()
	b := bus.New()
	b.Register(agent.NewGeneral(countingGenerator{inner: slowGen, mu: &mu, active: &active, max: &maxActive}))
	coord := New(f.sessions, b)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coord.HandleTurn(context.Background(), sess.ID, "ping", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
	assert.Len(t, sess.History(), 8)
}

// countingGenerator tracks how many generations run concurrently.
type countingGenerator struct {
	inner  core.Generator
	mu     *sync.Mutex
	active *int
	max    *int
}

func (g countingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	*g.active++
	if *g.active > *g.max {
		*g.max = *g.active
	}
	g.mu.Unlock()

	time.Sleep(2 * time.Millisecond)

	g.mu.Lock()
	*g.active--
	g.mu.Unlock()
	return g.inner.Generate(ctx, prompt)
}
