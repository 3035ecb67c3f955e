package agent

import (
	"context"
	"sort"
	"strings"

	"github.com/kumar8074/SpectraRAG/core"
	"github.com/kumar8074/SpectraRAG/logging"
)

// Retrieval handles RETRIEVE_REQUEST messages: it optionally expands the
// query into diverse paraphrases, runs a similarity search per query against
// the session's vector index, and returns the deduplicated top ranked chunks.
type Retrieval struct {
	embedder  core.Embedder
	index     core.VectorIndex
	generator core.Generator

	topK          int
	expandQueries bool
	expandedCount int
	logger        logging.Logger
}

// RetrievalOptions configures the retrieval handler.
type RetrievalOptions struct {
	// TopK caps the number of chunks returned per turn.
	TopK int

	// ExpandQueries enables multi-query expansion through the generator.
	// A generator failure never fails the turn; retrieval degrades to the
	// original query.
	ExpandQueries bool

	// ExpandedCount is the number of paraphrases requested on expansion.
	ExpandedCount int

	Logger logging.Logger
}

// NewRetrieval constructs the retrieval handler. The generator may be nil,
// which disables query expansion.
func NewRetrieval(embedder core.Embedder, index core.VectorIndex, generator core.Generator, optFns ...func(o *RetrievalOptions)) *Retrieval {
	opts := RetrievalOptions{
		TopK:          4,
		ExpandQueries: true,
		ExpandedCount: 3,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.TopK <= 0 {
		opts.TopK = 4
	}
	if opts.ExpandedCount <= 0 {
		opts.ExpandedCount = 3
	}
	return &Retrieval{
		embedder:      embedder,
		index:         index,
		generator:     generator,
		topK:          opts.TopK,
		expandQueries: opts.ExpandQueries,
		expandedCount: opts.ExpandedCount,
		logger:        opts.Logger,
	}
}

// Name implements core.Handler.
func (a *Retrieval) Name() core.AgentName { return core.AgentRetrieval }

// Handle implements core.Handler.
func (a *Retrieval) Handle(ctx context.Context, msg core.Message) core.Message {
	p, ok := msg.Payload.(core.RetrieveRequestPayload)
	if !ok {
		return msg.ReplyError(a.Name(), core.NewProtocolError(core.CodeMalformedMessage, "expected a retrieve request payload"))
	}

	queries := a.expand(ctx, msg.TraceID, p.Query)

	seen := make(map[string]struct{})
	var collected []core.RetrievedChunk
	for _, query := range queries {
		vector, err := a.embedder.Embed(ctx, query)
		if err != nil {
			return msg.ReplyError(a.Name(), err)
		}
		results, err := a.index.Search(ctx, p.SessionID, vector, a.topK)
		if err != nil {
			return msg.ReplyError(a.Name(), err)
		}
		for _, chunk := range results {
			if _, dup := seen[chunk.ID]; dup {
				continue
			}
			seen[chunk.ID] = struct{}{}
			collected = append(collected, chunk)
		}
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].Score > collected[j].Score
	})
	if len(collected) > a.topK {
		collected = collected[:a.topK]
	}

	a.logger.Debug("retrieval complete",
		"session_id", p.SessionID,
		"trace_id", msg.TraceID,
		"queries", len(queries),
		"chunks", len(collected),
	)
	return msg.Reply(a.Name(), core.RetrieveResult, core.RetrieveResultPayload{Query: p.Query, Chunks: collected})
}

// expand returns the original query optionally followed by generated
// paraphrases. Expansion failures are logged and swallowed.
func (a *Retrieval) expand(ctx context.Context, traceID, query string) []string {
	queries := []string{query}
	if !a.expandQueries || a.generator == nil {
		return queries
	}

	raw, err := a.generator.Generate(ctx, expansionPrompt(query, a.expandedCount))
	if err != nil {
		a.logger.Warn("query expansion failed, using original query", "trace_id", traceID, "error", err)
		return queries
	}

	for _, line := range strings.Split(raw, "\n") {
		candidate := trimListMarker(line)
		if candidate == "" || strings.EqualFold(candidate, query) {
			continue
		}
		queries = append(queries, candidate)
		if len(queries) > a.expandedCount {
			break
		}
	}
	return queries
}

// trimListMarker strips bullet or numbering prefixes a model may emit
// despite the one-query-per-line instruction.
func trimListMarker(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "-*")
	if i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }); i > 0 && i < len(s) {
		if s[i] == '.' || s[i] == ')' {
			s = s[i+1:]
		}
	}
	return strings.TrimSpace(s)
}
