// Package vectorstore implements the session-scoped vector index capability.
// Each session owns at most one logical index; Replace builds a fresh index
// and swaps it in atomically so retried ingestion never duplicates vectors.
// Indexes are held in process memory and optionally serialized beneath the
// session's storage directory so the persisted layout matches the uploads.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/kumar8074/SpectraRAG/core"
)

const indexFileName = "index.json"

// entry pairs one embedded chunk with its vector.
type entry struct {
	ID      string    `json:"id"`
	Content string    `json:"content"`
	Source  string    `json:"source"`
	Vector  []float32 `json:"vector"`
}

// index is a complete immutable snapshot for one session. Replace swaps the
// whole snapshot; readers never observe a half-built index.
type index struct {
	Ref     string  `json:"ref"`
	Entries []entry `json:"entries"`
}

// Store is an in-process core.VectorIndex with optional disk persistence.
// Safe for concurrent access.
type Store struct {
	mu      sync.RWMutex
	indexes map[string]*index // sessionID -> current snapshot
	root    string            // persistence root ("" = memory only)
}

// Options configure a Store.
type Options struct {
	// Root is the directory beneath which per-session index files are
	// serialized (Root/<sessionID>/index.json). Empty disables persistence.
	Root string
}

// New constructs an empty vector store.
func New(optFns ...func(o *Options)) *Store {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{indexes: make(map[string]*index), root: opts.Root}
}

// Replace implements core.VectorIndex. vectors and chunks are parallel
// slices; mismatched lengths are rejected.
func (s *Store) Replace(ctx context.Context, sessionID string, vectors [][]float32, chunks []core.DocumentChunk) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(vectors) != len(chunks) {
		return "", core.WrapCollaborator(core.CodeEmbeddingFailed,
			fmt.Sprintf("vector/chunk count mismatch: %d vs %d", len(vectors), len(chunks)), nil)
	}

	next := &index{
		Ref:     "vecidx-" + uuid.NewString(),
		Entries: make([]entry, len(chunks)),
	}
	for i, chunk := range chunks {
		next.Entries[i] = entry{
			ID:      fmt.Sprintf("%s-%d", next.Ref, chunk.Position),
			Content: chunk.Content,
			Source:  chunk.Source,
			Vector:  vectors[i],
		}
	}

	if err := s.persist(sessionID, next); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.indexes[sessionID] = next
	s.mu.Unlock()

	return next.Ref, nil
}

// Search implements core.VectorIndex using cosine similarity.
func (s *Store) Search(ctx context.Context, sessionID string, vector []float32, k int) ([]core.RetrievedChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	idx, ok := s.indexes[sessionID]
	s.mu.RUnlock()

	if !ok || len(idx.Entries) == 0 {
		return nil, core.NewResourceError(core.CodeVectorStoreMissing, "no vector index for session")
	}
	if k <= 0 {
		return []core.RetrievedChunk{}, nil
	}

	results := make([]core.RetrievedChunk, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		results = append(results, core.RetrievedChunk{
			ID:      e.ID,
			Content: e.Content,
			Source:  e.Source,
			Score:   Cosine(vector, e.Vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Drop implements core.VectorIndex. Dropping an absent index is a no-op.
func (s *Store) Drop(sessionID string) error {
	s.mu.Lock()
	delete(s.indexes, sessionID)
	s.mu.Unlock()

	if s.root != "" {
		if err := os.Remove(filepath.Join(s.root, sessionID, indexFileName)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Has reports whether a non-empty index exists for the session.
func (s *Store) Has(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[sessionID]
	return ok && len(idx.Entries) > 0
}

// Ref returns the current index reference for the session ("" when absent).
func (s *Store) Ref(sessionID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx, ok := s.indexes[sessionID]; ok {
		return idx.Ref
	}
	return ""
}

// persist serializes the snapshot to the session's storage directory. A
// memory-only store skips this step.
func (s *Store) persist(sessionID string, idx *index) error {
	if s.root == "" {
		return nil
	}
	dir := filepath.Join(s.root, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, indexFileName), data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// Cosine returns the cosine similarity of two vectors. Mismatched or zero
// vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
