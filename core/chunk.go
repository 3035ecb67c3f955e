package core

// DocumentChunk is a parsed fragment of an uploaded document before
// embedding. Source names the originating file; Position preserves document
// order for diagnostics.
type DocumentChunk struct {
	Content  string `json:"content"`
	Source   string `json:"source"`
	Position int    `json:"position"`
}

// RetrievedChunk represents a chunk returned by similarity search with a
// relevance score. Higher scores rank first.
type RetrievedChunk struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}
