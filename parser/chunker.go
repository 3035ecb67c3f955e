package parser

import "strings"

// ChunkConfig defines chunking parameters.
type ChunkConfig struct {
	// Size: target chunk size in runes
	Size int
	// Overlap: rune overlap carried between consecutive chunks
	Overlap int
}

// DefaultChunkConfig returns the defaults used for document ingestion.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{Size: 1000, Overlap: 200}
}

// Chunker splits document text into embedding-sized pieces. It accumulates
// paragraphs up to the target size and falls back to a hard split with
// overlap for oversized paragraphs.
type Chunker struct {
	cfg ChunkConfig
}

// NewChunker constructs a chunker with default configuration.
func NewChunker() Chunker { return Chunker{cfg: DefaultChunkConfig()} }

// NewChunkerWithConfig constructs a chunker with explicit configuration.
func NewChunkerWithConfig(cfg ChunkConfig) Chunker {
	if cfg.Size <= 0 {
		cfg.Size = DefaultChunkConfig().Size
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		cfg.Overlap = 0
	}
	return Chunker{cfg: cfg}
}

// Split returns the chunks of text in document order. Whitespace-only input
// yields no chunks.
func (c Chunker) Split(text string) []string {
	paragraphs := strings.Split(text, "\n\n")

	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(para) > c.cfg.Size {
			flush()
		}

		if len(para) > c.cfg.Size {
			flush()
			chunks = append(chunks, c.hardSplit(para)...)
			continue
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks
}

// hardSplit cuts an oversized paragraph at rune boundaries, carrying Overlap
// runes into each following chunk.
func (c Chunker) hardSplit(text string) []string {
	runes := []rune(text)
	step := c.cfg.Size - c.cfg.Overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.cfg.Size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
