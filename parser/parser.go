// Package parser implements the document parsing capability consumed by the
// ingestion agent. Format support is dispatched on file extension: plain-text
// formats are loaded natively, while binary formats (pdf, docx, pptx) are
// served by externally registered loaders.
package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kumar8074/SpectraRAG/core"
)

// Loader extracts the full text of a document at the given path.
type Loader func(ctx context.Context, path string) (string, error)

// Set is a core.Parser dispatching on file extension. Loaders for txt, md,
// log and csv are built in; additional formats are added via Register.
type Set struct {
	loaders map[string]Loader
	chunker Chunker
}

// Options configure a parser Set.
type Options struct {
	Chunker Chunker
}

// NewSet constructs a parser set with the built-in plain-text loaders.
func NewSet(optFns ...func(o *Options)) *Set {
	opts := Options{Chunker: NewChunker()}
	for _, fn := range optFns {
		fn(&opts)
	}
	s := &Set{loaders: make(map[string]Loader), chunker: opts.Chunker}
	for _, ext := range []string{"txt", "md", "log", "csv"} {
		s.loaders[ext] = loadPlainText
	}
	return s
}

// Register adds (or overrides) a loader for the given extension, without the
// leading dot.
func (s *Set) Register(ext string, loader Loader) {
	s.loaders[strings.ToLower(strings.TrimPrefix(ext, "."))] = loader
}

// SupportedExtensions returns the registered extensions in sorted order.
func (s *Set) SupportedExtensions() []string {
	exts := make([]string, 0, len(s.loaders))
	for ext := range s.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether the file's extension has a registered loader.
func (s *Set) Supports(fileRef string) bool {
	_, ok := s.loaders[extOf(fileRef)]
	return ok
}

// Parse loads the document and splits it into ordered chunks. It fails with
// UNSUPPORTED_FORMAT for unregistered extensions, PARSE_FAILED when the
// loader errors and EMPTY_DOCUMENT when no text survives chunking.
func (s *Set) Parse(ctx context.Context, fileRef string) ([]core.DocumentChunk, error) {
	ext := extOf(fileRef)
	loader, ok := s.loaders[ext]
	if !ok {
		return nil, core.NewValidationError(core.CodeUnsupportedFormat, fmt.Sprintf("unsupported file type: %q", ext))
	}

	text, err := loader(ctx, fileRef)
	if err != nil {
		return nil, core.WrapCollaborator(core.CodeParseFailed, "document loader failed", err)
	}

	pieces := s.chunker.Split(text)
	if len(pieces) == 0 {
		return nil, core.NewValidationError(core.CodeEmptyDocument, "document contains no text")
	}

	source := filepath.Base(fileRef)
	chunks := make([]core.DocumentChunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = core.DocumentChunk{Content: p, Source: source, Position: i}
	}
	return chunks, nil
}

func extOf(fileRef string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(fileRef), "."))
}

func loadPlainText(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
