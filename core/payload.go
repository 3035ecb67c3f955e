package core

// Payload is the typed data carried by a Message. Concrete payload types
// implement the unexported isPayload marker enabling a closed set, so a
// handler can switch on the payload shape without reflection.
type Payload interface{ isPayload() }

// EmbedRequestPayload asks the ingestion agent to build the vector index for
// an uploaded file. SessionID scopes the resulting index.
type EmbedRequestPayload struct {
	SessionID string `json:"session_id"`
	FileRef   string `json:"file_ref"`
}

func (EmbedRequestPayload) isPayload() {}

// EmbedDonePayload reports the vector index reference produced by a
// successful ingestion together with the number of persisted chunks.
type EmbedDonePayload struct {
	VectorRef  string `json:"vector_ref"`
	ChunkCount int    `json:"chunk_count"`
}

func (EmbedDonePayload) isPayload() {}

// RetrieveRequestPayload asks the retrieval agent for chunks relevant to the
// query within the session's vector index.
type RetrieveRequestPayload struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
	VectorRef string `json:"vector_ref"`
}

func (RetrieveRequestPayload) isPayload() {}

// RetrieveResultPayload carries ranked chunks, most relevant first. An empty
// slice is a valid result: absence of matching chunks is data, not an error.
type RetrieveResultPayload struct {
	Query  string           `json:"query"`
	Chunks []RetrievedChunk `json:"chunks"`
}

func (RetrieveResultPayload) isPayload() {}

// GenerateRequestPayload asks the response agent (Chunks attached, possibly
// empty) or the general agent (no chunks) for an answer. Notice, when set,
// is a caller-facing preamble the agent must surface, e.g. the
// document-still-processing hint.
type GenerateRequestPayload struct {
	Query  string           `json:"query"`
	Chunks []RetrievedChunk `json:"chunks,omitempty"`
	Notice string           `json:"notice,omitempty"`
}

func (GenerateRequestPayload) isPayload() {}

// GenerateResultPayload carries the final answer. Grounded reports whether
// the answer was constrained to retrieved context; it is false for general
// answers and for document answers produced without any matching chunks.
type GenerateResultPayload struct {
	Answer   string           `json:"answer"`
	Sources  []RetrievedChunk `json:"sources,omitempty"`
	Grounded bool             `json:"grounded"`
}

func (GenerateResultPayload) isPayload() {}

// ErrorPayload describes a failed step. Code is a stable machine-readable
// identifier from the error taxonomy (see errors.go).
type ErrorPayload struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

func (ErrorPayload) isPayload() {}
