// Package server exposes the session and turn operations over a small JSON
// HTTP API. It is a thin adapter: all semantics live in the coordinator and
// the session manager, the server only translates requests and maps the
// error taxonomy onto status codes.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	spectrarag "github.com/kumar8074/SpectraRAG"
	"github.com/kumar8074/SpectraRAG/core"
	"github.com/kumar8074/SpectraRAG/logging"
)

const maxUploadBytes int64 = 32 << 20

// handler carries the façade behind the HTTP surface.
type handler struct {
	rag    *spectrarag.SpectraRAG
	logger logging.Logger
}

// Options holds dependency overrides passed to New.
type Options struct {
	Logger logging.Logger
}

// New builds the HTTP server for the given façade.
func New(rag *spectrarag.SpectraRAG, addr string, optFns ...func(o *Options)) *http.Server {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	h := &handler{rag: rag, logger: opts.Logger}

	return &http.Server{
		Addr:              addr,
		Handler:           h.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// routes wires the endpoint table. Exposed separately so tests can mount the
// mux on httptest.Server.
func (h *handler) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("POST /sessions", h.handleCreateSession)
	mux.HandleFunc("POST /sessions/{id}/documents", h.handleUploadDocument)
	mux.HandleFunc("POST /sessions/{id}/turns", h.handleTurn)
	mux.HandleFunc("GET /sessions/{id}/history", h.handleHistory)
	mux.HandleFunc("DELETE /sessions/{id}", h.handleDestroySession)
	return mux
}

// Routes returns the request multiplexer for the façade, for callers that
// mount the API inside a larger server.
func Routes(rag *spectrarag.SpectraRAG, optFns ...func(o *Options)) http.Handler {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	h := &handler{rag: rag, logger: opts.Logger}
	return h.routes()
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *handler) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id, err := h.rag.CreateSession()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"session_id": id})
}

type turnRequest struct {
	Query string `json:"query"`
}

type turnResponse struct {
	TraceID  string                `json:"trace_id"`
	Answer   string                `json:"answer"`
	Sources  []core.RetrievedChunk `json:"sources,omitempty"`
	Grounded bool                  `json:"grounded"`
	Status   core.Status           `json:"status"`
}

func (h *handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, core.NewValidationError(core.CodeMalformedMessage, "invalid json body"))
		return
	}

	res, err := h.rag.Ask(r.Context(), r.PathValue("id"), req.Query)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turnResponse{
		TraceID:  res.TraceID,
		Answer:   res.Answer,
		Sources:  res.Sources,
		Grounded: res.Grounded,
		Status:   res.Status,
	})
}

type uploadResponse struct {
	TraceID    string      `json:"trace_id"`
	Status     core.Status `json:"status"`
	ChunkCount int         `json:"chunk_count"`
}

func (h *handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, core.NewValidationError(core.CodeMissingFile, "invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, core.NewValidationError(core.CodeMissingFile, "form field \"file\" is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.writeError(w, core.NewValidationError(core.CodeMissingFile, "failed to read upload"))
		return
	}

	res, err := h.rag.UploadDocument(r.Context(), r.PathValue("id"), header.Filename, data)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		TraceID:    res.TraceID,
		Status:     res.Status,
		ChunkCount: res.ChunkCount,
	})
}

func (h *handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.rag.History(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (h *handler) handleDestroySession(w http.ResponseWriter, r *http.Request) {
	if err := h.rag.DestroySession(r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type errorBody struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// writeError maps the error taxonomy onto HTTP status codes. Validation and
// protocol faults are the caller's, resource conflicts carry their own
// codes, and collaborator faults surface as a bad gateway.
func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrSessionDestroyed):
		status = http.StatusGone
	case errors.Is(err, core.ErrEmbedInProgress):
		status = http.StatusConflict
	default:
		switch core.KindOf(err) {
		case core.KindValidation, core.KindProtocol:
			status = http.StatusBadRequest
		case core.KindCollaborator:
			status = http.StatusBadGateway
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "code", core.CodeOf(err), "error", err)
	}
	writeJSON(w, status, map[string]any{"error": errorBody{Code: core.CodeOf(err), Reason: err.Error()}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
