package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	spectrarag "github.com/kumar8074/SpectraRAG"
	"github.com/kumar8074/SpectraRAG/llm"
)

func newTestServer(t *testing.T, gen *llm.MockGenerator) *httptest.Server {
	t.Helper()
	rag := spectrarag.New(func(o *spectrarag.Options) {
		o.DataDir = t.TempDir()
		o.Generator = gen
		o.ExpandQueries = false
	})
	ts := httptest.NewServer(Routes(rag))
	t.Cleanup(ts.Close)
	return ts
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.SessionID)
	return body.SessionID
}

func uploadDocument(t *testing.T, ts *httptest.Server, sessionID, name, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/sessions/"+sessionID+"/documents", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func ask(t *testing.T, ts *httptest.Server, sessionID, query string) *http.Response {
	t.Helper()
	body := fmt.Sprintf(`{"query": %q}`, query)
	resp, err := http.Post(ts.URL+"/sessions/"+sessionID+"/turns", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestServer_DocumentLifecycle(t *testing.T) {
	gen := llm.NewMockGenerator()
	gen.AddResponse("$42", "The total was $42.")
	ts := newTestServer(t, gen)

	id := createSession(t, ts)

	resp := uploadDocument(t, ts, id, "invoice.txt", "Invoice total: $42. Due soon.")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var upload struct {
		TraceID    string `json:"trace_id"`
		Status     string `json:"status"`
		ChunkCount int    `json:"chunk_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&upload))
	assert.Equal(t, "READY", upload.Status)
	assert.Greater(t, upload.ChunkCount, 0)
	assert.NotEmpty(t, upload.TraceID)

	resp = ask(t, ts, id, "What was the total?")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var turn struct {
		Answer   string `json:"answer"`
		Grounded bool   `json:"grounded"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&turn))
	assert.Equal(t, "The total was $42.", turn.Answer)
	assert.True(t, turn.Grounded)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/sessions/"+id, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The destroyed session rejects further turns.
	resp = ask(t, ts, id, "anything")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestServer_UnknownSession(t *testing.T) {
	ts := newTestServer(t, llm.NewMockGenerator())

	resp := ask(t, ts, "missing", "hello")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "SESSION_NOT_FOUND", body.Error.Code)
}

func TestServer_EmptyQuery(t *testing.T) {
	ts := newTestServer(t, llm.NewMockGenerator())
	id := createSession(t, ts)

	resp := ask(t, ts, id, "   ")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_UploadUnsupportedFormat(t *testing.T) {
	ts := newTestServer(t, llm.NewMockGenerator())
	id := createSession(t, ts)

	resp := uploadDocument(t, ts, id, "image.png", "binary")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "UNSUPPORTED_FORMAT", body.Error.Code)
}

func TestServer_UploadWithoutFileField(t *testing.T) {
	ts := newTestServer(t, llm.NewMockGenerator())
	id := createSession(t, ts)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("unrelated", "x"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/sessions/"+id+"/documents", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_InvalidTurnBody(t *testing.T) {
	ts := newTestServer(t, llm.NewMockGenerator())
	id := createSession(t, ts)

	resp, err := http.Post(ts.URL+"/sessions/"+id+"/turns", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t, llm.NewMockGenerator())

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
