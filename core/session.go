package core

import (
	"sync"
	"time"
)

// Status is the document lifecycle state of a session.
type Status string

const (
	// StatusEmpty means no document has been ingested yet.
	StatusEmpty Status = "EMPTY"
	// StatusIngesting means an embed pipeline is currently running.
	StatusIngesting Status = "INGESTING"
	// StatusReady means the session's vector index is built and queryable.
	StatusReady Status = "READY"
	// StatusError means the last ingestion failed; prior state is untouched.
	StatusError Status = "ERROR"
)

// ChatRecord is one completed turn appended to a session's history.
type ChatRecord struct {
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	TraceID   string    `json:"trace_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is a conversational container owning session-scoped storage
// handles. It is safe for concurrent access.
//
// Contract:
//   - Status transitions are performed by the coordinator; storage handles
//     are set by the resource manager and the ingestion pipeline
//   - History returns a defensive copy; the history itself is append-only
//   - Once destroyed, a session rejects all further mutation
type Session struct {
	ID        string    `json:"id"`
	Created   time.Time `json:"created"`
	UploadDir string    `json:"upload_dir"`

	mu        sync.RWMutex
	status    Status
	vectorRef string
	history   []ChatRecord
	updated   time.Time
	destroyed bool

	// turnMu serializes query pipelines for this session. It is held for
	// the duration of a turn, never by the resource registry.
	turnMu sync.Mutex
}

// NewSession creates a session in the EMPTY state with the given upload
// directory handle.
func NewSession(id, uploadDir string) *Session {
	now := time.Now()
	return &Session{ID: id, Created: now, updated: now, UploadDir: uploadDir, status: StatusEmpty}
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetStatus transitions the lifecycle state.
func (s *Session) SetStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
	s.updated = time.Now()
}

// BeginIngestion atomically moves the session into INGESTING. It fails with
// ErrEmbedInProgress when an ingestion is already running and with
// ErrSessionDestroyed after destruction, guaranteeing at most one concurrent
// writer for the session's vector index.
func (s *Session) BeginIngestion() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrSessionDestroyed
	}
	if s.status == StatusIngesting {
		return ErrEmbedInProgress
	}
	s.status = StatusIngesting
	s.updated = time.Now()
	return nil
}

// FinishIngestion leaves the INGESTING state. On success the vector index
// reference is attached and the session becomes READY; on failure the status
// becomes ERROR and the prior vector reference is left untouched.
func (s *Session) FinishIngestion(vectorRef string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.vectorRef = vectorRef
		s.status = StatusReady
	} else {
		s.status = StatusError
	}
	s.updated = time.Now()
}

// VectorRef returns the session's vector index handle ("" before the first
// successful ingestion).
func (s *Session) VectorRef() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vectorRef
}

// AppendRecord appends one completed turn to the chat history. Appends after
// destruction are dropped.
func (s *Session) AppendRecord(rec ChatRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.history = append(s.history, rec)
	s.updated = time.Now()
}

// History returns a defensive copy of the chat history.
func (s *Session) History() []ChatRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChatRecord, len(s.history))
	copy(out, s.history)
	return out
}

// MarkDestroyed flips the destroyed flag. Idempotent; the first call returns
// true so the caller can release resources exactly once.
func (s *Session) MarkDestroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return false
	}
	s.destroyed = true
	s.updated = time.Now()
	return true
}

// Destroyed reports whether the session has been destroyed.
func (s *Session) Destroyed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destroyed
}

// LockTurn serializes query pipelines: within one session only one turn runs
// to completion at a time. The caller must invoke the returned unlock.
func (s *Session) LockTurn() func() {
	s.turnMu.Lock()
	return s.turnMu.Unlock
}

// Updated returns the time of the last mutation.
func (s *Session) Updated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}
