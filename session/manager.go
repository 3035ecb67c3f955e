// Package session implements the session resource manager: it owns the
// registry mapping session identifiers to session state and the lifecycle of
// session-scoped storage (upload directory, vector index). Destroying a
// session releases both and is safe to repeat.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/kumar8074/SpectraRAG/core"
	"github.com/kumar8074/SpectraRAG/logging"
	"github.com/kumar8074/SpectraRAG/uploads"
)

// Manager is the process-wide session registry. Lookup, creation and
// destruction are safe for concurrent use; the registry lock is only held
// around map mutations, never across storage cleanup or collaborator calls.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session

	files  *uploads.Store
	index  core.VectorIndex
	logger logging.Logger
}

// Options holds dependency overrides passed to NewManager.
type Options struct {
	Logger logging.Logger
}

// NewManager constructs a manager owning storage under the given stores.
func NewManager(files *uploads.Store, index core.VectorIndex, optFns ...func(o *Options)) *Manager {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{
		sessions: make(map[string]*core.Session),
		files:    files,
		index:    index,
		logger:   opts.Logger,
	}
}

// Create allocates a fresh session with status EMPTY and a dedicated upload
// directory.
func (m *Manager) Create() (*core.Session, error) {
	id := uuid.NewString()
	dir, err := m.files.Dir(id)
	if err != nil {
		return nil, err
	}
	sess := core.NewSession(id, dir)

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	m.logger.Info("session created", "session_id", id)
	return sess, nil
}

// Get returns the live session record. It fails with ErrSessionNotFound for
// unknown ids and ErrSessionDestroyed for ids that were destroyed, so
// in-flight pipeline steps referencing a destroyed session fail fast with
// the destruction error rather than operate on dangling storage.
func (m *Manager) Get(sessionID string) (*core.Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok {
		return nil, core.ErrSessionNotFound
	}
	if sess.Destroyed() {
		return nil, core.ErrSessionDestroyed
	}
	return sess, nil
}

// Destroy releases the session's vector index, deletes its storage directory
// and tombstones the record. Idempotent: destroying an absent or already
// destroyed session succeeds. Safe to call concurrently with an in-flight
// pipeline for the session; that pipeline's next Get fails with
// ErrSessionDestroyed and its result is discarded.
func (m *Manager) Destroy(sessionID string) error {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok {
		return nil
	}
	if !sess.MarkDestroyed() {
		return nil
	}

	if err := m.index.Drop(sessionID); err != nil {
		m.logger.Warn("failed to drop vector index", "session_id", sessionID, "error", err)
	}
	if err := m.files.Purge(sessionID); err != nil {
		m.logger.Warn("failed to purge session storage", "session_id", sessionID, "error", err)
	}

	m.logger.Info("session destroyed", "session_id", sessionID)
	return nil
}

// SaveUpload stores a document into the session's upload directory and
// returns the stored path. It fails fast on unknown or destroyed sessions.
func (m *Manager) SaveUpload(sessionID, name string, data []byte) (string, error) {
	if _, err := m.Get(sessionID); err != nil {
		return "", err
	}
	return m.files.Save(sessionID, name, data)
}

// Len returns the number of live sessions. Destroyed sessions stay in the
// registry as tombstones so stale references resolve to ErrSessionDestroyed;
// they are not counted here.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sess := range m.sessions {
		if !sess.Destroyed() {
			n++
		}
	}
	return n
}
