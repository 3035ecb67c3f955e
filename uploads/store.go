// Package uploads provides the disk-backed, session-scoped file store owning
// the uploaded documents. Files live beneath one directory per session so the
// resource manager can reclaim a session's storage wholesale.
package uploads

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const uploadsSubdir = "uploads"

// Store persists uploaded files under root/<sessionID>/uploads/<name>.
// Methods are safe for concurrent use across sessions; concurrent writes of
// the same file within one session are prevented by the coordinator's
// ingestion gate.
type Store struct {
	root string
}

// NewStore constructs a store rooted at the given data directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Dir returns the session's upload directory, creating it if necessary.
func (s *Store) Dir(sessionID string) (string, error) {
	dir := filepath.Join(s.root, sessionID, uploadsSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	return dir, nil
}

// Save stores (or overwrites) the file contents and returns the stored path.
// The name is sanitized to its base component to keep files inside the
// session directory.
func (s *Store) Save(sessionID, name string, data []byte) (string, error) {
	dir, err := s.Dir(sessionID)
	if err != nil {
		return "", err
	}
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid upload name %q", name)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// Get returns the stored file contents or ErrNotFound.
func (s *Store) Get(sessionID, name string) ([]byte, error) {
	path := filepath.Join(s.root, sessionID, uploadsSubdir, filepath.Base(name))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

// List returns the stored file names for the session in sorted order.
func (s *Store) List(sessionID string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, sessionID, uploadsSubdir))
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a stored file or returns ErrNotFound.
func (s *Store) Delete(sessionID, name string) error {
	path := filepath.Join(s.root, sessionID, uploadsSubdir, filepath.Base(name))
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// Purge removes the session's entire storage directory (uploads and any
// serialized index beside them). Purging an absent session is a no-op.
func (s *Store) Purge(sessionID string) error {
	return os.RemoveAll(filepath.Join(s.root, sessionID))
}
