package session

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kumar8074/SpectraRAG/core"
	"github.com/kumar8074/SpectraRAG/uploads"
	"github.com/kumar8074/SpectraRAG/vectorstore"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	root := t.TempDir()
	files := uploads.NewStore(root)
	index := vectorstore.New(func(o *vectorstore.Options) { o.Root = root })
	return NewManager(files, index)
}

func TestManager_CreateAndGet(t *testing.T) {
	m := newTestManager(t)

	sess, err := m.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, core.StatusEmpty, sess.Status())
	assert.DirExists(t, sess.UploadDir)

	got, err := m.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestManager_GetUnknown(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Get("missing")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestManager_DestroyReleasesStorage(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.Create()
	require.NoError(t, err)

	_, err = m.SaveUpload(sess.ID, "doc.txt", []byte("Total: $42"))
	require.NoError(t, err)

	require.NoError(t, m.Destroy(sess.ID))

	_, statErr := os.Stat(sess.UploadDir)
	assert.True(t, os.IsNotExist(statErr))

	_, err = m.Get(sess.ID)
	assert.ErrorIs(t, err, core.ErrSessionDestroyed)
}

func TestManager_DestroyIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.Create()
	require.NoError(t, err)

	require.NoError(t, m.Destroy(sess.ID))
	require.NoError(t, m.Destroy(sess.ID))
	require.NoError(t, m.Destroy("never-existed"))
}

func TestManager_InFlightReferenceFailsAfterDestroy(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.Create()
	require.NoError(t, err)

	// A pipeline step holds the record, the session is destroyed underneath.
	held := sess
	require.NoError(t, m.Destroy(sess.ID))

	assert.True(t, held.Destroyed())
	_, err = m.SaveUpload(held.ID, "late.txt", []byte("x"))
	assert.ErrorIs(t, err, core.ErrSessionDestroyed)
}

func TestManager_ConcurrentCreateDestroy(t *testing.T) {
	m := newTestManager(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := m.Create()
			if err != nil {
				t.Error(err)
				return
			}
			if err := m.Destroy(sess.ID); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, m.Len())
}
