package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	return store
}

func TestFileStoreStartsEmpty(t *testing.T) {
	store := newTestStore(t)

	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.AuthToken())
	assert.Empty(t, store.KnowledgeBaseID())
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SetAuthToken("token"))
	require.NoError(t, store.SetOrgID("org-1"))
	require.NoError(t, store.SetConnectionID("conn-1"))
	require.NoError(t, store.SetKnowledgeBaseID("kb-1"))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)

	assert.True(t, reopened.IsAuthenticated())
	assert.Equal(t, "token", reopened.AuthToken())
	assert.Equal(t, "org-1", reopened.OrgID())
	assert.Equal(t, "conn-1", reopened.ConnectionID())
	assert.Equal(t, "kb-1", reopened.KnowledgeBaseID())
}

func TestFileStoreEverySetterPersists(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetKnowledgeBaseID("kb-1"))

	// read the file directly: the write must already be on disk
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "kb-1", snap.KnowledgeBaseID)
}

func TestFileStoreLogoutClearsEverything(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetAuthToken("token"))
	require.NoError(t, store.SetKnowledgeBaseID("kb-1"))

	require.NoError(t, store.Logout())

	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, Snapshot{}, store.Snapshot())

	reopened, err := NewFileStore(store.Path())
	require.NoError(t, err)
	assert.Equal(t, Snapshot{}, reopened.Snapshot())
}

func TestFileStoreReloadPicksUpExternalWrite(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetAuthToken("token"))

	external := Snapshot{AuthToken: "other-token", OrgID: "org-2"}
	data, err := json.Marshal(&external)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path(), data, 0o644))

	snap, err := store.Reload()
	require.NoError(t, err)
	assert.Equal(t, external, snap)
	assert.Equal(t, "other-token", store.AuthToken())
}

func TestFileStoreReloadMissingFileClearsSession(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SetAuthToken("token"))

	require.NoError(t, os.Remove(store.Path()))

	snap, err := store.Reload()
	require.NoError(t, err)
	assert.Equal(t, Snapshot{}, snap)
}

func TestFileStoreRejectsCorruptStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.SetAuthToken("token"))
	require.NoError(t, store.SetConnectionID("conn-1"))

	assert.True(t, store.IsAuthenticated())
	snap := store.Snapshot()
	assert.Equal(t, "token", snap.AuthToken)
	assert.Equal(t, "conn-1", snap.ConnectionID)

	require.NoError(t, store.Logout())
	assert.False(t, store.IsAuthenticated())
}
