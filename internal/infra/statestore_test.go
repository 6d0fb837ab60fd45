package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/ccguard/internal/domain"
)

func newTestStore(t *testing.T) domain.StateStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".ccguard_state.json")
	return NewFileStateStoreWithPath(path, zap.NewNop())
}

func TestStateStore_LoadMissingFileIsUnprotected(t *testing.T) {
	store := newTestStore(t)

	state, err := store.Load()
	require.NoError(t, err)
	assert.False(t, state.IsProtected)
	assert.Empty(t, state.ProtectedVersion)
	assert.Empty(t, state.LockedPaths)
	assert.Empty(t, state.BlockerPaths)
}

func TestStateStore_LoadCorruptFileIsUnprotected(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0600))

	state, err := store.Load()
	require.NoError(t, err)
	assert.False(t, state.IsProtected)
}

func TestStateStore_SaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	saved := &domain.ProtectionState{
		IsProtected:      true,
		ProtectedVersion: "/root/Apps/6.4.0",
		LockedPaths:      []string{"/root/Apps/configure.ini"},
		BlockerPaths:     []string{"/root/Apps/ProductInfo.xml", "/root/User Data/Download/update.exe"},
	}
	require.NoError(t, store.Save(saved))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.True(t, loaded.Protected())
	assert.Equal(t, saved.ProtectedVersion, loaded.ProtectedVersion)
	assert.Equal(t, saved.LockedPaths, loaded.LockedPaths)
	assert.Equal(t, saved.BlockerPaths, loaded.BlockerPaths)
	assert.Greater(t, loaded.UpdatedAt, int64(0))
}

func TestStateStore_MutateReadsModifiesWrites(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(&domain.ProtectionState{IsProtected: true, ProtectedVersion: "/a/5.9.0"}))

	err := store.Mutate(func(state *domain.ProtectionState) error {
		state.ProtectedVersion = "/a/6.4.0"
		return nil
	})
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "/a/6.4.0", loaded.ProtectedVersion)
	assert.True(t, loaded.IsProtected)
}

func TestStateStore_MutateErrorAbortsWrite(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(&domain.ProtectionState{IsProtected: true, ProtectedVersion: "/a/5.9.0"}))
	before, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	mutateErr := store.Mutate(func(state *domain.ProtectionState) error {
		state.ProtectedVersion = "/a/6.4.0"
		return assert.AnError
	})
	require.Error(t, mutateErr)

	after, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after, "aborted mutate must leave the file byte-for-byte unchanged")
}

func TestStateStore_ClearIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(&domain.ProtectionState{IsProtected: true, ProtectedVersion: "/a/6.4.0"}))

	require.NoError(t, store.Clear())
	assert.NoFileExists(t, store.Path())

	// Clearing an absent file succeeds too.
	require.NoError(t, store.Clear())
}

func TestStateStore_NoStrayTempFiles(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(&domain.ProtectionState{IsProtected: true, ProtectedVersion: "/a/6.4.0"}))

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}
