package localfs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/passvault-app/passvault/internal/common"
	"github.com/passvault-app/passvault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "vault", "passwords.json"))
}

func TestLoad_MissingFileIsEmptySnapshot(t *testing.T) {
	s := newStore(t)

	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Entries)
	assert.Equal(t, models.SnapshotVersion, snap.Metadata.Version)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	snap := models.NewSnapshot()
	snap.Upsert(models.Entry{ID: "1", Title: "Bank", Username: "alice"})
	require.NoError(t, s.Save(ctx, snap))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "Bank", got.Entries[0].Title)
	assert.Equal(t, 1, got.Metadata.EntryCount, "save refreshes metadata")
}

func TestSave_FirstWriteCreatesVaultDirectory(t *testing.T) {
	// a brand new vault path has neither the directory nor the lock file
	path := filepath.Join(t.TempDir(), "fresh", "nested", "passwords.json")
	s := New(path)
	ctx := context.Background()

	snap := models.NewSnapshot()
	snap.Upsert(models.Entry{ID: "1", Title: "Bank", Username: "alice"})
	require.NoError(t, s.Save(ctx, snap))

	_, err := os.Stat(path)
	assert.NoError(t, err)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Entries, 1)
}

func TestSave_PersistedShapeIsStable(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	snap := models.NewSnapshot()
	snap.Upsert(models.Entry{ID: "1", Title: "Bank", Username: "alice"})
	require.NoError(t, s.Save(ctx, snap))

	raw, err := os.ReadFile(s.path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "metadata")
	assert.Contains(t, doc, "entries")
}

func TestLoad_CorruptFile(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.path), 0o700))
	require.NoError(t, os.WriteFile(s.path, []byte("{not json"), 0o600))

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, common.ErrStorageUnavailable)
}

func TestQueries_DelegateToSnapshot(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	snap := models.NewSnapshot()
	snap.Upsert(models.Entry{ID: "1", Title: "Bank"})
	snap.Upsert(models.Entry{ID: "2", Title: "Mail", Tags: []string{"work"}})
	require.NoError(t, s.Save(ctx, snap))

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := s.GetByID(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Mail", got.Title)

	found, err := s.Search(ctx, "work")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "2", found[0].ID)
}

func TestPing(t *testing.T) {
	s := newStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
