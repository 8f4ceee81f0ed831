package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passvault-app/passvault/internal/models"
)

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "0001_create_vault.sql", entries[0].Name())
}

// Integration tests run only when a database is provided.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN is not set")
	}
	s, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	snap := models.NewSnapshot()
	snap.Upsert(models.Entry{ID: "pg-1", Title: "Bank", Username: "alice"})
	require.NoError(t, s.Save(ctx, snap))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "Bank", got.Entries[0].Title)
	assert.Equal(t, 1, got.Metadata.EntryCount)
}

func TestPing(t *testing.T) {
	s := testStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
