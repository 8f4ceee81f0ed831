package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passvault-app/passvault/internal/cryptox"
)

func TestLoad_MissingFileIsFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, found, err := Load(path)
	require.NoError(t, err)
	assert.False(t, found)

	assert.True(t, cfg.Local.Enabled)
	assert.Equal(t, 1, cfg.Local.Priority)
	assert.False(t, cfg.GitHub.Enabled)
	assert.Equal(t, "main", cfg.GitHub.Branch)
	assert.Equal(t, cryptox.DefaultKDFParams(), cfg.Crypto.KDF)
	assert.False(t, cfg.Crypto.Initialized())
	assert.Equal(t, 30*time.Second, cfg.StatusCheckInterval.Duration)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Defaults(path)
	cfg.Crypto.Salt = []byte("0123456789abcdef")
	cfg.Crypto.SecondarySalt = []byte("fedcba9876543210")
	cfg.Crypto.Verifier = []byte("some-verifier-hash")
	cfg.Crypto.DoubleEncryption = true
	cfg.GitHub.Enabled = true
	cfg.GitHub.Owner = "acme"
	cfg.GitHub.Repo = "vault"
	require.NoError(t, cfg.Save())

	got, found, err := Load(path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, got.Crypto.Initialized())
	assert.Equal(t, cfg.Crypto.Salt, got.Crypto.Salt)
	assert.Equal(t, cfg.Crypto.SecondarySalt, got.Crypto.SecondarySalt)
	assert.True(t, got.Crypto.DoubleEncryption)
	assert.Equal(t, "acme", got.GitHub.Owner)
	assert.Equal(t, cfg.Local.Path, got.Local.Path)
}

func TestSave_FileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Defaults(path)
	require.NoError(t, cfg.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_JSONOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{
		"local": {"enabled": true, "path": "/tmp/v.json", "priority": 5},
		"status_check_interval": "15s"
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, found, err := Load(path)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "/tmp/v.json", cfg.Local.Path)
	assert.Equal(t, 5, cfg.Local.Priority)
	assert.Equal(t, 15*time.Second, cfg.StatusCheckInterval.Duration)
	assert.Equal(t, "main", cfg.GitHub.Branch)
}
