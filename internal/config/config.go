// Package config holds the persisted vault configuration: key-derivation
// material, backend settings and generator defaults. Runtime values layer
// defaults, then the JSON document, then command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/passvault-app/passvault/internal/cryptox"
	"github.com/passvault-app/passvault/internal/filex"
	"github.com/passvault-app/passvault/internal/password"
	"github.com/passvault-app/passvault/internal/storage/s3"
	"github.com/passvault-app/passvault/internal/timex"
)

// CryptoConfig is the persisted key-derivation material. Salts and the
// verifier are public values; the master key itself never persists.
type CryptoConfig struct {
	Salt             []byte            `json:"salt,omitempty"`
	SecondarySalt    []byte            `json:"secondary_salt,omitempty"`
	Verifier         []byte            `json:"verifier,omitempty"`
	KDF              cryptox.KDFParams `json:"kdf"`
	DoubleEncryption bool              `json:"double_encryption"`
}

// Initialized reports whether a master password has been set up.
func (c *CryptoConfig) Initialized() bool {
	return len(c.Salt) > 0 && len(c.Verifier) > 0
}

type LocalConfig struct {
	Enabled  bool   `json:"enabled"`
	Path     string `json:"path"`
	Priority int    `json:"priority"`
}

type GitHubConfig struct {
	Enabled  bool   `json:"enabled"`
	Priority int    `json:"priority"`
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	Branch   string `json:"branch"`
	Path     string `json:"path"`

	// personal access token auth
	Token string `json:"token,omitempty"`

	// GitHub App auth, used when Token is empty
	AppID          string `json:"app_id,omitempty"`
	InstallationID int64  `json:"installation_id,omitempty"`
	PrivateKeyPath string `json:"private_key_path,omitempty"`
}

type S3Config struct {
	Enabled  bool `json:"enabled"`
	Priority int  `json:"priority"`
	s3.Config
}

type PostgresConfig struct {
	Enabled  bool   `json:"enabled"`
	Priority int    `json:"priority"`
	DSN      string `json:"dsn"`
}

type Config struct {
	Crypto    CryptoConfig             `json:"crypto"`
	Local     LocalConfig              `json:"local"`
	GitHub    GitHubConfig             `json:"github"`
	S3        S3Config                 `json:"s3"`
	Postgres  PostgresConfig           `json:"postgres"`
	Generator password.GeneratorConfig `json:"generator"`

	StatusCheckInterval timex.Duration `json:"status_check_interval"`

	path string
}

// Path is where the document was loaded from and will be saved to.
func (c *Config) Path() string { return c.path }

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".passvault", "config.json")
	}
	return filepath.Join(home, ".passvault", "config.json")
}

func Defaults(path string) *Config {
	dir := filepath.Dir(path)
	return &Config{
		Crypto: CryptoConfig{KDF: cryptox.DefaultKDFParams()},
		Local: LocalConfig{
			Enabled:  true,
			Path:     filepath.Join(dir, "vault.json"),
			Priority: 1,
		},
		GitHub: GitHubConfig{
			Priority: 2,
			Branch:   "main",
			Path:     "vault.json",
		},
		S3:                  S3Config{Priority: 3},
		Postgres:            PostgresConfig{Priority: 4},
		Generator:           password.DefaultGeneratorConfig(),
		StatusCheckInterval: timex.Duration{Duration: 30 * time.Second},
		path:                path,
	}
}

// Load reads the config document at path (or DefaultPath when empty).
// A missing file is first-run, not an error: defaults are returned and
// found is false.
func Load(path string) (cfg *Config, found bool, err error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg = Defaults(path)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, false, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.path = path
	return cfg, true, nil
}

// Save persists the document atomically. Mode 0600: the file holds backend
// credentials even though it never holds the master key.
func (c *Config) Save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := filex.EnsureParentDir(c.path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := filex.WriteFileAtomic(c.path, data, 0o600); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
