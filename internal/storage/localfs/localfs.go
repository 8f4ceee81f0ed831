// Package localfs stores the vault snapshot as one JSON document on disk.
// Saves go through a temp file and rename so a crash never leaves a
// half-written snapshot, and a flock guards against concurrent processes.
package localfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/passvault-app/passvault/internal/common"
	"github.com/passvault-app/passvault/internal/filex"
	"github.com/passvault-app/passvault/internal/models"
	"github.com/passvault-app/passvault/internal/storage"
)

const lockRetryDelay = 50 * time.Millisecond

type Store struct {
	storage.SnapshotQuerier

	path string
	lock *flock.Flock
}

// New returns a store over the JSON document at path. The file does not
// have to exist yet; a missing file reads as an empty snapshot.
func New(path string) *Store {
	s := &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}
	s.LoadFunc = s.Load
	return s
}

func (s *Store) Load(ctx context.Context) (*models.StorageSnapshot, error) {
	// the lock file lives next to the vault file; a fresh vault path has
	// neither, so the directory must exist before the flock is created
	if err := filex.EnsureParentDir(s.path); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}

	locked, err := s.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return nil, fmt.Errorf("%w: lock %s: %v", common.ErrStorageUnavailable, s.lock.Path(), err)
	}
	defer s.lock.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrStorageUnavailable, s.path, err)
	}

	var snap models.StorageSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", common.ErrStorageUnavailable, s.path, err)
	}
	if snap.Entries == nil {
		snap.Entries = []models.Entry{}
	}
	return &snap, nil
}

func (s *Store) Save(ctx context.Context, snap *models.StorageSnapshot) error {
	if err := filex.EnsureParentDir(s.path); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return fmt.Errorf("%w: lock %s: %v", common.ErrStorageUnavailable, s.lock.Path(), err)
	}
	defer s.lock.Unlock()

	snap.Finalize()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := filex.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %v", common.ErrStorageUnavailable, s.path, err)
	}
	return nil
}

// Ping verifies the data directory is reachable and writable.
func (s *Store) Ping(ctx context.Context) error {
	if err := filex.EnsureParentDir(s.path); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	if _, err := os.Stat(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: stat %s: %v", common.ErrStorageUnavailable, s.path, err)
	}
	return nil
}

var _ storage.Storage = (*Store)(nil)
