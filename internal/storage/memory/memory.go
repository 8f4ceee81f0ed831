// Package memory provides an in-memory vault store. It backs tests and
// lets the manager be exercised without touching disk or the network.
package memory

import (
	"context"
	"sync"

	"github.com/passvault-app/passvault/internal/common"
	"github.com/passvault-app/passvault/internal/models"
	"github.com/passvault-app/passvault/internal/storage"
)

type Store struct {
	storage.SnapshotQuerier

	mu   sync.Mutex
	snap *models.StorageSnapshot

	// FailWith, when set, is returned by Load, Save and Ping.
	FailWith error
}

func New() *Store {
	s := &Store{snap: models.NewSnapshot()}
	s.LoadFunc = s.Load
	return s
}

func (s *Store) Load(ctx context.Context) (*models.StorageSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	return cloneSnapshot(s.snap), nil
}

func (s *Store) Save(ctx context.Context, snap *models.StorageSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	snap.Finalize()
	s.snap = cloneSnapshot(snap)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	return nil
}

// Fail makes the store return err from every operation until cleared.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailWith = err
}

// FailUnavailable is a shortcut for simulating an unreachable backend.
func (s *Store) FailUnavailable() { s.Fail(common.ErrStorageUnavailable) }

func cloneSnapshot(in *models.StorageSnapshot) *models.StorageSnapshot {
	out := &models.StorageSnapshot{Metadata: in.Metadata}
	out.Entries = make([]models.Entry, len(in.Entries))
	copy(out.Entries, in.Entries)
	return out
}

var _ storage.Storage = (*Store)(nil)
