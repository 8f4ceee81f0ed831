package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/passvault-app/passvault/internal/common"
	"github.com/passvault-app/passvault/internal/models"
	"github.com/passvault-app/passvault/internal/storage"
)

// Store keeps the snapshot in one file of a GitHub repository.
type Store struct {
	storage.SnapshotQuerier

	client *Client
	path   string

	mu  sync.Mutex
	sha string // blob SHA seen on the last load; "" means no file yet
}

// NewStore wraps a configured client. path is the snapshot file path inside
// the repository.
func NewStore(client *Client, path string) *Store {
	s := &Store{client: client, path: path}
	s.LoadFunc = s.Load
	return s
}

func (s *Store) Load(ctx context.Context) (*models.StorageSnapshot, error) {
	fc, err := s.client.getFile(ctx, s.path)
	if err != nil {
		// no snapshot on the remote yet
		if errors.Is(err, common.ErrNotFound) {
			s.setSHA("")
			return models.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("github load: %w", err)
	}

	raw, err := decodeContent(fc)
	if err != nil {
		return nil, fmt.Errorf("github load: %w", err)
	}

	var snap models.StorageSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: parse remote snapshot: %v", common.ErrStorageUnavailable, err)
	}
	if snap.Entries == nil {
		snap.Entries = []models.Entry{}
	}

	s.setSHA(fc.SHA)
	return &snap, nil
}

// Save commits the snapshot, guarded by the SHA captured on the last Load.
// If the remote moved in the meantime the API rejects the stale SHA and the
// caller gets common.ErrConflict: reload and retry, never auto-resolve.
func (s *Store) Save(ctx context.Context, snap *models.StorageSnapshot) error {
	snap.Finalize()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	message := fmt.Sprintf("Update vault snapshot - %d entries", snap.Metadata.EntryCount)

	newSHA, err := s.client.putFile(ctx, s.path, data, message, s.currentSHA())
	if err != nil {
		return fmt.Errorf("github save: %w", err)
	}
	s.setSHA(newSHA)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.pingRepo(ctx); err != nil {
		return fmt.Errorf("github ping: %w", err)
	}
	return nil
}

func (s *Store) currentSHA() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sha
}

func (s *Store) setSHA(sha string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sha = sha
}

var _ storage.Storage = (*Store)(nil)
