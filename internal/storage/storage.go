// Package storage defines the backend capability every storage
// implementation satisfies, plus shared snapshot query helpers. Backends
// are independent peers: a local file, a GitHub repository, an S3 bucket, a
// Postgres database. None of them knows about the others.
package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/passvault-app/passvault/internal/common"
	"github.com/passvault-app/passvault/internal/models"
)

// Target names a configured backend. All is a call-site selector meaning
// "every enabled backend, merged" and is never used as a map key.
type Target string

const (
	TargetLocal    Target = "local"
	TargetRemote   Target = "remote"
	TargetS3       Target = "s3"
	TargetPostgres Target = "postgres"
	TargetAll      Target = "all"
)

// ParseTarget converts the wire form of a target selector.
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case TargetLocal, TargetRemote, TargetS3, TargetPostgres, TargetAll:
		return Target(s), nil
	default:
		return "", fmt.Errorf("%w: unknown storage target %q", common.ErrValidation, s)
	}
}

func (t Target) String() string { return string(t) }

// Storage persists and retrieves the full dataset for one backend.
//
// Load is idempotent and side-effect free. Save persists the snapshot
// atomically: readers never observe a partially written snapshot. Save
// returns common.ErrConflict when the backend's state changed since the
// last Load (stale revision), and common.ErrStorageUnavailable for
// transient I/O failures. Ping is a lightweight connectivity probe that
// mutates nothing.
type Storage interface {
	Load(ctx context.Context) (*models.StorageSnapshot, error)
	Save(ctx context.Context, snap *models.StorageSnapshot) error
	List(ctx context.Context) ([]models.Entry, error)
	GetByID(ctx context.Context, id string) (*models.Entry, error)
	Search(ctx context.Context, query string) ([]models.Entry, error)
	Ping(ctx context.Context) error
}

// SnapshotQuerier implements the read convenience operations by loading the
// full snapshot and filtering. Backends without native query support embed
// it and point LoadFunc at their own Load.
type SnapshotQuerier struct {
	LoadFunc func(ctx context.Context) (*models.StorageSnapshot, error)
}

func (q *SnapshotQuerier) List(ctx context.Context) ([]models.Entry, error) {
	snap, err := q.LoadFunc(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]models.Entry, len(snap.Entries))
	copy(entries, snap.Entries)
	SortByUpdatedAt(entries)
	return entries, nil
}

func (q *SnapshotQuerier) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	snap, err := q.LoadFunc(ctx)
	if err != nil {
		return nil, err
	}
	if e := snap.FindByID(id); e != nil {
		found := *e
		return &found, nil
	}
	return nil, fmt.Errorf("%w: entry %s", common.ErrNotFound, id)
}

func (q *SnapshotQuerier) Search(ctx context.Context, query string) ([]models.Entry, error) {
	snap, err := q.LoadFunc(ctx)
	if err != nil {
		return nil, err
	}
	return SearchEntries(snap.Entries, query), nil
}

// SortByUpdatedAt orders entries newest-first, in place.
func SortByUpdatedAt(entries []models.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
}
