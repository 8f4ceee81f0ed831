// Package postgres keeps the vault snapshot in a relational database.
// Entries are stored one row each but loaded and saved as a whole snapshot
// inside a transaction, so the all-or-nothing save contract holds.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/passvault-app/passvault/internal/common"
	"github.com/passvault-app/passvault/internal/models"
	"github.com/passvault-app/passvault/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	storage.SnapshotQuerier

	db *sql.DB
}

// Open connects to the database and applies pending migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", common.ErrStorageUnavailable, err)
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", common.ErrStorageUnavailable, err)
	}
	return NewStoreWithDB(db), nil
}

// NewStoreWithDB wraps an existing connection; used by tests.
func NewStoreWithDB(db *sql.DB) *Store {
	s := &Store{db: db}
	s.LoadFunc = s.Load
	return s
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Load(ctx context.Context) (*models.StorageSnapshot, error) {
	snap := models.NewSnapshot()

	row := s.db.QueryRowContext(ctx,
		`SELECT version, last_sync, entry_count FROM vault_metadata WHERE id = 1`)
	err := row.Scan(&snap.Metadata.Version, &snap.Metadata.LastSync, &snap.Metadata.EntryCount)
	if err == sql.ErrNoRows {
		return snap, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load metadata: %v", common.ErrStorageUnavailable, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT document FROM vault_entries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: load entries: %v", common.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("%w: scan entry: %v", common.ErrStorageUnavailable, err)
		}
		var e models.Entry
		if err := json.Unmarshal(doc, &e); err != nil {
			return nil, fmt.Errorf("%w: parse entry: %v", common.ErrStorageUnavailable, err)
		}
		snap.Entries = append(snap.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load entries: %v", common.ErrStorageUnavailable, err)
	}
	return snap, nil
}

func (s *Store) Save(ctx context.Context, snap *models.StorageSnapshot) error {
	snap.Finalize()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", common.ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vault_entries`); err != nil {
		return fmt.Errorf("%w: clear entries: %v", common.ErrStorageUnavailable, err)
	}

	for i := range snap.Entries {
		doc, err := json.Marshal(&snap.Entries[i])
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO vault_entries (id, position, document) VALUES ($1, $2, $3)`,
			snap.Entries[i].ID, i, doc)
		if err != nil {
			return fmt.Errorf("%w: insert entry: %v", common.ErrStorageUnavailable, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vault_metadata (id, version, last_sync, entry_count)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id)
		DO UPDATE SET version = EXCLUDED.version,
		              last_sync = EXCLUDED.last_sync,
		              entry_count = EXCLUDED.entry_count`,
		snap.Metadata.Version, snap.Metadata.LastSync, snap.Metadata.EntryCount)
	if err != nil {
		return fmt.Errorf("%w: save metadata: %v", common.ErrStorageUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", common.ErrStorageUnavailable, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping database: %v", common.ErrStorageUnavailable, err)
	}
	return nil
}

var _ storage.Storage = (*Store)(nil)
