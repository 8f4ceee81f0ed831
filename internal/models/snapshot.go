package models

import "time"

// SnapshotVersion is written into new snapshots and used to gate forward
// migrations of the persisted format.
const SnapshotVersion = "1.0.0"

// StorageMetadata describes one backend snapshot.
type StorageMetadata struct {
	Version    string    `json:"version"`
	LastSync   time.Time `json:"last_sync"`
	EntryCount int       `json:"entry_count"`
}

// StorageSnapshot is the unit a backend loads and saves atomically.
type StorageSnapshot struct {
	Metadata StorageMetadata `json:"metadata"`
	Entries  []Entry         `json:"entries"`
}

// NewSnapshot returns an empty snapshot at the current format version.
func NewSnapshot() *StorageSnapshot {
	return &StorageSnapshot{
		Metadata: StorageMetadata{
			Version:  SnapshotVersion,
			LastSync: time.Now().UTC(),
		},
		Entries: []Entry{},
	}
}

// FindByID returns a pointer into Entries, or nil.
func (s *StorageSnapshot) FindByID(id string) *Entry {
	for i := range s.Entries {
		if s.Entries[i].ID == id {
			return &s.Entries[i]
		}
	}
	return nil
}

// Upsert replaces the entry with the same ID in place, or appends. Order of
// unrelated entries is preserved.
func (s *StorageSnapshot) Upsert(e Entry) {
	for i := range s.Entries {
		if s.Entries[i].ID == e.ID {
			s.Entries[i] = e
			return
		}
	}
	s.Entries = append(s.Entries, e)
}

// Remove deletes the entry with the given ID, reporting whether it existed.
func (s *StorageSnapshot) Remove(id string) bool {
	for i := range s.Entries {
		if s.Entries[i].ID == id {
			s.Entries = append(s.Entries[:i], s.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// Finalize refreshes the snapshot metadata before a save.
func (s *StorageSnapshot) Finalize() {
	if s.Metadata.Version == "" {
		s.Metadata.Version = SnapshotVersion
	}
	s.Metadata.LastSync = time.Now().UTC()
	s.Metadata.EntryCount = len(s.Entries)
}

// StorageStatus is a point-in-time health report for one backend. It is
// recomputed on every query, never cached.
type StorageStatus struct {
	Enabled    bool       `json:"enabled"`
	Connected  bool       `json:"connected"`
	EntryCount int        `json:"entry_count"`
	LastSync   *time.Time `json:"last_sync,omitempty"`
	Error      string     `json:"error,omitempty"`
}
