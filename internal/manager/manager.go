// Package manager orchestrates the configured storage backends: per-backend
// CRUD, priority-based merge of backend views, cross-backend synchronization
// and status reporting. It depends on the storage capability and the crypto
// service, never on a concrete backend.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/passvault-app/passvault/internal/common"
	"github.com/passvault-app/passvault/internal/cryptox"
	"github.com/passvault-app/passvault/internal/logging"
	"github.com/passvault-app/passvault/internal/models"
	"github.com/passvault-app/passvault/internal/storage"
)

// Backend binds a storage implementation to its target name, merge
// priority and enabled flag. Higher priority wins on merge conflicts.
type Backend struct {
	Target   storage.Target
	Store    storage.Storage
	Priority int
	Enabled  bool
}

type Manager struct {
	crypto *cryptox.Service
	logger logging.Logger

	// backends are kept sorted by ascending priority so that merging in
	// slice order makes the last-merged (highest priority) backend win.
	backends []Backend
	byTarget map[storage.Target]*Backend

	// one mutating operation at a time; reads may run concurrently
	mu sync.RWMutex
}

func New(crypto *cryptox.Service, logger logging.Logger, backends ...Backend) (*Manager, error) {
	if crypto == nil {
		return nil, fmt.Errorf("%w: crypto service is required", common.ErrValidation)
	}
	if logger == nil {
		logger = logging.NewDiscard()
	}

	m := &Manager{
		crypto:   crypto,
		logger:   logger,
		byTarget: make(map[storage.Target]*Backend, len(backends)),
	}
	for _, b := range backends {
		if b.Target == storage.TargetAll {
			return nil, fmt.Errorf("%w: %q is a selector, not a backend name", common.ErrValidation, b.Target)
		}
		if b.Store == nil {
			return nil, fmt.Errorf("%w: backend %q has no store", common.ErrValidation, b.Target)
		}
		if _, dup := m.byTarget[b.Target]; dup {
			return nil, fmt.Errorf("%w: duplicate backend %q", common.ErrValidation, b.Target)
		}
		m.backends = append(m.backends, b)
	}
	sortByPriority(m.backends)
	for i := range m.backends {
		m.byTarget[m.backends[i].Target] = &m.backends[i]
	}
	return m, nil
}

func sortByPriority(b []Backend) {
	for i := 1; i < len(b); i++ {
		for j := i; j > 0 && b[j].Priority < b[j-1].Priority; j-- {
			b[j], b[j-1] = b[j-1], b[j]
		}
	}
}

// WriteReport records the per-backend outcome of a fan-out write. Partial
// failures are never rolled back; the report says which copies succeeded.
type WriteReport struct {
	Succeeded []storage.Target
	Failed    map[storage.Target]error
}

func newWriteReport() *WriteReport {
	return &WriteReport{Failed: make(map[storage.Target]error)}
}

// Err aggregates the per-backend failures, nil when every write succeeded.
func (r *WriteReport) Err() error {
	var err error
	for target, e := range r.Failed {
		err = multierr.Append(err, fmt.Errorf("%s: %w", target, e))
	}
	return err
}

// Add validates the request, encrypts the confidential fields and writes
// the new entry to every enabled backend. A failed backend does not roll
// back the others; the report carries the split outcome.
func (m *Manager) Add(ctx context.Context, req models.CreateRequest) (*models.Entry, *WriteReport, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.buildEntry(req)
	if err != nil {
		return nil, nil, err
	}

	report := m.fanOutWrite(ctx, func(snap *models.StorageSnapshot) error {
		snap.Upsert(*entry)
		return nil
	})
	return entry, report, report.Err()
}

// Update re-encrypts the entry's fields under the current key, preserving
// its ID and creation time, and bumps updated_at.
func (m *Manager) Update(ctx context.Context, id string, req models.CreateRequest) (*models.Entry, *WriteReport, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.findMerged(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	entry, err := m.buildEntry(req)
	if err != nil {
		return nil, nil, err
	}
	entry.ID = existing.ID
	entry.CreatedAt = existing.CreatedAt
	entry.Touch()

	report := m.fanOutWrite(ctx, func(snap *models.StorageSnapshot) error {
		snap.Upsert(*entry)
		return nil
	})
	return entry, report, report.Err()
}

// Delete removes the entry from every enabled backend. It fails with a
// not-found error only when the ID is absent everywhere.
func (m *Manager) Delete(ctx context.Context, id string) (*WriteReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := newWriteReport()
	found := false

	for _, b := range m.enabled() {
		snap, err := b.Store.Load(ctx)
		if err != nil {
			report.Failed[b.Target] = err
			m.logger.Error(ctx, "delete: backend load failed", "storage", string(b.Target), "error", err)
			continue
		}
		if !snap.Remove(id) {
			continue
		}
		found = true
		if err := b.Store.Save(ctx, snap); err != nil {
			report.Failed[b.Target] = err
			m.logger.Error(ctx, "delete: backend save failed", "storage", string(b.Target), "error", err)
			continue
		}
		report.Succeeded = append(report.Succeeded, b.Target)
	}

	if !found && len(report.Failed) == 0 {
		return report, fmt.Errorf("%w: entry %s", common.ErrNotFound, id)
	}
	return report, report.Err()
}

// GetAll returns the target backend's entries, or the priority merge of
// every enabled backend when target is All. Merge order is the tie-break:
// the higher-priority backend is merged later and wins on a shared ID.
func (m *Manager) GetAll(ctx context.Context, target storage.Target) ([]models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if target == storage.TargetAll {
		return m.mergeAll(ctx)
	}

	b, err := m.backend(target)
	if err != nil {
		return nil, err
	}
	return b.Store.List(ctx)
}

// Search filters entries per the storage search contract. For the merged
// view the filter runs after the merge, so a conflicting ID cannot match
// twice.
func (m *Manager) Search(ctx context.Context, query string, target storage.Target) ([]models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if target == storage.TargetAll {
		merged, err := m.mergeAll(ctx)
		if err != nil {
			return nil, err
		}
		return storage.SearchEntries(merged, query), nil
	}

	b, err := m.backend(target)
	if err != nil {
		return nil, err
	}
	return b.Store.Search(ctx, query)
}

// GetByID resolves one entry. All scans backends from highest priority
// down, matching the merge rule.
func (m *Manager) GetByID(ctx context.Context, id string, target storage.Target) (*models.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if target != storage.TargetAll {
		b, err := m.backend(target)
		if err != nil {
			return nil, err
		}
		return b.Store.GetByID(ctx, id)
	}

	enabled := m.enabled()
	for i := len(enabled) - 1; i >= 0; i-- {
		entry, err := enabled[i].Store.GetByID(ctx, id)
		if err == nil {
			return entry, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: entry %s", common.ErrNotFound, id)
}

// StorageStatus probes every configured backend and reports point-in-time
// health. Nothing is cached and nothing is mutated.
func (m *Manager) StorageStatus(ctx context.Context) map[storage.Target]models.StorageStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[storage.Target]models.StorageStatus, len(m.backends))
	for _, b := range m.backends {
		if !b.Enabled {
			out[b.Target] = models.StorageStatus{}
			continue
		}

		status := models.StorageStatus{Enabled: true}
		if err := b.Store.Ping(ctx); err != nil {
			status.Error = err.Error()
			out[b.Target] = status
			continue
		}

		snap, err := b.Store.Load(ctx)
		if err != nil {
			status.Error = err.Error()
			out[b.Target] = status
			continue
		}

		status.Connected = true
		status.EntryCount = len(snap.Entries)
		if !snap.Metadata.LastSync.IsZero() {
			ts := snap.Metadata.LastSync
			status.LastSync = &ts
		}
		out[b.Target] = status
	}
	return out
}

func (m *Manager) buildEntry(req models.CreateRequest) (*models.Entry, error) {
	encSecret, err := m.crypto.EncryptSecret([]byte(req.Secret))
	if err != nil {
		return nil, err
	}

	entry := models.NewEntry(&req)
	entry.EncryptedSecret = encSecret
	entry.Description = req.Description

	if m.crypto.DoubleEnabled() && req.Description != "" {
		encDesc, err := m.crypto.EncryptDescription([]byte(req.Description))
		if err != nil {
			return nil, err
		}
		entry.Description = ""
		entry.EncryptedDescription = encDesc
	}
	return entry, nil
}

// fanOutWrite applies mutate to every enabled backend's snapshot and saves
// it back, collecting the per-backend outcome.
func (m *Manager) fanOutWrite(ctx context.Context, mutate func(*models.StorageSnapshot) error) *WriteReport {
	report := newWriteReport()
	for _, b := range m.enabled() {
		if err := m.writeOne(ctx, b, mutate); err != nil {
			report.Failed[b.Target] = err
			m.logger.Error(ctx, "backend write failed", "storage", string(b.Target), "error", err)
			continue
		}
		report.Succeeded = append(report.Succeeded, b.Target)
	}
	return report
}

func (m *Manager) writeOne(ctx context.Context, b Backend, mutate func(*models.StorageSnapshot) error) error {
	snap, err := b.Store.Load(ctx)
	if err != nil {
		return err
	}
	if err := mutate(snap); err != nil {
		return err
	}
	return b.Store.Save(ctx, snap)
}

// mergeAll rebuilds the merged view by loading every enabled backend in
// ascending priority order and overlaying by ID.
func (m *Manager) mergeAll(ctx context.Context) ([]models.Entry, error) {
	merged := map[string]models.Entry{}
	for _, b := range m.enabled() {
		snap, err := b.Store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", b.Target, err)
		}
		for _, e := range snap.Entries {
			merged[e.ID] = e
		}
	}

	out := make([]models.Entry, 0, len(merged))
	for _, e := range merged {
		out = append(out, e)
	}
	storage.SortByUpdatedAt(out)
	return out, nil
}

func (m *Manager) findMerged(ctx context.Context, id string) (*models.Entry, error) {
	enabled := m.enabled()
	for i := len(enabled) - 1; i >= 0; i-- {
		entry, err := enabled[i].Store.GetByID(ctx, id)
		if err == nil {
			return entry, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: entry %s", common.ErrNotFound, id)
}

func (m *Manager) enabled() []Backend {
	out := make([]Backend, 0, len(m.backends))
	for _, b := range m.backends {
		if b.Enabled {
			out = append(out, b)
		}
	}
	return out
}

func (m *Manager) backend(target storage.Target) (*Backend, error) {
	b, ok := m.byTarget[target]
	if !ok {
		return nil, fmt.Errorf("%w: unknown storage %q", common.ErrValidation, target)
	}
	if !b.Enabled {
		return nil, fmt.Errorf("%w: storage %q is disabled", common.ErrValidation, target)
	}
	return b, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
