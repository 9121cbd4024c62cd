package scanstore

import (
	"context"
	"sync"

	"github.com/raysh454/spectra/internal/model"
)

// MemoryStore keeps records in a map. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	scans map[model.ScanID]*model.ScanRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scans: make(map[model.ScanID]*model.ScanRecord)}
}

func (m *MemoryStore) Create(_ context.Context, rec model.ScanRecord) (model.ScanID, error) {
	id := model.NewScanID()
	stored := rec.Clone()
	stored.ID = id

	m.mu.Lock()
	m.scans[id] = stored
	m.mu.Unlock()
	return id, nil
}

func (m *MemoryStore) Update(_ context.Context, id model.ScanID, p Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.scans[id]
	if !ok {
		return ErrNotFound
	}
	p.Apply(rec)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id model.ScanID) (*model.ScanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.scans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.scans)
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
