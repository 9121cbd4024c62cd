// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/raysh454/spectra/internal/logging"
	"github.com/raysh454/spectra/internal/model"
	"github.com/raysh454/spectra/internal/scanstore"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// ErrorCount returns the number of Error calls so far.
func (l *DummyLogger) ErrorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Errors)
}

// ─── Store ─────────────────────────────────────────────────────────────

// RecordingStore wraps a MemoryStore and keeps a snapshot of the record
// after every successful Update, in order.
type RecordingStore struct {
	*scanstore.MemoryStore

	mu        sync.Mutex
	snapshots map[model.ScanID][]model.ScanRecord
}

// NewRecordingStore returns an empty RecordingStore.
func NewRecordingStore() *RecordingStore {
	return &RecordingStore{
		MemoryStore: scanstore.NewMemoryStore(),
		snapshots:   make(map[model.ScanID][]model.ScanRecord),
	}
}

func (s *RecordingStore) Update(ctx context.Context, id model.ScanID, p scanstore.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.MemoryStore.Update(ctx, id, p); err != nil {
		return err
	}
	rec, err := s.MemoryStore.Get(ctx, id)
	if err != nil {
		return err
	}
	s.snapshots[id] = append(s.snapshots[id], *rec)
	return nil
}

// Snapshots returns the recorded history of id.
func (s *RecordingStore) Snapshots(id model.ScanID) []model.ScanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ScanRecord(nil), s.snapshots[id]...)
}

// ErrStoreDown is returned by FailingStore once it starts failing.
var ErrStoreDown = errors.New("store unavailable")

// FailingStore wraps a MemoryStore and fails every Update after the first
// FailAfter successful ones. Ping fails when Down is set.
type FailingStore struct {
	*scanstore.MemoryStore
	FailAfter int
	Down      bool

	mu      sync.Mutex
	updates int
}

// NewFailingStore returns a FailingStore that allows failAfter updates.
func NewFailingStore(failAfter int) *FailingStore {
	return &FailingStore{MemoryStore: scanstore.NewMemoryStore(), FailAfter: failAfter}
}

func (s *FailingStore) Update(ctx context.Context, id model.ScanID, p scanstore.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updates >= s.FailAfter {
		return ErrStoreDown
	}
	s.updates++
	return s.MemoryStore.Update(ctx, id, p)
}

func (s *FailingStore) Ping(context.Context) error {
	if s.Down {
		return ErrStoreDown
	}
	return nil
}

// ─── Archiver ──────────────────────────────────────────────────────────

// RecordingArchiver records the ids it was asked to archive. Set Err to make
// every call fail.
type RecordingArchiver struct {
	Err error

	mu  sync.Mutex
	IDs []model.ScanID
}

func (a *RecordingArchiver) Archive(_ context.Context, rec *model.ScanRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.IDs = append(a.IDs, rec.ID)
	return a.Err
}

// Archived returns a copy of the archived ids.
func (a *RecordingArchiver) Archived() []model.ScanID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.ScanID(nil), a.IDs...)
}

// ─── Clock ─────────────────────────────────────────────────────────────

// FixedClock always reports the same instant.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
