package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/raysh454/spectra/internal/model"
	"github.com/raysh454/spectra/internal/scanner"
	"github.com/raysh454/spectra/internal/scanstore"
	"github.com/raysh454/spectra/internal/scanstore/sqlite"
	"github.com/raysh454/spectra/internal/testutil"
)

func TestNewApplication_Memory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store = StoreConfig{Driver: DriverMemory}
	cfg.Scan.StepInterval = time.Millisecond
	cfg.Scan.ProcessingDelay = time.Millisecond

	a, err := NewApplication(context.Background(), cfg, nil, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewApplication: %v", err)
	}

	id, err := a.Orch.StartScan(context.Background())
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	a.Runner.Wait()

	rec, err := a.Orch.GetScan(context.Background(), id.String())
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if rec.Status != model.StatusComplete {
		t.Errorf("status = %s, want complete", rec.Status)
	}

	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestNewApplication_SQLite(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store = StoreConfig{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "db", "spectra.db")}

	a, err := NewApplication(context.Background(), cfg, nil, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewApplication: %v", err)
	}
	if _, ok := a.Store.(*sqlite.Store); !ok {
		t.Fatalf("expected *sqlite.Store, got %T", a.Store)
	}
	if err := a.Orch.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestNewApplication_RejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Driver = "mongo"
	if _, err := NewApplication(context.Background(), cfg, nil, &testutil.DummyLogger{}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := NewApplication(context.Background(), DefaultConfig(), nil, nil); err == nil {
		t.Fatal("expected error for nil logger")
	}
}

func TestShutdown_StopsRunningScans(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store = StoreConfig{Driver: DriverMemory}
	cfg.Scan.StepInterval = time.Hour

	a, err := NewApplication(context.Background(), cfg, nil, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewApplication: %v", err)
	}
	if _, err := a.Orch.StartScan(context.Background()); err != nil {
		t.Fatalf("StartScan: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	start := time.Now()
	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("shutdown waited for the scan instead of cancelling it")
	}
}

// stuckStore blocks the first Update until release is closed, ignoring ctx.
type stuckStore struct {
	*scanstore.MemoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once

	mu     sync.Mutex
	closed bool
}

func (s *stuckStore) Update(ctx context.Context, id model.ScanID, p scanstore.Patch) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return s.MemoryStore.Update(ctx, id, p)
}

func (s *stuckStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stuckStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestShutdown_DeadlineLeavesStoreOpen(t *testing.T) {
	store := &stuckStore{
		MemoryStore: scanstore.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	logger := &testutil.DummyLogger{}
	runner, err := scanner.NewRunner(store, logger, &scanner.Config{Timing: scanner.Timing{Steps: 10, StepInterval: time.Hour}})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	a := &Application{Config: DefaultConfig(), Logger: logger, Store: store, Runner: runner, Orch: NewOrchestrator(store, runner, nil, logger)}

	if _, err := a.Orch.StartScan(context.Background()); err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	<-store.entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = a.Shutdown(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Shutdown error = %v, want deadline exceeded", err)
	}
	if store.isClosed() {
		t.Error("store closed while a scan was still inside Update")
	}

	close(store.release)
	runner.Wait()
}
