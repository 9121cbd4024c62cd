package scanner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/raysh454/spectra/internal/model"
	"github.com/raysh454/spectra/internal/scanner"
	"github.com/raysh454/spectra/internal/scanstore"
	"github.com/raysh454/spectra/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fastTiming = scanner.Timing{Steps: 10, StepInterval: time.Millisecond, ProcessingDelay: time.Millisecond}

func createScan(t *testing.T, store scanstore.Store) model.ScanID {
	t.Helper()
	id, err := store.Create(context.Background(), model.ScanRecord{
		Status:   model.StatusStarting,
		Stage:    scanner.StageInitializing,
		ScanDate: 1,
	})
	require.NoError(t, err)
	return id
}

// ─── Lifecycle ─────────────────────────────────────────────────────────

func TestRunner_RunWalksTheLifecycle(t *testing.T) {
	t.Parallel()

	store := testutil.NewRecordingStore()
	clock := testutil.FixedClock{T: time.Unix(1700000000, 0)}
	r, err := scanner.NewRunner(store, &testutil.DummyLogger{}, &scanner.Config{
		Timing:  fastTiming,
		Clock:   clock,
		Defects: scanner.NewDefectGenerator(7),
	})
	require.NoError(t, err)
	defer r.Close()

	id := createScan(t, store)
	require.NoError(t, r.Run(context.Background(), id))

	snaps := store.Snapshots(id)
	// initializing + 11 steps + processing + complete
	require.Len(t, snaps, 14)

	first := snaps[0]
	assert.Equal(t, model.StatusScanning, first.Status)
	assert.Equal(t, 0.0, first.Progress)
	assert.Equal(t, scanner.StageStarting, first.Stage)

	prev := model.StatusStarting
	lastScanningProgress := -1.0
	for i, s := range snaps {
		require.True(t, prev.CanAdvanceTo(s.Status), "snapshot %d: %s -> %s", i, prev, s.Status)
		prev = s.Status
		if s.Status == model.StatusScanning {
			require.GreaterOrEqual(t, s.Progress, lastScanningProgress, "snapshot %d", i)
			lastScanningProgress = s.Progress
		}
		if !s.Complete() {
			assert.Empty(t, s.Results, "snapshot %d exposes results before completion", i)
		}
	}
	assert.Equal(t, 100.0, lastScanningProgress)

	assert.Equal(t, model.StatusProcessing, snaps[12].Status)
	assert.Equal(t, scanner.StageProcessing, snaps[12].Stage)

	final, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, final.Status)
	assert.Equal(t, scanner.StageComplete, final.Stage)
	assert.Equal(t, int64(1700000000), final.ScanDate, "scan_date is overwritten at completion")
	assert.GreaterOrEqual(t, len(final.Results), scanner.MinDefects)
	assert.LessOrEqual(t, len(final.Results), scanner.MaxDefects)
}

func TestStageFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		progress float64
		want     string
	}{
		{0, scanner.StageUpper},
		{20, scanner.StageUpper},
		{29.99, scanner.StageUpper},
		{30, scanner.StageMiddle},
		{3.0 / 10 * 100, scanner.StageMiddle},
		{59.9, scanner.StageMiddle},
		{60, scanner.StageLower},
		{89.9, scanner.StageLower},
		{90, scanner.StageFinalizing},
		{100, scanner.StageFinalizing},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, scanner.StageFor(tc.progress), "progress %v", tc.progress)
	}
}

// ─── Failures ──────────────────────────────────────────────────────────

func TestRunner_StoreFailureStopsTheScan(t *testing.T) {
	t.Parallel()

	store := testutil.NewFailingStore(3)
	logger := &testutil.DummyLogger{}
	r, err := scanner.NewRunner(store, logger, &scanner.Config{Timing: fastTiming})
	require.NoError(t, err)
	defer r.Close()

	id := createScan(t, store)
	err = r.Run(context.Background(), id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, testutil.ErrStoreDown))
	assert.Equal(t, 1, logger.ErrorCount())

	rec, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusScanning, rec.Status, "record keeps its last persisted state")
	assert.Empty(t, rec.Results)
}

func TestRunner_ArchiverFailureIsOnlyLogged(t *testing.T) {
	t.Parallel()

	store := scanstore.NewMemoryStore()
	logger := &testutil.DummyLogger{}
	arch := &testutil.RecordingArchiver{Err: errors.New("bucket gone")}
	r, err := scanner.NewRunner(store, logger, &scanner.Config{Timing: fastTiming, Archiver: arch})
	require.NoError(t, err)
	defer r.Close()

	id := createScan(t, store)
	require.NoError(t, r.Run(context.Background(), id))
	assert.Equal(t, []model.ScanID{id}, arch.Archived())
	assert.Equal(t, 1, logger.ErrorCount())

	rec, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, rec.Complete())
}

// ─── Scheduling ────────────────────────────────────────────────────────

func TestRunner_StartIsFireAndForget(t *testing.T) {
	t.Parallel()

	store := scanstore.NewMemoryStore()
	arch := &testutil.RecordingArchiver{}
	r, err := scanner.NewRunner(store, &testutil.DummyLogger{}, &scanner.Config{Timing: fastTiming, Archiver: arch})
	require.NoError(t, err)

	ids := []model.ScanID{createScan(t, store), createScan(t, store), createScan(t, store)}
	for _, id := range ids {
		r.Start(id)
	}
	r.Wait()
	r.Close()

	for _, id := range ids {
		rec, err := store.Get(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, rec.Complete(), "scan %s", id)
	}
	assert.ElementsMatch(t, ids, arch.Archived())
}

func TestRunner_CloseCancelsInFlightScans(t *testing.T) {
	t.Parallel()

	store := scanstore.NewMemoryStore()
	r, err := scanner.NewRunner(store, &testutil.DummyLogger{}, &scanner.Config{
		Timing: scanner.Timing{Steps: 10, StepInterval: time.Hour, ProcessingDelay: time.Hour},
	})
	require.NoError(t, err)

	id := createScan(t, store)
	r.Start(id)

	require.Eventually(t, func() bool {
		rec, err := store.Get(context.Background(), id)
		return err == nil && rec.Status == model.StatusScanning
	}, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		r.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	rec, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, rec.Complete())

	// Closed runners ignore new work.
	other := createScan(t, store)
	r.Start(other)
	rec, err = store.Get(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, model.StatusStarting, rec.Status)
}

func TestNewRunner_Validation(t *testing.T) {
	t.Parallel()

	_, err := scanner.NewRunner(nil, &testutil.DummyLogger{}, nil)
	assert.Error(t, err)
	_, err = scanner.NewRunner(scanstore.NewMemoryStore(), nil, nil)
	assert.Error(t, err)

	r, err := scanner.NewRunner(scanstore.NewMemoryStore(), &testutil.DummyLogger{}, nil)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, scanner.DefaultTiming(), r.Timing())
	assert.NotNil(t, r.Broker())
}
