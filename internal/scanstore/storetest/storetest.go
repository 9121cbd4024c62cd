// Package storetest holds the contract tests every scanstore.Store
// implementation must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/spectra/internal/model"
	"github.com/raysh454/spectra/internal/scanstore"
)

// Factory returns a fresh, empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) scanstore.Store

// Run executes the contract suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("UpdateMerges", func(t *testing.T) { testUpdateMerges(t, newStore(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newStore(t)) })
	t.Run("ResultsWrittenOnce", func(t *testing.T) { testResults(t, newStore(t)) })
	t.Run("EmptyResultsKept", func(t *testing.T) { testEmptyResults(t, newStore(t)) })
	t.Run("DistinctIDs", func(t *testing.T) { testDistinctIDs(t, newStore(t)) })
	t.Run("ConcurrentUpdatesAreAtomic", func(t *testing.T) { testAtomicUpdates(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newStore(t).Ping(context.Background())) })
}

func initial() model.ScanRecord {
	return model.ScanRecord{
		Status:   model.StatusStarting,
		Progress: 0,
		Stage:    "Initializing...",
		ScanDate: 1700000000,
	}
}

func testCreateAndGet(t *testing.T, s scanstore.Store) {
	ctx := context.Background()

	id, err := s.Create(ctx, initial())
	require.NoError(t, err)

	_, err = model.ParseScanID(id.String())
	require.NoError(t, err, "generated id must be well-formed")

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, model.StatusStarting, got.Status)
	assert.Equal(t, 0.0, got.Progress)
	assert.Equal(t, "Initializing...", got.Stage)
	assert.Equal(t, int64(1700000000), got.ScanDate)
	assert.Empty(t, got.Results)
}

func testGetMissing(t *testing.T, s scanstore.Store) {
	_, err := s.Get(context.Background(), model.NewScanID())
	assert.ErrorIs(t, err, scanstore.ErrNotFound)
}

func testUpdateMerges(t *testing.T, s scanstore.Store) {
	ctx := context.Background()
	id, err := s.Create(ctx, initial())
	require.NoError(t, err)

	err = s.Update(ctx, id, scanstore.Patch{
		Status:   scanstore.Ptr(model.StatusScanning),
		Progress: scanstore.Ptr(40.0),
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusScanning, got.Status)
	assert.Equal(t, 40.0, got.Progress)
	assert.Equal(t, "Initializing...", got.Stage, "unset fields must be untouched")
	assert.Equal(t, int64(1700000000), got.ScanDate)

	require.NoError(t, s.Update(ctx, id, scanstore.Patch{Stage: scanstore.Ptr("Scanning middle section...")}))
	got, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Scanning middle section...", got.Stage)
	assert.Equal(t, 40.0, got.Progress)
}

func testUpdateMissing(t *testing.T, s scanstore.Store) {
	err := s.Update(context.Background(), model.NewScanID(), scanstore.Patch{Stage: scanstore.Ptr("x")})
	assert.ErrorIs(t, err, scanstore.ErrNotFound)
}

func testResults(t *testing.T, s scanstore.Store) {
	ctx := context.Background()
	id, err := s.Create(ctx, initial())
	require.NoError(t, err)

	defects := []model.Defect{
		{ID: "DEF001", Type: "Scratch", X: 10, Y: 90, Width: 2, Height: 10, Confidence: 0.75, Severity: model.SeverityHigh},
		{ID: "DEF002", Type: "Orange Peel", X: 55, Y: 42, Width: 7, Height: 3, Confidence: 0.9, Severity: model.SeverityLow},
	}
	require.NoError(t, s.Update(ctx, id, scanstore.Patch{
		Status:   scanstore.Ptr(model.StatusComplete),
		Stage:    scanstore.Ptr("Analysis complete"),
		ScanDate: scanstore.Ptr(int64(1700000014)),
		Results:  defects,
	}))

	// A later patch without results must not clear them.
	require.NoError(t, s.Update(ctx, id, scanstore.Patch{Stage: scanstore.Ptr("Analysis complete")}))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, got.Status)
	assert.Equal(t, int64(1700000014), got.ScanDate)
	assert.Equal(t, defects, got.Results)

	// Mutating the returned copy must not leak into the store.
	got.Results[0].ID = "mutated"
	again, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "DEF001", again.Results[0].ID)
}

// A completed scan with zero defects still has results, distinct from a
// scan whose results were never written.
func testEmptyResults(t *testing.T, s scanstore.Store) {
	ctx := context.Background()
	id, err := s.Create(ctx, initial())
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, id, scanstore.Patch{
		Status:  scanstore.Ptr(model.StatusComplete),
		Results: []model.Defect{},
	}))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, got.Results)
	assert.Empty(t, got.Results)
}

func testDistinctIDs(t *testing.T, s scanstore.Store) {
	ctx := context.Background()
	seen := make(map[model.ScanID]bool)
	for i := 0; i < 20; i++ {
		id, err := s.Create(ctx, initial())
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

// testAtomicUpdates writes progress and stage together and checks that
// readers never see one without the other.
func testAtomicUpdates(t *testing.T, s scanstore.Store) {
	ctx := context.Background()
	id, err := s.Create(ctx, model.ScanRecord{Status: model.StatusScanning, Stage: "0"})
	require.NoError(t, err)

	const steps = 50
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= steps; i++ {
			if err := s.Update(ctx, id, scanstore.Patch{
				Progress: scanstore.Ptr(float64(i)),
				Stage:    scanstore.Ptr(fmt.Sprint(i)),
			}); err != nil {
				t.Errorf("update %d: %v", i, err)
				return
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < steps; i++ {
				rec, err := s.Get(ctx, id)
				if err != nil {
					t.Errorf("get: %v", err)
					return
				}
				if want := fmt.Sprint(int(rec.Progress)); rec.Stage != want {
					t.Errorf("torn read: progress=%v stage=%q", rec.Progress, rec.Stage)
					return
				}
			}
		}()
	}
	wg.Wait()

	final, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, float64(steps), final.Progress)
}
