package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/raysh454/spectra/internal/logging"
	"github.com/raysh454/spectra/internal/model"
	"github.com/raysh454/spectra/internal/report"
	"github.com/raysh454/spectra/internal/scanner"
	"github.com/raysh454/spectra/internal/scanstore"
)

// ErrNotReady is returned when results are requested for a scan that is
// absent or has not completed.
var ErrNotReady = errors.New("scan not ready")

// Orchestrator creates scans, hands them to the runner and answers read
// queries against the store.
type Orchestrator struct {
	store  scanstore.Store
	runner *scanner.Runner
	clock  scanner.Clock
	logger logging.Logger
}

// NewOrchestrator ties together store, runner and logger. A nil clock reads
// the wall clock.
func NewOrchestrator(store scanstore.Store, runner *scanner.Runner, clock scanner.Clock, logger logging.Logger) *Orchestrator {
	if clock == nil {
		clock = scanner.SystemClock{}
	}
	return &Orchestrator{
		store:  store,
		runner: runner,
		clock:  clock,
		logger: logger,
	}
}

// StartScan persists a new scan in the starting state and schedules it.
// It returns before the scan makes any progress.
func (o *Orchestrator) StartScan(ctx context.Context) (model.ScanID, error) {
	id, err := o.store.Create(ctx, model.ScanRecord{
		Status:   model.StatusStarting,
		Progress: 0,
		Stage:    scanner.StageInitializing,
		ScanDate: o.clock.Now().Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("creating scan: %w", err)
	}

	o.runner.Start(id)
	o.logger.Info("scan scheduled", logging.Field{Key: "scan_id", Value: id})
	return id, nil
}

// GetScan returns the current record for raw. Errors wrap
// model.ErrInvalidScanID or scanstore.ErrNotFound.
func (o *Orchestrator) GetScan(ctx context.Context, raw string) (*model.ScanRecord, error) {
	id, err := model.ParseScanID(raw)
	if err != nil {
		return nil, err
	}
	rec, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetCompletedScan returns the record for raw only once it is complete;
// absent and unfinished scans both yield ErrNotReady.
func (o *Orchestrator) GetCompletedScan(ctx context.Context, raw string) (*model.ScanRecord, error) {
	rec, err := o.GetScan(ctx, raw)
	switch {
	case errors.Is(err, scanstore.ErrNotFound):
		return nil, ErrNotReady
	case err != nil:
		return nil, err
	case !rec.Complete():
		return nil, ErrNotReady
	}
	return rec, nil
}

// GetResults returns the results payload of a completed scan.
func (o *Orchestrator) GetResults(ctx context.Context, raw string) (*report.Results, error) {
	rec, err := o.GetCompletedScan(ctx, raw)
	if err != nil {
		return nil, err
	}
	return report.BuildResults(rec), nil
}

// Subscribe streams progress events of id until the scan completes or
// cancel is called.
func (o *Orchestrator) Subscribe(id model.ScanID) (<-chan scanner.Event, func()) {
	return o.runner.Broker().Subscribe(id)
}

// Ping checks the store.
func (o *Orchestrator) Ping(ctx context.Context) error {
	return o.store.Ping(ctx)
}

// Close stops the runner and waits for in-flight scans.
func (o *Orchestrator) Close() {
	o.runner.Close()
}
