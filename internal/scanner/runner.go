// Package scanner runs simulated inspection scans. A Runner walks one stored
// record through scanning and processing over wall-clock time and finishes
// by writing randomly generated defects.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/raysh454/spectra/internal/logging"
	"github.com/raysh454/spectra/internal/model"
	"github.com/raysh454/spectra/internal/scanstore"
)

// Stage texts written by the runner.
const (
	StageStarting     = "Initializing scan..."
	StageUpper        = "Scanning upper section..."
	StageMiddle       = "Scanning middle section..."
	StageLower        = "Scanning lower section..."
	StageFinalizing   = "Finalizing scan..."
	StageProcessing   = "Processing images..."
	StageComplete     = "Analysis complete"
	StageInitializing = "Initializing..."
)

// StageFor maps a scanning progress percentage to its stage text.
func StageFor(progress float64) string {
	switch {
	case progress < 30:
		return StageUpper
	case progress < 60:
		return StageMiddle
	case progress < 90:
		return StageLower
	default:
		return StageFinalizing
	}
}

// Clock abstracts time.Now for deterministic scan dates.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Archiver stores the outcome of a completed scan somewhere durable.
type Archiver interface {
	Archive(ctx context.Context, rec *model.ScanRecord) error
}

// Timing controls how long a scan takes.
type Timing struct {
	Steps           int
	StepInterval    time.Duration
	ProcessingDelay time.Duration
}

// DefaultTiming is ten one-second steps followed by three seconds of
// processing.
func DefaultTiming() Timing {
	return Timing{Steps: 10, StepInterval: time.Second, ProcessingDelay: 3 * time.Second}
}

// Config holds the optional collaborators of a Runner. Nil fields get
// defaults; a nil Archiver disables archiving.
type Config struct {
	Timing   Timing
	Clock    Clock
	Defects  DefectSource
	Broker   *Broker
	Archiver Archiver
}

// Runner executes scans. Start schedules one goroutine per scan; Close
// cancels in-flight scans and waits for them.
type Runner struct {
	store    scanstore.Store
	logger   logging.Logger
	timing   Timing
	clock    Clock
	defects  DefectSource
	broker   *Broker
	archiver Archiver

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRunner builds a Runner over store. cfg may be nil.
func NewRunner(store scanstore.Store, logger logging.Logger, cfg *Config) (*Runner, error) {
	if store == nil {
		return nil, errors.New("scanner: nil store provided")
	}
	if logger == nil {
		return nil, errors.New("scanner: nil logger provided")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	timing := cfg.Timing
	if timing.Steps < 1 {
		timing = DefaultTiming()
	}

	r := &Runner{
		store:    store,
		logger:   logger,
		timing:   timing,
		clock:    cfg.Clock,
		defects:  cfg.Defects,
		broker:   cfg.Broker,
		archiver: cfg.Archiver,
	}
	if r.clock == nil {
		r.clock = SystemClock{}
	}
	if r.defects == nil {
		r.defects = NewDefectGenerator(0)
	}
	if r.broker == nil {
		r.broker = NewBroker(16)
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r, nil
}

// Broker returns the broker the runner publishes to.
func (r *Runner) Broker() *Broker { return r.broker }

// Timing returns the effective timing.
func (r *Runner) Timing() Timing { return r.timing }

// Start runs the scan for id in the background and returns immediately.
// Errors are logged, never returned.
func (r *Runner) Start(id model.ScanID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.logger.Warn("runner closed; scan not started", logging.Field{Key: "scan_id", Value: id})
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = r.Run(r.ctx, id)
	}()
}

// Run executes the whole scan for id synchronously. The record is left in
// its last persisted state when an update fails or ctx ends.
func (r *Runner) Run(ctx context.Context, id model.ScanID) error {
	logger := r.logger.With(logging.Field{Key: "scan_id", Value: id})
	started := r.clock.Now()
	state := Event{ScanID: id}

	persist := func(p scanstore.Patch) error {
		if err := r.store.Update(ctx, id, p); err != nil {
			logger.Error("failed to persist scan update", logging.Field{Key: "error", Value: err})
			return fmt.Errorf("scan %s: %w", id, err)
		}
		if p.Status != nil {
			state.Status = *p.Status
		}
		if p.Progress != nil {
			state.Progress = *p.Progress
		}
		if p.Stage != nil {
			state.Stage = *p.Stage
		}
		r.broker.Publish(state)
		return nil
	}
	wait := func(d time.Duration) error {
		if err := sleep(ctx, d); err != nil {
			logger.Warn("scan interrupted", logging.Field{Key: "stage", Value: state.Stage})
			return fmt.Errorf("scan %s: %w", id, err)
		}
		return nil
	}

	logger.Debug("scan started")
	if err := persist(scanstore.Patch{
		Status:   scanstore.Ptr(model.StatusScanning),
		Progress: scanstore.Ptr(0.0),
		Stage:    scanstore.Ptr(StageStarting),
	}); err != nil {
		return err
	}

	for i := 0; i <= r.timing.Steps; i++ {
		progress := float64(i) / float64(r.timing.Steps) * 100
		if err := persist(scanstore.Patch{
			Progress: scanstore.Ptr(progress),
			Stage:    scanstore.Ptr(StageFor(progress)),
		}); err != nil {
			return err
		}
		if err := wait(r.timing.StepInterval); err != nil {
			return err
		}
	}

	logger.Debug("scan processing")
	if err := persist(scanstore.Patch{
		Status: scanstore.Ptr(model.StatusProcessing),
		Stage:  scanstore.Ptr(StageProcessing),
	}); err != nil {
		return err
	}
	if err := wait(r.timing.ProcessingDelay); err != nil {
		return err
	}

	defects := r.defects.Defects()
	if defects == nil {
		defects = []model.Defect{}
	}
	if err := persist(scanstore.Patch{
		Results:  defects,
		Status:   scanstore.Ptr(model.StatusComplete),
		Stage:    scanstore.Ptr(StageComplete),
		ScanDate: scanstore.Ptr(r.clock.Now().Unix()),
	}); err != nil {
		return err
	}

	logger.Info("scan complete",
		logging.Field{Key: "defects", Value: len(defects)},
		logging.Field{Key: "duration", Value: r.clock.Now().Sub(started).String()},
	)

	r.archive(ctx, id, logger)
	return nil
}

func (r *Runner) archive(ctx context.Context, id model.ScanID, logger logging.Logger) {
	if r.archiver == nil {
		return
	}
	rec, err := r.store.Get(ctx, id)
	if err != nil {
		logger.Error("failed to load scan for archiving", logging.Field{Key: "error", Value: err})
		return
	}
	if err := r.archiver.Archive(ctx, rec); err != nil {
		logger.Error("failed to archive scan", logging.Field{Key: "error", Value: err})
		return
	}
	logger.Debug("scan archived")
}

// Wait blocks until every started scan has returned.
func (r *Runner) Wait() { r.wg.Wait() }

// Close stops accepting scans, cancels the running ones and waits for them.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
