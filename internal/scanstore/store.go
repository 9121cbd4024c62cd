// Package scanstore defines the persistence contract for scan records and
// ships an in-memory implementation. SQL-backed implementations live in
// the sqlite and postgres subpackages.
package scanstore

import (
	"context"
	"errors"

	"github.com/raysh454/spectra/internal/model"
)

// ErrNotFound is returned when no record exists for a well-formed id.
var ErrNotFound = errors.New("scan not found")

// Store persists scan records. Every Update is applied to a single record
// atomically: readers never observe half of a patch.
type Store interface {
	// Create inserts rec under a newly generated id and returns that id.
	// rec.ID is ignored.
	Create(ctx context.Context, rec model.ScanRecord) (model.ScanID, error)

	// Update merges p into the record: fields set in p replace the stored
	// values, the rest are untouched.
	Update(ctx context.Context, id model.ScanID, p Patch) error

	// Get returns a copy of the record or ErrNotFound.
	Get(ctx context.Context, id model.ScanID) (*model.ScanRecord, error)

	Ping(ctx context.Context) error
	Close() error
}

// Patch is a partial update. Nil fields are left unchanged; a nil Results
// slice leaves results untouched.
type Patch struct {
	Status   *model.Status
	Progress *float64
	Stage    *string
	ScanDate *int64
	Results  []model.Defect
}

// Apply merges p into rec in place.
func (p Patch) Apply(rec *model.ScanRecord) {
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.Progress != nil {
		rec.Progress = *p.Progress
	}
	if p.Stage != nil {
		rec.Stage = *p.Stage
	}
	if p.ScanDate != nil {
		rec.ScanDate = *p.ScanDate
	}
	if p.Results != nil {
		rec.Results = make([]model.Defect, len(p.Results))
		copy(rec.Results, p.Results)
	}
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Status == nil && p.Progress == nil && p.Stage == nil && p.ScanDate == nil && p.Results == nil
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T { return &v }
