package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidScanID is returned when a client-supplied scan id is malformed.
var ErrInvalidScanID = errors.New("invalid scan id")

// ScanID identifies a scan. Its string form is the canonical UUID text.
type ScanID string

// NewScanID returns a fresh random scan id.
func NewScanID() ScanID {
	return ScanID(uuid.New().String())
}

// ParseScanID validates raw and returns it in canonical form. Any input that
// is not a UUID yields an error wrapping ErrInvalidScanID.
func ParseScanID(raw string) (ScanID, error) {
	u, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidScanID, raw)
	}
	return ScanID(u.String()), nil
}

func (id ScanID) String() string { return string(id) }

// Status is the lifecycle state of a scan.
type Status string

const (
	StatusStarting   Status = "starting"
	StatusScanning   Status = "scanning"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
)

// Rank orders statuses along the lifecycle; unknown statuses rank -1.
func (s Status) Rank() int {
	switch s {
	case StatusStarting:
		return 0
	case StatusScanning:
		return 1
	case StatusProcessing:
		return 2
	case StatusComplete:
		return 3
	default:
		return -1
	}
}

// Valid reports whether s is one of the lifecycle statuses.
func (s Status) Valid() bool { return s.Rank() >= 0 }

// CanAdvanceTo reports whether moving from s to next keeps the lifecycle
// monotonic. Staying in the same status is allowed.
func (s Status) CanAdvanceTo(next Status) bool {
	return next.Valid() && next.Rank() >= s.Rank()
}

// Severity of a detected defect.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Severities lists every severity in display order.
var Severities = []Severity{SeverityHigh, SeverityMedium, SeverityLow}

// DefectTypes is the fixed vocabulary of simulated defect types.
var DefectTypes = []string{"Scratch", "Paint Bubble", "Dust Particle", "Orange Peel", "Color Mismatch"}

// Defect is one simulated flaw found by a scan. Position and size are
// percentages of the inspected surface.
type Defect struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	X          int      `json:"x"`
	Y          int      `json:"y"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Confidence float64  `json:"confidence"`
	Severity   Severity `json:"severity"`
}

// ScanRecord is the persisted state of one scan job.
type ScanRecord struct {
	ID       ScanID   `json:"id"`
	Status   Status   `json:"status"`
	Progress float64  `json:"progress"`
	Stage    string   `json:"stage"`
	ScanDate int64    `json:"scan_date"`
	Results  []Defect `json:"results,omitempty"`
}

// Complete reports whether the scan has finished and carries results.
func (r *ScanRecord) Complete() bool {
	return r != nil && r.Status == StatusComplete
}

// Clone returns a deep copy of r.
func (r *ScanRecord) Clone() *ScanRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Results != nil {
		out.Results = make([]Defect, len(r.Results))
		copy(out.Results, r.Results)
	}
	return &out
}
