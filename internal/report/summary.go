// Package report derives the results payload and the HTML report of a
// completed scan. Nothing here is stored; everything is computed at read
// time from the record's defects.
package report

import (
	"fmt"

	"github.com/raysh454/spectra/internal/model"
)

// Fixed summary values reported for every scan.
const (
	ScanDuration = "3 minutes 42 seconds"
	ImageTiles   = 127
	ModelName    = "YOLOv8-nano (defect detection)"
)

// Quality verdicts.
const (
	QualityPassed         = "PASSED"
	QualityRequiresReview = "REQUIRES REVIEW"
)

// Summary is the derived statistics block of a results payload.
type Summary struct {
	ScanDuration  string `json:"scan_duration"`
	ImageTiles    int    `json:"image_tiles"`
	AvgConfidence string `json:"avg_confidence"`
	ModelName     string `json:"model_name"`
	QualityStatus string `json:"quality_status"`
}

// Results is the payload served for a completed scan.
type Results struct {
	Status   model.Status   `json:"status"`
	Defects  []model.Defect `json:"defects"`
	Summary  Summary        `json:"summary"`
	ScanDate int64          `json:"scan_date"`
}

// BuildResults assembles the results payload of rec. Callers check that rec
// is complete.
func BuildResults(rec *model.ScanRecord) *Results {
	defects := rec.Results
	if defects == nil {
		defects = []model.Defect{}
	}
	return &Results{
		Status:   model.StatusComplete,
		Defects:  defects,
		Summary:  Summarize(defects),
		ScanDate: rec.ScanDate,
	}
}

// Summarize computes the summary block for defects.
func Summarize(defects []model.Defect) Summary {
	return Summary{
		ScanDuration:  ScanDuration,
		ImageTiles:    ImageTiles,
		AvgConfidence: FormatPercent(AverageConfidence(defects)),
		ModelName:     ModelName,
		QualityStatus: QualityStatus(defects),
	}
}

// AverageConfidence is the arithmetic mean confidence, 0 when empty.
func AverageConfidence(defects []model.Defect) float64 {
	if len(defects) == 0 {
		return 0
	}
	var sum float64
	for _, d := range defects {
		sum += d.Confidence
	}
	return sum / float64(len(defects))
}

// FormatPercent renders a fraction as a percentage with one decimal,
// e.g. 0.8432 -> "84.3%".
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// QualityStatus requires review when any defect is high severity.
func QualityStatus(defects []model.Defect) string {
	for _, d := range defects {
		if d.Severity == model.SeverityHigh {
			return QualityRequiresReview
		}
	}
	return QualityPassed
}
