package server

import (
	"time"

	"github.com/raysh454/spectra/internal/model"
)

// ScanCreatedResponse is returned when a scan has been scheduled.
type ScanCreatedResponse struct {
	ScanID model.ScanID `json:"scan_id" example:"3f0e6c1a-9d2b-4a53-8f0e-2b7d6c1e9a40"`
}

// StatusResponse carries a bare status marker such as not_found or
// not_ready.
type StatusResponse struct {
	Status string `json:"status" example:"not_ready"`
}

// ErrorResponse is the error payload of the scan endpoints.
type ErrorResponse struct {
	Status  string `json:"status" example:"error"`
	Message string `json:"message" example:"Invalid scan_id format"`
}

// HealthStatus is the payload of the health endpoint.
type HealthStatus struct {
	Status    string                 `json:"status" example:"healthy"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
}

// CheckStatus is the outcome of one health check.
type CheckStatus struct {
	Status  string `json:"status" example:"healthy"`
	Message string `json:"message,omitempty"`
}

const (
	statusError    = "error"
	statusNotFound = "not_found"
	statusNotReady = "not_ready"

	msgInvalidScanID = "Invalid scan_id format"

	htmlInvalidScanID = "<h1>Invalid Scan ID format</h1>"
	htmlNotAvailable  = "<h1>Scan not found or not complete</h1>"
	htmlInternalError = "<h1>Internal Server Error</h1>"
)
