package server

import (
	"time"

	"github.com/raysh454/spectra/internal/logging"
)

type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string

	// ReadTimeout bounds reading a request. Writes are unbounded so the
	// websocket stream can stay open for a whole scan.
	ReadTimeout time.Duration

	Logger logging.Logger
}
