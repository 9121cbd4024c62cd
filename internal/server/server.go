package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/raysh454/spectra/internal/app"
	"github.com/raysh454/spectra/internal/logging"
	"github.com/raysh454/spectra/internal/model"
	"github.com/raysh454/spectra/internal/report"
	"github.com/raysh454/spectra/internal/scanner"
	"github.com/raysh454/spectra/internal/scanstore"

	_ "github.com/raysh454/spectra/internal/server/docs" // registers the swagger docs
)

// Server is the HTTP + WebSocket API surface for Spectra.
type Server struct {
	cfg          Config
	orchestrator *app.Orchestrator
	router       chi.Router
	upgrader     websocket.Upgrader
	logger       logging.Logger
}

// NewServer creates a Server in front of orch.
func NewServer(cfg Config, orch *app.Orchestrator) (*Server, error) {
	if orch == nil {
		return nil, errors.New("server: nil orchestrator provided")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	s := &Server{
		cfg:          cfg,
		orchestrator: orch,
		router:       chi.NewRouter(),
		logger:       logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.routes()
	return s, nil
}

// Orchestrator returns the underlying orchestrator for advanced use (tests, etc.).
func (s *Server) Orchestrator() *app.Orchestrator {
	return s.orchestrator
}

func (s *Server) routes() {
	r := s.router

	r.Use(cors.Handler(cors.Options{
		// Echo the caller's origin: browsers reject "*" on credentialed requests.
		AllowOriginFunc:  func(*http.Request, string) bool { return true },
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions, http.MethodHead},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Post("/api/scan", s.handleCreateScan)
	r.Get("/api/scan/status/{scan_id}", s.handleScanStatus)
	r.Get("/api/scan/results/{scan_id}", s.handleScanResults)
	r.Get("/api/scan/report/{scan_id}", s.handleScanReport)

	// WebSocket for scan progress
	r.Get("/api/scan/ws/{scan_id}", s.handleScanWS)

	r.Get("/health", s.handleHealth)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

	s.router.ServeHTTP(ww, r)

	s.logger.Info("http_request",
		logging.Field{Key: "method", Value: r.Method},
		logging.Field{Key: "path", Value: r.URL.Path},
		logging.Field{Key: "status", Value: ww.Status()},
		logging.Field{Key: "duration", Value: time.Since(start).String()},
	)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      0, // allow streaming
	}
}

// --- Response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Status: statusError, Message: msg})
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// --- HTTP handlers ---

// handleCreateScan godoc
// @Summary Start a scan
// @Description Creates a scan record and runs the simulated scan in the background.
// @Tags scans
// @Produce json
// @Success 200 {object} ScanCreatedResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/scan [post]
func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	id, err := s.orchestrator.StartScan(r.Context())
	if err != nil {
		s.logger.Warn("starting scan", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("started scan", logging.Field{Key: "scan_id", Value: id})
	writeJSON(w, http.StatusOK, ScanCreatedResponse{ScanID: id})
}

// handleScanStatus godoc
// @Summary Get scan status
// @Tags scans
// @Produce json
// @Param scan_id path string true "Scan ID"
// @Success 200 {object} model.ScanRecord
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} StatusResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/scan/status/{scan_id} [get]
func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "scan_id")
	rec, err := s.orchestrator.GetScan(r.Context(), raw)
	if err != nil {
		s.writeLookupError(w, raw, err)
		return
	}
	s.logger.Info("got scan status", logging.Field{Key: "scan_id", Value: rec.ID}, logging.Field{Key: "status", Value: rec.Status})
	writeJSON(w, http.StatusOK, rec)
}

// writeLookupError maps GetScan errors to the status endpoint responses.
func (s *Server) writeLookupError(w http.ResponseWriter, raw string, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidScanID):
		s.logger.Warn("invalid scan id", logging.Field{Key: "scan_id", Value: raw})
		writeError(w, http.StatusBadRequest, msgInvalidScanID)
	case errors.Is(err, scanstore.ErrNotFound):
		s.logger.Warn("scan not found", logging.Field{Key: "scan_id", Value: raw})
		writeJSON(w, http.StatusNotFound, StatusResponse{Status: statusNotFound})
	default:
		s.logger.Warn("loading scan", logging.Field{Key: "scan_id", Value: raw}, logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleScanResults godoc
// @Summary Get scan results
// @Description Returns defects and a derived summary once the scan is complete; 202 until then.
// @Tags scans
// @Produce json
// @Param scan_id path string true "Scan ID"
// @Success 200 {object} report.Results
// @Success 202 {object} StatusResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/scan/results/{scan_id} [get]
func (s *Server) handleScanResults(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "scan_id")
	res, err := s.orchestrator.GetResults(r.Context(), raw)
	switch {
	case errors.Is(err, model.ErrInvalidScanID):
		s.logger.Warn("invalid scan id", logging.Field{Key: "scan_id", Value: raw})
		writeError(w, http.StatusBadRequest, msgInvalidScanID)
		return
	case errors.Is(err, app.ErrNotReady):
		s.logger.Info("scan results not ready", logging.Field{Key: "scan_id", Value: raw})
		writeJSON(w, http.StatusAccepted, StatusResponse{Status: statusNotReady})
		return
	case err != nil:
		s.logger.Warn("loading scan results", logging.Field{Key: "scan_id", Value: raw}, logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("got scan results", logging.Field{Key: "scan_id", Value: raw}, logging.Field{Key: "defects", Value: len(res.Defects)})
	writeJSON(w, http.StatusOK, res)
}

// handleScanReport godoc
// @Summary Get HTML report
// @Tags scans
// @Produce html
// @Param scan_id path string true "Scan ID"
// @Success 200 {string} string "HTML report"
// @Failure 400 {string} string "Invalid Scan ID format"
// @Failure 404 {string} string "Scan not found or not complete"
// @Router /api/scan/report/{scan_id} [get]
func (s *Server) handleScanReport(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "scan_id")
	rec, err := s.orchestrator.GetCompletedScan(r.Context(), raw)
	switch {
	case errors.Is(err, model.ErrInvalidScanID):
		s.logger.Warn("invalid scan id", logging.Field{Key: "scan_id", Value: raw})
		writeHTML(w, http.StatusBadRequest, []byte(htmlInvalidScanID))
		return
	case errors.Is(err, app.ErrNotReady):
		s.logger.Warn("report requested for unavailable scan", logging.Field{Key: "scan_id", Value: raw})
		writeHTML(w, http.StatusNotFound, []byte(htmlNotAvailable))
		return
	case err != nil:
		s.logger.Warn("loading scan for report", logging.Field{Key: "scan_id", Value: raw}, logging.Field{Key: "error", Value: err.Error()})
		writeHTML(w, http.StatusInternalServerError, []byte(htmlInternalError))
		return
	}

	var buf bytes.Buffer
	if err := report.WriteHTML(&buf, rec, nil); err != nil {
		s.logger.Warn("rendering report", logging.Field{Key: "scan_id", Value: raw}, logging.Field{Key: "error", Value: err.Error()})
		writeHTML(w, http.StatusInternalServerError, []byte(htmlInternalError))
		return
	}
	s.logger.Info("rendered scan report", logging.Field{Key: "scan_id", Value: rec.ID})
	writeHTML(w, http.StatusOK, buf.Bytes())
}

// handleHealth godoc
// @Summary Health check
// @Tags ops
// @Produce json
// @Success 200 {object} HealthStatus
// @Failure 503 {object} HealthStatus
// @Router /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Checks:    map[string]CheckStatus{"store": {Status: "healthy"}},
	}
	status := http.StatusOK
	if err := s.orchestrator.Ping(ctx); err != nil {
		s.logger.Warn("store health check failed", logging.Field{Key: "error", Value: err.Error()})
		health.Status = "unhealthy"
		health.Checks["store"] = CheckStatus{Status: "unhealthy", Message: err.Error()}
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// --- WebSockets ---

// handleScanWS godoc
// @Summary Stream scan progress
// @Description Upgrades to a WebSocket, sends the current record, then one event per persisted update until the scan completes.
// @Tags scans
// @Param scan_id path string true "Scan ID"
// @Success 101 {object} scanner.Event
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} StatusResponse
// @Router /api/scan/ws/{scan_id} [get]
func (s *Server) handleScanWS(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "scan_id")
	id, err := model.ParseScanID(raw)
	if err != nil {
		s.writeLookupError(w, raw, err)
		return
	}

	// Subscribe before reading the snapshot so no update falls in between.
	events, cancel := s.orchestrator.Subscribe(id)
	defer cancel()

	rec, err := s.orchestrator.GetScan(r.Context(), id.String())
	if err != nil {
		s.writeLookupError(w, raw, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	s.logger.Info("streaming scan progress", logging.Field{Key: "scan_id", Value: id})
	if err := conn.WriteJSON(rec); err != nil {
		return
	}
	if rec.Complete() {
		closeNormally(conn, "scan complete")
		return
	}

	// Drain client frames so control messages are handled and a disconnect
	// is noticed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	last := scanner.Event{ScanID: id, Status: rec.Status, Progress: rec.Progress, Stage: rec.Stage}
	for {
		select {
		case <-gone:
			return
		case ev, ok := <-events:
			if !ok {
				closeNormally(conn, "scan complete")
				return
			}
			if behind(ev, last) {
				continue
			}
			last = ev
			if err := conn.WriteJSON(ev); err != nil {
				// Assume client disconnected
				return
			}
		}
	}
}

// behind reports whether ev predates the state already sent to the client.
func behind(ev, last scanner.Event) bool {
	if ev.Status.Rank() != last.Status.Rank() {
		return ev.Status.Rank() < last.Status.Rank()
	}
	return ev.Status == model.StatusScanning && ev.Progress < last.Progress
}

func closeNormally(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
