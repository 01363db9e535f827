// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/polychat/internal/config"
	"github.com/jeranaias/polychat/internal/layer"
	"github.com/jeranaias/polychat/internal/layout"
	"github.com/jeranaias/polychat/internal/preset"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = "127.0.0.1:8686"

	// DefaultMaxBodyBytes caps request bodies (1MB).
	DefaultMaxBodyBytes = 1 << 20

	// Version is the API version reported by /health.
	Version = "1.0.0"
)

// ============================================================================
// SERVER STATS
// ============================================================================

// Stats counts requests served since start.
type Stats struct {
	totalRequests int64
	clientErrors  int64
	serverErrors  int64
	startTime     time.Time
}

// StatsSnapshot is the JSON form of Stats.
type StatsSnapshot struct {
	TotalRequests int64     `json:"total_requests"`
	ClientErrors  int64     `json:"client_errors"`
	ServerErrors  int64     `json:"server_errors"`
	StartTime     time.Time `json:"start_time"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}

// NewStats starts counting now.
func NewStats() *Stats {
	return &Stats{startTime: time.Now()}
}

// Record counts one finished request with the given status.
func (s *Stats) Record(status int) {
	atomic.AddInt64(&s.totalRequests, 1)
	switch {
	case status >= 500:
		atomic.AddInt64(&s.serverErrors, 1)
	case status >= 400:
		atomic.AddInt64(&s.clientErrors, 1)
	}
}

// Uptime returns how long the stats have been collected.
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TotalRequests: atomic.LoadInt64(&s.totalRequests),
		ClientErrors:  atomic.LoadInt64(&s.clientErrors),
		ServerErrors:  atomic.LoadInt64(&s.serverErrors),
		StartTime:     s.startTime,
		UptimeSeconds: int64(s.Uptime().Seconds()),
	}
}

// ============================================================================
// SERVER
// ============================================================================

// Options wires a Server to its stores.
type Options struct {
	Presets *preset.Store
	Layers  *layer.Coordinator
	Layouts *layout.Store

	// Config holds listen address, rate limit and body cap. An empty
	// address and a zero body cap fall back to defaults; a zero rate limit
	// disables limiting.
	Config config.ServerConfig
	// ShareBaseURL is the base for share links when a request gives none.
	ShareBaseURL string
	// RecommendationLimit is used when /v1/recommendations has no limit.
	RecommendationLimit int

	// CORS overrides DefaultCORSConfig.
	CORS *CORSConfig
	// Logger receives request and lifecycle logs. Default: log.Default().
	Logger *log.Logger
}

// Server exposes the preset, layer and layout stores as a JSON API.
type Server struct {
	presets *preset.Store
	layers  *layer.Coordinator
	layouts *layout.Store

	cfg      config.ServerConfig
	shareURL string
	recLimit int
	cors     *CORSConfig

	router  *http.ServeMux
	handler http.Handler
	limiter *RateLimiter
	stats   *Stats
	logger  *log.Logger

	mu     sync.Mutex
	server *http.Server
}

// New builds a server. Missing stores are replaced with empty in-memory
// ones so every route is always served.
func New(opts Options) *Server {
	defaults := config.Default()
	cfg := opts.Config
	if cfg.Addr == "" {
		cfg.Addr = defaults.Server.Addr
	}
	if cfg.RateLimit > 0 && cfg.RateBurst < 1 {
		cfg.RateBurst = max(1, int(cfg.RateLimit*2))
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		presets:  opts.Presets,
		layers:   opts.Layers,
		layouts:  opts.Layouts,
		cfg:      cfg,
		shareURL: opts.ShareBaseURL,
		recLimit: opts.RecommendationLimit,
		cors:     opts.CORS,
		router:   http.NewServeMux(),
		stats:    NewStats(),
		logger:   logger,
	}
	if s.presets == nil {
		s.presets = preset.NewStore(preset.Options{Logger: logger})
	}
	if s.layers == nil {
		s.layers = layer.New(logger)
	}
	if s.layouts == nil {
		s.layouts = layout.NewStore(layout.Options{Logger: logger})
	}
	if s.shareURL == "" {
		s.shareURL = defaults.Presets.ShareBaseURL
	}
	if s.recLimit <= 0 {
		s.recLimit = preset.DefaultRecommendationLimit
	}
	if s.cors == nil {
		s.cors = DefaultCORSConfig()
	}

	s.setupRoutes()
	chain := []func(http.Handler) http.Handler{
		RecoveryMiddleware(logger),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(logger, s.stats),
		CORSMiddleware(s.cors),
	}
	if cfg.RateLimit > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
		chain = append(chain, RateLimitMiddleware(s.limiter, logger))
	}
	chain = append(chain, BodyLimitMiddleware(cfg.MaxBodyBytes))
	s.handler = Chain(chain...)(s.router)
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Stats returns the request counters.
func (s *Server) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)

	s.router.HandleFunc("GET /v1/presets", s.handleListPresets)
	s.router.HandleFunc("POST /v1/presets", s.handleAddPresets)
	s.router.HandleFunc("POST /v1/presets/reorder", s.handleReorder)
	s.router.HandleFunc("POST /v1/presets/bulk", s.handleBulk)
	s.router.HandleFunc("GET /v1/presets/export", s.handleExport)
	s.router.HandleFunc("POST /v1/presets/import", s.handleImport)
	s.router.HandleFunc("GET /v1/presets/{id}", s.handleGetPreset)
	s.router.HandleFunc("PATCH /v1/presets/{id}", s.handleUpdatePreset)
	s.router.HandleFunc("DELETE /v1/presets/{id}", s.handleRemovePreset)
	s.router.HandleFunc("POST /v1/presets/{id}/favorite", s.handleToggleFavorite)
	s.router.HandleFunc("POST /v1/presets/{id}/duplicate", s.handleDuplicate)
	s.router.HandleFunc("POST /v1/presets/{id}/use", s.handleTrackUsage)
	s.router.HandleFunc("GET /v1/presets/{id}/history", s.handleHistory)
	s.router.HandleFunc("POST /v1/presets/{id}/restore", s.handleRestore)
	s.router.HandleFunc("GET /v1/presets/{id}/share", s.handleShare)
	s.router.HandleFunc("POST /v1/share/parse", s.handleParseShare)
	s.router.HandleFunc("GET /v1/recommendations", s.handleRecommendations)

	s.router.HandleFunc("GET /v1/categories", s.handleListCategories)
	s.router.HandleFunc("POST /v1/categories", s.handleAddCategory)
	s.router.HandleFunc("PUT /v1/categories/{name}", s.handleRenameCategory)
	s.router.HandleFunc("DELETE /v1/categories/{name}", s.handleRemoveCategory)

	s.router.HandleFunc("GET /v1/templates", s.handleListTemplates)
	s.router.HandleFunc("POST /v1/templates/{id}", s.handleCreateFromTemplate)

	s.router.HandleFunc("GET /v1/layers", s.handleListLayers)
	s.router.HandleFunc("POST /v1/layers", s.handleRegisterLayer)
	s.router.HandleFunc("GET /v1/layers/{id}", s.handleGetLayer)
	s.router.HandleFunc("DELETE /v1/layers/{id}", s.handleUnregisterLayer)
	s.router.HandleFunc("POST /v1/layers/{id}/front", s.handleBringToFront)

	s.router.HandleFunc("GET /v1/layouts", s.handleListLayouts)
	s.router.HandleFunc("POST /v1/layouts", s.handleSaveLayout)
	s.router.HandleFunc("GET /v1/layouts/{name}", s.handleGetLayout)
	s.router.HandleFunc("DELETE /v1/layouts/{name}", s.handleDeleteLayout)
	s.router.HandleFunc("POST /v1/layouts/{name}/apply", s.handleApplyLayout)
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// Start listens on the configured address and serves until Shutdown.
// It returns http.ErrServerClosed after a clean shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv.RegisterOnShutdown(cancel)
	if s.limiter != nil {
		go s.limiter.Run(ctx)
	}

	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.logger.Printf("SERVER_START | addr=%s version=%s", ln.Addr(), Version)
	return srv.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	snap := s.stats.Snapshot()
	s.logger.Printf("SERVER_SHUTDOWN | requests=%d client_errors=%d server_errors=%d uptime=%s",
		snap.TotalRequests, snap.ClientErrors, snap.ServerErrors, s.stats.Uptime().Round(time.Second))
	return srv.Shutdown(ctx)
}

// ============================================================================
// HEALTH AND STATS
// ============================================================================

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Presets       int    `json:"presets"`
	Layers        int    `json:"layers"`
	Layouts       int    `json:"layouts"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       Version,
		Presets:       s.presets.Len(),
		Layers:        s.layers.Len(),
		Layouts:       len(s.layouts.List()),
		UptimeSeconds: int64(s.stats.Uptime().Seconds()),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

// ============================================================================
// HELPERS
// ============================================================================

// ErrorBody is the error envelope of every non-2xx response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failed request.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{
		Message: message,
		Type:    errorType(status),
		Code:    status,
	}})
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request_error"
	case http.StatusNotFound:
		return "not_found_error"
	case http.StatusConflict:
		return "conflict_error"
	case http.StatusForbidden:
		return "permission_error"
	case http.StatusTooManyRequests:
		return "rate_limit_error"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	default:
		return "server_error"
	}
}

// statusFor maps store errors onto HTTP status codes.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, preset.ErrNotFound),
		errors.Is(err, preset.ErrUnknownCategory),
		errors.Is(err, layout.ErrNotFound),
		errors.Is(err, errLayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, preset.ErrCategoryExists):
		return http.StatusConflict
	case errors.Is(err, preset.ErrDefaultCategory):
		return http.StatusForbidden
	case errors.Is(err, preset.ErrEmptyName),
		errors.Is(err, preset.ErrNoModels),
		errors.Is(err, preset.ErrIndexOutOfRange),
		errors.Is(err, preset.ErrInvalidImport),
		errors.Is(err, preset.ErrInvalidShare),
		errors.Is(err, preset.ErrUnknownSort),
		errors.Is(err, preset.ErrInvalidPattern),
		errors.Is(err, layer.ErrUnknownCategory),
		errors.Is(err, layout.ErrEmptyName),
		errors.Is(err, layout.ErrNoWindows),
		errors.Is(err, layout.ErrInvalidWindow),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status statusFor picks. Server errors are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Printf("REQUEST_FAILED | method=%s path=%s error=%v", r.Method, r.URL.Path, err)
	}
	writeError(w, status, err.Error())
}

var (
	errBadRequest = errors.New("bad request")
	errEmptyBody  = fmt.Errorf("%w: empty body", errBadRequest)
)

// decodeJSON reads the body into v, rejecting unknown fields and
// trailing data.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}

// splitList parses a comma separated query value, dropping blanks.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
