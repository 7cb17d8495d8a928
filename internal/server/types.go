// Package server exposes footprint refinement over HTTP.
package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/footprint/internal/refine"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultMaxUploadMB = 50

// Server holds the HTTP server state and dependencies.
type Server struct {
	defaults    refine.Config
	logger      *slog.Logger
	profiler    *refine.Profiler
	rateLimiter *RateLimiter
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	started     time.Time
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	// Refine holds the thresholds used when a request does not override them.
	Refine refine.Config
	// RateLimit enables per-client limiting when non-nil.
	RateLimit *RateLimits
	Logger    *slog.Logger
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string         `json:"status"`
	Version string         `json:"version,omitempty"`
	Time    string         `json:"time"`
	Uptime  string         `json:"uptime,omitempty"`
	Stats   map[string]any `json:"stats,omitempty"`
}

// RefineResponse is the JSON form of a POST /v1/refine response. Mask and
// ThinEdge are base64-encoded PNGs.
type RefineResponse struct {
	Success  bool           `json:"success"`
	Report   *refine.Report `json:"report,omitempty"`
	Mask     string         `json:"mask,omitempty"`
	ThinEdge string         `json:"thin_edge,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// NewServer creates a new refinement server instance.
func NewServer(config Config) (*Server, error) {
	if err := config.Refine.Validate(); err != nil {
		return nil, fmt.Errorf("invalid refine config: %w", err)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = defaultMaxUploadMB
	}

	s := &Server{
		defaults:    config.Refine,
		logger:      logger,
		profiler:    &refine.Profiler{},
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeout:     time.Duration(config.TimeoutSec) * time.Second,
		started:     time.Now(),
	}
	if config.RateLimit != nil {
		s.rateLimiter = NewRateLimiter(*config.RateLimit)
	}
	return s, nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/v1/refine", s.corsMiddleware(s.rateLimitMiddleware(s.refineHandler)))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns the routed handler, bounded by the request timeout when
// one is configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	if s.timeout <= 0 {
		return mux
	}
	return http.TimeoutHandler(mux, s.timeout, `{"success":false,"error":"request timed out"}`)
}

// pipelineFor builds a pipeline for one request's thresholds.
func (s *Server) pipelineFor(cfg refine.Config) (*refine.Pipeline, error) {
	return refine.NewBuilder().
		WithConfig(cfg).
		WithLogger(s.logger).
		WithObserver(observeStage).
		Build()
}
