// Package server exposes the image pipeline over HTTP and WebSocket.
package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/pixkit/internal/encoder"
	"github.com/MeKo-Tech/pixkit/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	// pipeline carries the server-wide defaults and the shared cache; every
	// request derives its own pipeline from it.
	pipeline    *pipeline.Pipeline
	rateLimiter *RateLimiter
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	startTime   time.Time
}

// RateLimitConfig configures per-client limits. Zero values disable a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	// Pipeline supplies request defaults. Its stage toggles are ignored;
	// each endpoint enables the stages of its operation.
	Pipeline  pipeline.Config
	RateLimit RateLimitConfig
	// Registry overrides the probed encoder set, mostly for tests.
	Registry *encoder.Registry
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status  string   `json:"status"`
	Version string   `json:"version,omitempty"`
	Time    string   `json:"time"`
	Uptime  string   `json:"uptime"`
	Formats []string `json:"formats"`
}

// FormatInfo describes one available output encoder.
type FormatInfo struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
	MIMEType  string `json:"mime_type"`
}

// FormatsResponse is returned by /formats.
type FormatsResponse struct {
	Formats    []FormatInfo `json:"formats"`
	Operations []string     `json:"operations"`
	Count      int          `json:"count"`
}

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ImageResult describes one processed image in JSON responses. Data holds
// the encoded output and is base64 in JSON.
type ImageResult struct {
	Name       string                 `json:"name"`
	Page       int                    `json:"page,omitempty"`
	Success    bool                   `json:"success"`
	Format     string                 `json:"format,omitempty"`
	MIMEType   string                 `json:"mime_type,omitempty"`
	Width      int                    `json:"width,omitempty"`
	Height     int                    `json:"height,omitempty"`
	Bytes      int                    `json:"bytes,omitempty"`
	ETag       string                 `json:"etag,omitempty"`
	CacheHit   bool                   `json:"cache_hit,omitempty"`
	Cleared    *int                   `json:"cleared_pixels,omitempty"`
	Timings    []pipeline.StageTiming `json:"timings,omitempty"`
	DurationMs int64                  `json:"duration_ms"`
	Data       []byte                 `json:"data,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// NewServer creates the server and its base pipeline.
func NewServer(config Config) (*Server, error) {
	cfg := config.Pipeline.ForOperation(pipeline.OpConvert)
	pl, err := pipeline.New(cfg, config.Registry, nil)
	if err != nil {
		return nil, fmt.Errorf("server pipeline: %w", err)
	}
	if c := pl.Cache(); c != nil {
		c.SetObserver(recordCacheLookup)
	}

	s := &Server{
		pipeline:    pl,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeout:     time.Duration(config.TimeoutSec) * time.Second,
		startTime:   time.Now(),
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 50
	}
	if rl := config.RateLimit; rl.Enabled {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
		slog.Info("Rate limiting enabled",
			"per_minute", rl.RequestsPerMinute, "per_hour", rl.RequestsPerHour,
			"per_day", rl.MaxRequestsPerDay, "data_per_day", rl.MaxDataPerDay)
	}
	return s, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	if c := s.pipeline.Cache(); c != nil {
		c.Clear()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/formats", s.corsMiddleware(s.formatsHandler))
	for _, op := range pipeline.Operations() {
		mux.HandleFunc("/v1/"+string(op), s.corsMiddleware(s.rateLimitMiddleware(s.operationHandler(op))))
	}
	mux.HandleFunc("/v1/pdf/images", s.corsMiddleware(s.rateLimitMiddleware(gzipMiddleware(s.pdfImagesHandler))))
	mux.HandleFunc("/v1/batch", s.corsMiddleware(s.rateLimitMiddleware(gzipMiddleware(s.batchHandler))))
	mux.HandleFunc("/ws", s.rateLimitMiddleware(s.webSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with every route installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
