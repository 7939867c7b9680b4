package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/pixkit/internal/config"
	"github.com/MeKo-Tech/pixkit/internal/server"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket image service",
		Long: `Start an HTTP server exposing the image operations.

The server provides the following endpoints:
  POST /v1/upscale     - Upscale an uploaded image
  POST /v1/matte       - Remove the background of an uploaded image
  POST /v1/annotate    - Caption an uploaded image
  POST /v1/convert     - Re-encode an uploaded image
  POST /v1/pdf/images  - Run an operation over the images in a PDF
  POST /v1/batch       - Run an operation over base64 images (JSON)
  GET  /ws             - WebSocket jobs with progress messages
  GET  /health         - Health check
  GET  /formats        - Available output formats and operations
  GET  /metrics        - Prometheus metrics

Examples:
  pixkit serve
  pixkit serve --port 8080
  pixkit serve --host 0.0.0.0 --port 3000 --rate-limit`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config()
			applyServerFlags(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			scfg, err := toServerConfig(cfg)
			if err != nil {
				return err
			}
			srv, err := server.NewServer(scfg)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			defer func() { _ = srv.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, srv, scfg, time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		},
	}

	d := config.DefaultConfig().Server
	fs := c.Flags()
	fs.String("host", d.Host, "server host")
	fs.IntP("port", "p", d.Port, "server port")
	fs.String("cors-origin", d.CORSOrigin, "allowed CORS origin")
	fs.Int("max-upload-size", d.MaxUploadMB, "maximum upload size in MB")
	fs.Int("timeout", d.TimeoutSec, "per-request processing timeout in seconds")
	fs.Int("shutdown-timeout", d.ShutdownTimeout, "graceful shutdown timeout in seconds")
	fs.Bool("rate-limit", d.RateLimitEnabled, "enable per-client rate limiting")
	fs.Int("requests-per-minute", d.RequestsPerMinute, "rate limit per client per minute")
	fs.Int("requests-per-hour", d.RequestsPerHour, "rate limit per client per hour")
	fs.Int("max-requests-per-day", d.MaxRequestsPerDay, "daily request quota per client")
	fs.String("max-data-per-day", d.MaxDataPerDay, "daily upload quota per client (e.g. 1GB)")
	fs.Int("cache-entries", config.DefaultConfig().Cache.Entries, "prepared-surface cache entries (0 disables)")
	return c
}

func applyServerFlags(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("host") {
		cfg.Server.Host, _ = fs.GetString("host")
	}
	if fs.Changed("port") {
		cfg.Server.Port, _ = fs.GetInt("port")
	}
	if fs.Changed("cors-origin") {
		cfg.Server.CORSOrigin, _ = fs.GetString("cors-origin")
	}
	if fs.Changed("max-upload-size") {
		cfg.Server.MaxUploadMB, _ = fs.GetInt("max-upload-size")
	}
	if fs.Changed("timeout") {
		cfg.Server.TimeoutSec, _ = fs.GetInt("timeout")
	}
	if fs.Changed("shutdown-timeout") {
		cfg.Server.ShutdownTimeout, _ = fs.GetInt("shutdown-timeout")
	}
	if fs.Changed("rate-limit") {
		cfg.Server.RateLimitEnabled, _ = fs.GetBool("rate-limit")
	}
	if fs.Changed("requests-per-minute") {
		cfg.Server.RequestsPerMinute, _ = fs.GetInt("requests-per-minute")
	}
	if fs.Changed("requests-per-hour") {
		cfg.Server.RequestsPerHour, _ = fs.GetInt("requests-per-hour")
	}
	if fs.Changed("max-requests-per-day") {
		cfg.Server.MaxRequestsPerDay, _ = fs.GetInt("max-requests-per-day")
	}
	if fs.Changed("max-data-per-day") {
		cfg.Server.MaxDataPerDay, _ = fs.GetString("max-data-per-day")
	}
	if fs.Changed("cache-entries") {
		cfg.Cache.Entries, _ = fs.GetInt("cache-entries")
	}
}

// toServerConfig maps the validated configuration onto server.Config.
func toServerConfig(cfg config.Config) (server.Config, error) {
	maxData, err := config.ParseByteSize(cfg.Server.MaxDataPerDay)
	if err != nil {
		return server.Config{}, fmt.Errorf("invalid max data per day: %w", err)
	}
	return server.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		CORSOrigin:  cfg.Server.CORSOrigin,
		MaxUploadMB: int64(cfg.Server.MaxUploadMB),
		TimeoutSec:  cfg.Server.TimeoutSec,
		Pipeline:    cfg.ToPipelineConfig(),
		RateLimit: server.RateLimitConfig{
			Enabled:           cfg.Server.RateLimitEnabled,
			RequestsPerMinute: cfg.Server.RequestsPerMinute,
			RequestsPerHour:   cfg.Server.RequestsPerHour,
			MaxRequestsPerDay: cfg.Server.MaxRequestsPerDay,
			MaxDataPerDay:     maxData,
		},
	}, nil
}

// run serves until ctx is cancelled and then shuts down gracefully.
func run(ctx context.Context, srv *server.Server, cfg server.Config, shutdownTimeout time.Duration) error {
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.TimeoutSec+30) * time.Second,
		WriteTimeout:      time.Duration(cfg.TimeoutSec+30) * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", httpServer.Addr, "cors_origin", cfg.CORSOrigin,
			"rate_limit", cfg.RateLimit.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
