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

	"github.com/MeKo-Tech/footprint/internal/config"
	"github.com/MeKo-Tech/footprint/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP refinement server",
	Long: `Start an HTTP server that refines uploaded mask pairs.

Endpoints:
  POST /v1/refine  multipart fields region and edge (files), optional
                   edge_threshold, area_threshold, allow_color, include_edge
                   and format (png or json)
  GET  /health     health check and run statistics
  GET  /metrics    Prometheus metrics

Examples:
  footprint serve
  footprint serve --host 0.0.0.0 --port 9000
  footprint serve --rate-limit-enabled --requests-per-minute 30`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := GetConfig()

		srv, err := server.NewServer(serverConfig(cfg))
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}

		httpServer := &http.Server{
			Addr:              server.Config{Host: cfg.Server.Host, Port: cfg.Server.Port}.Addr(),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(cfg.Server.TimeoutSec) * time.Second,
			// Leave room for the timeout handler to write its response.
			WriteTimeout: time.Duration(cfg.Server.TimeoutSec+5) * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()
		return run(ctx, httpServer, time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	},
}

// serverConfig maps the resolved configuration onto the server package.
func serverConfig(cfg *config.Config) server.Config {
	sc := server.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		CORSOrigin:  cfg.Server.CORSOrigin,
		MaxUploadMB: int64(cfg.Server.MaxUploadMB),
		TimeoutSec:  cfg.Server.TimeoutSec,
		Refine:      cfg.ToRefineConfig(),
		Logger:      slog.Default(),
	}
	if cfg.Server.RateLimitEnabled {
		sc.RateLimit = &server.RateLimits{
			PerMinute:   cfg.Server.RequestsPerMinute,
			PerHour:     cfg.Server.RequestsPerHour,
			PerDay:      cfg.Server.MaxRequestsPerDay,
			BytesPerDay: cfg.Server.MaxDataPerDay,
		}
	}
	return sc
}

// run serves until ctx is cancelled or the listener fails, then shuts the
// server down within the grace period.
func run(ctx context.Context, httpServer *http.Server, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting footprint server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	slog.Info("Starting graceful shutdown", "timeout", grace.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("Graceful shutdown completed")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	d := config.DefaultConfig()
	serveCmd.Flags().StringP("host", "H", d.Server.Host, "server host")
	serveCmd.Flags().IntP("port", "p", d.Server.Port, "server port")
	serveCmd.Flags().String("cors-origin", d.Server.CORSOrigin, "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", d.Server.MaxUploadMB, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", d.Server.TimeoutSec, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", d.Server.ShutdownTimeout, "shutdown timeout in seconds")
	// Default thresholds for requests that do not override them
	serveCmd.Flags().Int("edge-threshold", d.Refine.EdgeThreshold, "default edge binarization threshold (0-255)")
	serveCmd.Flags().Int("area-threshold", d.Refine.AreaThreshold, "default small-region area threshold (0 disables)")
	serveCmd.Flags().Bool("allow-color", false, "convert color uploads to luminance by default")
	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", d.Server.RequestsPerMinute, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", d.Server.RequestsPerHour, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", 0, "maximum requests per day per client (0 disables)")
	serveCmd.Flags().Int64("max-data-per-day", 0, "maximum bytes uploaded per day per client (0 disables)")
}
