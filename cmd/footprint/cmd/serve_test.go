package cmd

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/MeKo-Tech/footprint/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand(t *testing.T) {
	assert.Equal(t, "serve", serveCmd.Use)
	assert.Contains(t, serveCmd.Long, "/v1/refine")
	for _, name := range []string{"host", "port", "cors-origin", "max-upload-size", "timeout", "shutdown-timeout", "rate-limit-enabled"} {
		assert.NotNil(t, serveCmd.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestServerConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 9000
	cfg.Refine.AreaThreshold = 4
	cfg.Input.AllowColor = true

	sc := serverConfig(&cfg)
	assert.Equal(t, "0.0.0.0:9000", sc.Addr())
	assert.Equal(t, int64(50), sc.MaxUploadMB)
	assert.Equal(t, 4, sc.Refine.AreaThreshold)
	assert.True(t, sc.Refine.AllowColor)
	assert.Nil(t, sc.RateLimit)

	cfg.Server.RateLimitEnabled = true
	cfg.Server.MaxDataPerDay = 1 << 20
	sc = serverConfig(&cfg)
	require.NotNil(t, sc.RateLimit)
	assert.Equal(t, 60, sc.RateLimit.PerMinute)
	assert.Equal(t, 1000, sc.RateLimit.PerHour)
	assert.Equal(t, int64(1<<20), sc.RateLimit.BytesPerDay)
}

func TestRun_GracefulShutdown(t *testing.T) {
	httpServer := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, run(ctx, httpServer, time.Second))
}

func TestRun_ListenError(t *testing.T) {
	httpServer := &http.Server{Addr: "127.0.0.1:-1", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}

	err := run(context.Background(), httpServer, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error")
}

func TestServe_InvalidConfig(t *testing.T) {
	_, _, err := execute(t, "serve", "--port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")

	_, _, err = execute(t, "serve", "--requests-per-hour", "-5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid rate limit")
}
