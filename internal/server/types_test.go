package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/pixkit/internal/encoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Addr(t *testing.T) {
	assert.Equal(t, "localhost:8080", Config{Host: "localhost", Port: 8080}.Addr())
	assert.Equal(t, "[::1]:9000", Config{Host: "::1", Port: 9000}.Addr())
}

func TestNewServer_Defaults(t *testing.T) {
	s := newTestServer(t, func(c *Config) {
		c.CORSOrigin = ""
		c.MaxUploadMB = 0
	})
	assert.Equal(t, "*", s.corsOrigin)
	assert.Equal(t, int64(50), s.maxUploadMB)
	assert.Nil(t, s.rateLimiter)
	assert.NotNil(t, s.pipeline.Cache())
	assert.Empty(t, s.pipeline.Stages())
}

func TestNewServer_RateLimit(t *testing.T) {
	s := newTestServer(t, func(c *Config) {
		c.RateLimit = RateLimitConfig{Enabled: true, RequestsPerMinute: 5}
	})
	require.NotNil(t, s.rateLimiter)
	assert.Equal(t, 5, s.rateLimiter.requestsPerMinute)
}

func TestNewServer_InvalidPipeline(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.Output.Format = "gif"
	_, err := NewServer(cfg)
	require.Error(t, err)

	cfg = testConfig()
	cfg.Pipeline.Output.Quality = 2
	_, err = NewServer(cfg)
	require.Error(t, err)
}

func TestNewServer_DefaultRegistry(t *testing.T) {
	cfg := testConfig()
	cfg.Registry = nil
	s, err := NewServer(cfg)
	require.NoError(t, err)
	assert.Contains(t, s.pipeline.Registry().Formats(), "png")
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t, func(c *Config) {
		c.Registry = encoder.NewRegistryWith(encoder.PNGEncoder{})
	})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	for _, path := range []string{"/health", "/formats"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	for _, path := range []string{"/v1/upscale", "/v1/matte", "/v1/annotate", "/v1/convert", "/v1/batch", "/v1/pdf/images"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, path)
	}

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "pixkit_http_requests_total")

	resp, err = http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
