package server

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/pixkit/internal/encoder"
	"github.com/MeKo-Tech/pixkit/internal/pipeline"
	"github.com/MeKo-Tech/pixkit/internal/testutil"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	pcfg := pipeline.DefaultConfig()
	pcfg.CacheEntries = 8
	return Config{
		Host:        "127.0.0.1",
		Port:        8080,
		CORSOrigin:  "*",
		MaxUploadMB: 5,
		TimeoutSec:  30,
		Pipeline:    pcfg,
		Registry:    encoder.NewRegistryWith(encoder.PNGEncoder{}, encoder.JPEGEncoder{}),
	}
}

func newTestServer(t *testing.T, mutate ...func(*Config)) *Server {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func fixturePNG(t *testing.T, name string) []byte {
	t.Helper()
	f, ok := testutil.FixtureByName(name)
	require.True(t, ok, name)
	return encodePNG(t, f.Image())
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

// multipartRequest builds a POST carrying data as field plus extra form
// fields.
func multipartRequest(t *testing.T, target, field, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
