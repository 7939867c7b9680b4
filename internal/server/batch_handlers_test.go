package server

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"image"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchRequest(t *testing.T, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/batch", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestBatchHandler_MixedResults(t *testing.T) {
	s := newTestServer(t)
	req := batchRequest(t, BatchRequest{
		Operation: "matte",
		Options:   map[string]any{"tolerance": 30},
		Images: []BatchImageRequest{
			{Name: "framed.png", Data: fixturePNG(t, "framed")},
			{Name: "broken.png", Data: []byte("nope")},
			{Name: "pocket.png", Data: fixturePNG(t, "pocket"), Options: map[string]any{"format": "jpeg"}},
		},
	})

	w := httptest.NewRecorder()
	s.batchHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, 3, resp.Summary.TotalItems)
	assert.Equal(t, 2, resp.Summary.Successful)
	assert.Equal(t, 1, resp.Summary.Failed)
	require.Len(t, resp.Results, 3)

	first := resp.Results[0]
	assert.True(t, first.Success)
	assert.Equal(t, "framed-nobg.png", first.Name)
	assert.Equal(t, "png", first.Format)
	require.NotNil(t, first.Cleared)
	assert.Equal(t, 2304, *first.Cleared)
	decodePNG(t, first.Data)

	assert.False(t, resp.Results[1].Success)
	assert.Equal(t, "broken.png", resp.Results[1].Name)
	assert.NotEmpty(t, resp.Results[1].Error)

	third := resp.Results[2]
	assert.True(t, third.Success)
	assert.Equal(t, "pocket-nobg.jpg", third.Name)
	assert.Equal(t, "image/jpeg", third.MIMEType)
}

func TestBatchHandler_Rejects(t *testing.T) {
	s := newTestServer(t)
	png := fixturePNG(t, "uniform")

	tests := []struct {
		name string
		req  *http.Request
		msg  string
	}{
		{"invalid json", httptest.NewRequest(http.MethodPost, "/v1/batch", bytes.NewReader([]byte("{"))), "Invalid JSON"},
		{"no images", batchRequest(t, BatchRequest{Operation: "convert"}), "No images"},
		{"unknown operation", batchRequest(t, BatchRequest{Operation: "blur", Images: []BatchImageRequest{{Data: png}}}), "unknown operation"},
		{"too many", batchRequest(t, BatchRequest{Operation: "convert", Images: make([]BatchImageRequest, maxBatchItems+1)}), "Too many images"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.batchHandler(w, tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, errorMessage(t, w), tt.msg)
		})
	}

	w := httptest.NewRecorder()
	s.batchHandler(w, httptest.NewRequest(http.MethodGet, "/v1/batch", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestBatchHandler_MissingDataAndBadOptions(t *testing.T) {
	s := newTestServer(t)
	req := batchRequest(t, BatchRequest{
		Operation: "upscale",
		Images: []BatchImageRequest{
			{Name: "empty"},
			{Name: "bad", Data: fixturePNG(t, "uniform"), Options: map[string]any{"factor": "huge"}},
		},
	})
	w := httptest.NewRecorder()
	s.batchHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Summary.Failed)
	assert.Equal(t, "no image data", resp.Results[0].Error)
	assert.Contains(t, resp.Results[1].Error, "factor")
}

// noise returns an image PNG cannot compress, so responses clear gzhttp's
// minimum size.
func noise(w, h int) *image.NRGBA {
	rng := rand.New(rand.NewPCG(1, 2))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.UintN(256))
	}
	return img
}

func TestBatchRoute_Gzip(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	data, err := json.Marshal(BatchRequest{
		Operation: "convert",
		Images:    []BatchImageRequest{{Name: "noise.png", Data: encodePNG(t, noise(64, 64))}},
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/batch", bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

	zr, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)

	var br BatchResponse
	require.NoError(t, json.Unmarshal(body, &br))
	assert.True(t, br.Success)
	assert.Equal(t, 1, br.Summary.Successful)
}
