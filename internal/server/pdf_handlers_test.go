package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/pixkit/internal/pdf"
	"github.com/MeKo-Tech/pixkit/internal/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFImagesHandler_MethodValidation(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.pdfImagesHandler(w, httptest.NewRequest(http.MethodGet, "/v1/pdf/images", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestPDFImagesHandler_Rejects(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int // zero accepts any client error
		msg    string
	}{
		{
			name:   "missing file",
			req:    multipartRequest(t, "/v1/pdf/images", "", "", nil, map[string]string{"pages": "1"}),
			status: http.StatusBadRequest,
			msg:    "No pdf file provided",
		},
		{
			name:   "unknown operation",
			req:    multipartRequest(t, "/v1/pdf/images", "pdf", "a.pdf", []byte("%PDF-1.7"), map[string]string{"operation": "rotate"}),
			status: http.StatusBadRequest,
			msg:    "unknown operation",
		},
		{
			name:   "bad option",
			req:    multipartRequest(t, "/v1/pdf/images", "pdf", "a.pdf", []byte("%PDF-1.7"), map[string]string{"operation": "matte", "tolerance": "x"}),
			status: http.StatusBadRequest,
			msg:    "tolerance",
		},
		{
			name:   "not a pdf",
			req:    multipartRequest(t, "/v1/pdf/images", "pdf", "a.pdf", []byte("plain text"), nil),
			msg:    "PDF extraction failed",
		},
		{
			name:   "bad page range",
			req:    multipartRequest(t, "/v1/pdf/images", "pdf", "a.pdf", []byte("%PDF-1.7"), map[string]string{"pages": "3-1"}),
			status: http.StatusUnprocessableEntity,
			msg:    "invalid page range",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.pdfImagesHandler(w, tt.req)
			if tt.status == 0 {
				assert.GreaterOrEqual(t, w.Code, 400)
				assert.Less(t, w.Code, 500)
			} else {
				assert.Equal(t, tt.status, w.Code)
			}
			assert.Contains(t, errorMessage(t, w), tt.msg)
		})
	}
}

func TestPDFImagesHandler_RoundTrip(t *testing.T) {
	s := newTestServer(t)

	pages := make([]*surface.Surface, 0, 2)
	for _, size := range [][2]int{{16, 8}, {6, 10}} {
		sf, err := surface.New(size[0], size[1])
		require.NoError(t, err)
		for i := range sf.Pix {
			sf.Pix[i] = 255
		}
		pages = append(pages, sf)
	}
	var doc bytes.Buffer
	require.NoError(t, pdf.Write(&doc, pages...))

	w := httptest.NewRecorder()
	s.pdfImagesHandler(w, multipartRequest(t, "/v1/pdf/images", "pdf", "doc.pdf", doc.Bytes(), map[string]string{"pages": "2"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp PDFImagesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "convert", resp.Operation)
	require.Equal(t, 1, resp.Count)
	img := resp.Images[0]
	assert.Equal(t, 2, img.Page)
	assert.Equal(t, "page_2_image_1.png", img.Name)
	assert.Equal(t, 6, img.Width)
	assert.Equal(t, 10, img.Height)
}
