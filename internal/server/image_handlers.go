package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/pixkit/internal/cache"
	"github.com/MeKo-Tech/pixkit/internal/encoder"
	"github.com/MeKo-Tech/pixkit/internal/pipeline"
	"github.com/MeKo-Tech/pixkit/internal/surface"
	"github.com/MeKo-Tech/pixkit/internal/utils"
)

const (
	headerWidth    = "X-Pixkit-Width"
	headerHeight   = "X-Pixkit-Height"
	headerDuration = "X-Pixkit-Duration-Ms"
	headerCache    = "X-Pixkit-Cache"
	headerCleared  = "X-Pixkit-Cleared-Pixels"
)

var resultHeaders = []string{headerWidth, headerHeight, headerDuration, headerCache, headerCleared}

// output is one encoded result.
type output struct {
	data    []byte
	res     *pipeline.Result
	enc     encoder.Encoder
	etag    string
	elapsed time.Duration
}

// operationHandler serves POST /v1/<op>. The image comes either as the
// "image" field of a multipart form or as the raw request body; options are
// form fields or query parameters.
func (s *Server) operationHandler(op pipeline.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		data, name, ok := s.readUpload(w, r, "image")
		if !ok {
			return // error already written
		}

		pl, err := s.pipelineFor(op, r.FormValue)
		if err != nil {
			s.writeErrorResponse(w, err.Error(), statusFor(err))
			return
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		out, err := s.processBytes(ctx, op, pl, data, nil)
		if err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				slog.Error("Image processing failed", "operation", op, "file", name, "error", err)
			}
			s.writeErrorResponse(w, fmt.Sprintf("%s failed: %v", op, err), status)
			return
		}
		s.writeImage(w, r, out, outputName(name, op, out.enc))
	}
}

// readUpload reads the request's image bytes, enforcing the upload limit.
// On failure the error response is already written and ok is false.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, field string) (data []byte, name string, ok bool) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var err error
	if strings.HasPrefix(mediaType, "multipart/") {
		if err = r.ParseMultipartForm(limit); err != nil {
			s.writeUploadError(w, err, "Failed to parse form data")
			return nil, "", false
		}
		file, header, ferr := r.FormFile(field)
		if ferr != nil {
			s.writeErrorResponse(w, fmt.Sprintf("No %s file provided", field), http.StatusBadRequest)
			return nil, "", false
		}
		defer func() { _ = file.Close() }()
		if header.Size > limit {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
			return nil, "", false
		}
		name = header.Filename
		data, err = io.ReadAll(file)
	} else {
		name = "upload"
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		s.writeUploadError(w, err, "Failed to read upload")
		return nil, "", false
	}
	if len(data) == 0 {
		s.writeErrorResponse(w, "Empty upload", http.StatusBadRequest)
		return nil, "", false
	}
	uploadSizeBytes.Observe(float64(len(data)))
	return data, name, true
}

func (s *Server) writeUploadError(w http.ResponseWriter, err error, message string) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}
	s.writeErrorResponse(w, message, http.StatusBadRequest)
}

// processBytes decodes data and runs it through pl.
func (s *Server) processBytes(
	ctx context.Context,
	op pipeline.Operation,
	pl *pipeline.Pipeline,
	data []byte,
	cb pipeline.ProgressCallback,
) (*output, error) {
	src, meta, err := surface.Decode(bytes.NewReader(data), pl.Config().Constraints)
	if err != nil {
		recordFailure(op)
		if errors.Is(err, utils.ErrImageTooLarge) {
			return nil, err
		}
		return nil, badRequest(err)
	}
	out, err := s.processSurface(ctx, op, pl, src, cb)
	if err != nil {
		return nil, err
	}
	out.res.Source = meta
	return out, nil
}

// processSurface runs the stages and encodes the result.
func (s *Server) processSurface(
	ctx context.Context,
	op pipeline.Operation,
	pl *pipeline.Pipeline,
	src *surface.Surface,
	cb pipeline.ProgressCallback,
) (*output, error) {
	start := time.Now()
	res, err := pl.Process(ctx, src, cb)
	if err != nil {
		recordFailure(op)
		return nil, err
	}
	var buf bytes.Buffer
	if err := pl.Encode(&buf, res.Surface); err != nil {
		recordFailure(op)
		return nil, err
	}
	out := &output{
		data:    buf.Bytes(),
		res:     res,
		enc:     pl.Encoder(),
		etag:    `"` + cache.ContentHash(buf.Bytes()) + `"`,
		elapsed: time.Since(start),
	}
	recordOperation(op, out.enc.Format(), res, len(out.data), out.elapsed)
	return out, nil
}

// result converts o into its JSON form.
func (o *output) result(name string) ImageResult {
	ir := ImageResult{
		Name:       name,
		Success:    true,
		Format:     o.enc.Format(),
		MIMEType:   o.enc.MIMEType(),
		Width:      o.res.Surface.Width,
		Height:     o.res.Surface.Height,
		Bytes:      len(o.data),
		ETag:       o.etag,
		CacheHit:   o.res.CacheHit,
		Timings:    o.res.Timings,
		DurationMs: o.elapsed.Milliseconds(),
		Data:       o.data,
	}
	if o.res.Matte != nil {
		cleared := o.res.Matte.Cleared
		ir.Cleared = &cleared
	}
	return ir
}

// writeImage sends the encoded bytes, answering 304 when the client already
// holds them.
func (s *Server) writeImage(w http.ResponseWriter, r *http.Request, out *output, filename string) {
	h := w.Header()
	h.Set("ETag", out.etag)
	h.Set("Cache-Control", "no-cache")
	h.Set(headerWidth, strconv.Itoa(out.res.Surface.Width))
	h.Set(headerHeight, strconv.Itoa(out.res.Surface.Height))
	h.Set(headerDuration, strconv.FormatInt(out.elapsed.Milliseconds(), 10))
	if out.res.CacheHit {
		h.Set(headerCache, "hit")
	} else {
		h.Set(headerCache, "miss")
	}
	if out.res.Matte != nil {
		h.Set(headerCleared, strconv.Itoa(out.res.Matte.Cleared))
	}

	if etagMatches(r.Header.Get("If-None-Match"), out.etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.Set("Content-Type", out.enc.MIMEType())
	h.Set("Content-Length", strconv.Itoa(len(out.data)))
	h.Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.data); err != nil {
		slog.Debug("Failed to write image response", "error", err)
	}
}

// etagMatches implements the If-None-Match comparison, which is weak.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

// outputName derives the download name from the uploaded file name.
func outputName(name string, op pipeline.Operation, enc encoder.Encoder) string {
	if name == "" {
		name = "image"
	}
	return filepath.Base(utils.OutputPath(filepath.Base(name), ".", op.OutputSuffix(), enc.Extension()))
}
