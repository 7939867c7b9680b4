package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/MeKo-Tech/pixkit/internal/pdf"
	"github.com/MeKo-Tech/pixkit/internal/pipeline"
	"github.com/MeKo-Tech/pixkit/internal/utils"
)

// PDFImagesResponse is returned by /v1/pdf/images.
type PDFImagesResponse struct {
	Success    bool          `json:"success"`
	Operation  string        `json:"operation"`
	Pages      string        `json:"pages,omitempty"`
	Count      int           `json:"count"`
	Failed     int           `json:"failed"`
	Images     []ImageResult `json:"images"`
	DurationMs int64         `json:"duration_ms"`
}

// pdfImagesHandler extracts the images embedded in an uploaded PDF and runs
// each one through the requested operation (convert by default).
func (s *Server) pdfImagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, _, ok := s.readUpload(w, r, "pdf")
	if !ok {
		return // error already written
	}

	op := pipeline.OpConvert
	if v := r.FormValue("operation"); v != "" {
		var err error
		if op, err = pipeline.ParseOperation(v); err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	pl, err := s.pipelineFor(op, r.FormValue)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), statusFor(err))
		return
	}

	pageRange := r.FormValue("pages")
	var creds *pdf.Credentials
	if pw, owner := r.FormValue("password"), r.FormValue("owner_password"); pw != "" || owner != "" {
		creds = &pdf.Credentials{UserPassword: pw, OwnerPassword: owner}
	}

	start := time.Now()
	images, err := extractPDFImages(data, pageRange, creds, pl.Config().Constraints)
	if err != nil {
		recordFailure(op)
		status := http.StatusUnprocessableEntity
		if pdf.IsPasswordError(err) {
			status = http.StatusUnauthorized
		}
		s.writeErrorResponse(w, fmt.Sprintf("PDF extraction failed: %v", err), status)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	resp := PDFImagesResponse{Success: true, Operation: string(op), Pages: pageRange, Images: make([]ImageResult, 0, len(images))}
	for _, img := range images {
		name := fmt.Sprintf("page_%d_image_%d%s.%s", img.Page, img.Index, op.OutputSuffix(), pl.Encoder().Extension())
		out, err := s.processSurface(ctx, op, pl, img.Surface, nil)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.writeErrorResponse(w, fmt.Sprintf("PDF processing aborted: %v", ctxErr), statusFor(ctxErr))
				return
			}
			resp.Failed++
			resp.Images = append(resp.Images, ImageResult{Name: name, Page: img.Page, Error: err.Error()})
			continue
		}
		ir := out.result(name)
		ir.Page = img.Page
		resp.Images = append(resp.Images, ir)
	}
	resp.Count = len(resp.Images)
	resp.Success = resp.Failed == 0
	resp.DurationMs = time.Since(start).Milliseconds()

	slog.Debug("PDF images processed", "operation", op, "images", resp.Count, "failed", resp.Failed)
	writeJSON(w, http.StatusOK, resp)
}

// extractPDFImages spools data to a temporary file for pdfcpu.
func extractPDFImages(data []byte, pageRange string, creds *pdf.Credentials, limits utils.ImageConstraints) ([]pdf.PageImage, error) {
	tmp, err := os.CreateTemp("", "pixkit-upload-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		return nil, fmt.Errorf("failed to spool PDF: %w", err)
	}
	return pdf.ExtractImages(tmp.Name(), pageRange, creds, limits)
}
