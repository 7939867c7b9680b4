package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/pixkit/internal/pipeline"
	"github.com/MeKo-Tech/pixkit/internal/utils"
	"github.com/MeKo-Tech/pixkit/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.String(),
		Time:    time.Now().UTC().Format(time.RFC3339),
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
		Formats: s.pipeline.Registry().Formats(),
	})
}

// formatsHandler lists the encoders available on this host.
func (s *Server) formatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reg := s.pipeline.Registry()
	resp := FormatsResponse{}
	for _, name := range reg.Formats() {
		enc, err := reg.Get(name)
		if err != nil {
			continue
		}
		resp.Formats = append(resp.Formats, FormatInfo{Name: enc.Format(), Extension: enc.Extension(), MIMEType: enc.MIMEType()})
	}
	for _, op := range pipeline.Operations() {
		resp.Operations = append(resp.Operations, string(op))
	}
	resp.Count = len(resp.Formats)
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// writeErrorResponse writes a JSON error body.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Success: false, Error: message})
}

// requestError marks a failure caused by the client's input.
type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return &requestError{err: err} }

// statusFor maps a processing error onto an HTTP status.
func statusFor(err error) int {
	var re *requestError
	var ipe *utils.ImageProcessingError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.As(err, &re):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrInvalidScale), errors.Is(err, utils.ErrDegenerateImage):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ipe) && ipe.Operation == "validate":
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// requestContext bounds a request by the configured timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.timeout)
}
