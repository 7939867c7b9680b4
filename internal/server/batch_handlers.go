package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/pixkit/internal/pipeline"
)

// maxBatchItems bounds the number of images in one batch request.
const maxBatchItems = 100

// BatchRequest is the JSON body of /v1/batch. Image data is base64.
type BatchRequest struct {
	Operation string              `json:"operation"`
	Options   map[string]any      `json:"options,omitempty"`
	Images    []BatchImageRequest `json:"images"`
}

// BatchImageRequest is one image of a batch. Its options override the
// request-wide ones.
type BatchImageRequest struct {
	Name    string         `json:"name"`
	Data    []byte         `json:"data"`
	Options map[string]any `json:"options,omitempty"`
}

// BatchResponse is returned by /v1/batch. Results keep the request order.
type BatchResponse struct {
	Success bool                   `json:"success"`
	Results []ImageResult          `json:"results"`
	Summary BatchProcessingSummary `json:"summary"`
}

// BatchProcessingSummary provides summary statistics for batch processing.
type BatchProcessingSummary struct {
	TotalItems    int     `json:"total_items"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
	TotalDuration float64 `json:"total_duration_seconds"`
	AvgItemTime   float64 `json:"avg_item_time_seconds"`
}

// batchHandler runs one operation over several images concurrently.
func (s *Server) batchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.writeErrorResponse(w, "Request too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.writeErrorResponse(w, fmt.Sprintf("Invalid JSON body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Images) == 0 {
		s.writeErrorResponse(w, "No images provided", http.StatusBadRequest)
		return
	}
	if len(req.Images) > maxBatchItems {
		s.writeErrorResponse(w, fmt.Sprintf("Too many images: %d > %d", len(req.Images), maxBatchItems), http.StatusBadRequest)
		return
	}
	op, err := pipeline.ParseOperation(req.Operation)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	results := make([]ImageResult, len(req.Images))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for range min(runtime.NumCPU(), len(req.Images)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.processBatchItem(ctx, op, req.Options, req.Images[i])
			}
		}()
	}
	for i := range req.Images {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Batch aborted: %v", err), statusFor(err))
		return
	}

	resp := BatchResponse{Results: results}
	resp.Summary.TotalItems = len(results)
	for _, res := range results {
		if res.Success {
			resp.Summary.Successful++
		} else {
			resp.Summary.Failed++
		}
	}
	resp.Summary.TotalDuration = time.Since(start).Seconds()
	resp.Summary.AvgItemTime = resp.Summary.TotalDuration / float64(len(results))
	resp.Success = resp.Summary.Failed == 0
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) processBatchItem(
	ctx context.Context,
	op pipeline.Operation,
	shared map[string]any,
	item BatchImageRequest,
) ImageResult {
	name := item.Name
	if name == "" {
		name = "image"
	}
	fail := func(err error) ImageResult {
		return ImageResult{Name: name, Error: err.Error()}
	}
	if len(item.Data) == 0 {
		return fail(errors.New("no image data"))
	}

	pl, err := s.pipelineFor(op, chainOptions(mapOptions(item.Options), mapOptions(shared)))
	if err != nil {
		return fail(err)
	}
	out, err := s.processBytes(ctx, op, pl, item.Data, nil)
	if err != nil {
		return fail(err)
	}
	return out.result(outputName(name, op, out.enc))
}
