// Package batch runs a pipeline over many image files with a worker pool and
// summarizes the outcome.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/MeKo-Tech/pixkit/internal/pipeline"
)

// Result holds the result of batch processing.
type Result struct {
	Items       []Item
	Duration    time.Duration
	WorkerCount int
}

// Stats summarizes a Result.
type Stats struct {
	TotalImages      int           `json:"total_images"`
	ProcessedImages  int           `json:"processed_images"`
	FailedImages     int           `json:"failed_images"`
	OutputBytes      int64         `json:"output_bytes"`
	CacheHits        int           `json:"cache_hits"`
	WorkerCount      int           `json:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	AveragePerImage  time.Duration `json:"average_per_image_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// ProcessBatch discovers images under inputs and runs each through pl. When
// progress is nil a console bar (unless quiet) and a debug log are used. The
// Result is returned even when an error stops the batch early.
func ProcessBatch(ctx context.Context, pl *pipeline.Pipeline, inputs []string, config Config,
	progress pipeline.ProgressCallback) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch config: %w", err)
	}

	files, err := discoverImageFiles(inputs, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no image files found")
	}

	if progress == nil {
		progress = defaultProgress(config)
	}

	slog.Info("batch starting", "files", len(files), "workers", config.Workers, "stages", pl.Stages())
	progress.OnStart(len(files))
	start := time.Now()
	items, err := processImagesParallel(ctx, pl, files, config, progress)
	res := &Result{Items: items, Duration: time.Since(start), WorkerCount: config.Workers}
	if err != nil {
		return res, fmt.Errorf("batch processing failed: %w", err)
	}
	progress.OnComplete()

	st := res.Stats()
	slog.Info("batch finished", "processed", st.ProcessedImages, "failed", st.FailedImages, "duration", st.TotalDuration)
	return res, nil
}

func defaultProgress(config Config) pipeline.ProgressCallback {
	logCb := pipeline.NewLogProgressCallback(slog.Default(), slog.LevelDebug, "batch ")
	if config.ShowProgress && !config.Quiet {
		console := pipeline.NewConsoleProgressCallback(os.Stderr, "Processing: ").
			WithUpdateInterval(config.ProgressInterval)
		return pipeline.NewMultiProgressCallback(console, logCb)
	}
	return logCb
}

// Stats computes counts and throughput.
func (r *Result) Stats() Stats {
	st := Stats{
		TotalImages:   len(r.Items),
		WorkerCount:   r.WorkerCount,
		TotalDuration: r.Duration,
	}
	for _, it := range r.Items {
		if !it.OK() {
			st.FailedImages++
			continue
		}
		st.ProcessedImages++
		st.OutputBytes += it.Bytes
		if it.CacheHit {
			st.CacheHits++
		}
	}
	if st.ProcessedImages > 0 {
		st.AveragePerImage = r.Duration / time.Duration(st.ProcessedImages)
	}
	if secs := r.Duration.Seconds(); secs > 0 {
		st.ThroughputPerSec = float64(st.ProcessedImages) / secs
	}
	return st
}

// Failed returns the items that did not produce an output.
func (r *Result) Failed() []Item {
	var out []Item
	for _, it := range r.Items {
		if !it.OK() {
			out = append(out, it)
		}
	}
	return out
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r, format)
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
		return nil
	}
	_, err = fmt.Fprint(w, output)
	return err
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", stats.TotalImages)
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", stats.ProcessedImages)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.FailedImages)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Output bytes: %d\n", stats.OutputBytes)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per image: %v\n", stats.AveragePerImage.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f images/sec\n", stats.ThroughputPerSec)
}
