package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/pixkit/internal/pipeline"
)

// itemJSON is the wire form of an Item.
type itemJSON struct {
	Input      string                 `json:"input"`
	Output     string                 `json:"output,omitempty"`
	Status     string                 `json:"status"`
	Width      int                    `json:"width,omitempty"`
	Height     int                    `json:"height,omitempty"`
	OutWidth   int                    `json:"out_width,omitempty"`
	OutHeight  int                    `json:"out_height,omitempty"`
	Bytes      int64                  `json:"bytes,omitempty"`
	DurationMs int64                  `json:"duration_ms"`
	CacheHit   bool                   `json:"cache_hit,omitempty"`
	Timings    []pipeline.StageTiming `json:"timings,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

func status(it Item) string {
	if it.OK() {
		return "ok"
	}
	return "failed"
}

// formatBatchResults formats the batch processing results in the specified format.
func formatBatchResults(r *Result, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(r)
	case "csv":
		return formatCSV(r)
	case "", "text":
		return formatText(r), nil
	default:
		return "", fmt.Errorf("unknown summary format %q (want text, json or csv)", format)
	}
}

// formatJSON formats results as JSON.
func formatJSON(r *Result) (string, error) {
	out := struct {
		Summary Stats      `json:"summary"`
		Items   []itemJSON `json:"items"`
	}{Summary: r.Stats(), Items: make([]itemJSON, 0, len(r.Items))}

	for _, it := range r.Items {
		j := itemJSON{
			Input:      it.Input,
			Output:     it.Output,
			Status:     status(it),
			Width:      it.Width,
			Height:     it.Height,
			OutWidth:   it.OutWidth,
			OutHeight:  it.OutHeight,
			Bytes:      it.Bytes,
			DurationMs: it.Duration.Milliseconds(),
			CacheHit:   it.CacheHit,
			Timings:    it.Timings,
		}
		if it.Err != nil {
			j.Error = it.Err.Error()
		}
		out.Items = append(out.Items, j)
	}

	bts, err := json.MarshalIndent(out, "", "  ")
	return string(bts), err
}

// formatCSV formats results as CSV, one row per input.
func formatCSV(r *Result) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	rows := [][]string{{
		"file", "output", "status", "width", "height", "out_width", "out_height", "bytes", "duration_ms", "error",
	}}
	for _, it := range r.Items {
		errText := ""
		if it.Err != nil {
			errText = it.Err.Error()
		}
		rows = append(rows, []string{
			it.Input,
			it.Output,
			status(it),
			strconv.Itoa(it.Width),
			strconv.Itoa(it.Height),
			strconv.Itoa(it.OutWidth),
			strconv.Itoa(it.OutHeight),
			strconv.FormatInt(it.Bytes, 10),
			strconv.FormatInt(it.Duration.Milliseconds(), 10),
			errText,
		})
	}
	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}
	return output.String(), nil
}

// formatText formats results as one line per input.
func formatText(r *Result) string {
	var output strings.Builder
	for _, it := range r.Items {
		if !it.OK() {
			fmt.Fprintf(&output, "FAIL %s: %v\n", it.Input, it.Err)
			continue
		}
		fmt.Fprintf(&output, "ok   %s -> %s (%dx%d -> %dx%d, %d bytes)\n",
			it.Input, it.Output, it.Width, it.Height, it.OutWidth, it.OutHeight, it.Bytes)
	}
	st := r.Stats()
	fmt.Fprintf(&output, "%d processed, %d failed\n", st.ProcessedImages, st.FailedImages)
	return output.String()
}
