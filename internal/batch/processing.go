package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MeKo-Tech/pixkit/internal/pipeline"
	"github.com/MeKo-Tech/pixkit/internal/utils"
)

// ErrOutputExists is returned for an item whose output file is already
// present and Config.Overwrite is off.
var ErrOutputExists = errors.New("output already exists")

// Item is the outcome for one input file.
type Item struct {
	Input     string
	Output    string
	Width     int
	Height    int
	OutWidth  int
	OutHeight int
	Bytes     int64
	Duration  time.Duration
	Timings   []pipeline.StageTiming
	CacheHit  bool
	Err       error
}

// OK reports whether the item was written.
func (it Item) OK() bool { return it.Err == nil }

// outputPathFor derives the destination and refuses to clobber the input.
func outputPathFor(pl *pipeline.Pipeline, input string, cfg Config) (string, error) {
	out := utils.OutputPath(input, cfg.OutputDir, cfg.Suffix, pl.Encoder().Extension())
	if err := CheckOutput(input, out, cfg.Overwrite); err != nil {
		return "", err
	}
	return out, nil
}

// CheckOutput refuses an output path that names the input, whatever
// overwrite says, and an existing output unless overwrite is set.
func CheckOutput(input, out string, overwrite bool) error {
	if abs(out) == abs(input) {
		return fmt.Errorf("output %s would overwrite the input; set a suffix or output directory", out)
	}
	if !overwrite {
		if _, err := os.Stat(out); err == nil {
			return fmt.Errorf("%w: %s", ErrOutputExists, out)
		}
	}
	return nil
}

func abs(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return filepath.Clean(p)
}

// processSingleImage runs one file through the pipeline and writes the
// encoded result.
func processSingleImage(ctx context.Context, pl *pipeline.Pipeline, path string, cfg Config) (item Item) {
	start := time.Now()
	item.Input = path
	defer func() { item.Duration = time.Since(start) }()

	out, err := outputPathFor(pl, path, cfg)
	if err != nil {
		item.Err = err
		return item
	}

	res, err := pl.ProcessFile(ctx, path, pipeline.NoOpProgressCallback{})
	if err != nil {
		item.Err = fmt.Errorf("process %s: %w", path, err)
		return item
	}
	item.Width, item.Height = res.Source.Width, res.Source.Height
	item.OutWidth, item.OutHeight = res.Surface.Width, res.Surface.Height
	item.Timings = res.Timings
	item.CacheHit = res.CacheHit

	n, err := WriteOutput(pl, res, out)
	if err != nil {
		item.Err = fmt.Errorf("write %s: %w", out, err)
		return item
	}
	item.Output = out
	item.Bytes = n
	return item
}

// WriteOutput encodes into a temp file next to out and renames it into place
// so readers never see a partial file.
func WriteOutput(pl *pipeline.Pipeline, res *pipeline.Result, out string) (int64, error) {
	dir := filepath.Dir(out)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(dir, ".pixkit-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := pl.Encode(tmp, res.Surface); err != nil {
		_ = tmp.Close()
		cleanup()
		return 0, err
	}
	info, err := tmp.Stat()
	if err != nil {
		_ = tmp.Close()
		cleanup()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return 0, err
	}
	if err := os.Rename(tmpName, out); err != nil {
		cleanup()
		return 0, err
	}
	return info.Size(), nil
}

// processImagesParallel fans paths out over cfg.Workers goroutines. Items
// keep input order. Unless ContinueOnError is set, the first failure cancels
// the remaining work and is returned.
func processImagesParallel(ctx context.Context, pl *pipeline.Pipeline, paths []string, cfg Config,
	progress pipeline.ProgressCallback) ([]Item, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items := make([]Item, len(paths))
	jobs := make(chan int)

	var (
		mu       sync.Mutex
		done     int
		firstErr error
	)
	record := func(i int, item Item) {
		mu.Lock()
		defer mu.Unlock()
		items[i] = item
		done++
		if item.Err != nil {
			progress.OnError(item.Input, item.Err)
			slog.Warn("batch item failed", "file", item.Input, "error", item.Err)
			if !cfg.ContinueOnError && firstErr == nil {
				firstErr = item.Err
				cancel()
			}
		}
		progress.OnProgress(done, len(paths), filepath.Base(item.Input))
	}

	workers := min(cfg.Workers, len(paths))
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for i := range jobs {
				record(i, processSingleImage(ctx, pl, paths[i], cfg))
			}
		}()
	}

	queued := 0
dispatch:
	for i := range paths {
		select {
		case jobs <- i:
			queued++
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	for i := queued; i < len(paths); i++ {
		items[i] = Item{Input: paths[i], Err: fmt.Errorf("skipped: %w", context.Cause(ctx))}
	}

	if firstErr != nil {
		return items, firstErr
	}
	if err := ctx.Err(); err != nil {
		return items, err
	}
	return items, nil
}
