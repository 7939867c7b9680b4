// Package benchmark measures pipeline throughput per operation and batch
// throughput per worker count.
package benchmark

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/MeKo-Tech/pixkit/internal/batch"
	"github.com/MeKo-Tech/pixkit/internal/common"
	"github.com/MeKo-Tech/pixkit/internal/pipeline"
	"github.com/MeKo-Tech/pixkit/internal/surface"
	"github.com/MeKo-Tech/pixkit/internal/testutil"
	"github.com/MeKo-Tech/pixkit/internal/utils"
)

// Result is the outcome of one benchmark.
type Result struct {
	Name       string             `json:"name"`
	Iterations int                `json:"iterations"`
	Images     int                `json:"images"`
	Total      time.Duration      `json:"total_ns"`
	PerImage   time.Duration      `json:"per_image_ns"`
	Throughput float64            `json:"images_per_sec"`
	Memory     common.MemoryDelta `json:"memory"`
	Error      string             `json:"error,omitempty"`
}

func (r Result) String() string {
	if r.Error != "" {
		return fmt.Sprintf("%-28s ERROR %s", r.Name, r.Error)
	}
	return fmt.Sprintf("%-28s %4d x %-3d  total %-12v per image %-12v %8.1f img/s  %s",
		r.Name, r.Iterations, r.Images, r.Total.Round(time.Microsecond),
		r.PerImage.Round(time.Microsecond), r.Throughput, r.Memory)
}

// Benchmark is one named workload. Each call to Func handles Images images.
type Benchmark struct {
	Name   string
	Images int
	Func   func(ctx context.Context) error
}

// Suite runs benchmarks in registration order.
type Suite struct {
	mu         sync.Mutex
	benchmarks []Benchmark
	results    []Result
}

// NewSuite creates an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add registers a benchmark.
func (s *Suite) Add(b Benchmark) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.benchmarks = append(s.benchmarks, b)
}

// Names lists the registered benchmarks.
func (s *Suite) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.benchmarks))
	for _, b := range s.benchmarks {
		names = append(names, b.Name)
	}
	return names
}

// Run runs a single benchmark by name.
func (s *Suite) Run(ctx context.Context, name string, iterations int) Result {
	s.mu.Lock()
	var found *Benchmark
	for i := range s.benchmarks {
		if s.benchmarks[i].Name == name {
			found = &s.benchmarks[i]
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return Result{Name: name, Error: fmt.Sprintf("benchmark %q not found", name)}
	}
	return run(ctx, *found, iterations)
}

// RunAll runs every benchmark and keeps the results. It stops early when
// ctx is cancelled.
func (s *Suite) RunAll(ctx context.Context, iterations int) []Result {
	s.mu.Lock()
	benchmarks := append([]Benchmark(nil), s.benchmarks...)
	s.mu.Unlock()

	results := make([]Result, 0, len(benchmarks))
	for _, b := range benchmarks {
		if ctx.Err() != nil {
			break
		}
		results = append(results, run(ctx, b, iterations))
	}

	s.mu.Lock()
	s.results = results
	s.mu.Unlock()
	return results
}

// Results returns the results of the last RunAll.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// Print writes one line per result, fastest per-image time first.
func Print(w io.Writer, results []Result) {
	sorted := append([]Result(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if (sorted[i].Error == "") != (sorted[j].Error == "") {
			return sorted[i].Error == ""
		}
		return sorted[i].PerImage < sorted[j].PerImage
	})
	_, _ = fmt.Fprintln(w, "Benchmark Results:")
	for _, r := range sorted {
		_, _ = fmt.Fprintln(w, "  "+r.String())
	}
}

func run(ctx context.Context, b Benchmark, iterations int) Result {
	if iterations < 1 {
		iterations = 1
	}
	res := Result{Name: b.Name, Iterations: iterations, Images: b.Images}

	runtime.GC()
	before := common.ReadMemoryStats()
	timer := common.NewTimer(b.Name)
	for range iterations {
		if err := ctx.Err(); err != nil {
			res.Error = err.Error()
			break
		}
		if err := b.Func(ctx); err != nil {
			res.Error = err.Error()
			break
		}
	}
	res.Total = timer.Stop()
	res.Memory = common.ReadMemoryStats().Since(before)

	if n := iterations * max(b.Images, 1); res.Error == "" {
		res.PerImage = res.Total / time.Duration(n)
		if res.Total > 0 {
			res.Throughput = float64(n) / res.Total.Seconds()
		}
	}
	return res
}

// Input is a decoded image the benchmarks feed to the pipeline.
type Input struct {
	Name    string
	Surface *surface.Surface
}

// FixtureInputs renders the synthetic fixtures.
func FixtureInputs() []Input {
	var inputs []Input
	for _, f := range testutil.Fixtures() {
		inputs = append(inputs, Input{Name: f.Name, Surface: surface.FromNRGBA(f.Image())})
	}
	return inputs
}

// LoadInputs decodes image files within the default size limits.
func LoadInputs(paths []string) ([]Input, error) {
	inputs := make([]Input, 0, len(paths))
	for _, p := range paths {
		s, _, err := surface.Load(p, utils.DefaultImageConstraints())
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
		inputs = append(inputs, Input{Name: p, Surface: s})
	}
	return inputs, nil
}

// Operation returns a benchmark that runs op over every input and encodes
// the result.
func Operation(cfg pipeline.Config, op pipeline.Operation, inputs []Input) (Benchmark, error) {
	pl, err := pipeline.New(cfg.ForOperation(op), nil, nil)
	if err != nil {
		return Benchmark{}, fmt.Errorf("%s pipeline: %w", op, err)
	}
	return Benchmark{
		Name:   "op/" + string(op),
		Images: len(inputs),
		Func: func(ctx context.Context) error {
			for _, in := range inputs {
				res, err := pl.Process(ctx, in.Surface.Clone(), nil)
				if err != nil {
					return fmt.Errorf("%s: %w", in.Name, err)
				}
				if err := pl.Encode(io.Discard, res.Surface); err != nil {
					return fmt.Errorf("%s: encode: %w", in.Name, err)
				}
			}
			return nil
		},
	}, nil
}

// Scaling returns one benchmark per worker count, each running op over the
// image files through the batch processor. Outputs go to outDir.
func Scaling(cfg pipeline.Config, op pipeline.Operation, paths []string, workers []int,
	outDir string) ([]Benchmark, error) {
	pl, err := pipeline.New(cfg.ForOperation(op), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%s pipeline: %w", op, err)
	}
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return nil, err
	}

	var out []Benchmark
	for _, n := range workers {
		if n < 1 {
			return nil, fmt.Errorf("worker count must be positive, got %d", n)
		}
		bcfg := batch.DefaultConfig()
		bcfg.Workers = n
		bcfg.OutputDir = outDir
		bcfg.Suffix = op.OutputSuffix() + "-bench"
		bcfg.Overwrite = true
		bcfg.Quiet = true
		bcfg.ShowProgress = false
		out = append(out, Benchmark{
			Name:   fmt.Sprintf("batch/%s/workers=%d", op, n),
			Images: len(paths),
			Func: func(ctx context.Context) error {
				res, err := batch.ProcessBatch(ctx, pl, paths, bcfg, nil)
				if err != nil {
					return err
				}
				if failed := res.Failed(); len(failed) > 0 {
					return failed[0].Err
				}
				return nil
			},
		})
	}
	return out, nil
}
