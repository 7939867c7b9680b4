package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/pixkit/internal/benchmark"
	"github.com/MeKo-Tech/pixkit/internal/common"
	"github.com/MeKo-Tech/pixkit/internal/config"
	"github.com/MeKo-Tech/pixkit/internal/pipeline"
	"github.com/MeKo-Tech/pixkit/internal/testutil"
	"github.com/MeKo-Tech/pixkit/internal/utils"
)

func main() {
	var (
		iterations = flag.Int("iterations", 3, "Number of iterations per benchmark")
		ops        = flag.String("ops", "upscale,matte,annotate,convert", "Comma-separated operations to measure")
		imagesDir  = flag.String("images", "", "Directory of images to use instead of the synthetic fixtures")
		workers    = flag.String("workers", defaultWorkers(), "Comma-separated worker counts for the batch benchmark")
		prepare    = flag.Bool("prepare", false, "Prepare captions to the minimum long side (slow)")
		outputFile = flag.String("output", "", "Write results as JSON to this file")
		verbose    = flag.Bool("verbose", false, "Verbose output")
	)
	flag.Parse()

	operations, err := parseOperations(*ops)
	if err != nil {
		log.Fatal(err)
	}
	workerCounts, err := parseWorkers(*workers)
	if err != nil {
		log.Fatal(err)
	}

	tmp, err := os.MkdirTemp("", "pixkit-bench-*")
	if err != nil {
		log.Fatalf("temp dir: %v", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	paths, err := inputPaths(*imagesDir, tmp)
	if err != nil {
		log.Fatal(err)
	}
	inputs, err := benchmark.LoadInputs(paths)
	if err != nil {
		log.Fatal(err)
	}

	cfg := config.DefaultConfig()
	pcfg := cfg.ToPipelineConfig()
	pcfg.Annotate.Prepare = *prepare
	pcfg.Annotate.Overlay.Title = "pixkit benchmark"
	pcfg.Annotate.Overlay.URL = "https://example.com/benchmark"

	suite := benchmark.NewSuite()
	for _, op := range operations {
		b, err := benchmark.Operation(pcfg, op, inputs)
		if err != nil {
			log.Fatal(err)
		}
		suite.Add(b)
	}
	scaling, err := benchmark.Scaling(pcfg, operations[0], paths, workerCounts, filepath.Join(tmp, "out"))
	if err != nil {
		log.Fatal(err)
	}
	for _, b := range scaling {
		suite.Add(b)
	}

	fmt.Println("pixkit pipeline benchmark")
	fmt.Println("=========================")
	fmt.Printf("%d images, %d iterations, GOMAXPROCS %d\n", len(inputs), *iterations, runtime.GOMAXPROCS(0))
	if *verbose {
		for _, in := range inputs {
			fmt.Printf("  %s (%dx%d)\n", in.Name, in.Surface.Width, in.Surface.Height)
		}
		fmt.Println("  memory:", common.ReadMemoryStats())
	}
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	results := suite.RunAll(ctx, *iterations)
	benchmark.Print(os.Stdout, results)

	if *outputFile != "" {
		if err := saveResults(*outputFile, results); err != nil {
			log.Printf("Failed to save results to file: %v", err)
		} else {
			fmt.Printf("Results saved to: %s\n", *outputFile)
		}
	}
}

func defaultWorkers() string {
	n := runtime.NumCPU()
	counts := []string{"1"}
	for w := 2; w < n; w *= 2 {
		counts = append(counts, strconv.Itoa(w))
	}
	if n > 1 {
		counts = append(counts, strconv.Itoa(n))
	}
	return strings.Join(counts, ",")
}

func parseOperations(s string) ([]pipeline.Operation, error) {
	var ops []pipeline.Operation
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		op, err := pipeline.ParseOperation(name)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("no operations selected")
	}
	return ops, nil
}

func parseWorkers(s string) ([]int, error) {
	var counts []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid worker count %q", part)
		}
		counts = append(counts, n)
	}
	return counts, nil
}

// inputPaths lists the images in dir, or writes the fixtures to tmp when dir
// is empty.
func inputPaths(dir, tmp string) ([]string, error) {
	if dir == "" {
		return testutil.WriteFixtures(filepath.Join(tmp, "fixtures"))
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("images directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && utils.IsSupportedImage(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}
	return paths, nil
}

func saveResults(filename string, results []benchmark.Result) error {
	data, err := json.MarshalIndent(struct {
		GOMAXPROCS int                `json:"gomaxprocs"`
		Results    []benchmark.Result `json:"results"`
	}{runtime.GOMAXPROCS(0), results}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, append(data, '\n'), 0o600)
}
