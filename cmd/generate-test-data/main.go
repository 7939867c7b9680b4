package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/pixkit/internal/pdf"
	"github.com/MeKo-Tech/pixkit/internal/surface"
	"github.com/MeKo-Tech/pixkit/internal/testutil"
)

// fixtureManifest is the JSON description written next to the images.
type fixtureManifest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	InputFile     string `json:"input_file"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	ClearedPixels int    `json:"cleared_pixels"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		generateImages   = flag.Bool("images", true, "Generate synthetic fixture images")
		generateFixtures = flag.Bool("fixtures", true, "Generate fixture manifests")
		generatePDF      = flag.Bool("pdf", true, "Generate a PDF embedding the fixtures")
		outDir           = flag.String("o", "", "Output root (default: <project root>/testdata)")
		verbose          = flag.Bool("v", false, "Verbose output")
		help             = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate synthetic test data for pixkit.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                    # Generate all test data\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -fixtures=false    # Only images and the PDF\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -o /tmp/pixkit     # Write somewhere else\n", os.Args[0])
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	root := *outDir
	if root == "" {
		projectRoot, err := testutil.GetProjectRoot()
		if err != nil {
			slog.Error("Failed to find project root", "error", err)
			os.Exit(1)
		}
		root = filepath.Join(projectRoot, "testdata")
	}
	if *verbose {
		slog.Info("Options", "images", *generateImages, "fixtures", *generateFixtures, "pdf", *generatePDF, "root", root)
	}

	if *generateImages {
		paths, err := testutil.WriteFixtures(filepath.Join(root, "images"))
		if err != nil {
			slog.Error("Failed to generate fixture images", "error", err)
			os.Exit(1)
		}
		slog.Info("Generated fixture images", "count", len(paths))
	}

	if *generateFixtures {
		if err := writeManifests(filepath.Join(root, "fixtures")); err != nil {
			slog.Error("Failed to generate fixture manifests", "error", err)
			os.Exit(1)
		}
		slog.Info("Generated fixture manifests")
	}

	if *generatePDF {
		path := filepath.Join(root, "pdf", "fixtures.pdf")
		if err := writeFixturePDF(path); err != nil {
			slog.Error("Failed to generate fixture PDF", "error", err)
			os.Exit(1)
		}
		slog.Info("Generated fixture PDF", "path", path)
	}

	slog.Info("Test data generation completed")
}

func writeManifests(dir string) error {
	if err := testutil.EnsureDir(dir); err != nil {
		return fmt.Errorf("failed to create fixtures directory: %w", err)
	}
	for _, f := range testutil.Fixtures() {
		m := fixtureManifest{
			Name:          f.Name,
			Description:   f.Description,
			InputFile:     filepath.ToSlash(filepath.Join("images", f.Name+".png")),
			Width:         f.Width,
			Height:        f.Height,
			ClearedPixels: f.ClearedPixels,
		}
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, f.Name+".json"), data, 0o600); err != nil {
			return fmt.Errorf("failed to save manifest %s: %w", f.Name, err)
		}
	}
	return nil
}

// writeFixturePDF puts every fixture on its own page.
func writeFixturePDF(path string) error {
	if err := testutil.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create pdf directory: %w", err)
	}
	fixtures := testutil.Fixtures()
	pages := make([]*surface.Surface, 0, len(fixtures))
	for _, f := range fixtures {
		pages = append(pages, surface.FromNRGBA(f.Image()))
	}
	var buf bytes.Buffer
	if err := pdf.Write(&buf, pages...); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}
