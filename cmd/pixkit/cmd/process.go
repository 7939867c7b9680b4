package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/MeKo-Tech/pixkit/internal/batch"
	"github.com/MeKo-Tech/pixkit/internal/config"
	"github.com/MeKo-Tech/pixkit/internal/encoder"
	"github.com/MeKo-Tech/pixkit/internal/pdf"
	"github.com/MeKo-Tech/pixkit/internal/pipeline"
	"github.com/MeKo-Tech/pixkit/internal/utils"
	"github.com/spf13/cobra"
)

var operationHelp = map[pipeline.Operation]struct{ short, long string }{
	pipeline.OpUpscale: {
		short: "Upscale images with a resampling filter and unsharp mask",
		long: `Upscale images by a real factor >= 1. The resampled image is sharpened
with a 3x3 unsharp mask unless --sharpen=false is given.

Outputs are written as <name>-upscaled.<ext> next to each input or into
--output-dir.

Examples:
  pixkit upscale photo.png --factor 3
  pixkit upscale shots/ --factor 2 --filter lanczos --output-dir big
  pixkit upscale icon.png -o icon@4x.png --factor 4`,
	},
	pipeline.OpMatte: {
		short: "Remove a uniform background by flood fill from the border",
		long: `Make the background transparent. The background color is sampled from the
image border and every pixel connected to the border within --tolerance of
that color is cleared.

Outputs are written as <name>-nobg.<ext>.

Examples:
  pixkit matte logo.png
  pixkit matte product.jpg --tolerance 24 -o product.png`,
	},
	pipeline.OpAnnotate: {
		short: "Draw a title/URL caption box onto images",
		long: `Draw a rounded caption box with a title, a URL or both into a corner of
each image. Small images are first upscaled so their long side reaches
--min-long-side. The URL and title can be recovered from an HTML fragment
such as the clipboard contents of a copied web image.

Outputs are written as <name>-annotated.<ext>.

Examples:
  pixkit annotate shot.png --title "Release notes" --url https://example.com/notes
  pixkit annotate shot.png --source-html clip.html --mode both --anchor top-left`,
	},
	pipeline.OpConvert: {
		short: "Convert images between PNG, JPEG, WebP and PDF",
		long: `Re-encode images without changing their pixels. JPEG output flattens
transparency onto black; PDF output wraps each image into a one-page document.

Examples:
  pixkit convert photo.png --format jpeg --quality 0.9
  pixkit convert scans/ --format pdf --output-dir pdfs
  pixkit convert report.pdf --pages 1-2 --format png`,
	},
}

func newOperationCommand(a *app, op pipeline.Operation) *cobra.Command {
	help := operationHelp[op]
	c := &cobra.Command{
		Use:          string(op) + " <images, directories or PDFs...>",
		Short:        help.short,
		Long:         help.long,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOperation(cmd, op, args)
		},
	}
	fs := c.Flags()
	addOperationFlags(fs, op)
	addOutputFlags(fs)
	fs.StringP("output", "o", "", "output file (single input image only; format follows the extension)")
	addBatchFlags(fs)
	addPDFFlags(fs)
	return c
}

// runOperation is shared by the operation commands and batch: it builds the
// pipeline for op, processes image files and directories with the batch
// worker pool and the images embedded in PDFs one by one, then reports.
func (a *app) runOperation(cmd *cobra.Command, op pipeline.Operation, args []string) error {
	cfg, err := a.resolveConfig(cmd)
	if err != nil {
		return err
	}

	fs := cmd.Flags()
	output, _ := fs.GetString("output")
	if output != "" {
		if len(args) != 1 || isPDF(args[0]) || isDir(args[0]) {
			return errors.New("--output needs exactly one input image")
		}
		if !fs.Changed("format") && filepath.Ext(output) != "" {
			cfg.Output.Format = encoder.Normalize(filepath.Ext(output))
		}
	}

	pcfg := cfg.ToPipelineConfig().ForOperation(op)
	if op == pipeline.OpAnnotate {
		if err := applyCaption(cmd, &pcfg); err != nil {
			return err
		}
	}
	pl, err := pipeline.New(pcfg, nil, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bcfg := toBatchConfig(cmd, cfg, op)
	start := time.Now()
	res := &batch.Result{WorkerCount: bcfg.Workers}

	var runErr error
	if output != "" {
		res.Items = append(res.Items, processToFile(ctx, pl, args[0], output, bcfg.Overwrite))
	} else {
		pdfs, images := splitInputs(args)
		if len(images) > 0 {
			br, err := batch.ProcessBatch(ctx, pl, images, bcfg, nil)
			if br != nil {
				res.Items = append(res.Items, br.Items...)
			}
			runErr = err
		}
		for _, p := range pdfs {
			if runErr != nil {
				break
			}
			items, err := processPDF(ctx, pl, p, bcfg, pdfOptions(cmd))
			res.Items = append(res.Items, items...)
			if err != nil {
				runErr = err
			}
		}
	}
	res.Duration = time.Since(start)

	if len(res.Items) > 0 {
		if err := a.report(cmd, res, cfg); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if failed := res.Failed(); len(failed) > 0 {
		if len(failed) == 1 {
			return failed[0].Err
		}
		return fmt.Errorf("%d of %d images failed", len(failed), len(res.Items))
	}
	return nil
}

func toBatchConfig(cmd *cobra.Command, cfg config.Config, op pipeline.Operation) batch.Config {
	bc := batch.DefaultConfig()
	bc.Workers = cfg.Batch.Workers
	bc.ContinueOnError = cfg.Batch.ContinueOnError
	bc.Recursive = cfg.Batch.Recursive
	bc.IncludePatterns = cfg.Batch.Include
	bc.ExcludePatterns = cfg.Batch.Exclude
	bc.OutputDir = cfg.Output.Dir
	if bc.OutputDir == "" {
		bc.OutputDir = cfg.Batch.OutputDir
	}
	bc.Suffix = op.OutputSuffix()
	bc.Overwrite, _ = cmd.Flags().GetBool("overwrite")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	return bc
}

// report writes the summary in the configured format and, for text
// summaries, the processing statistics.
func (a *app) report(cmd *cobra.Command, res *batch.Result, cfg config.Config) error {
	fs := cmd.Flags()
	quiet, _ := fs.GetBool("quiet")
	summaryFile, _ := fs.GetString("summary-file")
	format := cfg.Batch.SummaryFormat

	if quiet && summaryFile == "" && (format == "" || format == "text") {
		return nil
	}
	if err := res.SaveResults(cmd.OutOrStdout(), format, summaryFile, quiet); err != nil {
		return err
	}
	if format == "" || format == "text" {
		res.PrintStats(cmd.OutOrStdout(), quiet)
	}
	return nil
}

// processToFile runs a single image and writes it to an explicit path.
func processToFile(ctx context.Context, pl *pipeline.Pipeline, input, out string, overwrite bool) (item batch.Item) {
	start := time.Now()
	item.Input = input
	defer func() { item.Duration = time.Since(start) }()

	if err := batch.CheckOutput(input, out, overwrite); err != nil {
		item.Err = err
		return item
	}
	res, err := pl.ProcessFile(ctx, input, nil)
	if err != nil {
		item.Err = fmt.Errorf("process %s: %w", input, err)
		return item
	}
	fillItem(&item, res)
	n, err := batch.WriteOutput(pl, res, out)
	if err != nil {
		item.Err = fmt.Errorf("write %s: %w", out, err)
		return item
	}
	item.Output, item.Bytes = out, n
	return item
}

type pdfOpts struct {
	pages string
	creds *pdf.Credentials
}

func pdfOptions(cmd *cobra.Command) pdfOpts {
	fs := cmd.Flags()
	var o pdfOpts
	o.pages, _ = fs.GetString("pages")
	pw, _ := fs.GetString("password")
	owner, _ := fs.GetString("owner-password")
	if pw != "" || owner != "" {
		o.creds = &pdf.Credentials{UserPassword: pw, OwnerPassword: owner}
	}
	return o
}

// processPDF runs every image embedded in the selected pages of path. The
// outputs are named <pdf>_page_<n>_image_<i><suffix>.<ext>.
func processPDF(ctx context.Context, pl *pipeline.Pipeline, path string, bcfg batch.Config,
	opts pdfOpts) ([]batch.Item, error) {
	if opts.creds == nil {
		if encrypted, _ := pdf.IsEncrypted(path); encrypted {
			err := fmt.Errorf("%s is encrypted; pass --password or --owner-password", path)
			if bcfg.ContinueOnError {
				return []batch.Item{{Input: path, Err: err}}, nil
			}
			return []batch.Item{{Input: path, Err: err}}, err
		}
	}
	images, err := pdf.ExtractImages(path, opts.pages, opts.creds, pl.Config().Constraints)
	if err != nil {
		item := batch.Item{Input: path, Err: err}
		if bcfg.ContinueOnError {
			return []batch.Item{item}, nil
		}
		return []batch.Item{item}, fmt.Errorf("extract %s: %w", path, err)
	}
	if len(images) == 0 {
		return []batch.Item{{Input: path, Err: errors.New("no images found in PDF")}}, nil
	}

	stem := strings.TrimSuffix(path, filepath.Ext(path))
	items := make([]batch.Item, 0, len(images))
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		name := fmt.Sprintf("%s_page_%d_image_%d.pdf", stem, img.Page, img.Index)
		item := processPDFImage(ctx, pl, name, img, bcfg)
		items = append(items, item)
		if item.Err != nil && !bcfg.ContinueOnError {
			return items, item.Err
		}
	}
	return items, nil
}

func processPDFImage(ctx context.Context, pl *pipeline.Pipeline, name string, img pdf.PageImage,
	bcfg batch.Config) (item batch.Item) {
	start := time.Now()
	item.Input = name
	defer func() { item.Duration = time.Since(start) }()

	out := utils.OutputPath(name, bcfg.OutputDir, bcfg.Suffix, pl.Encoder().Extension())
	if err := batch.CheckOutput(name, out, bcfg.Overwrite); err != nil {
		item.Err = err
		return item
	}
	w, h := img.Surface.Width, img.Surface.Height
	res, err := pl.Process(ctx, img.Surface, nil)
	if err != nil {
		item.Err = fmt.Errorf("process page %d image %d: %w", img.Page, img.Index, err)
		return item
	}
	fillItem(&item, res)
	item.Width, item.Height = w, h
	n, err := batch.WriteOutput(pl, res, out)
	if err != nil {
		item.Err = fmt.Errorf("write %s: %w", out, err)
		return item
	}
	item.Output, item.Bytes = out, n
	return item
}

func fillItem(item *batch.Item, res *pipeline.Result) {
	item.Width, item.Height = res.Source.Width, res.Source.Height
	item.OutWidth, item.OutHeight = res.Surface.Width, res.Surface.Height
	item.Timings = res.Timings
	item.CacheHit = res.CacheHit
}

func splitInputs(args []string) (pdfs, images []string) {
	for _, a := range args {
		if isPDF(a) && !isDir(a) {
			pdfs = append(pdfs, a)
		} else {
			images = append(images, a)
		}
	}
	return pdfs, images
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
