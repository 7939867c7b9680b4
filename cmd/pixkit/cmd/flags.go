package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/MeKo-Tech/pixkit/internal/config"
	"github.com/MeKo-Tech/pixkit/internal/overlay"
	"github.com/MeKo-Tech/pixkit/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flag groups. Each add function registers flags with the defaults of
// config.DefaultConfig for help output; the matching apply function copies
// only flags the user changed, so config files and PIXKIT_* variables keep
// their precedence over flag defaults.

func addUpscaleFlags(fs *pflag.FlagSet) {
	d := config.DefaultConfig().Upscale
	fs.Float64("factor", d.Factor, "upscale factor (>= 1, e.g. 2, 3 or 4)")
	fs.String("filter", d.Filter, "resampling filter (catmullrom, lanczos, linear, box)")
	fs.Bool("sharpen", d.Sharpen, "apply the unsharp mask after resampling")
	fs.Float64("sharpen-amount", d.SharpenAmount, "unsharp mask strength (0.0-1.0)")
}

func applyUpscaleFlags(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("factor") {
		cfg.Upscale.Factor, _ = fs.GetFloat64("factor")
	}
	if fs.Changed("filter") {
		cfg.Upscale.Filter, _ = fs.GetString("filter")
	}
	if fs.Changed("sharpen") {
		cfg.Upscale.Sharpen, _ = fs.GetBool("sharpen")
	}
	if fs.Changed("sharpen-amount") {
		cfg.Upscale.SharpenAmount, _ = fs.GetFloat64("sharpen-amount")
	}
}

func addMatteFlags(fs *pflag.FlagSet) {
	fs.Int("tolerance", config.DefaultConfig().Matte.Tolerance,
		"max per-channel distance from the background color (0-255)")
}

func applyMatteFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("tolerance") {
		cfg.Matte.Tolerance, _ = cmd.Flags().GetInt("tolerance")
	}
}

func addOverlayFlags(fs *pflag.FlagSet) {
	d := config.DefaultConfig().Overlay
	fs.String("title", "", "caption title")
	fs.String("url", "", "caption URL")
	fs.String("source-html", "", "HTML fragment file to take the URL and title from (e.g. a copied image)")
	fs.String("anchor", d.Anchor, "caption corner (top-left, top-right, bottom-left, bottom-right)")
	fs.String("mode", d.Mode, "caption content (title, url, both)")
	fs.Float64("font-scale", d.FontScale, "font scale (0.5-2.0)")
	fs.Float64("bg-opacity", d.BgOpacity, "caption box opacity (0.0-1.0)")
	fs.String("text-color", d.TextColor, "caption text color (hex)")
	fs.String("bg-color", d.BgColor, "caption box color (hex)")
	fs.Int("fit-passes", d.FitPasses, "font fitting passes")
	fs.Int("url-max-len", d.URLMaxLen, "maximum displayed URL length")
	fs.String("font", d.FontPath, "TrueType/OpenType font file (default: built-in Go Regular)")
	fs.Bool("prepare", d.Prepare, "upscale small images before captioning")
	fs.Int("min-long-side", d.MinLongSide, "long side small images are prepared to")
}

func applyOverlayFlags(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("anchor") {
		v, _ := fs.GetString("anchor")
		cfg.Overlay.Anchor = strings.ToLower(v)
	}
	if fs.Changed("mode") {
		v, _ := fs.GetString("mode")
		cfg.Overlay.Mode = strings.ToLower(v)
	}
	if fs.Changed("font-scale") {
		cfg.Overlay.FontScale, _ = fs.GetFloat64("font-scale")
	}
	if fs.Changed("bg-opacity") {
		cfg.Overlay.BgOpacity, _ = fs.GetFloat64("bg-opacity")
	}
	if fs.Changed("text-color") {
		cfg.Overlay.TextColor, _ = fs.GetString("text-color")
	}
	if fs.Changed("bg-color") {
		cfg.Overlay.BgColor, _ = fs.GetString("bg-color")
	}
	if fs.Changed("fit-passes") {
		cfg.Overlay.FitPasses, _ = fs.GetInt("fit-passes")
	}
	if fs.Changed("url-max-len") {
		cfg.Overlay.URLMaxLen, _ = fs.GetInt("url-max-len")
	}
	if fs.Changed("font") {
		cfg.Overlay.FontPath, _ = fs.GetString("font")
	}
	if fs.Changed("prepare") {
		cfg.Overlay.Prepare, _ = fs.GetBool("prepare")
	}
	if fs.Changed("min-long-side") {
		cfg.Overlay.MinLongSide, _ = fs.GetInt("min-long-side")
	}
}

// applyCaption fills the per-run caption text. --source-html is read first
// so explicit --title and --url win over what it recovers.
func applyCaption(cmd *cobra.Command, pcfg *pipeline.Config) error {
	fs := cmd.Flags()
	if path, _ := fs.GetString("source-html"); path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // user-chosen path
		if err != nil {
			return fmt.Errorf("read source html: %w", err)
		}
		src, ok := overlay.ExtractSource(string(data))
		if !ok {
			return fmt.Errorf("no image or link found in %s", path)
		}
		pcfg.Annotate.Overlay.URL = src.URL
		pcfg.Annotate.Overlay.Title = src.Title
	}
	if fs.Changed("title") {
		pcfg.Annotate.Overlay.Title, _ = fs.GetString("title")
	}
	if fs.Changed("url") {
		pcfg.Annotate.Overlay.URL, _ = fs.GetString("url")
	}
	return nil
}

func addOutputFlags(fs *pflag.FlagSet) {
	d := config.DefaultConfig().Output
	fs.StringP("format", "f", d.Format, "output format (png, jpeg, webp, pdf)")
	fs.Float64("quality", d.Quality, "lossy encoder quality (0.0-1.0)")
	fs.String("output-dir", "", "directory for output files (default: next to each input)")
	fs.Bool("overwrite", false, "replace existing output files")
}

func applyOutputFlags(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("format") {
		cfg.Output.Format, _ = fs.GetString("format")
	}
	if fs.Changed("quality") {
		cfg.Output.Quality, _ = fs.GetFloat64("quality")
	}
	if fs.Changed("output-dir") {
		cfg.Output.Dir, _ = fs.GetString("output-dir")
	}
}

func addBatchFlags(fs *pflag.FlagSet) {
	d := config.DefaultConfig().Batch
	fs.IntP("workers", "w", d.Workers, "number of parallel workers")
	fs.BoolP("recursive", "r", false, "process directories recursively")
	fs.StringSlice("include", nil, "glob patterns of files to include (e.g. '*.png')")
	fs.StringSlice("exclude", nil, "glob patterns of files to exclude")
	fs.Bool("continue-on-error", d.ContinueOnError, "keep going when an image fails")
	fs.BoolP("quiet", "q", false, "suppress progress and statistics")
	fs.String("summary-format", d.SummaryFormat, "summary format (text, json, csv)")
	fs.String("summary-file", "", "write the summary to this file instead of stdout")
}

func applyBatchFlags(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("workers") {
		cfg.Batch.Workers, _ = fs.GetInt("workers")
	}
	if fs.Changed("recursive") {
		cfg.Batch.Recursive, _ = fs.GetBool("recursive")
	}
	if fs.Changed("include") {
		cfg.Batch.Include, _ = fs.GetStringSlice("include")
	}
	if fs.Changed("exclude") {
		cfg.Batch.Exclude, _ = fs.GetStringSlice("exclude")
	}
	if fs.Changed("continue-on-error") {
		cfg.Batch.ContinueOnError, _ = fs.GetBool("continue-on-error")
	}
	if fs.Changed("summary-format") {
		cfg.Batch.SummaryFormat, _ = fs.GetString("summary-format")
	}
}

func addPDFFlags(fs *pflag.FlagSet) {
	fs.String("pages", "", "PDF page selection, e.g. '1-3,5' (default: all pages)")
	fs.String("password", "", "PDF user password")
	fs.String("owner-password", "", "PDF owner password")
}

// addOperationFlags registers the flags of the stages op runs.
func addOperationFlags(fs *pflag.FlagSet, op pipeline.Operation) {
	switch op {
	case pipeline.OpUpscale:
		addUpscaleFlags(fs)
	case pipeline.OpMatte:
		addMatteFlags(fs)
	case pipeline.OpAnnotate:
		addOverlayFlags(fs)
	case pipeline.OpConvert:
	}
}

// resolveConfig layers the changed flags of cmd over the loaded
// configuration and validates the result.
func (a *app) resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := a.config()
	fs := cmd.Flags()
	if fs.Lookup("factor") != nil {
		applyUpscaleFlags(cmd, &cfg)
	}
	if fs.Lookup("tolerance") != nil {
		applyMatteFlags(cmd, &cfg)
	}
	if fs.Lookup("anchor") != nil {
		applyOverlayFlags(cmd, &cfg)
	}
	if fs.Lookup("format") != nil {
		applyOutputFlags(cmd, &cfg)
	}
	if fs.Lookup("workers") != nil {
		applyBatchFlags(cmd, &cfg)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
