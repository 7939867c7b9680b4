package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/pixkit/internal/config"
	"github.com/MeKo-Tech/pixkit/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parsed returns an operation command for op with args parsed but not run.
func parsed(t *testing.T, a *app, op pipeline.Operation, args ...string) *cobra.Command {
	t.Helper()
	c := newOperationCommand(a, op)
	require.NoError(t, c.ParseFlags(args))
	return c
}

func TestResolveConfig_OnlyChangedFlagsOverride(t *testing.T) {
	loaded := config.DefaultConfig()
	loaded.Upscale.Factor = 3
	loaded.Upscale.Filter = "lanczos"
	a := &app{cfg: &loaded}

	cfg, err := a.resolveConfig(parsed(t, a, pipeline.OpUpscale, "--sharpen=false"))
	require.NoError(t, err)
	assert.InDelta(t, 3.0, cfg.Upscale.Factor, 1e-9, "unchanged flag must not reset the config value")
	assert.Equal(t, "lanczos", cfg.Upscale.Filter)
	assert.False(t, cfg.Upscale.Sharpen)

	cfg, err = a.resolveConfig(parsed(t, a, pipeline.OpUpscale, "--factor", "4", "--filter", "box"))
	require.NoError(t, err)
	assert.InDelta(t, 4.0, cfg.Upscale.Factor, 1e-9)
	assert.Equal(t, "box", cfg.Upscale.Filter)
	assert.InDelta(t, 3.0, loaded.Upscale.Factor, 1e-9, "loaded config must not be modified")
}

func TestResolveConfig_Validation(t *testing.T) {
	a := &app{}
	_, err := a.resolveConfig(parsed(t, a, pipeline.OpMatte, "--tolerance", "300"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matte tolerance")

	_, err = a.resolveConfig(parsed(t, a, pipeline.OpConvert, "--format", "gif"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output format")
}

func TestResolveConfig_OverlayAndBatchFlags(t *testing.T) {
	a := &app{}
	cfg, err := a.resolveConfig(parsed(t, a, pipeline.OpAnnotate,
		"--anchor", "Top-Left", "--mode", "BOTH", "--font-scale", "1.5",
		"--workers", "2", "--include", "*.png,*.jpg", "--continue-on-error", "--output-dir", "out"))
	require.NoError(t, err)
	assert.Equal(t, "top-left", cfg.Overlay.Anchor)
	assert.Equal(t, "both", cfg.Overlay.Mode)
	assert.InDelta(t, 1.5, cfg.Overlay.FontScale, 1e-9)
	assert.Equal(t, 2, cfg.Batch.Workers)
	assert.Equal(t, []string{"*.png", "*.jpg"}, cfg.Batch.Include)
	assert.True(t, cfg.Batch.ContinueOnError)
	assert.Equal(t, "out", cfg.Output.Dir)

	bc := toBatchConfig(parsed(t, a, pipeline.OpAnnotate, "--overwrite"), cfg, pipeline.OpAnnotate)
	assert.Equal(t, "-annotated", bc.Suffix)
	assert.Equal(t, "out", bc.OutputDir)
	assert.True(t, bc.Overwrite)
}

func TestApplyCaption(t *testing.T) {
	dir := t.TempDir()
	html := filepath.Join(dir, "clip.html")
	require.NoError(t, os.WriteFile(html, []byte(`<img src="https://img.example.org/cat.png">`), 0o600))
	a := &app{}

	pcfg := pipeline.DefaultConfig()
	require.NoError(t, applyCaption(parsed(t, a, pipeline.OpAnnotate, "--source-html", html), &pcfg))
	assert.Equal(t, "https://img.example.org/cat.png", pcfg.Annotate.Overlay.URL)
	assert.Equal(t, "img.example.org", pcfg.Annotate.Overlay.Title)

	pcfg = pipeline.DefaultConfig()
	require.NoError(t, applyCaption(parsed(t, a, pipeline.OpAnnotate,
		"--source-html", html, "--title", "Cats"), &pcfg))
	assert.Equal(t, "Cats", pcfg.Annotate.Overlay.Title, "explicit title wins")
	assert.Equal(t, "https://img.example.org/cat.png", pcfg.Annotate.Overlay.URL)

	pcfg = pipeline.DefaultConfig()
	err := applyCaption(parsed(t, a, pipeline.OpAnnotate, "--source-html", filepath.Join(dir, "missing.html")), &pcfg)
	require.Error(t, err)
}

func TestOperationFlagsPerCommand(t *testing.T) {
	a := &app{}
	assert.NotNil(t, newOperationCommand(a, pipeline.OpUpscale).Flags().Lookup("factor"))
	assert.Nil(t, newOperationCommand(a, pipeline.OpUpscale).Flags().Lookup("tolerance"))
	assert.NotNil(t, newOperationCommand(a, pipeline.OpMatte).Flags().Lookup("tolerance"))
	assert.NotNil(t, newOperationCommand(a, pipeline.OpAnnotate).Flags().Lookup("source-html"))
	assert.Nil(t, newOperationCommand(a, pipeline.OpConvert).Flags().Lookup("factor"))

	for _, op := range pipeline.Operations() {
		c := newOperationCommand(a, op)
		for _, name := range []string{"format", "quality", "output", "output-dir", "workers", "pages"} {
			assert.NotNil(t, c.Flags().Lookup(name), "%s --%s", op, name)
		}
	}
}

func TestSplitInputs(t *testing.T) {
	pdfs, images := splitInputs([]string{"a.png", "doc.PDF", "dir", "b.pdf"})
	assert.Equal(t, []string{"doc.PDF", "b.pdf"}, pdfs)
	assert.Equal(t, []string{"a.png", "dir"}, images)
}
