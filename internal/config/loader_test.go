package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// isolate points the search paths at an empty temp dir and returns a loader
// that does not share state with the global viper instance.
func isolate(t *testing.T) (*Loader, string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	return NewLoaderWith(viper.New()), dir
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	require.NotNil(t, loader)
	assert.Same(t, viper.GetViper(), loader.GetViper())
}

func TestLoad_NoConfigFile(t *testing.T) {
	loader, _ := isolate(t)

	cfg, err := loader.Load()
	require.NoError(t, err)
	want := DefaultConfig()
	assert.Equal(t, want.Upscale, cfg.Upscale)
	assert.Equal(t, want.Overlay, cfg.Overlay)
	assert.Equal(t, want.Server, cfg.Server)
	assert.Equal(t, want.Cache, cfg.Cache)
	assert.Equal(t, want.Limits, cfg.Limits)
	assert.Empty(t, loader.GetConfigFileUsed())
}

func TestLoad_FromSearchPath(t *testing.T) {
	loader, dir := isolate(t)
	content := `
log_level: debug
upscale:
  factor: 4
  filter: lanczos
overlay:
  anchor: top-left
  mode: both
batch:
  workers: 2
  include: ["*.png", "*.jpg"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pixkit.yaml"), []byte(content), 0o600))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.InDelta(t, 4.0, cfg.Upscale.Factor, 1e-9)
	assert.Equal(t, "lanczos", cfg.Upscale.Filter)
	assert.True(t, cfg.Upscale.Sharpen, "unset keys keep defaults")
	assert.Equal(t, "top-left", cfg.Overlay.Anchor)
	assert.Equal(t, "both", cfg.Overlay.Mode)
	assert.Equal(t, 2, cfg.Batch.Workers)
	assert.Equal(t, []string{"*.png", "*.jpg"}, cfg.Batch.Include)
	assert.Equal(t, "pixkit.yaml", filepath.Base(loader.GetConfigFileUsed()))
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	loader, _ := isolate(t)
	t.Setenv("PIXKIT_SERVER_PORT", "9090")
	t.Setenv("PIXKIT_MATTE_TOLERANCE", "55")
	t.Setenv("PIXKIT_OVERLAY_FONT_SCALE", "1.5")

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 55, cfg.Matte.Tolerance)
	assert.InDelta(t, 1.5, cfg.Overlay.FontScale, 1e-9)
}

func TestLoad_InvalidValueFailsValidation(t *testing.T) {
	loader, _ := isolate(t)
	t.Setenv("PIXKIT_MATTE_TOLERANCE", "300")

	_, err := loader.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")

	cfg, err := NewLoaderWith(viper.New()).LoadWithoutValidation()
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Matte.Tolerance)
}

func TestLoadWithFile(t *testing.T) {
	loader, dir := isolate(t)
	path := filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  format: webp\n  quality: 0.5\n"), 0o600))

	cfg, err := loader.LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "webp", cfg.Output.Format)
	assert.InDelta(t, 0.5, cfg.Output.Quality, 1e-9)
	assert.Equal(t, path, loader.GetConfigFileUsed())
}

func TestLoadWithFile_Errors(t *testing.T) {
	loader, dir := isolate(t)

	_, err := loader.LoadWithFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("upscale: [unclosed"), 0o600))
	_, err = NewLoaderWith(viper.New()).LoadWithFileWithoutValidation(broken)
	require.Error(t, err)
}

func TestLoaderAccessors(t *testing.T) {
	loader, _ := isolate(t)
	_, err := loader.Load()
	require.NoError(t, err)

	loader.Set("overlay.bg_color", "#112233")
	assert.Equal(t, "#112233", loader.GetString("overlay.bg_color"))
	assert.Equal(t, "#112233", loader.Get("overlay.bg_color"))

	settings := loader.GetResolvedConfig()
	assert.Contains(t, settings, "server")
	assert.Contains(t, settings, "overlay")

	var buf bytes.Buffer
	loader.PrintConfigInfo(&buf)
	assert.Contains(t, buf.String(), "Environment prefix: PIXKIT")
}

func TestGenerateDefaultConfigFile_RoundTrips(t *testing.T) {
	_, dir := isolate(t)
	path := filepath.Join(dir, "out.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	data, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	assert.Contains(t, parsed, "upscale")
	assert.Contains(t, parsed, "batch")

	cfg, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Overlay, cfg.Overlay)

	require.Error(t, GenerateDefaultConfigFile(path), "existing files are not overwritten")
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("HOME", "/home/someone")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := GetConfigSearchPaths()
	assert.Equal(t, []string{".", "/home/someone", "/xdg/pixkit", "/etc/pixkit"}, paths)
}
