package testutil

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRootValidated()
	require.NoError(t, err)
	assert.True(t, FileExists(filepath.Join(root, "go.mod")))
	assert.Equal(t, filepath.Join(root, "testdata", "images"), GetTestImageDir(t))
}

func TestValidateProjectRoot_Missing(t *testing.T) {
	require.Error(t, ValidateProjectRoot(t.TempDir()))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	assert.True(t, DirExists(dir))
	assert.False(t, DirExists(filepath.Join(dir, "missing")))
}

func TestFixtures(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range Fixtures() {
		assert.False(t, seen[f.Name], "duplicate fixture %s", f.Name)
		seen[f.Name] = true

		img := f.Image()
		assert.Equal(t, f.Width, img.Bounds().Dx(), f.Name)
		assert.Equal(t, f.Height, img.Bounds().Dy(), f.Name)
		assert.Equal(t, 0, MaxChannelDiff(img, f.Image()), "%s is deterministic", f.Name)
	}

	f, ok := FixtureByName("pocket")
	require.True(t, ok)
	img := f.Image()
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.NRGBAAt(30, 24), "pocket interior")
	assert.Equal(t, color.NRGBA{A: 255}, img.NRGBAAt(17, 13), "ring")

	_, ok = FixtureByName("nope")
	assert.False(t, ok)
}

func TestWriteFixtures(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteFixtures(dir)
	require.NoError(t, err)
	require.Len(t, paths, len(Fixtures()))

	loaded := LoadImage(t, paths[1])
	assert.Equal(t, 0, MaxChannelDiff(loaded, Fixtures()[1].Image()))
}

func TestMaxChannelDiff(t *testing.T) {
	a := Solid(4, 4, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	b := Solid(4, 4, color.NRGBA{R: 10, G: 17, B: 10, A: 255})
	assert.Equal(t, 7, MaxChannelDiff(a, b))
	assert.Equal(t, -1, MaxChannelDiff(a, Solid(4, 5, color.White)))
}

func TestGenerateTextImage(t *testing.T) {
	cfg := DefaultTextImageConfig()
	img := GenerateTextImage(cfg)
	assert.Equal(t, cfg.Width, img.Bounds().Dx())
	assert.Positive(t, MaxChannelDiff(img, Solid(cfg.Width, cfg.Height, color.White)), "text is drawn")

	cfg.Rotation = 90
	rotated := GenerateTextImage(cfg)
	assert.Equal(t, cfg.Height, rotated.Bounds().Dx())
	assert.Equal(t, cfg.Width, rotated.Bounds().Dy())
}

func TestGradient(t *testing.T) {
	img := Gradient(5, 3)
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(255), img.NRGBAAt(4, 0).R)
	assert.Equal(t, uint8(255), img.NRGBAAt(0, 2).G)
}
