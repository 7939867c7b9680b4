package testutil

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"slices"
)

// Fixture is a named synthetic image with known matte behavior.
type Fixture struct {
	Name        string
	Description string
	Width       int
	Height      int
	// ClearedPixels is how many pixels background removal at the default
	// tolerance makes transparent, or -1 when it is not fixed.
	ClearedPixels int
	generate      func() *image.NRGBA
}

// Image renders a fresh copy of the fixture.
func (f Fixture) Image() *image.NRGBA {
	return f.generate()
}

var (
	paper  = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	ink    = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	accent = color.NRGBA{R: 220, G: 30, B: 30, A: 255}
	studio = color.NRGBA{R: 240, G: 240, B: 240, A: 255}
)

// Fixtures lists every synthetic fixture in a stable order.
func Fixtures() []Fixture {
	return []Fixture{
		{
			Name:          "uniform",
			Description:   "flat light gray, entirely background",
			Width:         64,
			Height:        48,
			ClearedPixels: 64 * 48,
			generate:      func() *image.NRGBA { return Solid(64, 48, studio) },
		},
		{
			Name:          "framed",
			Description:   "red block centered on white",
			Width:         64,
			Height:        48,
			ClearedPixels: 64*48 - 32*24,
			generate: func() *image.NRGBA {
				img := Solid(64, 48, paper)
				FillRect(img, image.Rect(16, 12, 48, 36), accent)
				return img
			},
		},
		{
			Name:          "pocket",
			Description:   "black ring enclosing a white pocket that must survive",
			Width:         64,
			Height:        48,
			ClearedPixels: 64*48 - 32*24,
			generate: func() *image.NRGBA {
				img := Solid(64, 48, paper)
				FillRect(img, image.Rect(16, 12, 48, 36), ink)
				FillRect(img, image.Rect(20, 16, 44, 32), paper)
				return img
			},
		},
		{
			Name:          "text",
			Description:   "basicfont caption on white",
			Width:         320,
			Height:        120,
			ClearedPixels: -1,
			generate:      func() *image.NRGBA { return GenerateTextImage(DefaultTextImageConfig()) },
		},
		{
			Name:          "gradient",
			Description:   "two-axis color ramp for resampling checks",
			Width:         96,
			Height:        64,
			ClearedPixels: -1,
			generate:      func() *image.NRGBA { return Gradient(96, 64) },
		},
	}
}

// FixtureByName looks up a fixture.
func FixtureByName(name string) (Fixture, bool) {
	all := Fixtures()
	i := slices.IndexFunc(all, func(f Fixture) bool { return f.Name == name })
	if i < 0 {
		return Fixture{}, false
	}
	return all[i], true
}

// WriteFixtures renders every fixture into dir as <name>.png and returns the
// written paths.
func WriteFixtures(dir string) ([]string, error) {
	var paths []string
	for _, f := range Fixtures() {
		path := filepath.Join(dir, f.Name+".png")
		if err := WritePNG(path, f.Image()); err != nil {
			return paths, fmt.Errorf("write fixture %s: %w", f.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
