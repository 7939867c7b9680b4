package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TextImageConfig holds configuration for generating text images.
type TextImageConfig struct {
	Text       string
	Width      int
	Height     int
	Background color.Color
	Foreground color.Color
	FontFace   font.Face
	Rotation   float64 // degrees, counter-clockwise
}

// DefaultTextImageConfig returns black basicfont text on white.
func DefaultTextImageConfig() TextImageConfig {
	return TextImageConfig{
		Text:       "pixkit",
		Width:      320,
		Height:     120,
		Background: color.White,
		Foreground: color.Black,
		FontFace:   basicfont.Face7x13,
	}
}

// GenerateTextImage renders centered single-line text.
func GenerateTextImage(config TextImageConfig) *image.NRGBA {
	img := Solid(config.Width, config.Height, config.Background)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{config.Foreground},
		Face: config.FontFace,
	}
	textWidth := font.MeasureString(config.FontFace, config.Text).Ceil()
	textHeight := config.FontFace.Metrics().Height.Ceil()
	drawer.Dot = fixed.P((config.Width-textWidth)/2, (config.Height+textHeight)/2)
	drawer.DrawString(config.Text)

	if config.Rotation != 0 {
		return imaging.Rotate(img, config.Rotation, config.Background)
	}
	return img
}

// Solid returns an opaque image filled with c.
func Solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// FillRect paints r onto img.
func FillRect(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, &image.Uniform{c}, image.Point{}, draw.Src)
}

// Gradient returns an opaque image whose red channel ramps left to right and
// green channel top to bottom.
func Gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(w-1, 1)), //nolint:gosec // bounded by 255
				G: uint8(y * 255 / max(h-1, 1)), //nolint:gosec // bounded by 255
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// SaveImage writes img as PNG, creating parent directories.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()
	require.NoError(t, WritePNG(path, img), "Failed to write %s", path)
}

// WritePNG writes img as PNG, creating parent directories.
func WritePNG(path string, img image.Image) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := os.Create(path) //nolint:gosec // G304: caller-controlled path
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadImage decodes an image file.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	file, err := os.Open(path) //nolint:gosec // G304: Test file reading with controlled path
	require.NoError(t, err, "Failed to open image file %s", path)
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	require.NoError(t, err, "Failed to decode image")

	return img
}

// MaxChannelDiff returns the largest 8-bit per-channel difference between two
// images of equal bounds, or -1 when the bounds differ.
func MaxChannelDiff(a, b image.Image) int {
	if a.Bounds() != b.Bounds() {
		return -1
	}
	worst := 0
	bounds := a.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			ca := color.NRGBAModel.Convert(a.At(x, y)).(color.NRGBA) //nolint:forcetypeassert // model guarantees type
			cb := color.NRGBAModel.Convert(b.At(x, y)).(color.NRGBA) //nolint:forcetypeassert // model guarantees type
			for _, d := range []int{
				absDiff(ca.R, cb.R), absDiff(ca.G, cb.G), absDiff(ca.B, cb.B), absDiff(ca.A, cb.A),
			} {
				worst = max(worst, d)
			}
		}
	}
	return worst
}

func absDiff(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}
