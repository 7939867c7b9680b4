package overlay

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Typeface is a parsed font that can produce faces at any pixel size.
// Faces returned by Face are not safe for concurrent use; the Typeface is.
type Typeface struct {
	font *sfnt.Font
	name string
}

var (
	defaultOnce     sync.Once
	defaultTypeface *Typeface
	errDefault      error
)

// DefaultTypeface returns the embedded Go Regular sans-serif font.
func DefaultTypeface() (*Typeface, error) {
	defaultOnce.Do(func() {
		defaultTypeface, errDefault = ParseTypeface("goregular", goregular.TTF)
	})
	return defaultTypeface, errDefault
}

// ParseTypeface parses TrueType or OpenType font data.
func ParseTypeface(name string, data []byte) (*Typeface, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", name, err)
	}
	return &Typeface{font: f, name: name}, nil
}

// LoadTypeface reads a font file from disk.
func LoadTypeface(path string) (*Typeface, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-selected font file
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	return ParseTypeface(path, data)
}

// Name returns the name the typeface was parsed under.
func (t *Typeface) Name() string { return t.name }

// Face returns a face rendering at size pixels (72 DPI).
func (t *Typeface) Face(size int) (font.Face, error) {
	face, err := opentype.NewFace(t.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create %dpx face: %w", size, err)
	}
	return face, nil
}

// Widest returns the advance width in pixels of the widest line at size.
func (t *Typeface) Widest(lines []string, size int) (float64, error) {
	face, err := t.Face(size)
	if err != nil {
		return 0, err
	}
	defer face.Close()
	return widest(face, lines), nil
}

func widest(face font.Face, lines []string) float64 {
	var w fixed.Int26_6
	for _, l := range lines {
		w = max(w, font.MeasureString(face, l))
	}
	return fixedToFloat(w)
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
