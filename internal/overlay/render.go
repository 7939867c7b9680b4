// Package overlay composites a caption box with a title and a shortened URL
// onto a surface.
package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/MeKo-Tech/pixkit/internal/surface"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Composite draws the caption described by cfg onto s in place and returns
// s. When no line survives the display mode the surface is not touched.
// A nil typeface selects DefaultTypeface.
func Composite(s *surface.Surface, cfg Config, tf *Typeface) (*surface.Surface, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lines := cfg.Lines()
	if len(lines) == 0 {
		return s, nil
	}
	if tf == nil {
		var err error
		if tf, err = DefaultTypeface(); err != nil {
			return nil, err
		}
	}

	fit, err := FitFont(s.Width, s.Height, cfg.FontScale, cfg.FitPasses, func(size int) (float64, error) {
		return tf.Widest(lines, size)
	})
	if err != nil {
		return nil, err
	}
	anchor, _ := ParseAnchor(string(cfg.Anchor))
	layout := NewLayout(s.Width, s.Height, anchor, fit.FontSize, fit.Widest, lines)

	textColor, _ := ParseColor(cfg.TextColor)
	bg, _ := ParseColor(cfg.BgColor)
	bg.A = uint8(math.Round(cfg.BgOpacity * 255))

	dst := s.NRGBA()
	if bg.A > 0 {
		fillRoundedRect(dst, layout, bg)
	}
	if err := drawLines(dst, layout, tf, textColor); err != nil {
		return nil, err
	}
	return s, nil
}

// fillRoundedRect rasterizes the box into a box-sized coverage mask and
// blends c through it.
func fillRoundedRect(dst draw.Image, l Layout, c color.NRGBA) {
	ox, oy := int(math.Floor(l.X)), int(math.Floor(l.Y))
	fx, fy := float32(l.X-float64(ox)), float32(l.Y-float64(oy))
	mw := int(math.Ceil(l.X+l.Width)) - ox
	mh := int(math.Ceil(l.Y+l.Height)) - oy
	if mw <= 0 || mh <= 0 {
		return
	}

	z := vector.NewRasterizer(mw, mh)
	roundedRectPath(z, fx, fy, float32(l.Width), float32(l.Height), float32(l.Radius))
	mask := image.NewAlpha(image.Rect(0, 0, mw, mh))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	r := image.Rect(ox, oy, ox+mw, oy+mh)
	draw.DrawMask(dst, r, image.NewUniform(c), image.Point{}, mask, image.Point{}, draw.Over)
}

// kappa places cubic control points so a quarter arc approximates a circle.
const kappa = 0.5522847498

func roundedRectPath(z *vector.Rasterizer, x, y, w, h, r float32) {
	r = min(r, w/2, h/2)
	if r < 0 {
		r = 0
	}
	k := r * kappa
	z.MoveTo(x+r, y)
	z.LineTo(x+w-r, y)
	z.CubeTo(x+w-r+k, y, x+w, y+r-k, x+w, y+r)
	z.LineTo(x+w, y+h-r)
	z.CubeTo(x+w, y+h-r+k, x+w-r+k, y+h, x+w-r, y+h)
	z.LineTo(x+r, y+h)
	z.CubeTo(x+r-k, y+h, x, y+h-r+k, x, y+h-r)
	z.LineTo(x, y+r)
	z.CubeTo(x, y+r-k, x+r-k, y, x+r, y)
	z.ClosePath()
}

func drawLines(dst draw.Image, l Layout, tf *Typeface, c color.NRGBA) error {
	face, err := tf.Face(l.FontSize)
	if err != nil {
		return err
	}
	defer face.Close()

	ascent := fixedToFloat(face.Metrics().Ascent)
	d := font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: face}
	for i, line := range l.Lines {
		x, top := l.LineOrigin(i)
		d.Dot = fixed.Point26_6{X: toFixed(x), Y: toFixed(top + ascent)}
		d.DrawString(line)
	}
	return nil
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
