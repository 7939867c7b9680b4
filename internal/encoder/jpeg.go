package encoder

import (
	"image"
	"image/color"
	"image/jpeg"
	"io"

	"github.com/MeKo-Tech/pixkit/internal/surface"
	"github.com/disintegration/imaging"
)

// JPEGEncoder writes baseline JPEG. Transparent pixels are composited onto
// black first, matching what a browser canvas export produces.
type JPEGEncoder struct{}

func (JPEGEncoder) Format() string    { return "jpeg" }
func (JPEGEncoder) Extension() string { return "jpg" }
func (JPEGEncoder) MIMEType() string  { return "image/jpeg" }
func (JPEGEncoder) Available() bool   { return true }

func (JPEGEncoder) Encode(w io.Writer, s *surface.Surface, opts Options) error {
	if err := s.Validate(); err != nil {
		return encodeError("jpeg", err)
	}
	if err := opts.Validate(); err != nil {
		return encodeError("jpeg", err)
	}
	if err := jpeg.Encode(w, Flatten(s, color.Black), &jpeg.Options{Quality: opts.percent()}); err != nil {
		return encodeError("jpeg", err)
	}
	return nil
}

// Flatten composites s over an opaque background color.
func Flatten(s *surface.Surface, bg color.Color) image.Image {
	canvas := imaging.New(s.Width, s.Height, bg)
	return imaging.Overlay(canvas, s.NRGBA(), image.Pt(0, 0), 1.0)
}
