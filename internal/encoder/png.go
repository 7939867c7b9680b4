package encoder

import (
	"image/png"
	"io"

	"github.com/MeKo-Tech/pixkit/internal/surface"
)

// PNGEncoder writes lossless PNG, keeping alpha.
type PNGEncoder struct{}

func (PNGEncoder) Format() string    { return "png" }
func (PNGEncoder) Extension() string { return "png" }
func (PNGEncoder) MIMEType() string  { return "image/png" }
func (PNGEncoder) Available() bool   { return true }

func (PNGEncoder) Encode(w io.Writer, s *surface.Surface, _ Options) error {
	if err := s.Validate(); err != nil {
		return encodeError("png", err)
	}
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(w, s.NRGBA()); err != nil {
		return encodeError("png", err)
	}
	return nil
}
