package encoder

import (
	"io"

	"github.com/MeKo-Tech/pixkit/internal/pdf"
	"github.com/MeKo-Tech/pixkit/internal/surface"
)

// PDFEncoder wraps the surface into a single-page PDF sized to the image.
type PDFEncoder struct{}

func (PDFEncoder) Format() string    { return "pdf" }
func (PDFEncoder) Extension() string { return "pdf" }
func (PDFEncoder) MIMEType() string  { return "application/pdf" }
func (PDFEncoder) Available() bool   { return true }

func (PDFEncoder) Encode(w io.Writer, s *surface.Surface, _ Options) error {
	if err := s.Validate(); err != nil {
		return encodeError("pdf", err)
	}
	if err := pdf.Write(w, s); err != nil {
		return encodeError("pdf", err)
	}
	return nil
}
