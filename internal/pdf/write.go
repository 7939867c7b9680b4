package pdf

import (
	"bytes"
	"fmt"
	"image/png"
	"io"

	"github.com/MeKo-Tech/pixkit/internal/surface"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Write emits a PDF with one page per surface, each page sized to its image.
func Write(w io.Writer, surfaces ...*surface.Surface) error {
	if len(surfaces) == 0 {
		return fmt.Errorf("no pages to write")
	}
	readers := make([]io.Reader, 0, len(surfaces))
	for i, s := range surfaces {
		var buf bytes.Buffer
		if err := png.Encode(&buf, s.NRGBA()); err != nil {
			return fmt.Errorf("encode page %d: %w", i+1, err)
		}
		readers = append(readers, &buf)
	}

	imp := pdfcpu.DefaultImportConfig()
	if err := api.ImportImages(nil, w, readers, imp, model.NewDefaultConfiguration()); err != nil {
		return fmt.Errorf("import images: %w", err)
	}
	return nil
}
