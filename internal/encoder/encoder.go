// Package encoder turns finished surfaces into image files.
package encoder

import (
	"fmt"
	"io"
	"math"

	"github.com/MeKo-Tech/pixkit/internal/surface"
	"github.com/MeKo-Tech/pixkit/internal/utils"
)

// DefaultQuality is the lossy quality used when none is requested.
const DefaultQuality = 0.85

// Options tunes a single Encode call.
type Options struct {
	// Quality in [0, 1]; ignored by lossless formats.
	Quality float64
}

// DefaultOptions returns Options with DefaultQuality.
func DefaultOptions() Options {
	return Options{Quality: DefaultQuality}
}

// Validate rejects qualities outside [0, 1].
func (o Options) Validate() error {
	if math.IsNaN(o.Quality) || o.Quality < 0 || o.Quality > 1 {
		return fmt.Errorf("quality %v outside 0..1", o.Quality)
	}
	return nil
}

// percent maps quality onto the 1..100 scale used by jpeg and cwebp.
func (o Options) percent() int {
	return max(1, min(100, int(math.Round(o.Quality*100))))
}

// Encoder writes a surface in one container format.
type Encoder interface {
	// Format returns the canonical format name (png, jpeg, webp, pdf).
	Format() string
	// Extension returns the file extension without dot.
	Extension() string
	// MIMEType returns the Content-Type of the encoded bytes.
	MIMEType() string
	// Available reports whether the encoder can run here. External tools
	// such as cwebp may be missing.
	Available() bool
	// Encode writes s to w.
	Encode(w io.Writer, s *surface.Surface, opts Options) error
}

func encodeError(format string, err error) error {
	return &utils.ImageProcessingError{
		Operation: "encode",
		Err:       fmt.Errorf("%w: %s: %w", utils.ErrEncodeFailure, format, err),
	}
}
