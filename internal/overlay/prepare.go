package overlay

import (
	"github.com/MeKo-Tech/pixkit/internal/resample"
	"github.com/MeKo-Tech/pixkit/internal/sharpen"
	"github.com/MeKo-Tech/pixkit/internal/surface"
)

// DefaultMinLongSide is the working resolution captions are laid out at.
const DefaultMinLongSide = 1920

// PrepareOptions controls Prepare.
type PrepareOptions struct {
	MinLongSide   int
	Filter        string
	SharpenAmount float64
}

// DefaultPrepareOptions upscales to a 1920px long side with CatmullRom and
// sharpens with sharpen.DefaultAmount.
func DefaultPrepareOptions() PrepareOptions {
	return PrepareOptions{
		MinLongSide:   DefaultMinLongSide,
		Filter:        resample.FilterCatmullRom,
		SharpenAmount: sharpen.DefaultAmount,
	}
}

// Prepare returns s unchanged when its long side already reaches
// opts.MinLongSide; otherwise it upscales s so the long side equals
// opts.MinLongSide and sharpens the result.
func Prepare(s *surface.Surface, opts PrepareOptions) (*surface.Surface, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	target := opts.MinLongSide
	if target <= 0 {
		target = DefaultMinLongSide
	}
	if s.LongSide() >= target {
		return s, nil
	}

	factor := resample.ToLongSide(s.Width, s.Height, target)
	out, err := resample.Upscale(s, factor, resample.Options{Filter: opts.Filter})
	if err != nil {
		return nil, err
	}
	return sharpen.UnsharpMask(out, opts.SharpenAmount), nil
}
