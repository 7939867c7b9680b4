// Package resample implements progressive magnification of pixel surfaces.
//
// Large factors are applied as a sequence of steps of at most 2x; each step
// is a full high-quality resample of the previous one.
package resample

import (
	"fmt"
	"math"
	"strings"

	"github.com/MeKo-Tech/pixkit/internal/surface"
	"github.com/MeKo-Tech/pixkit/internal/utils"
	"github.com/disintegration/imaging"
)

// MaxStep is the largest magnification applied in a single step.
const MaxStep = 2.0

// epsilon keeps floating-point residue from triggering a no-op extra step.
const epsilon = 1e-9

// Filter names accepted by Options.Filter.
const (
	FilterCatmullRom = "catmullrom"
	FilterLanczos    = "lanczos"
	FilterLinear     = "linear"
	FilterBox        = "box"
)

// Options control how each step is resampled.
type Options struct {
	// Filter is the interpolation kernel used by every step.
	Filter string
}

// DefaultOptions returns bicubic (Catmull-Rom) stepping.
func DefaultOptions() Options {
	return Options{Filter: FilterCatmullRom}
}

// Filters lists the supported filter names.
func Filters() []string {
	return []string{FilterCatmullRom, FilterLanczos, FilterLinear, FilterBox}
}

// ParseFilter resolves a filter name to an imaging kernel.
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FilterCatmullRom, "bicubic":
		return imaging.CatmullRom, nil
	case FilterLanczos:
		return imaging.Lanczos, nil
	case FilterLinear, "bilinear":
		return imaging.Linear, nil
	case FilterBox, "area":
		return imaging.Box, nil
	default:
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resample filter %q (want one of %s)",
			name, strings.Join(Filters(), ", "))
	}
}

// Step is one planned magnification.
type Step struct {
	Width  int
	Height int
	Factor float64
}

// Plan computes the sequence of step sizes for magnifying a w x h image by
// factor without touching any pixels. A factor of 1 yields no steps.
//
// Every step but the last is an exact doubling, so rounding happens at most
// once per axis and the final size is round(w*factor) x round(h*factor).
func Plan(w, h int, factor float64) ([]Step, error) {
	if w < 1 || h < 1 {
		return nil, &utils.ImageProcessingError{
			Operation: "upscale",
			Err:       fmt.Errorf("%w: %dx%d", utils.ErrDegenerateImage, w, h),
		}
	}
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor < 1 {
		return nil, &utils.ImageProcessingError{
			Operation: "upscale",
			Err:       fmt.Errorf("%w: factor %v", utils.ErrInvalidScale, factor),
		}
	}

	var steps []Step
	cw, ch := float64(w), float64(h)
	for remaining := factor; remaining > 1+epsilon; {
		step := math.Min(remaining, MaxStep)
		nw, nh := math.Round(cw*step), math.Round(ch*step)
		if nw < 1 || nh < 1 || nw > math.MaxInt32 || nh > math.MaxInt32 {
			return nil, &utils.ImageProcessingError{
				Operation: "upscale",
				Err:       fmt.Errorf("%w: step to %.0fx%.0f", utils.ErrInvalidScale, nw, nh),
			}
		}
		steps = append(steps, Step{Width: int(nw), Height: int(nh), Factor: step})
		cw, ch = nw, nh
		remaining /= step
	}
	return steps, nil
}

// Upscale magnifies s by factor (>= 1) and returns the result. A factor of 1
// returns s itself, not a copy, so in-place work on the result (sharpening,
// matting) also changes s. Larger factors leave s unchanged and return a new
// surface.
func Upscale(s *surface.Surface, factor float64, opts Options) (*surface.Surface, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	filter, err := ParseFilter(opts.Filter)
	if err != nil {
		return nil, &utils.ImageProcessingError{Operation: "upscale", Err: err}
	}
	steps, err := Plan(s.Width, s.Height, factor)
	if err != nil {
		return nil, err
	}

	current := s
	for _, st := range steps {
		current = surface.FromNRGBA(imaging.Resize(current.NRGBA(), st.Width, st.Height, filter))
	}
	return current, nil
}

// ToLongSide returns the factor that brings the longer side of a w x h image
// to target, or 1 when it is already at least that long.
func ToLongSide(w, h, target int) float64 {
	long := max(w, h)
	if long <= 0 || long >= target {
		return 1
	}
	return float64(target) / float64(long)
}
