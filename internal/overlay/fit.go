package overlay

import "math"

const (
	// MinFontSize is the floor for every font size the fit policy picks.
	MinFontSize = 12
	// MinBaseFontSize is the floor for the size derived from the short side.
	MinBaseFontSize = 20
	baseFontRatio   = 0.06
)

// MeasureFunc returns the pixel width of the widest line at a font size.
type MeasureFunc func(size int) (float64, error)

// Fit is the outcome of the font fit policy.
type Fit struct {
	FontSize int
	Widest   float64
	Allowed  float64
	Passes   int
}

// BaseFontSize derives the unscaled font size from the image's short side.
func BaseFontSize(width, height int) int {
	return max(roundHalfUp(float64(min(width, height))*baseFontRatio), MinBaseFontSize)
}

// AllowedWidth is the widest a caption line may be before the font shrinks.
func AllowedWidth(width int, fontScale float64) float64 {
	return float64(width) * math.Min(0.3+0.2*fontScale, 0.9)
}

// FitFont picks the caption font size. It starts from the scaled base size
// and, while the widest line exceeds the allowed width, shrinks the size in
// proportion and re-measures, at most passes times (at least once).
func FitFont(width, height int, fontScale float64, passes int, measure MeasureFunc) (Fit, error) {
	if passes < 1 {
		passes = 1
	}
	size := max(roundHalfUp(float64(BaseFontSize(width, height))*fontScale), MinFontSize)
	widest, err := measure(size)
	if err != nil {
		return Fit{}, err
	}
	fit := Fit{FontSize: size, Widest: widest, Allowed: AllowedWidth(width, fontScale)}

	for fit.Passes < passes && fit.Widest > fit.Allowed {
		next := max(roundHalfUp(float64(fit.FontSize)*fit.Allowed/fit.Widest), MinFontSize)
		if next == fit.FontSize {
			break
		}
		w, err := measure(next)
		if err != nil {
			return Fit{}, err
		}
		fit.FontSize, fit.Widest = next, w
		fit.Passes++
	}
	return fit, nil
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
