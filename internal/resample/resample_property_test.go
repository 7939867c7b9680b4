package resample

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func finalSize(steps []Step, w, h int) (int, int) {
	if len(steps) == 0 {
		return w, h
	}
	last := steps[len(steps)-1]
	return last.Width, last.Height
}

// TestPlan_DimensionsWithinOnePixel verifies the per-step rounding never
// drifts more than one pixel from round(size*factor).
func TestPlan_DimensionsWithinOnePixel(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("final size within 1px of rounded product", prop.ForAll(
		func(w, h int, factor float64) bool {
			steps, err := Plan(w, h, factor)
			if err != nil {
				return false
			}
			fw, fh := finalSize(steps, w, h)
			return math.Abs(float64(fw)-math.Round(float64(w)*factor)) <= 1 &&
				math.Abs(float64(fh)-math.Round(float64(h)*factor)) <= 1
		},
		gen.IntRange(1, 2000),
		gen.IntRange(1, 2000),
		gen.Float64Range(1, 8),
	))

	properties.TestingRun(t)
}

// TestPlan_Monotonic verifies larger factors never produce smaller output.
func TestPlan_Monotonic(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("output size non-decreasing in factor", prop.ForAll(
		func(w, h int, f1, delta float64) bool {
			f2 := f1 + delta
			s1, err := Plan(w, h, f1)
			if err != nil {
				return false
			}
			s2, err := Plan(w, h, f2)
			if err != nil {
				return false
			}
			w1, h1 := finalSize(s1, w, h)
			w2, h2 := finalSize(s2, w, h)
			return w2 >= w1 && h2 >= h1
		},
		gen.IntRange(1, 1500),
		gen.IntRange(1, 1500),
		gen.Float64Range(1, 6),
		gen.Float64Range(0, 2),
	))

	properties.TestingRun(t)
}

// TestPlan_StepsBounded verifies no single step exceeds 2x.
func TestPlan_StepsBounded(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("each step at most 2x", prop.ForAll(
		func(factor float64) bool {
			steps, err := Plan(64, 48, factor)
			if err != nil {
				return false
			}
			for _, st := range steps {
				if st.Factor > MaxStep || st.Factor <= 1 {
					return false
				}
			}
			return true
		},
		gen.Float64Range(1, 64),
	))

	properties.TestingRun(t)
}
