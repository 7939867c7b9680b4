// Package sharpen applies a 3x3 Gaussian unsharp mask to pixel surfaces.
package sharpen

import (
	"math"

	"github.com/MeKo-Tech/pixkit/internal/mempool"
	"github.com/MeKo-Tech/pixkit/internal/surface"
)

// DefaultAmount is the strength used when sharpening follows an upscale.
const DefaultAmount = 0.6

// kernel is the 3x3 Gaussian blur, row-major, normalized by kernelSum.
var kernel = [9]float64{
	1, 2, 1,
	2, 4, 2,
	1, 2, 1,
}

const kernelSum = 16.0

// UnsharpMask sharpens s in place and returns it. Each interior pixel's RGB
// becomes clamp(round(orig + amount*(orig - blur))); the one-pixel border and
// the alpha channel are left untouched. amount is clamped to [0, 1] and an
// amount of 0 leaves s unchanged.
func UnsharpMask(s *surface.Surface, amount float64) *surface.Surface {
	amount = clampAmount(amount)
	if amount == 0 || s.Width < 3 || s.Height < 3 {
		return s
	}

	w, h := s.Width, s.Height
	orig := mempool.GetBytes(len(s.Pix))
	defer mempool.PutBytes(orig)
	copy(orig, s.Pix)

	stride := w * 4
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			idx := y*stride + x*4
			for c := range 3 {
				var blurred float64
				ki := 0
				for ky := -1; ky <= 1; ky++ {
					row := idx + ky*stride + c
					for kx := -1; kx <= 1; kx++ {
						blurred += float64(orig[row+kx*4]) * kernel[ki]
						ki++
					}
				}
				blurred /= kernelSum
				o := float64(orig[idx+c])
				s.Pix[idx+c] = clamp8(roundHalfUp(o + amount*(o-blurred)))
			}
		}
	}
	return s
}

func clampAmount(a float64) float64 {
	if math.IsNaN(a) || a < 0 {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
