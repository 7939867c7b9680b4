package resample

import (
	"math"
	"testing"

	"github.com/MeKo-Tech/pixkit/internal/surface"
	"github.com/MeKo-Tech/pixkit/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(t *testing.T, w, h int) *surface.Surface {
	t.Helper()
	s, err := surface.New(w, h)
	require.NoError(t, err)
	for y := range h {
		for x := range w {
			o := s.Offset(x, y)
			s.Pix[o] = uint8(x * 7)
			s.Pix[o+1] = uint8(y * 5)
			s.Pix[o+2] = uint8((x + y) * 3)
			s.Pix[o+3] = 255
		}
	}
	return s
}

func TestPlan_PowerOfTwo(t *testing.T) {
	steps, err := Plan(100, 50, 4)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, Step{Width: 200, Height: 100, Factor: 2}, steps[0])
	assert.Equal(t, Step{Width: 400, Height: 200, Factor: 2}, steps[1])
}

func TestPlan_FractionalTail(t *testing.T) {
	steps, err := Plan(100, 100, 3)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 200, steps[0].Width)
	assert.InDelta(t, 1.5, steps[1].Factor, 1e-12)
	assert.Equal(t, 300, steps[1].Width)
}

func TestPlan_IdentityHasNoSteps(t *testing.T) {
	steps, err := Plan(10, 10, 1)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestPlan_InvalidScale(t *testing.T) {
	for _, f := range []float64{0.99, 0, -2, math.NaN(), math.Inf(1)} {
		_, err := Plan(10, 10, f)
		require.ErrorIs(t, err, utils.ErrInvalidScale, "factor %v", f)
	}
	_, err := Plan(0, 10, 2)
	require.ErrorIs(t, err, utils.ErrDegenerateImage)
}

func TestPlan_FinalSizeIsRoundedProduct(t *testing.T) {
	steps, err := Plan(7, 3, 3.125)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, Step{Width: 14, Height: 6, Factor: 2}, steps[0])
	assert.Equal(t, int(math.Round(7*3.125)), steps[1].Width)
	assert.Equal(t, int(math.Round(3*3.125)), steps[1].Height)
}

func TestUpscale_Identity(t *testing.T) {
	s := gradient(t, 17, 9)
	want := s.Clone()

	got, err := Upscale(s, 1, DefaultOptions())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.True(t, want.Equal(got))

	got.Pix[0] ^= 0xff
	assert.False(t, want.Equal(s), "the result aliases the input")
}

func TestUpscale_LeavesInputIntact(t *testing.T) {
	s := gradient(t, 17, 9)
	want := s.Clone()

	got, err := Upscale(s, 2, DefaultOptions())
	require.NoError(t, err)
	assert.NotSame(t, s, got)
	got.Pix[0] ^= 0xff
	assert.True(t, want.Equal(s))
}

func TestUpscale_Dimensions(t *testing.T) {
	tests := []struct {
		w, h   int
		factor float64
		ww, wh int
	}{
		{100, 100, 4, 400, 400},
		{100, 100, 2, 200, 200},
		{33, 21, 3, 99, 63},
		{10, 7, 2.5, 25, 18},
	}
	for _, tt := range tests {
		s := gradient(t, tt.w, tt.h)
		got, err := Upscale(s, tt.factor, DefaultOptions())
		require.NoError(t, err)
		require.NoError(t, got.Validate())
		assert.InDelta(t, tt.ww, got.Width, 1)
		assert.InDelta(t, tt.wh, got.Height, 1)
	}
}

func TestUpscale_UniformStaysUniform(t *testing.T) {
	s, err := surface.New(8, 8)
	require.NoError(t, err)
	for i := 0; i < len(s.Pix); i += 4 {
		copy(s.Pix[i:], []uint8{40, 80, 120, 255})
	}

	for _, f := range Filters() {
		got, err := Upscale(s.Clone(), 3, Options{Filter: f})
		require.NoError(t, err, f)
		for i := 0; i < len(got.Pix); i += 4 {
			require.Equal(t, []uint8{40, 80, 120, 255}, got.Pix[i:i+4], "filter %s pixel %d", f, i/4)
		}
	}
}

func TestUpscale_Errors(t *testing.T) {
	s := gradient(t, 4, 4)
	_, err := Upscale(s, 0.5, DefaultOptions())
	require.ErrorIs(t, err, utils.ErrInvalidScale)

	_, err = Upscale(s, 2, Options{Filter: "nope"})
	require.Error(t, err)

	_, err = Upscale(&surface.Surface{Width: 2, Height: 2}, 2, DefaultOptions())
	require.Error(t, err)
}

func TestParseFilter(t *testing.T) {
	for _, name := range append(Filters(), "", "bicubic", "bilinear", "area", " LANCZOS ") {
		_, err := ParseFilter(name)
		require.NoError(t, err, name)
	}
	_, err := ParseFilter("nearest")
	require.Error(t, err)
}

func TestToLongSide(t *testing.T) {
	assert.InDelta(t, 1.0, ToLongSide(2000, 1000, 1920), 0)
	assert.InDelta(t, 1.0, ToLongSide(1920, 10, 1920), 0)
	assert.InDelta(t, 1.92, ToLongSide(1000, 500, 1920), 1e-12)
	assert.InDelta(t, 3.84, ToLongSide(300, 500, 1920), 1e-12)
}
