package overlay

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linear(perPx float64) MeasureFunc {
	return func(size int) (float64, error) { return float64(size) * perPx, nil }
}

func TestBaseFontSize(t *testing.T) {
	assert.Equal(t, 20, BaseFontSize(100, 100), "floored at 20")
	assert.Equal(t, 60, BaseFontSize(1000, 2000))
	assert.Equal(t, 30, BaseFontSize(500, 1000))
}

func TestAllowedWidth(t *testing.T) {
	assert.InDelta(t, 500.0, AllowedWidth(1000, 1), 1e-9)
	assert.InDelta(t, 400.0, AllowedWidth(1000, 0.5), 1e-9)
	assert.InDelta(t, 700.0, AllowedWidth(1000, 2), 1e-9)
	assert.InDelta(t, 900.0, AllowedWidth(1000, 5), 1e-9, "capped at 0.9")
}

func TestFitFont_NoShrinkWhenFits(t *testing.T) {
	fit, err := FitFont(1000, 500, 1, 1, linear(10))
	require.NoError(t, err)
	assert.Equal(t, 30, fit.FontSize)
	assert.InDelta(t, 300.0, fit.Widest, 1e-9)
	assert.Zero(t, fit.Passes)
}

func TestFitFont_ShrinksProportionally(t *testing.T) {
	fit, err := FitFont(1000, 500, 1, 1, linear(20))
	require.NoError(t, err)
	// 30px measures 600 > 500, so 30*500/600 = 25
	assert.Equal(t, 25, fit.FontSize)
	assert.InDelta(t, 500.0, fit.Widest, 1e-9)
	assert.Equal(t, 1, fit.Passes)
}

func TestFitFont_SinglePassMayStillOverflow(t *testing.T) {
	fit, err := FitFont(1000, 500, 1, 1, linear(40))
	require.NoError(t, err)
	// 30*500/1200 = 12.5 -> 13, which still measures 520
	assert.Equal(t, 13, fit.FontSize)
	assert.Greater(t, fit.Widest, fit.Allowed)
}

func TestFitFont_ExtraPassesConverge(t *testing.T) {
	measure := func(size int) (float64, error) {
		// sublinear growth so one proportional shrink is not enough
		return 100 * math.Sqrt(float64(size)), nil
	}
	one, err := FitFont(1000, 500, 1, 1, measure)
	require.NoError(t, err)
	more, err := FitFont(1000, 500, 1, 5, measure)
	require.NoError(t, err)
	assert.Greater(t, one.Widest, one.Allowed)
	assert.Equal(t, 27, one.FontSize)
	assert.Equal(t, 25, more.FontSize)
	assert.Equal(t, 3, more.Passes)
	assert.LessOrEqual(t, more.Widest, more.Allowed)
}

func TestFitFont_FloorsAtMinimum(t *testing.T) {
	fit, err := FitFont(1000, 500, 1, 3, linear(1000))
	require.NoError(t, err)
	assert.Equal(t, MinFontSize, fit.FontSize)
}

func TestFitFont_ScaleFloor(t *testing.T) {
	fit, err := FitFont(100, 100, 0.5, 1, linear(1))
	require.NoError(t, err)
	assert.Equal(t, MinFontSize, fit.FontSize, "20*0.5 = 10 floors at 12")
}

func TestFitFont_MeasureError(t *testing.T) {
	_, err := FitFont(100, 100, 1, 1, func(int) (float64, error) { return 0, errors.New("boom") })
	require.Error(t, err)
}
