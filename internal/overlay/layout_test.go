package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLayout_Geometry(t *testing.T) {
	l := NewLayout(1000, 800, TopLeft, 20, 300, []string{"a", "b"})
	assert.InDelta(t, 12.0, l.Padding, 1e-9)
	assert.InDelta(t, 28.0, l.LineHeight, 1e-9)
	assert.InDelta(t, 6.0, l.Radius, 1e-9)
	assert.InDelta(t, 324.0, l.Width, 1e-9)
	assert.InDelta(t, 2*28.0+24, l.Height, 1e-9)
}

func TestNewLayout_Anchors(t *testing.T) {
	const w, h = 1000, 800
	tests := []struct {
		anchor Anchor
		x, y   float64
	}{
		{TopLeft, 12, 12},
		{TopRight, 1000 - 124 - 12, 12},
		{BottomLeft, 12, 800 - 52 - 12},
		{BottomRight, 1000 - 124 - 12, 800 - 52 - 12},
	}
	for _, tt := range tests {
		t.Run(string(tt.anchor), func(t *testing.T) {
			l := NewLayout(w, h, tt.anchor, 20, 100, []string{"x"})
			assert.InDelta(t, tt.x, l.X, 1e-9)
			assert.InDelta(t, tt.y, l.Y, 1e-9)
		})
	}
}

func TestLayout_LineOrigin(t *testing.T) {
	l := NewLayout(1000, 800, TopLeft, 10, 50, []string{"a", "b", "c"})
	x, y := l.LineOrigin(2)
	assert.InDelta(t, 6.0+6.0, x, 1e-9)
	assert.InDelta(t, 6.0+6.0+2*14.0, y, 1e-9)
}
