package overlay

import (
	"testing"

	"github.com/MeKo-Tech/pixkit/internal/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whiteSurface(t *testing.T, w, h int) *surface.Surface {
	t.Helper()
	s, err := surface.New(w, h)
	require.NoError(t, err)
	for i := range s.Pix {
		s.Pix[i] = 255
	}
	return s
}

func layoutFor(t *testing.T, s *surface.Surface, cfg Config) Layout {
	t.Helper()
	tf, err := DefaultTypeface()
	require.NoError(t, err)
	lines := cfg.Lines()
	fit, err := FitFont(s.Width, s.Height, cfg.FontScale, cfg.FitPasses, func(size int) (float64, error) {
		return tf.Widest(lines, size)
	})
	require.NoError(t, err)
	return NewLayout(s.Width, s.Height, cfg.Anchor, fit.FontSize, fit.Widest, lines)
}

func TestComposite_EmptyURLIsNoOp(t *testing.T) {
	s := whiteSurface(t, 200, 100)
	want := s.Clone()

	cfg := DefaultConfig()
	cfg.Mode = ModeURL
	cfg.Title = ""
	cfg.URL = ""

	got, err := Composite(s, cfg, nil)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.True(t, want.Equal(got))
}

func TestComposite_TitleOnlyIgnoresURLInTitleMode(t *testing.T) {
	s := whiteSurface(t, 200, 100)
	want := s.Clone()
	cfg := DefaultConfig()
	cfg.URL = "https://example.com"
	_, err := Composite(s, cfg, nil)
	require.NoError(t, err)
	assert.True(t, want.Equal(s))
}

func TestComposite_DrawsBoxAtAnchor(t *testing.T) {
	s := whiteSurface(t, 400, 300)
	cfg := DefaultConfig()
	cfg.Title = "Hello"

	l := layoutFor(t, s, cfg)
	_, err := Composite(s, cfg, nil)
	require.NoError(t, err)

	// left padding strip of the box holds only the background blend
	px := s.Offset(int(l.X+l.Padding/2), int(l.Y+l.Height/2))
	assert.InDelta(t, 153, int(s.Pix[px]), 2, "black at 0.4 opacity over white")
	assert.Equal(t, uint8(255), s.Pix[px+3])

	far := s.Offset(5, 5)
	assert.Equal(t, []uint8{255, 255, 255, 255}, s.Pix[far:far+4])

	assert.Greater(t, l.X, 200.0, "box sits on the right")
	assert.Greater(t, l.Y, 150.0, "box sits at the bottom")
}

func TestComposite_DrawsText(t *testing.T) {
	s := whiteSurface(t, 400, 300)
	cfg := DefaultConfig()
	cfg.Anchor = TopLeft
	cfg.Title = "Hello World"
	cfg.BgOpacity = 0
	cfg.TextColor = "#FF0000"

	l := layoutFor(t, s, cfg)
	_, err := Composite(s, cfg, nil)
	require.NoError(t, err)

	reddish := 0
	for y := int(l.Y); y < int(l.Y+l.Height); y++ {
		for x := int(l.X); x < int(l.X+l.Width); x++ {
			o := s.Offset(x, y)
			if s.Pix[o] > 200 && s.Pix[o+1] < 100 {
				reddish++
			}
		}
	}
	assert.Positive(t, reddish)

	br := s.Offset(399, 299)
	assert.Equal(t, []uint8{255, 255, 255, 255}, s.Pix[br:br+4])
}

func TestComposite_TransparentCanvasGetsOpaqueText(t *testing.T) {
	s, err := surface.New(300, 200)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Title = "Caption"
	cfg.BgOpacity = 1

	_, err = Composite(s, cfg, nil)
	require.NoError(t, err)

	l := layoutFor(t, s, cfg)
	o := s.Offset(int(l.X+l.Padding/2), int(l.Y+l.Height/2))
	assert.Equal(t, uint8(255), s.Pix[o+3])
}

func TestComposite_Errors(t *testing.T) {
	s := whiteSurface(t, 10, 10)
	cfg := DefaultConfig()
	cfg.Title = "x"
	cfg.Anchor = "center"
	_, err := Composite(s, cfg, nil)
	require.Error(t, err)

	_, err = Composite(&surface.Surface{Width: 1, Height: 1}, DefaultConfig(), nil)
	require.Error(t, err)
}

func TestComposite_TinyImage(t *testing.T) {
	s := whiteSurface(t, 8, 8)
	cfg := DefaultConfig()
	cfg.Title = "A very long caption that cannot fit"
	got, err := Composite(s, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Width)
}

func TestTypeface_WidestGrowsWithSize(t *testing.T) {
	tf, err := DefaultTypeface()
	require.NoError(t, err)
	small, err := tf.Widest([]string{"abc", "abcdef"}, 12)
	require.NoError(t, err)
	large, err := tf.Widest([]string{"abc", "abcdef"}, 48)
	require.NoError(t, err)
	assert.Positive(t, small)
	assert.Greater(t, large, small*3)
	assert.Equal(t, "goregular", tf.Name())
}

func TestParseTypeface_Invalid(t *testing.T) {
	_, err := ParseTypeface("junk", []byte("not a font"))
	require.Error(t, err)
	_, err = LoadTypeface("/does/not/exist.ttf")
	require.Error(t, err)
}
