package overlay

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnchor(t *testing.T) {
	for _, a := range Anchors() {
		got, err := ParseAnchor(" " + string(a) + " ")
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	got, err := ParseAnchor("TOP-LEFT")
	require.NoError(t, err)
	assert.Equal(t, TopLeft, got)

	got, err = ParseAnchor("")
	require.NoError(t, err)
	assert.Equal(t, BottomRight, got)

	_, err = ParseAnchor("center")
	require.Error(t, err)
}

func TestParseDisplayMode(t *testing.T) {
	for _, s := range []string{"title", "url", "both", "URL"} {
		_, err := ParseDisplayMode(s)
		require.NoError(t, err, s)
	}
	_, err := ParseDisplayMode("neither")
	require.Error(t, err)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#FFFFFF")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, c)

	c, err = ParseColor("#f00")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, c)

	_, err = ParseColor("white")
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"anchor", func(c *Config) { c.Anchor = "middle" }},
		{"mode", func(c *Config) { c.Mode = "all" }},
		{"scale low", func(c *Config) { c.FontScale = 0.4 }},
		{"scale high", func(c *Config) { c.FontScale = 2.1 }},
		{"opacity", func(c *Config) { c.BgOpacity = 1.5 }},
		{"text color", func(c *Config) { c.TextColor = "nope" }},
		{"bg color", func(c *Config) { c.BgColor = "#12" }},
		{"passes", func(c *Config) { c.FitPasses = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestConfig_Lines(t *testing.T) {
	c := DefaultConfig()
	c.Title = "Tokyo Tower"
	c.URL = "https://ja.wikipedia.org/wiki/Tokyo_Tower_History"

	c.Mode = ModeTitle
	assert.Equal(t, []string{"Tokyo Tower"}, c.Lines())

	c.Mode = ModeURL
	assert.Equal(t, []string{"ja.wikipedia.org/wiki/Tokyo_Tower_Histo…"}, c.Lines())

	c.Mode = ModeBoth
	assert.Len(t, c.Lines(), 2)

	c.Title = ""
	assert.Len(t, c.Lines(), 1)

	c.URL = ""
	assert.Empty(t, c.Lines())
}

func TestConfig_LinesNormalizesNFC(t *testing.T) {
	c := DefaultConfig()
	c.Title = "Café"
	assert.Equal(t, []string{"Café"}, c.Lines())
}
