package overlay

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/MeKo-Tech/pixkit/internal/utils"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/text/unicode/norm"
)

// Anchor is the corner of the image the caption box is attached to.
type Anchor string

const (
	BottomRight Anchor = "bottom-right"
	BottomLeft  Anchor = "bottom-left"
	TopRight    Anchor = "top-right"
	TopLeft     Anchor = "top-left"
)

// Anchors lists every supported anchor corner.
func Anchors() []Anchor {
	return []Anchor{BottomRight, BottomLeft, TopRight, TopLeft}
}

// ParseAnchor accepts the hyphenated corner names, case-insensitively.
func ParseAnchor(s string) (Anchor, error) {
	a := Anchor(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case BottomRight, BottomLeft, TopRight, TopLeft:
		return a, nil
	case "":
		return BottomRight, nil
	}
	return "", fmt.Errorf("unknown anchor %q (want one of bottom-right, bottom-left, top-right, top-left)", s)
}

// DisplayMode selects which text lines the caption shows.
type DisplayMode string

const (
	ModeTitle DisplayMode = "title"
	ModeURL   DisplayMode = "url"
	ModeBoth  DisplayMode = "both"
)

// ParseDisplayMode accepts title, url or both.
func ParseDisplayMode(s string) (DisplayMode, error) {
	m := DisplayMode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeTitle, ModeURL, ModeBoth:
		return m, nil
	case "":
		return ModeTitle, nil
	}
	return "", fmt.Errorf("unknown display mode %q (want title, url or both)", s)
}

const (
	MinFontScale = 0.5
	MaxFontScale = 2.0
)

// Config describes one caption. It is not modified by Composite.
type Config struct {
	Title     string
	URL       string
	Anchor    Anchor
	Mode      DisplayMode
	FontScale float64
	BgOpacity float64
	// TextColor and BgColor are hex colors such as "#FFFFFF" or "#000".
	TextColor string
	BgColor   string
	// FitPasses bounds the measure-shrink-remeasure loop. Zero means one pass.
	FitPasses int
	// URLMaxLen is the display budget for the URL line in characters.
	// Zero means DefaultURLMaxLen.
	URLMaxLen int
}

// DefaultConfig returns a bottom-right, title-only caption in white text on a
// 40% black box.
func DefaultConfig() Config {
	return Config{
		Anchor:    BottomRight,
		Mode:      ModeTitle,
		FontScale: 1.0,
		BgOpacity: 0.4,
		TextColor: "#FFFFFF",
		BgColor:   "#000000",
		FitPasses: 1,
		URLMaxLen: DefaultURLMaxLen,
	}
}

// Validate rejects values outside the documented ranges.
func (c Config) Validate() error {
	if _, err := ParseAnchor(string(c.Anchor)); err != nil {
		return &utils.ImageProcessingError{Operation: "overlay", Err: err}
	}
	if _, err := ParseDisplayMode(string(c.Mode)); err != nil {
		return &utils.ImageProcessingError{Operation: "overlay", Err: err}
	}
	if c.FontScale < MinFontScale || c.FontScale > MaxFontScale {
		return &utils.ImageProcessingError{
			Operation: "overlay",
			Err:       fmt.Errorf("font scale %v outside %v..%v", c.FontScale, MinFontScale, MaxFontScale),
		}
	}
	if c.BgOpacity < 0 || c.BgOpacity > 1 {
		return &utils.ImageProcessingError{
			Operation: "overlay",
			Err:       fmt.Errorf("background opacity %v outside 0..1", c.BgOpacity),
		}
	}
	if _, err := ParseColor(c.TextColor); err != nil {
		return &utils.ImageProcessingError{Operation: "overlay", Err: fmt.Errorf("text color: %w", err)}
	}
	if _, err := ParseColor(c.BgColor); err != nil {
		return &utils.ImageProcessingError{Operation: "overlay", Err: fmt.Errorf("background color: %w", err)}
	}
	if c.FitPasses < 0 {
		return &utils.ImageProcessingError{Operation: "overlay", Err: fmt.Errorf("fit passes %d < 0", c.FitPasses)}
	}
	return nil
}

// Lines returns the text lines selected by the display mode, NFC-normalized,
// with the URL already shortened for display. Empty fields are skipped.
func (c Config) Lines() []string {
	mode, err := ParseDisplayMode(string(c.Mode))
	if err != nil {
		return nil
	}
	var lines []string
	if mode == ModeTitle || mode == ModeBoth {
		if t := norm.NFC.String(c.Title); t != "" {
			lines = append(lines, t)
		}
	}
	if mode == ModeURL || mode == ModeBoth {
		if u := norm.NFC.String(c.URL); u != "" {
			maxLen := c.URLMaxLen
			if maxLen <= 0 {
				maxLen = DefaultURLMaxLen
			}
			lines = append(lines, TruncateURL(u, maxLen))
		}
	}
	return lines
}

// ParseColor converts a hex color into an opaque NRGBA color.
func ParseColor(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(strings.TrimSpace(hex))
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("parse color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
