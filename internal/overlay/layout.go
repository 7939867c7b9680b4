package overlay

// Layout is the caption box geometry in image pixel coordinates.
type Layout struct {
	FontSize   int
	Padding    float64
	LineHeight float64
	Radius     float64
	X, Y       float64
	Width      float64
	Height     float64
	Lines      []string
}

const (
	paddingRatio    = 0.6
	lineHeightRatio = 1.4
	radiusRatio     = 0.3
)

// NewLayout places a box holding lines, whose widest line measures widest
// pixels at fontSize, in the given corner of a width x height image. The
// margin to the image edges equals the padding.
func NewLayout(width, height int, anchor Anchor, fontSize int, widest float64, lines []string) Layout {
	f := float64(fontSize)
	l := Layout{
		FontSize:   fontSize,
		Padding:    f * paddingRatio,
		LineHeight: f * lineHeightRatio,
		Radius:     f * radiusRatio,
		Lines:      lines,
	}
	l.Width = widest + 2*l.Padding
	l.Height = float64(len(lines))*l.LineHeight + 2*l.Padding

	margin := l.Padding
	switch anchor {
	case BottomLeft:
		l.X, l.Y = margin, float64(height)-l.Height-margin
	case TopLeft:
		l.X, l.Y = margin, margin
	case TopRight:
		l.X, l.Y = float64(width)-l.Width-margin, margin
	default:
		l.X, l.Y = float64(width)-l.Width-margin, float64(height)-l.Height-margin
	}
	return l
}

// LineOrigin returns the top-left corner of line i's text.
func (l Layout) LineOrigin(i int) (x, y float64) {
	return l.X + l.Padding, l.Y + l.Padding + float64(i)*l.LineHeight
}
