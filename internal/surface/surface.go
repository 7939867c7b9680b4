// Package surface defines the RGBA pixel surface shared by every transform.
//
// A Surface owns a contiguous, non-premultiplied RGBA buffer laid out row by
// row from the top. Transforms take an owned surface and return an owned
// surface; when a transform works in place the returned pointer is the input.
package surface

import (
	"fmt"
	"image"

	"github.com/MeKo-Tech/pixkit/internal/utils"
	"github.com/disintegration/imaging"
)

// Surface is a width x height grid of RGBA bytes.
// Invariant: len(Pix) == Width*Height*4 and Width, Height >= 1.
type Surface struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a fully transparent surface.
func New(width, height int) (*Surface, error) {
	if width < 1 || height < 1 {
		return nil, &utils.ImageProcessingError{
			Operation: "allocate",
			Err:       fmt.Errorf("%w: %dx%d", utils.ErrDegenerateImage, width, height),
		}
	}
	return &Surface{Width: width, Height: height, Pix: make([]uint8, width*height*4)}, nil
}

// FromImage copies any image into a new surface.
func FromImage(img image.Image) (*Surface, error) {
	if img == nil {
		return nil, &utils.ImageProcessingError{Operation: "convert", Err: utils.ErrDegenerateImage}
	}
	b := img.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		return nil, &utils.ImageProcessingError{
			Operation: "convert",
			Err:       fmt.Errorf("%w: %dx%d", utils.ErrDegenerateImage, b.Dx(), b.Dy()),
		}
	}
	return FromNRGBA(imaging.Clone(img)), nil
}

// FromNRGBA adopts an NRGBA image without copying when its rows are packed,
// and compacts them otherwise. The image must not be used afterwards.
func FromNRGBA(img *image.NRGBA) *Surface {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	rowLen := w * 4
	if img.Stride == rowLen && len(img.Pix) == rowLen*h {
		return &Surface{Width: w, Height: h, Pix: img.Pix}
	}
	pix := make([]uint8, rowLen*h)
	for y := range h {
		src := img.Pix[y*img.Stride : y*img.Stride+rowLen]
		copy(pix[y*rowLen:], src)
	}
	return &Surface{Width: w, Height: h, Pix: pix}
}

// NRGBA returns an image view that shares the surface's buffer. Drawing into
// the view mutates the surface.
func (s *Surface) NRGBA() *image.NRGBA {
	return &image.NRGBA{Pix: s.Pix, Stride: s.Width * 4, Rect: image.Rect(0, 0, s.Width, s.Height)}
}

// Clone returns a deep copy.
func (s *Surface) Clone() *Surface {
	pix := make([]uint8, len(s.Pix))
	copy(pix, s.Pix)
	return &Surface{Width: s.Width, Height: s.Height, Pix: pix}
}

// Validate checks the buffer invariant.
func (s *Surface) Validate() error {
	if s == nil || s.Width < 1 || s.Height < 1 {
		return &utils.ImageProcessingError{Operation: "validate", Err: utils.ErrDegenerateImage}
	}
	if len(s.Pix) != s.Width*s.Height*4 {
		return &utils.ImageProcessingError{
			Operation: "validate",
			Err:       fmt.Errorf("buffer length %d, want %d", len(s.Pix), s.Width*s.Height*4),
		}
	}
	return nil
}

// Offset returns the index of the R byte of pixel (x, y).
func (s *Surface) Offset(x, y int) int {
	return (y*s.Width + x) * 4
}

// Index returns the row-major pixel index of (x, y).
func (s *Surface) Index(x, y int) int {
	return y*s.Width + x
}

// RGB returns the color triple of the pixel with row-major index i.
func (s *Surface) RGB(i int) Color3 {
	o := i * 4
	return Color3{R: s.Pix[o], G: s.Pix[o+1], B: s.Pix[o+2]}
}

// Alpha returns the alpha byte of the pixel with row-major index i.
func (s *Surface) Alpha(i int) uint8 {
	return s.Pix[i*4+3]
}

// SetAlpha sets the alpha byte of the pixel with row-major index i.
func (s *Surface) SetAlpha(i int, a uint8) {
	s.Pix[i*4+3] = a
}

// Neighbors4 appends the in-bounds orthogonal neighbors of pixel index i to
// dst and returns it. Order: up, down, left, right.
func (s *Surface) Neighbors4(dst []int, i int) []int {
	x, y := i%s.Width, i/s.Width
	if y > 0 {
		dst = append(dst, i-s.Width)
	}
	if y < s.Height-1 {
		dst = append(dst, i+s.Width)
	}
	if x > 0 {
		dst = append(dst, i-1)
	}
	if x < s.Width-1 {
		dst = append(dst, i+1)
	}
	return dst
}

// LongSide returns max(Width, Height).
func (s *Surface) LongSide() int {
	return max(s.Width, s.Height)
}

// Bounds mirrors image.Image for callers that mix surfaces and images.
func (s *Surface) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.Width, s.Height)
}

// Equal reports whether two surfaces have identical dimensions and bytes.
func (s *Surface) Equal(o *Surface) bool {
	if s.Width != o.Width || s.Height != o.Height || len(s.Pix) != len(o.Pix) {
		return false
	}
	for i := range s.Pix {
		if s.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}
