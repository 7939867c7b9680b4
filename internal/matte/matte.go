// Package matte removes edge-connected background regions from a surface.
//
// The background color is estimated from the four corners, then a
// breadth-first flood fill seeded from the outer border turns every
// reachable pixel within tolerance transparent. Background-colored pockets
// enclosed by foreground are kept.
package matte

import (
	"fmt"

	"github.com/MeKo-Tech/pixkit/internal/mempool"
	"github.com/MeKo-Tech/pixkit/internal/surface"
	"github.com/MeKo-Tech/pixkit/internal/utils"
)

const (
	// DefaultTolerance is used when the caller leaves tolerance unset.
	DefaultTolerance = 30
	// MaxTolerance is the largest meaningful per-channel distance.
	MaxTolerance = 255
)

// Stats summarizes one RemoveBackground call.
type Stats struct {
	Background  surface.Color3
	Cleared     int
	TotalPixels int
}

// ClearedRatio returns the fraction of pixels made transparent.
func (s Stats) ClearedRatio() float64 {
	if s.TotalPixels == 0 {
		return 0
	}
	return float64(s.Cleared) / float64(s.TotalPixels)
}

// EstimateBackground averages the RGB of the four corner pixels, rounding
// each channel half up.
func EstimateBackground(s *surface.Surface) surface.Color3 {
	w, h := s.Width, s.Height
	corners := [4]int{
		s.Index(0, 0),
		s.Index(w-1, 0),
		s.Index(0, h-1),
		s.Index(w-1, h-1),
	}
	var r, g, b int
	for _, i := range corners {
		c := s.RGB(i)
		r += int(c.R)
		g += int(c.G)
		b += int(c.B)
	}
	return surface.Color3{R: uint8((r + 2) / 4), G: uint8((g + 2) / 4), B: uint8((b + 2) / 4)}
}

// RemoveBackground returns a copy of s whose edge-connected background has
// alpha 0. RGB values are never changed.
func RemoveBackground(s *surface.Surface, tolerance int) (*surface.Surface, error) {
	out, _, err := RemoveBackgroundStats(s, tolerance)
	return out, err
}

// RemoveBackgroundStats is RemoveBackground that also reports what it did.
func RemoveBackgroundStats(s *surface.Surface, tolerance int) (*surface.Surface, Stats, error) {
	if tolerance < 0 || tolerance > MaxTolerance {
		return nil, Stats{}, &utils.ImageProcessingError{
			Operation: "matte",
			Err:       fmt.Errorf("tolerance %d outside 0..%d", tolerance, MaxTolerance),
		}
	}
	if err := s.Validate(); err != nil {
		return nil, Stats{}, err
	}

	out := s.Clone()
	bg := EstimateBackground(out)
	f := newFill(out, bg, tolerance)
	defer f.release()

	w, h := out.Width, out.Height
	for x := range w {
		f.touch(out.Index(x, 0))
		f.touch(out.Index(x, h-1))
	}
	for y := 1; y < h-1; y++ {
		f.touch(out.Index(0, y))
		f.touch(out.Index(w-1, y))
	}
	f.run()

	return out, Stats{Background: bg, Cleared: f.cleared, TotalPixels: w * h}, nil
}

type fill struct {
	s         *surface.Surface
	bg        surface.Color3
	tolerance int
	visited   []bool
	queue     []int32
	cleared   int
}

func newFill(s *surface.Surface, bg surface.Color3, tolerance int) *fill {
	n := s.Width * s.Height
	return &fill{
		s:         s,
		bg:        bg,
		tolerance: tolerance,
		visited:   mempool.GetBool(n),
		queue:     mempool.GetInt32(n),
	}
}

// touch marks pixel i visited; a matching pixel is cleared and queued.
// Non-matching pixels stay visited so they are never examined again.
func (f *fill) touch(i int) {
	if f.visited[i] {
		return
	}
	f.visited[i] = true
	if !f.s.RGB(i).Within(f.bg, f.tolerance) {
		return
	}
	f.s.SetAlpha(i, 0)
	f.cleared++
	f.queue = append(f.queue, int32(i)) //nolint:gosec // pixel counts are bounded by ImageConstraints
}

func (f *fill) run() {
	neighbors := make([]int, 0, 4)
	for head := 0; head < len(f.queue); head++ {
		neighbors = f.s.Neighbors4(neighbors[:0], int(f.queue[head]))
		for _, n := range neighbors {
			f.touch(n)
		}
	}
}

func (f *fill) release() {
	mempool.PutBool(f.visited)
	mempool.PutInt32(f.queue)
}
