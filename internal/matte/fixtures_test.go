package matte

import (
	"testing"

	"github.com/MeKo-Tech/pixkit/internal/surface"
	"github.com/MeKo-Tech/pixkit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveBackground_Fixtures(t *testing.T) {
	for _, f := range testutil.Fixtures() {
		if f.ClearedPixels < 0 {
			continue
		}
		t.Run(f.Name, func(t *testing.T) {
			s := surface.FromNRGBA(f.Image())
			out, stats, err := RemoveBackgroundStats(s, DefaultTolerance)
			require.NoError(t, err)
			assert.Equal(t, f.ClearedPixels, stats.Cleared)
			assert.Equal(t, f.Width*f.Height, stats.TotalPixels)

			transparent := 0
			for i := range out.Width * out.Height {
				if out.Alpha(i) == 0 {
					transparent++
				}
			}
			assert.Equal(t, f.ClearedPixels, transparent)
		})
	}
}
