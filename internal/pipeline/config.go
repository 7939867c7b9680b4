package pipeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/pixkit/internal/encoder"
	"github.com/MeKo-Tech/pixkit/internal/matte"
	"github.com/MeKo-Tech/pixkit/internal/overlay"
	"github.com/MeKo-Tech/pixkit/internal/resample"
	"github.com/MeKo-Tech/pixkit/internal/sharpen"
	"github.com/MeKo-Tech/pixkit/internal/utils"
)

// UpscaleConfig controls the upscale stage.
type UpscaleConfig struct {
	Enabled bool
	Factor  float64
	Filter  string
	Sharpen bool
	Amount  float64
}

// MatteConfig controls the background removal stage.
type MatteConfig struct {
	Enabled   bool
	Tolerance int
}

// AnnotateConfig controls the prepare and caption stages.
type AnnotateConfig struct {
	Enabled bool
	// Prepare upscales small images to MinLongSide before the caption is
	// drawn.
	Prepare     bool
	MinLongSide int
	Overlay     overlay.Config
	// FontPath selects a TrueType/OpenType file; empty uses the built-in face.
	FontPath string
}

// OutputConfig selects the encoder.
type OutputConfig struct {
	Format  string
	Quality float64
}

// Config holds the stage settings of a Pipeline.
type Config struct {
	Upscale     UpscaleConfig
	Matte       MatteConfig
	Annotate    AnnotateConfig
	Output      OutputConfig
	Constraints utils.ImageConstraints
	// CacheEntries bounds the prepared-surface cache; zero disables it.
	CacheEntries int
	CacheBytes   int64
}

// DefaultConfig returns a pipeline that does nothing but encode PNG.
func DefaultConfig() Config {
	return Config{
		Upscale: UpscaleConfig{
			Factor:  1,
			Filter:  resample.FilterCatmullRom,
			Sharpen: true,
			Amount:  sharpen.DefaultAmount,
		},
		Matte: MatteConfig{Tolerance: matte.DefaultTolerance},
		Annotate: AnnotateConfig{
			Prepare:     true,
			MinLongSide: overlay.DefaultMinLongSide,
			Overlay:     overlay.DefaultConfig(),
		},
		Output:      OutputConfig{Format: "png", Quality: encoder.DefaultQuality},
		Constraints: utils.DefaultImageConstraints(),
	}
}

// Validate checks every enabled stage.
func (c Config) Validate() error {
	var errs []error
	if c.Upscale.Enabled {
		if math.IsNaN(c.Upscale.Factor) || c.Upscale.Factor < 1 {
			errs = append(errs, fmt.Errorf("upscale factor %v must be >= 1", c.Upscale.Factor))
		}
		if _, err := resample.ParseFilter(c.Upscale.Filter); err != nil {
			errs = append(errs, err)
		}
		if c.Upscale.Amount < 0 || c.Upscale.Amount > 1 {
			errs = append(errs, fmt.Errorf("sharpen amount %v outside 0..1", c.Upscale.Amount))
		}
	}
	if c.Matte.Enabled && (c.Matte.Tolerance < 0 || c.Matte.Tolerance > matte.MaxTolerance) {
		errs = append(errs, fmt.Errorf("matte tolerance %d outside 0..%d", c.Matte.Tolerance, matte.MaxTolerance))
	}
	if c.Annotate.Enabled {
		if err := c.Annotate.Overlay.Validate(); err != nil {
			errs = append(errs, err)
		}
		if c.Annotate.Prepare && c.Annotate.MinLongSide < 1 {
			errs = append(errs, fmt.Errorf("min long side %d must be positive", c.Annotate.MinLongSide))
		}
	}
	if err := (encoder.Options{Quality: c.Output.Quality}).Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
