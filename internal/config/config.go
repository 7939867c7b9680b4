package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/pixkit/internal/encoder"
	"github.com/MeKo-Tech/pixkit/internal/matte"
	"github.com/MeKo-Tech/pixkit/internal/overlay"
	"github.com/MeKo-Tech/pixkit/internal/pipeline"
	"github.com/MeKo-Tech/pixkit/internal/resample"
	"github.com/MeKo-Tech/pixkit/internal/sharpen"
	"github.com/MeKo-Tech/pixkit/internal/utils"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	ov := overlay.DefaultConfig()
	limits := utils.DefaultImageConstraints()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Upscale: UpscaleConfig{
			Factor:        2,
			Filter:        resample.FilterCatmullRom,
			Sharpen:       true,
			SharpenAmount: sharpen.DefaultAmount,
		},
		Matte: MatteConfig{Tolerance: matte.DefaultTolerance},
		Overlay: OverlayConfig{
			Anchor:      string(ov.Anchor),
			Mode:        string(ov.Mode),
			FontScale:   ov.FontScale,
			BgOpacity:   ov.BgOpacity,
			TextColor:   ov.TextColor,
			BgColor:     ov.BgColor,
			FitPasses:   ov.FitPasses,
			URLMaxLen:   ov.URLMaxLen,
			Prepare:     true,
			MinLongSide: overlay.DefaultMinLongSide,
		},
		Output: OutputConfig{
			Format:  "png",
			Quality: encoder.DefaultQuality,
		},
		Cache: CacheConfig{
			Entries: 16,
			MaxSize: "256MB",
		},
		Limits: LimitsConfig{
			MaxPixels:       limits.MaxPixels,
			MaxOutputPixels: limits.MaxOutputPixels,
			MaxScale:        limits.MaxScale,
		},
		Server: ServerConfig{
			Host:              "localhost",
			Port:              8080,
			CORSOrigin:        "*",
			MaxUploadMB:       50,
			TimeoutSec:        60,
			ShutdownTimeout:   10,
			RateLimitEnabled:  false,
			RequestsPerMinute: 60,
			RequestsPerHour:   1000,
			MaxRequestsPerDay: 10000,
			MaxDataPerDay:     "1GB",
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: false,
			SummaryFormat:   "text",
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"png", "jpeg", "webp", "pdf"}
	if c.Output.Format != "" && !contains(validFormats, encoder.Normalize(c.Output.Format)) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}
	if err := validateFraction(c.Output.Quality, "output.quality"); err != nil {
		return err
	}

	if c.Upscale.Factor < 1 {
		return fmt.Errorf("invalid upscale factor: %v (must be at least 1)", c.Upscale.Factor)
	}
	if _, err := resample.ParseFilter(c.Upscale.Filter); err != nil {
		return fmt.Errorf("invalid upscale filter: %w", err)
	}
	if err := validateFraction(c.Upscale.SharpenAmount, "upscale.sharpen_amount"); err != nil {
		return err
	}

	if c.Matte.Tolerance < 0 || c.Matte.Tolerance > matte.MaxTolerance {
		return fmt.Errorf("invalid matte tolerance: %d (must be between 0 and %d)", c.Matte.Tolerance, matte.MaxTolerance)
	}

	if err := c.ToOverlayConfig().Validate(); err != nil {
		return err
	}
	if c.Overlay.MinLongSide <= 0 {
		return fmt.Errorf("invalid overlay min long side: %d (must be positive)", c.Overlay.MinLongSide)
	}

	if c.Cache.Entries < 0 {
		return fmt.Errorf("invalid cache entries: %d (must not be negative)", c.Cache.Entries)
	}
	if _, err := ParseByteSize(c.Cache.MaxSize); err != nil {
		return fmt.Errorf("invalid cache max size: %w", err)
	}

	if c.Limits.MaxScale != 0 && c.Limits.MaxScale < 1 {
		return fmt.Errorf("invalid max scale: %v (must be at least 1)", c.Limits.MaxScale)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if _, err := ParseByteSize(c.Server.MaxDataPerDay); err != nil {
		return fmt.Errorf("invalid max data per day: %w", err)
	}

	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	validSummaries := []string{"text", "json", "csv"}
	if c.Batch.SummaryFormat != "" && !contains(validSummaries, c.Batch.SummaryFormat) {
		return fmt.Errorf("invalid batch summary format: %s (must be one of: %s)", c.Batch.SummaryFormat, strings.Join(validSummaries, ", "))
	}

	return nil
}

// ToOverlayConfig converts the overlay section. Title and URL stay empty;
// they are per-request values.
func (c *Config) ToOverlayConfig() overlay.Config {
	return overlay.Config{
		Anchor:    overlay.Anchor(c.Overlay.Anchor),
		Mode:      overlay.DisplayMode(c.Overlay.Mode),
		FontScale: c.Overlay.FontScale,
		BgOpacity: c.Overlay.BgOpacity,
		TextColor: c.Overlay.TextColor,
		BgColor:   c.Overlay.BgColor,
		FitPasses: c.Overlay.FitPasses,
		URLMaxLen: c.Overlay.URLMaxLen,
	}
}

// ToConstraints converts the limits section.
func (c *Config) ToConstraints() utils.ImageConstraints {
	cons := utils.DefaultImageConstraints()
	cons.MaxPixels = c.Limits.MaxPixels
	cons.MaxOutputPixels = c.Limits.MaxOutputPixels
	cons.MaxScale = c.Limits.MaxScale
	return cons
}

// ToPipelineConfig converts the config to the internal pipeline configuration
// format. Every stage starts disabled; commands switch on what they run.
func (c *Config) ToPipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Upscale.Factor = c.Upscale.Factor
	cfg.Upscale.Filter = c.Upscale.Filter
	cfg.Upscale.Sharpen = c.Upscale.Sharpen
	cfg.Upscale.Amount = c.Upscale.SharpenAmount
	cfg.Matte.Tolerance = c.Matte.Tolerance
	cfg.Annotate.Prepare = c.Overlay.Prepare
	cfg.Annotate.MinLongSide = c.Overlay.MinLongSide
	cfg.Annotate.Overlay = c.ToOverlayConfig()
	cfg.Annotate.FontPath = c.Overlay.FontPath
	cfg.Output.Format = encoder.Normalize(c.Output.Format)
	cfg.Output.Quality = c.Output.Quality
	cfg.Constraints = c.ToConstraints()
	cfg.CacheEntries = c.Cache.Entries
	// Validate rejects malformed sizes before this is reached.
	cfg.CacheBytes, _ = ParseByteSize(c.Cache.MaxSize)
	return cfg
}

// Helper functions

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateFraction validates that a value is between 0.0 and 1.0.
func validateFraction(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

// ParseByteSize parses sizes such as "512MB", "1GB" or "4096". An empty
// string means zero (unbounded).
func ParseByteSize(size string) (int64, error) {
	s := strings.ToUpper(strings.TrimSpace(size))
	if s == "" {
		return 0, nil
	}

	units := []struct {
		suffix string
		mult   float64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}
	mult := 1.0
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			mult = u.mult
			break
		}
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number in size: %s", size)
	}
	if n < 0 {
		return 0, fmt.Errorf("size must not be negative: %s", size)
	}
	return int64(n * mult), nil
}
