package pipeline

import (
	"github.com/MeKo-Tech/pixkit/internal/encoder"
	"github.com/MeKo-Tech/pixkit/internal/overlay"
	"github.com/MeKo-Tech/pixkit/internal/utils"
)

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg      Config
	registry *encoder.Registry
	progress ProgressCallback
}

// NewBuilder starts from DefaultConfig.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// NewBuilderFrom starts from an existing configuration.
func NewBuilderFrom(cfg Config) *Builder { return &Builder{cfg: cfg} }

// WithUpscale enables the upscale stage at factor.
func (b *Builder) WithUpscale(factor float64) *Builder {
	b.cfg.Upscale.Enabled = true
	b.cfg.Upscale.Factor = factor
	return b
}

// WithFilter selects the interpolation kernel.
func (b *Builder) WithFilter(name string) *Builder {
	if name != "" {
		b.cfg.Upscale.Filter = name
	}
	return b
}

// WithSharpen toggles sharpening after upscale and sets its amount.
func (b *Builder) WithSharpen(enabled bool, amount float64) *Builder {
	b.cfg.Upscale.Sharpen = enabled
	if amount >= 0 {
		b.cfg.Upscale.Amount = amount
	}
	return b
}

// WithMatte enables background removal with tolerance.
func (b *Builder) WithMatte(tolerance int) *Builder {
	b.cfg.Matte.Enabled = true
	b.cfg.Matte.Tolerance = tolerance
	return b
}

// WithAnnotation enables the caption stage.
func (b *Builder) WithAnnotation(cfg overlay.Config) *Builder {
	b.cfg.Annotate.Enabled = true
	b.cfg.Annotate.Overlay = cfg
	return b
}

// WithPrepare controls the upscale to minLongSide before captioning.
func (b *Builder) WithPrepare(enabled bool, minLongSide int) *Builder {
	b.cfg.Annotate.Prepare = enabled
	if minLongSide > 0 {
		b.cfg.Annotate.MinLongSide = minLongSide
	}
	return b
}

// WithFont uses the font file at path for captions.
func (b *Builder) WithFont(path string) *Builder {
	b.cfg.Annotate.FontPath = path
	return b
}

// WithOutput selects output format and lossy quality.
func (b *Builder) WithOutput(format string, quality float64) *Builder {
	if format != "" {
		b.cfg.Output.Format = format
	}
	if quality > 0 {
		b.cfg.Output.Quality = quality
	}
	return b
}

// WithConstraints bounds accepted input and output sizes.
func (b *Builder) WithConstraints(c utils.ImageConstraints) *Builder {
	b.cfg.Constraints = c
	return b
}

// WithCache memoizes prepared surfaces.
func (b *Builder) WithCache(entries int, maxBytes int64) *Builder {
	b.cfg.CacheEntries = entries
	b.cfg.CacheBytes = maxBytes
	return b
}

// WithRegistry overrides the encoder registry.
func (b *Builder) WithRegistry(r *encoder.Registry) *Builder {
	b.registry = r
	return b
}

// WithProgress installs a default progress callback for every Process call.
func (b *Builder) WithProgress(cb ProgressCallback) *Builder {
	b.progress = cb
	return b
}

// Config returns the configuration built so far.
func (b *Builder) Config() Config { return b.cfg }

// Build validates the configuration and creates the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	return New(b.cfg, b.registry, b.progress)
}
