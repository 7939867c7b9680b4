// Package pipeline orchestrates the pixel transforms for one image: upscale,
// background removal, prepare-for-annotation, caption and encode.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/MeKo-Tech/pixkit/internal/cache"
	"github.com/MeKo-Tech/pixkit/internal/common"
	"github.com/MeKo-Tech/pixkit/internal/encoder"
	"github.com/MeKo-Tech/pixkit/internal/matte"
	"github.com/MeKo-Tech/pixkit/internal/overlay"
	"github.com/MeKo-Tech/pixkit/internal/resample"
	"github.com/MeKo-Tech/pixkit/internal/sharpen"
	"github.com/MeKo-Tech/pixkit/internal/surface"
	"github.com/MeKo-Tech/pixkit/internal/utils"
)

// Stage names one step of a run.
type Stage string

const (
	StageUpscale  Stage = "upscale"
	StageMatte    Stage = "matte"
	StagePrepare  Stage = "prepare"
	StageAnnotate Stage = "annotate"
)

// StageTiming records how long a stage took and the size it produced.
type StageTiming struct {
	Stage    Stage         `json:"stage"`
	Duration time.Duration `json:"duration_ns"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
}

// Result is the outcome of Process. The caller owns Surface.
type Result struct {
	Surface   *surface.Surface
	Source    utils.ImageMetadata
	Timings   []StageTiming
	Matte     *matte.Stats
	CacheHit  bool
	TotalTime time.Duration
}

// Pipeline runs the enabled stages. It is safe for concurrent use; each
// Process call works on its own surface.
type Pipeline struct {
	cfg      Config
	registry *encoder.Registry
	encoder  encoder.Encoder
	cache    *cache.Cache
	typeface *overlay.Typeface
	progress ProgressCallback
}

// New validates cfg and creates a pipeline. A nil registry probes the
// built-in encoders.
func New(cfg Config, registry *encoder.Registry, progress ProgressCallback) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if registry == nil {
		registry = encoder.NewRegistry()
	}
	enc, err := registry.Get(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{cfg: cfg, registry: registry, encoder: enc, progress: progress}
	if cfg.CacheEntries > 0 {
		p.cache = cache.New(cfg.CacheEntries, cfg.CacheBytes)
	}
	if err := p.loadTypeface(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) loadTypeface() error {
	if !p.cfg.Annotate.Enabled {
		return nil
	}
	var err error
	if p.cfg.Annotate.FontPath != "" {
		p.typeface, err = overlay.LoadTypeface(p.cfg.Annotate.FontPath)
	} else {
		p.typeface, err = overlay.DefaultTypeface()
	}
	return err
}

// Derive returns a pipeline with a different configuration that shares this
// pipeline's cache and encoder registry.
func (p *Pipeline) Derive(cfg Config) (*Pipeline, error) {
	cfg.CacheEntries, cfg.CacheBytes = 0, 0
	d, err := New(cfg, p.registry, p.progress)
	if err != nil {
		return nil, err
	}
	d.cache = p.cache
	return d, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Encoder returns the configured output encoder.
func (p *Pipeline) Encoder() encoder.Encoder { return p.encoder }

// Registry returns the encoder registry.
func (p *Pipeline) Registry() *encoder.Registry { return p.registry }

// Cache returns the prepared-surface cache, or nil when caching is off.
func (p *Pipeline) Cache() *cache.Cache { return p.cache }

// Stages lists the enabled stages in execution order.
func (p *Pipeline) Stages() []Stage {
	var out []Stage
	if p.cfg.Upscale.Enabled {
		out = append(out, StageUpscale)
	}
	if p.cfg.Matte.Enabled {
		out = append(out, StageMatte)
	}
	if p.cfg.Annotate.Enabled {
		if p.cfg.Annotate.Prepare {
			out = append(out, StagePrepare)
		}
		out = append(out, StageAnnotate)
	}
	return out
}

// ProcessFile decodes path and runs Process on it.
func (p *Pipeline) ProcessFile(ctx context.Context, path string, cb ProgressCallback) (*Result, error) {
	s, meta, err := surface.Load(path, p.cfg.Constraints)
	if err != nil {
		return nil, err
	}
	res, err := p.Process(ctx, s, cb)
	if err != nil {
		return nil, err
	}
	res.Source = meta
	return res, nil
}

// Process runs every enabled stage on s, which the pipeline takes ownership
// of. Cancellation is checked between stages. cb may be nil, in which case
// the builder's callback is used.
func (p *Pipeline) Process(ctx context.Context, s *surface.Surface, cb ProgressCallback) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := utils.ValidateDimensions(s.Width, s.Height, p.cfg.Constraints); err != nil {
		return nil, err
	}
	if cb == nil {
		cb = p.progress
	}
	if cb == nil {
		cb = NoOpProgressCallback{}
	}

	stages := p.Stages()
	res := &Result{}
	total := common.NewTimer("pipeline")
	cb.OnStart(len(stages))

	current := s
	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			cb.OnError(string(stage), err)
			return nil, err
		}
		t := common.NewTimer(string(stage))
		next, err := p.runStage(stage, current, res)
		if err != nil {
			cb.OnError(string(stage), err)
			return nil, fmt.Errorf("%s: %w", stage, err)
		}
		current = next
		d := t.Stop()
		res.Timings = append(res.Timings, StageTiming{Stage: stage, Duration: d, Width: current.Width, Height: current.Height})
		slog.Debug("pipeline stage done", "stage", stage, "duration", d, "width", current.Width, "height", current.Height)
		cb.OnProgress(i+1, len(stages), string(stage))
	}

	res.Surface = current
	res.TotalTime = total.Stop()
	cb.OnComplete()
	return res, nil
}

func (p *Pipeline) runStage(stage Stage, s *surface.Surface, res *Result) (*surface.Surface, error) {
	switch stage {
	case StageUpscale:
		return p.upscale(s)
	case StageMatte:
		out, stats, err := matte.RemoveBackgroundStats(s, p.cfg.Matte.Tolerance)
		if err != nil {
			return nil, err
		}
		res.Matte = &stats
		return out, nil
	case StagePrepare:
		out, hit, err := p.prepare(s)
		res.CacheHit = hit
		return out, err
	case StageAnnotate:
		return overlay.Composite(s, p.cfg.Annotate.Overlay, p.typeface)
	}
	return nil, fmt.Errorf("unknown stage %q", stage)
}

func (p *Pipeline) upscale(s *surface.Surface) (*surface.Surface, error) {
	up := p.cfg.Upscale
	if err := utils.ValidateScale(s.Width, s.Height, up.Factor, p.cfg.Constraints); err != nil {
		return nil, err
	}
	out, err := resample.Upscale(s, up.Factor, resample.Options{Filter: up.Filter})
	if err != nil {
		return nil, err
	}
	if up.Sharpen {
		out = sharpen.UnsharpMask(out, up.Amount)
	}
	return out, nil
}

func (p *Pipeline) prepare(s *surface.Surface) (*surface.Surface, bool, error) {
	opts := overlay.PrepareOptions{
		MinLongSide:   p.cfg.Annotate.MinLongSide,
		Filter:        p.cfg.Upscale.Filter,
		SharpenAmount: sharpen.DefaultAmount,
	}
	if s.LongSide() >= opts.MinLongSide {
		return s, false, nil
	}
	factor := resample.ToLongSide(s.Width, s.Height, opts.MinLongSide)
	if err := utils.ValidateScale(s.Width, s.Height, factor, utils.ImageConstraints{
		MaxOutputPixels: p.cfg.Constraints.MaxOutputPixels,
	}); err != nil {
		return nil, false, err
	}

	compute := func() (*surface.Surface, error) { return overlay.Prepare(s, opts) }
	if p.cache == nil {
		out, err := compute()
		return out, false, err
	}
	key := cache.KeyFor(s, string(StagePrepare), strconv.Itoa(opts.MinLongSide), opts.Filter)
	return p.cache.GetOrCompute(key, compute)
}

// Encode writes s with the configured encoder and quality.
func (p *Pipeline) Encode(w io.Writer, s *surface.Surface) error {
	return p.encoder.Encode(w, s, encoder.Options{Quality: p.cfg.Output.Quality})
}
