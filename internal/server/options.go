package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/pixkit/internal/overlay"
	"github.com/MeKo-Tech/pixkit/internal/pipeline"
)

// optionGetter returns the raw value of a request option, or "" when the
// client did not send it.
type optionGetter func(key string) string

// mapOptions reads options from a decoded JSON object. Numbers and booleans
// are formatted back into their text form.
func mapOptions(m map[string]any) optionGetter {
	return func(key string) string {
		v, ok := m[key]
		if !ok || v == nil {
			return ""
		}
		switch t := v.(type) {
		case string:
			return t
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		default:
			return fmt.Sprint(t)
		}
	}
}

// chainOptions consults each getter in turn and returns the first non-empty
// value.
func chainOptions(getters ...optionGetter) optionGetter {
	return func(key string) string {
		for _, g := range getters {
			if g == nil {
				continue
			}
			if v := g(key); v != "" {
				return v
			}
		}
		return ""
	}
}

// applyOptions overrides cfg with the request's options. Values are only
// parsed here; range checks happen when the pipeline is built.
func applyOptions(cfg *pipeline.Config, get optionGetter) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := get(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *float64) {
		if v := get(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: not a number: %q", key, v))
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v := get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: not an integer: %q", key, v))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v := get(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: not a boolean: %q", key, v))
				return
			}
			*dst = b
		}
	}

	num("factor", &cfg.Upscale.Factor)
	str("filter", &cfg.Upscale.Filter)
	boolean("sharpen", &cfg.Upscale.Sharpen)
	num("amount", &cfg.Upscale.Amount)

	integer("tolerance", &cfg.Matte.Tolerance)

	ov := &cfg.Annotate.Overlay
	if html := get("source_html"); html != "" {
		if src, ok := overlay.ExtractSource(html); ok {
			ov.URL, ov.Title = src.URL, src.Title
		}
	}
	str("title", &ov.Title)
	str("url", &ov.URL)
	if v := get("anchor"); v != "" {
		ov.Anchor = overlay.Anchor(strings.ToLower(v))
	}
	if v := get("mode"); v != "" {
		ov.Mode = overlay.DisplayMode(strings.ToLower(v))
	}
	num("font_scale", &ov.FontScale)
	num("bg_opacity", &ov.BgOpacity)
	str("text_color", &ov.TextColor)
	str("bg_color", &ov.BgColor)
	integer("fit_passes", &ov.FitPasses)
	integer("url_max_len", &ov.URLMaxLen)
	boolean("prepare", &cfg.Annotate.Prepare)
	integer("min_long_side", &cfg.Annotate.MinLongSide)

	str("format", &cfg.Output.Format)
	num("quality", &cfg.Output.Quality)

	return errors.Join(errs...)
}

// pipelineFor derives a pipeline for op with the request's options applied.
// The derived pipeline shares the server's cache.
func (s *Server) pipelineFor(op pipeline.Operation, get optionGetter) (*pipeline.Pipeline, error) {
	cfg := s.pipeline.Config().ForOperation(op)
	if err := applyOptions(&cfg, get); err != nil {
		return nil, badRequest(err)
	}
	pl, err := s.pipeline.Derive(cfg)
	if err != nil {
		return nil, badRequest(err)
	}
	return pl, nil
}
