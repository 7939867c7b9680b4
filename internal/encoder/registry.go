package encoder

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// order is the listing priority of formats.
var order = []string{"png", "jpeg", "webp", "pdf"}

var aliases = map[string]string{
	"jpg":        "jpeg",
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/webp": "webp",
}

// Registry holds the encoders usable on this machine.
type Registry struct {
	encoders map[string]Encoder
}

// NewRegistry probes every built-in encoder and keeps the available ones.
func NewRegistry() *Registry {
	return NewRegistryWith(PNGEncoder{}, JPEGEncoder{}, &WebPEncoder{}, PDFEncoder{})
}

// NewRegistryWith builds a registry from the given encoders.
func NewRegistryWith(encs ...Encoder) *Registry {
	r := &Registry{encoders: make(map[string]Encoder)}
	for _, enc := range encs {
		if enc.Available() {
			r.encoders[enc.Format()] = enc
		}
	}
	return r
}

// Normalize maps names, extensions and MIME types onto a format name.
func Normalize(format string) string {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if a, ok := aliases[f]; ok {
		return a
	}
	return f
}

// Get returns the encoder for format.
func (r *Registry) Get(format string) (Encoder, error) {
	f := Normalize(format)
	if enc, ok := r.encoders[f]; ok {
		return enc, nil
	}
	return nil, fmt.Errorf("unsupported output format %q (available: %s)", format, strings.Join(r.Formats(), ", "))
}

// ForPath picks the encoder from a file name's extension.
func (r *Registry) ForPath(path string) (Encoder, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return nil, fmt.Errorf("cannot infer output format from %q", path)
	}
	return r.Get(ext)
}

// Formats lists available format names in priority order.
func (r *Registry) Formats() []string {
	var out []string
	for _, f := range order {
		if _, ok := r.encoders[f]; ok {
			out = append(out, f)
		}
	}
	var extra []string
	for f := range r.encoders {
		if !slices.Contains(order, f) {
			extra = append(extra, f)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

func (r *Registry) String() string {
	avail := r.Formats()
	if len(avail) == 0 {
		return "no encoders available"
	}
	return "encoders: " + strings.Join(avail, ", ")
}
