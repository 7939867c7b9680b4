package encoder

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/MeKo-Tech/pixkit/internal/surface"
)

var tempCounter atomic.Int64

// WebPEncoder writes WebP by running the cwebp tool from libwebp.
type WebPEncoder struct {
	once      sync.Once
	available bool
	cwebpPath string
}

func (e *WebPEncoder) Format() string    { return "webp" }
func (e *WebPEncoder) Extension() string { return "webp" }
func (e *WebPEncoder) MIMEType() string  { return "image/webp" }

func (e *WebPEncoder) Available() bool {
	e.once.Do(func() {
		if path, err := exec.LookPath("cwebp"); err == nil {
			e.available = true
			e.cwebpPath = path
		}
	})
	return e.available
}

func (e *WebPEncoder) Encode(w io.Writer, s *surface.Surface, opts Options) error {
	if !e.Available() {
		return encodeError("webp", errors.New("cwebp not found in PATH; install libwebp"))
	}
	if err := s.Validate(); err != nil {
		return encodeError("webp", err)
	}
	if err := opts.Validate(); err != nil {
		return encodeError("webp", err)
	}

	id := tempCounter.Add(1)
	src, err := os.CreateTemp("", fmt.Sprintf("pixkit_src_%d_*.png", id))
	if err != nil {
		return encodeError("webp", err)
	}
	srcPath := src.Name()
	defer func() { _ = os.Remove(srcPath) }()

	if err := png.Encode(src, s.NRGBA()); err != nil {
		_ = src.Close()
		return encodeError("webp", err)
	}
	_ = src.Close()

	dstPath := srcPath + ".webp"
	defer func() { _ = os.Remove(dstPath) }()

	cmd := exec.Command(e.cwebpPath, //nolint:gosec // G204: fixed binary resolved via LookPath
		"-q", strconv.Itoa(opts.percent()),
		"-m", "6",
		"-alpha_q", "100",
		"-quiet",
		srcPath,
		"-o", dstPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return encodeError("webp", fmt.Errorf("cwebp: %w: %s", err, string(out)))
	}

	f, err := os.Open(dstPath) //nolint:gosec // G304: our own temp file
	if err != nil {
		return encodeError("webp", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(w, f); err != nil {
		return encodeError("webp", err)
	}
	return nil
}
