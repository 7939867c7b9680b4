package cache

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/MeKo-Tech/pixkit/internal/surface"
	"github.com/cespare/xxhash/v2"
)

// Key identifies a cached surface by content and processing parameters.
type Key string

// KeyFor hashes the surface's dimensions and pixels together with params,
// so the same image prepared with different settings gets different keys.
func KeyFor(s *surface.Surface, params ...string) Key {
	d := xxhash.New()
	var dims [16]byte
	binary.BigEndian.PutUint64(dims[:8], uint64(s.Width))  //nolint:gosec // dimensions are positive
	binary.BigEndian.PutUint64(dims[8:], uint64(s.Height)) //nolint:gosec // dimensions are positive
	_, _ = d.Write(dims[:])
	_, _ = d.Write(s.Pix)
	for _, p := range params {
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(p)
	}
	return Key(hexSum(d.Sum64()))
}

// ContentHash returns the 16-hex-digit xxHash64 of data.
func ContentHash(data []byte) string {
	return hexSum(xxhash.Sum64(data))
}

func hexSum(v uint64) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return hex.EncodeToString(b[:])
}
