package cache

import (
	"errors"
	"sync"
	"testing"

	"github.com/MeKo-Tech/pixkit/internal/surface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(t *testing.T, w, h int, v uint8) *surface.Surface {
	t.Helper()
	s, err := surface.New(w, h)
	require.NoError(t, err)
	for i := range s.Pix {
		s.Pix[i] = v
	}
	return s
}

func TestKeyFor(t *testing.T) {
	a := solid(t, 4, 4, 1)
	b := solid(t, 4, 4, 1)
	assert.Equal(t, KeyFor(a), KeyFor(b))
	assert.Len(t, string(KeyFor(a)), 16)

	assert.NotEqual(t, KeyFor(a), KeyFor(a, "prepare:1920"))
	assert.NotEqual(t, KeyFor(a, "ab", "c"), KeyFor(a, "a", "bc"))
	assert.NotEqual(t, KeyFor(solid(t, 2, 8, 1)), KeyFor(a), "same bytes, different shape")

	b.Pix[0] = 2
	assert.NotEqual(t, KeyFor(a), KeyFor(b))
}

func TestContentHash(t *testing.T) {
	assert.Equal(t, ContentHash([]byte("abc")), ContentHash([]byte("abc")))
	assert.NotEqual(t, ContentHash([]byte("abc")), ContentHash([]byte("abd")))
	assert.Len(t, ContentHash(nil), 16)
}

func TestCache_GetPutCopies(t *testing.T) {
	c := New(10, 0)
	s := solid(t, 2, 2, 9)
	c.Put("k", s)
	s.Pix[0] = 0

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, uint8(9), got.Pix[0], "stored copy unaffected by caller")

	got.Pix[1] = 0
	again, _ := c.Get("k")
	assert.Equal(t, uint8(9), again.Pix[1], "returned copy is independent")

	_, ok = c.Get("missing")
	assert.False(t, ok)

	st := c.Stats()
	assert.Equal(t, uint64(2), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.Equal(t, 1, st.Entries)
	assert.Equal(t, int64(16), st.Bytes)
}

func TestCache_LRUByEntries(t *testing.T) {
	c := New(2, 0)
	c.Put("a", solid(t, 1, 1, 1))
	c.Put("b", solid(t, 1, 1, 2))
	_, _ = c.Get("a")
	c.Put("c", solid(t, 1, 1, 3))

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestCache_LRUByBytes(t *testing.T) {
	c := New(0, 40)
	c.Put("a", solid(t, 2, 2, 1)) // 16 bytes
	c.Put("b", solid(t, 2, 2, 2))
	c.Put("c", solid(t, 2, 2, 3))
	st := c.Stats()
	assert.Equal(t, 2, st.Entries)
	assert.LessOrEqual(t, st.Bytes, int64(40))

	c.Put("huge", solid(t, 10, 10, 1))
	_, ok := c.Get("huge")
	assert.False(t, ok, "larger than budget is not stored")
}

func TestCache_ReplaceUpdatesBytes(t *testing.T) {
	c := New(0, 0)
	c.Put("a", solid(t, 2, 2, 1))
	c.Put("a", solid(t, 4, 4, 1))
	assert.Equal(t, int64(64), c.Stats().Bytes)
	c.Evict("a")
	assert.Zero(t, c.Stats().Bytes)
}

func TestCache_GetOrCompute(t *testing.T) {
	c := New(4, 0)
	calls := 0
	compute := func() (*surface.Surface, error) {
		calls++
		return solid(t, 3, 3, 7), nil
	}

	s, hit, err := c.GetOrCompute("k", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, s.Width)

	_, hit, err = c.GetOrCompute("k", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, calls)

	_, _, err = c.GetOrCompute("bad", func() (*surface.Surface, error) { return nil, errors.New("boom") })
	require.Error(t, err)
}

func TestCache_ObserverAndClear(t *testing.T) {
	c := New(4, 0)
	var hits, misses int
	c.SetObserver(func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	})
	c.Put("a", solid(t, 1, 1, 1))
	_, _ = c.Get("a")
	_, _ = c.Get("b")
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	c.Clear()
	assert.Zero(t, c.Stats().Entries)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCache_Concurrent(t *testing.T) {
	c := New(8, 0)
	surfaces := make([]*surface.Surface, 16)
	for i := range surfaces {
		surfaces[i] = solid(t, 2, 2, uint8(i))
	}
	var wg sync.WaitGroup
	for i := range surfaces {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := surfaces[i]
			k := KeyFor(s)
			for range 50 {
				c.Put(k, s)
				_, _ = c.Get(k)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Stats().Entries, 8)
}
