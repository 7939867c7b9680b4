package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{name: "small size gets minimum", input: 1, expected: 1024},
		{name: "exactly 1024", input: 1024, expected: 1024},
		{name: "just over 1024", input: 1025, expected: 2048},
		{name: "large size", input: 10000, expected: 10240},
		{name: "zero size", input: 0, expected: 1024},
		{name: "negative size", input: -1, expected: 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestGetBool_ReturnsZeroedBuffer(t *testing.T) {
	buf := GetBool(5000)
	require.Len(t, buf, 5000)
	for i := range buf {
		buf[i] = true
	}
	PutBool(buf)

	again := GetBool(5000)
	require.Len(t, again, 5000)
	for i, v := range again {
		if v {
			t.Fatalf("index %d not cleared", i)
		}
	}
	PutBool(again)
}

func TestGetBytes_Length(t *testing.T) {
	buf := GetBytes(4 * 300 * 200)
	assert.Len(t, buf, 240000)
	assert.GreaterOrEqual(t, cap(buf), 240000)
	PutBytes(buf)
	PutBytes(nil)
}

func TestGetInt32_EmptyQueueWithCapacity(t *testing.T) {
	q := GetInt32(2048)
	assert.Empty(t, q)
	assert.GreaterOrEqual(t, cap(q), 2048)

	for i := range 5000 {
		q = append(q, int32(i))
	}
	PutInt32(q)

	q2 := GetInt32(100)
	assert.Empty(t, q2)
	PutInt32(q2)
}

func TestPool_ConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for range 50 {
				b := GetBool(1000 + n*10)
				assert.Len(t, b, 1000+n*10)
				PutBool(b)
				y := GetBytes(4096 + n)
				assert.Len(t, y, 4096+n)
				PutBytes(y)
			}
		}(i)
	}
	wg.Wait()
}
