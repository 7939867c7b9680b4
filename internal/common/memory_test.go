package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var sink [][]byte

func TestReadMemoryStats(t *testing.T) {
	stats := ReadMemoryStats()
	assert.Positive(t, stats.TotalAlloc)
	assert.Positive(t, stats.Sys)
	assert.Contains(t, stats.String(), "heap:")
}

func TestMemoryStats_Since(t *testing.T) {
	before := ReadMemoryStats()
	for range 64 {
		sink = append(sink, make([]byte, 4096))
	}
	delta := ReadMemoryStats().Since(before)
	sink = nil

	assert.GreaterOrEqual(t, delta.AllocBytes, uint64(64*4096))
	assert.Positive(t, delta.Mallocs)
	assert.Contains(t, delta.String(), "KB")
}
