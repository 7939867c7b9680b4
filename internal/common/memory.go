package common

import (
	"fmt"
	"runtime"
)

// MemoryStats is the subset of runtime.MemStats the benchmarks report.
type MemoryStats struct {
	TotalAlloc    uint64
	HeapAlloc     uint64
	Sys           uint64
	Mallocs       uint64
	NumGC         uint32
	GCCPUFraction float64
}

// ReadMemoryStats samples the runtime allocator.
func ReadMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		TotalAlloc:    m.TotalAlloc,
		HeapAlloc:     m.HeapAlloc,
		Sys:           m.Sys,
		Mallocs:       m.Mallocs,
		NumGC:         m.NumGC,
		GCCPUFraction: m.GCCPUFraction,
	}
}

// MemoryDelta is the allocation activity between two samples.
type MemoryDelta struct {
	AllocBytes uint64 `json:"alloc_bytes"`
	Mallocs    uint64 `json:"mallocs"`
	GCs        uint32 `json:"gcs"`
}

// Since returns the activity from before to m. Cumulative counters never
// decrease, so the result is non-negative.
func (m MemoryStats) Since(before MemoryStats) MemoryDelta {
	return MemoryDelta{
		AllocBytes: m.TotalAlloc - before.TotalAlloc,
		Mallocs:    m.Mallocs - before.Mallocs,
		GCs:        m.NumGC - before.NumGC,
	}
}

func (m MemoryStats) String() string {
	return fmt.Sprintf("heap: %d KB, total: %d KB, sys: %d KB, GC: %d (%.2f%% CPU)",
		m.HeapAlloc/1024, m.TotalAlloc/1024, m.Sys/1024, m.NumGC, m.GCCPUFraction*100)
}

func (d MemoryDelta) String() string {
	return fmt.Sprintf("+%d KB in %d allocs, %d GC", d.AllocBytes/1024, d.Mallocs, d.GCs)
}
