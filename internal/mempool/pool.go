// Package mempool keeps sized pools of scratch buffers for the pixel
// transforms so repeated calls on large surfaces do not churn the GC.
package mempool

import (
	"sync"
)

var (
	bytePools  sync.Map // key: size class (int), value: *sync.Pool
	boolPools  sync.Map // key: size class (int), value: *sync.Pool
	int32Pools sync.Map // key: size class (int), value: *sync.Pool
)

// sizeClass rounds n up to the next multiple of 1024 to reduce churn.
func sizeClass(n int) int {
	if n <= 1024 {
		return 1024
	}
	const step = 1024
	r := (n + step - 1) / step
	return r * step
}

func get[T any](pools *sync.Map, n int) []T {
	cls := sizeClass(n)
	pAny, _ := pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return make([]T, cls)[:n]
	}
	buf, ok := p.Get().([]T)
	if !ok || cap(buf) < cls {
		buf = make([]T, cls)
	}
	return buf[:n]
}

func put[T any](pools *sync.Map, buf []T) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	pAny, _ := pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return
	}
	p.Put(buf[:cap(buf)]) //nolint:staticcheck
}

// GetBytes retrieves a []byte buffer of length n. Contents are undefined;
// callers overwrite it (typically with copy).
// The caller must return it via PutBytes when done.
func GetBytes(n int) []byte {
	return get[byte](&bytePools, n)
}

// PutBytes returns a buffer to the pool. It is safe to pass a nil slice.
func PutBytes(buf []byte) {
	put(&bytePools, buf)
}

// GetBool retrieves a zeroed []bool buffer of length n.
// The caller must return it via PutBool when done.
func GetBool(n int) []bool {
	buf := get[bool](&boolPools, n)
	clear(buf)
	return buf
}

// PutBool returns a buffer to the pool. It is safe to pass a nil slice.
func PutBool(buf []bool) {
	put(&boolPools, buf)
}

// GetInt32 retrieves an empty []int32 with capacity for at least n elements,
// suitable as an append-only queue.
// The caller must return it via PutInt32 when done.
func GetInt32(n int) []int32 {
	return get[int32](&int32Pools, n)[:0]
}

// PutInt32 returns a buffer to the pool. It is safe to pass a nil slice.
func PutInt32(buf []int32) {
	put(&int32Pools, buf)
}
