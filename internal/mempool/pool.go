// Package mempool provides size-classed buffer pools for rasters and labels.
package mempool

import (
	"sync"
)

// Sized pools for raster ([]uint8) and label ([]int32) buffers. A W*H mask is
// allocated several times per refinement run, so reuse matters on large tiles.

var (
	uint8Pools sync.Map // key: size class (int), value: *sync.Pool
	int32Pools sync.Map // key: size class (int), value: *sync.Pool
	boolPools  sync.Map // key: size class (int), value: *sync.Pool
)

// sizeClass rounds n up to the next multiple of 4096 to reduce churn.
func sizeClass(n int) int {
	const step = 4096
	if n <= step {
		return step
	}
	r := (n + step - 1) / step
	return r * step
}

func poolFor[T any](pools *sync.Map, cls int) *sync.Pool {
	pAny, _ := pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return &sync.Pool{New: func() any { return make([]T, cls) }}
	}
	return p
}

func get[T any](pools *sync.Map, n int) []T {
	cls := sizeClass(n)
	p := poolFor[T](pools, cls)
	buf, ok := p.Get().([]T)
	if !ok || cap(buf) < cls {
		buf = make([]T, cls)
	}
	buf = buf[:n]
	// Pooled buffers carry stale data; callers expect a zeroed slice.
	clear(buf)
	return buf
}

func put[T any](pools *sync.Map, buf []T) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	if cls != cap(buf) {
		// Not one of ours (odd capacity); let the GC have it.
		return
	}
	p := poolFor[T](pools, cls)
	p.Put(buf[:cap(buf)]) //nolint:staticcheck
}

// GetUint8 retrieves a zeroed []uint8 of length n from the pool.
// The caller should return it via PutUint8 when done.
func GetUint8(n int) []uint8 { return get[uint8](&uint8Pools, n) }

// PutUint8 returns a buffer to the pool. It is safe to pass a nil slice.
func PutUint8(buf []uint8) { put(&uint8Pools, buf) }

// GetInt32 retrieves a zeroed []int32 of length n from the pool.
func GetInt32(n int) []int32 { return get[int32](&int32Pools, n) }

// PutInt32 returns a buffer to the pool. It is safe to pass a nil slice.
func PutInt32(buf []int32) { put(&int32Pools, buf) }

// GetBool retrieves a zeroed []bool of length n from the pool.
func GetBool(n int) []bool { return get[bool](&boolPools, n) }

// PutBool returns a buffer to the pool. It is safe to pass a nil slice.
func PutBool(buf []bool) { put(&boolPools, buf) }
