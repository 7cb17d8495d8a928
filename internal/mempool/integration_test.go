package mempool

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPoolIntegration_RefinementWorkflow mimics one refinement: a raster
// buffer, a label buffer and a visited mask per run.
func TestPoolIntegration_RefinementWorkflow(t *testing.T) {
	const (
		width, height = 640, 480
		iterations    = 50
	)

	for i := range iterations {
		pix := GetUint8(width * height)
		labels := GetInt32(width * height)
		visited := GetBool(width * height)

		assert.Len(t, pix, width*height)
		assert.Zero(t, pix[i], "raster buffer must come back zeroed")
		assert.Zero(t, labels[i], "label buffer must come back zeroed")
		assert.False(t, visited[i], "visited mask must come back cleared")

		for j := range pix {
			pix[j] = uint8(j % 256) //nolint:gosec // G115: bounded by modulo
		}
		labels[i] = int32(i + 1) //nolint:gosec // G115: small test value
		visited[i] = true

		PutBool(visited)
		PutInt32(labels)
		PutUint8(pix)
	}
}

// TestPoolIntegration_ConcurrentRequests runs independent refinements the
// way concurrent server requests do.
func TestPoolIntegration_ConcurrentRequests(t *testing.T) {
	const (
		workers    = 10
		iterations = 50
		size       = 256 * 256
	)

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range iterations {
				pix := GetUint8(size)
				labels := GetInt32(size)
				for j := range pix {
					if pix[j] != 0 {
						t.Errorf("worker %d iteration %d: dirty buffer at %d", id, i, j)
						return
					}
					pix[j] = 255
				}
				PutInt32(labels)
				PutUint8(pix)
			}
		}(w)
	}
	wg.Wait()
}

// TestPoolIntegration_MemoryFootprint checks that reuse keeps total
// allocations well below one allocation per run.
func TestPoolIntegration_MemoryFootprint(t *testing.T) {
	const (
		bufferSize = 4 * 1024 * 1024
		iterations = 100
	)

	runtime.GC()
	var m1 runtime.MemStats
	runtime.ReadMemStats(&m1)

	for range iterations {
		buf := GetUint8(bufferSize)
		buf[len(buf)-1] = 1
		PutUint8(buf)
	}

	var m2 runtime.MemStats
	runtime.ReadMemStats(&m2)
	allocated := m2.TotalAlloc - m1.TotalAlloc
	t.Logf("Total allocations with pooling: %.2f MB", float64(allocated)/(1024*1024))

	// 100 x 4MB = 400MB without pooling.
	assert.Less(t, allocated, uint64(100*1024*1024))
}

// TestPoolIntegration_MixedSizes interleaves size classes.
func TestPoolIntegration_MixedSizes(t *testing.T) {
	sizes := []int{20 * 20, 100, 4096, 4097, 512 * 512, 1}
	var bufs [][]uint8
	for _, n := range sizes {
		b := GetUint8(n)
		assert.Len(t, b, n)
		assert.GreaterOrEqual(t, cap(b), n)
		bufs = append(bufs, b)
	}
	for _, b := range bufs {
		PutUint8(b)
	}

	// Nil and empty buffers are ignored.
	PutUint8(nil)
	PutInt32([]int32{})
}
