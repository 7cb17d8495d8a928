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
		{name: "zero size gets minimum", input: 0, expected: 4096},
		{name: "small size gets minimum", input: 400, expected: 4096},
		{name: "exactly one step", input: 4096, expected: 4096},
		{name: "just over one step", input: 4097, expected: 8192},
		{name: "1000x1000 tile", input: 1_000_000, expected: 1_003_520},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestGetUint8_ReturnsZeroedBuffer(t *testing.T) {
	buf := GetUint8(400)
	require.Len(t, buf, 400)
	for i := range buf {
		buf[i] = 255
	}
	PutUint8(buf)

	again := GetUint8(400)
	require.Len(t, again, 400)
	for i, v := range again {
		if v != 0 {
			t.Fatalf("expected zeroed buffer, got %d at %d", v, i)
		}
	}
	PutUint8(again)
}

func TestGetInt32_ReturnsZeroedBuffer(t *testing.T) {
	buf := GetInt32(10)
	for i := range buf {
		buf[i] = int32(i + 1)
	}
	PutInt32(buf)

	again := GetInt32(10)
	assert.Equal(t, make([]int32, 10), again)
	PutInt32(again)
}

func TestGetBool_ReturnsZeroedBuffer(t *testing.T) {
	buf := GetBool(64)
	for i := range buf {
		buf[i] = true
	}
	PutBool(buf)

	again := GetBool(64)
	for _, v := range again {
		assert.False(t, v)
	}
	PutBool(again)
}

func TestPut_NilAndForeignBuffers(t *testing.T) {
	assert.NotPanics(t, func() {
		PutUint8(nil)
		PutInt32(nil)
		PutBool(nil)
		// Capacity that is not a size class is dropped instead of pooled.
		PutUint8(make([]uint8, 10))
	})
}

func TestGetUint8_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for range 50 {
				buf := GetUint8(1000 + n)
				if len(buf) != 1000+n {
					t.Errorf("unexpected length %d", len(buf))
				}
				buf[0] = 1
				PutUint8(buf)
			}
		}(g)
	}
	wg.Wait()
}
