package arena

import (
	"bytes"
	"math/rand"
	"testing"
	"unsafe"

	"github.com/GriffinCanCode/editorhost/internal/memdebug"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(p []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(p)))
}

func TestZeroValueIsLazy(t *testing.T) {
	var a Arena

	assert.Equal(t, 0, a.Capacity())
	assert.Equal(t, 0, a.Remaining())
	assert.Equal(t, 0, a.Blocks())

	p := a.Alloc(10)
	assert.Len(t, p, 10)
	assert.Equal(t, DefaultBlockSize, a.Capacity())
	assert.Equal(t, DefaultBlockSize-10, a.Remaining())
}

func TestAllocAlignment(t *testing.T) {
	a := New(1024)

	for _, size := range []int{1, 3, 7, 8, 13, 24, 1, 100} {
		p := a.Alloc(size)
		require.Len(t, p, size)
		assert.Equal(t, size, cap(p), "capacity is clipped")
		assert.Zero(t, addr(p)%Alignment, "size %d", size)
	}
}

func TestAllocationsDoNotOverlap(t *testing.T) {
	a := New(256)
	var live [][]byte

	for i := 0; i < 64; i++ {
		p := a.Alloc(i%17 + 1)
		for j := range p {
			p[j] = byte(i)
		}
		live = append(live, p)
	}
	for i, p := range live {
		assert.Equal(t, bytes.Repeat([]byte{byte(i)}, len(p)), p)
	}
}

func TestNoGrowthWithinInitialCapacity(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for round := 0; round < 100; round++ {
		capacity := (rng.Intn(64) + 1) * Alignment * 4
		a := New(capacity)

		// word-sized requests pack without padding
		left := capacity
		for left > 0 {
			size := (rng.Intn(4) + 1) * Alignment
			if size > left {
				size = left
			}
			a.Alloc(size)
			left -= size
		}
		require.Equal(t, 1, a.Blocks(), "capacity %d", capacity)
		require.Equal(t, 0, a.Grows())
		require.Equal(t, 0, a.Remaining())
	}
}

func TestGrowthKeepsEarlierAllocations(t *testing.T) {
	a := New(64)

	first := a.Alloc(24)
	for i := range first {
		first[i] = byte(i)
	}
	firstAddr := addr(first)

	second := a.Alloc(1024)
	require.Equal(t, 2, a.Blocks())
	assert.Len(t, second, 1024)

	for i := range first {
		first[i]++
	}
	for i, b := range first {
		assert.Equal(t, byte(i+1), b)
	}
	assert.Equal(t, firstAddr, addr(first))
}

func TestGrowthIsGeometric(t *testing.T) {
	a := New(64)
	a.Alloc(64)
	a.Alloc(1)
	assert.Equal(t, 64+128, a.Capacity())

	a.Alloc(128)
	assert.Equal(t, 64+128+256, a.Capacity())

	a.Alloc(5000)
	assert.Equal(t, 64+128+256+5000, a.Capacity(), "oversized requests get an exact block")
}

func TestReserve(t *testing.T) {
	a := New(64)
	a.Alloc(40)

	a.Reserve(16)
	assert.Equal(t, 1, a.Blocks(), "already satisfied")

	a.Reserve(100)
	assert.Equal(t, 2, a.Blocks())
	remaining := a.Remaining()
	assert.GreaterOrEqual(t, remaining, 100)

	a.Reserve(100)
	assert.Equal(t, 2, a.Blocks(), "idempotent")
	assert.Equal(t, remaining, a.Remaining())

	a.Alloc(100)
	assert.Equal(t, 2, a.Blocks(), "reserved space serves the allocation")
}

func TestReserveOnZeroValue(t *testing.T) {
	var a Arena
	a.Reserve(10)
	assert.Equal(t, 1, a.Blocks())
	assert.GreaterOrEqual(t, a.Remaining(), 10)
}

func TestResetRestoresRemaining(t *testing.T) {
	a := New(512, WithPoisoning(true))
	initial := a.Remaining()

	p := a.Alloc(24)
	copy(p, "twenty-four bytes here!!")
	q := a.Alloc(100)
	for i := range q {
		q[i] = 1
	}

	a.Reset()
	assert.Equal(t, initial, a.Remaining())
	assert.Equal(t, 1, a.Blocks())
	assert.True(t, memdebug.IsPoisoned(p))
	assert.True(t, memdebug.IsPoisoned(q))
}

func TestResetReusesStorage(t *testing.T) {
	a := New(128)
	first := addr(a.Alloc(16))

	a.Reset()
	assert.Equal(t, first, addr(a.Alloc(16)))
	assert.Equal(t, 0, a.Grows())
}

func TestResetAfterGrowthKeepsLargestBlock(t *testing.T) {
	a := New(64)
	a.Alloc(60)
	a.Alloc(320)
	a.Alloc(10)
	require.Equal(t, 3, a.Blocks())

	a.Reset()
	assert.Equal(t, 1, a.Blocks())
	assert.Equal(t, 320, a.Capacity())
	assert.GreaterOrEqual(t, a.Remaining(), 64)

	// the retained block absorbs the same cycle without growing again
	grows := a.Grows()
	a.Alloc(60)
	a.Alloc(200)
	assert.Equal(t, grows, a.Grows())
}

func TestResetWithoutPoisoningLeavesBytes(t *testing.T) {
	if memdebug.Enabled {
		t.Skip("memdebug build always poisons")
	}
	a := New(64)
	p := a.Alloc(4)
	copy(p, "keep")

	a.Reset()
	assert.Equal(t, "keep", string(p))
}

func TestCopyAndString(t *testing.T) {
	a := New(64)
	src := []byte("payload")

	c := a.Copy(src)
	src[0] = 'X'
	assert.Equal(t, "payload", string(c))

	s := a.String([]byte("method"))
	assert.Equal(t, "method", s)
	assert.Equal(t, "", a.String(nil))
}

func TestMove(t *testing.T) {
	a := New(128)
	p := a.Alloc(8)
	copy(p, "contents")
	capacity := a.Capacity()
	remaining := a.Remaining()

	moved := a.Move()

	assert.Equal(t, 0, a.Capacity())
	assert.Equal(t, 0, a.Remaining())
	assert.Equal(t, 0, a.Blocks())
	assert.Equal(t, capacity, moved.Capacity())
	assert.Equal(t, remaining, moved.Remaining())
	assert.Equal(t, "contents", string(p))
	assert.Equal(t, addr(p), addr(moved.blocks[0]))
}

func TestRelease(t *testing.T) {
	a := New(64, WithPoisoning(true))
	p := a.Alloc(16)

	a.Release()
	assert.Equal(t, 0, a.Capacity())
	assert.Equal(t, 0, a.Remaining())
	assert.True(t, memdebug.IsPoisoned(p))

	a.Alloc(1)
	assert.Equal(t, 64, a.Capacity(), "restarts at the configured size")
}

func TestNegativeSizesPanic(t *testing.T) {
	a := New(16)
	assert.Panics(t, func() { a.Alloc(-1) })
	assert.Panics(t, func() { a.Reserve(-1) })
	assert.Panics(t, func() { New(-1) })
}

func BenchmarkAllocReset(b *testing.B) {
	a := New(64 * 1024)
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		for j := 0; j < 100; j++ {
			a.Alloc(48)
		}
		a.Reset()
	}
}
