// Package arena implements a chunked bump allocator for short-lived message
// data.
//
// The framer copies each decoded frame payload into the arena and hands the
// slices to the session's handler. Once the batch has been dispatched the
// session calls Reset and every slice handed out since the previous Reset
// becomes invalid at once.
//
// Memory is handed out from fixed blocks in order. When a block runs out a
// new, larger block is appended; existing blocks never move, so slices from
// earlier allocations stay valid across growth.
//
// An Arena is not safe for concurrent use.
package arena

import (
	"fmt"
	"unsafe"

	"github.com/GriffinCanCode/editorhost/internal/memdebug"
)

const (
	// DefaultBlockSize is the size of the first block acquired by a zero
	// value Arena.
	DefaultBlockSize = 4096

	// Alignment is the guaranteed alignment of every allocation.
	Alignment = 8
)

// Arena is a bump allocator over a list of blocks.
type Arena struct {
	blocks  [][]byte
	cur     int // index of the block being carved
	off     int // next free offset in blocks[cur]
	initial int // configured initial capacity
	next    int // size of the next block appended on growth
	poison  bool
	grows   int
}

// Option configures an Arena.
type Option func(*Arena)

// WithPoisoning makes the arena overwrite reclaimed memory with
// memdebug.PoisonByte. Builds tagged memdebug always poison.
func WithPoisoning(on bool) Option {
	return func(a *Arena) {
		a.poison = on
	}
}

// New creates an arena with a first block of initial bytes. An initial
// capacity of zero defers the first block to the first Alloc or Reserve.
func New(initial int, opts ...Option) *Arena {
	if initial < 0 {
		panic(fmt.Sprintf("arena: negative capacity %d", initial))
	}
	a := &Arena{initial: initial}
	for _, opt := range opts {
		opt(a)
	}
	if initial > 0 {
		a.blocks = append(a.blocks, newBlock(initial))
		a.next = initial * 2
	}
	return a
}

// newBlock allocates a block whose first byte is Alignment-aligned.
func newBlock(size int) []byte {
	words := make([]uint64, (size+Alignment-1)/Alignment)
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), size)
}

func (a *Arena) poisoning() bool {
	return a.poison || memdebug.Enabled
}

func align(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// Alloc returns size bytes of arena memory. The slice starts on an
// Alignment boundary and its capacity is clipped to size. The contents are
// not zeroed. The slice is valid until the next Reset, Move or Release.
func (a *Arena) Alloc(size int) []byte {
	if size < 0 {
		panic(fmt.Sprintf("arena: negative allocation %d", size))
	}
	if !a.fits(size) {
		a.advance(size)
	}
	start := align(a.off)
	a.off = start + size
	return a.blocks[a.cur][start:a.off:a.off]
}

// fits reports whether the current block can satisfy size bytes.
func (a *Arena) fits(size int) bool {
	if len(a.blocks) == 0 {
		return false
	}
	return align(a.off)+size <= len(a.blocks[a.cur])
}

// advance appends a block with at least size bytes and makes it current.
// The remainder of the previous block is abandoned until Reset.
func (a *Arena) advance(size int) {
	if a.next == 0 {
		a.next = DefaultBlockSize
	}
	blockSize := a.next
	if blockSize < size {
		blockSize = align(size)
	}
	a.blocks = append(a.blocks, newBlock(blockSize))
	a.cur = len(a.blocks) - 1
	a.off = 0
	a.next *= 2
	a.grows++
}

// Copy allocates len(p) bytes and copies p into them.
func (a *Arena) Copy(p []byte) []byte {
	dst := a.Alloc(len(p))
	copy(dst, p)
	return dst
}

// String returns an arena-backed string holding p. It must not be retained
// past the next Reset.
func (a *Arena) String(p []byte) string {
	if len(p) == 0 {
		return ""
	}
	dst := a.Copy(p)
	return unsafe.String(unsafe.SliceData(dst), len(dst))
}

// Reserve guarantees that an Alloc of n bytes following it will not need a
// new block. Reserving an amount already available is a no-op.
func (a *Arena) Reserve(n int) {
	if n < 0 {
		panic(fmt.Sprintf("arena: negative reservation %d", n))
	}
	if a.fits(n) {
		return
	}
	a.advance(n)
}

// Reset invalidates every allocation made since construction or the last
// Reset. The largest block is kept for reuse and the others are dropped.
func (a *Arena) Reset() {
	if len(a.blocks) == 0 {
		return
	}
	keep := 0
	for i, blk := range a.blocks {
		if a.poisoning() {
			memdebug.Poison(blk)
		}
		if len(blk) > len(a.blocks[keep]) {
			keep = i
		}
	}
	for i := range a.blocks {
		if i != keep {
			a.blocks[i] = nil
		}
	}
	a.blocks[0] = a.blocks[keep]
	a.blocks = a.blocks[:1]
	a.cur = 0
	a.off = 0
}

// Capacity returns the total size of the owned blocks.
func (a *Arena) Capacity() int {
	total := 0
	for _, blk := range a.blocks {
		total += len(blk)
	}
	return total
}

// Remaining returns the number of unused bytes in the current block.
func (a *Arena) Remaining() int {
	if len(a.blocks) == 0 {
		return 0
	}
	return len(a.blocks[a.cur]) - a.off
}

// Blocks returns the number of owned blocks.
func (a *Arena) Blocks() int { return len(a.blocks) }

// Grows returns how many blocks were acquired after construction.
func (a *Arena) Grows() int { return a.grows }

// Move transfers the blocks to the returned Arena and leaves a as a zero
// capacity arena. Slices handed out before the move stay valid and belong
// to the returned Arena.
func (a *Arena) Move() Arena {
	out := *a
	*a = Arena{poison: a.poison}
	return out
}

// Release drops every block. The arena remains usable and starts empty.
func (a *Arena) Release() {
	for i, blk := range a.blocks {
		if a.poisoning() {
			memdebug.Poison(blk)
		}
		a.blocks[i] = nil
	}
	a.blocks = nil
	a.cur = 0
	a.off = 0
	a.next = a.initial
}
