// Package ringbuf provides a growable circular byte queue.
//
// The read loop of a transport session appends bytes read from the child's
// stdout at the tail, and the framer removes complete frames from the front.
// Removing from the front only moves the head offset, so once the capacity
// has settled a produce-k/consume-k cycle costs O(k) and never allocates.
//
// A Buffer is not safe for concurrent use. The zero value is an empty buffer
// with no storage.
package ringbuf

import (
	"fmt"
	"io"
	"iter"

	"github.com/GriffinCanCode/editorhost/internal/memdebug"
)

// minCapacity is the smallest store allocated by growth.
const minCapacity = 64

// Buffer is a growable ring of bytes.
type Buffer struct {
	buf    []byte
	size   int
	head   int
	poison bool
	grows  int
}

// Option configures a Buffer.
type Option func(*Buffer)

// WithPoisoning makes the buffer overwrite released storage with
// memdebug.PoisonByte. Builds tagged memdebug always poison.
func WithPoisoning(on bool) Option {
	return func(b *Buffer) {
		b.poison = on
	}
}

// New creates a buffer with room for capacity bytes.
func New(capacity int, opts ...Option) *Buffer {
	b := &Buffer{}
	for _, opt := range opts {
		opt(b)
	}
	if capacity > 0 {
		b.buf = make([]byte, capacity)
	}
	return b
}

// Len returns the number of bytes held.
func (b *Buffer) Len() int { return b.size }

// Cap returns the size of the backing store.
func (b *Buffer) Cap() int { return len(b.buf) }

// Free returns the number of bytes that can be appended without growth.
func (b *Buffer) Free() int { return len(b.buf) - b.size }

// Grows returns how many times the backing store was reallocated.
func (b *Buffer) Grows() int { return b.grows }

func (b *Buffer) poisoning() bool {
	return b.poison || memdebug.Enabled
}

func (b *Buffer) tail() int {
	t := b.head + b.size
	if t >= len(b.buf) {
		t -= len(b.buf)
	}
	return t
}

// grow moves the content to a store of at least need bytes, starting at
// offset 0. The old store is dropped.
func (b *Buffer) grow(need int) {
	newCap := len(b.buf) * 2
	if newCap < minCapacity {
		newCap = minCapacity
	}
	for newCap < need {
		newCap *= 2
	}

	nb := make([]byte, newCap)
	b.copyOut(nb)
	b.drop()
	b.buf = nb
	b.head = 0
	b.grows++
}

// drop releases the current store, poisoning it when enabled.
func (b *Buffer) drop() {
	if b.buf != nil && b.poisoning() {
		memdebug.Poison(b.buf)
	}
	b.buf = nil
}

// copyOut copies the logical content into dst and returns the count.
func (b *Buffer) copyOut(dst []byte) int {
	first, second := b.Slices()
	n := copy(dst, first)
	n += copy(dst[n:], second)
	return n
}

// Reserve ensures the capacity is at least n. It never shrinks.
func (b *Buffer) Reserve(n int) {
	if n > len(b.buf) {
		b.grow(n)
	}
}

// PushBack appends a single byte.
func (b *Buffer) PushBack(c byte) {
	if b.size == len(b.buf) {
		b.grow(b.size + 1)
	}
	b.buf[b.tail()] = c
	b.size++
}

// Insert appends p. When p fits in the free space it is written in place,
// wrapping past the end of the store; resident bytes are not moved.
func (b *Buffer) Insert(p []byte) {
	if len(p) == 0 {
		return
	}
	if len(p) > b.Free() {
		b.grow(b.size + len(p))
	}
	n := copy(b.buf[b.tail():], p)
	copy(b.buf, p[n:])
	b.size += len(p)
}

// Write appends p. It implements io.Writer and never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.Insert(p)
	return len(p), nil
}

// WriteByte appends c. It implements io.ByteWriter and never fails.
func (b *Buffer) WriteByte(c byte) error {
	b.PushBack(c)
	return nil
}

// Fill performs a single Read from r directly into free space. If fewer
// than chunk bytes are free the buffer grows first. It returns the number
// of bytes appended and the error from Read, if any.
func (b *Buffer) Fill(r io.Reader, chunk int) (int, error) {
	if chunk <= 0 {
		chunk = minCapacity
	}
	if b.Free() < chunk {
		b.grow(b.size + chunk)
	}

	t := b.tail()
	end := len(b.buf)
	if t < b.head {
		end = b.head
	}
	n, err := r.Read(b.buf[t:end])
	if n > 0 {
		b.size += n
	}
	return n, err
}

// Consume drops the first n bytes. It panics if n exceeds Len.
func (b *Buffer) Consume(n int) {
	if n < 0 || n > b.size {
		panic(fmt.Sprintf("ringbuf: consume %d of %d bytes", n, b.size))
	}
	if n == 0 {
		return
	}
	b.size -= n
	if b.size == 0 {
		b.head = 0
		return
	}
	b.head += n
	if b.head >= len(b.buf) {
		b.head -= len(b.buf)
	}
}

// Clear empties the buffer and keeps its storage.
func (b *Buffer) Clear() {
	b.size = 0
	b.head = 0
}

// At returns the byte at logical index i.
func (b *Buffer) At(i int) byte {
	if i < 0 || i >= b.size {
		panic(fmt.Sprintf("ringbuf: index %d out of range [0:%d]", i, b.size))
	}
	i += b.head
	if i >= len(b.buf) {
		i -= len(b.buf)
	}
	return b.buf[i]
}

// Slices returns the content as two views into the store. The second is
// non-empty only when the content wraps. Both are invalidated by the next
// growth, Release or CopyFrom.
func (b *Buffer) Slices() (first, second []byte) {
	if b.size == 0 {
		return nil, nil
	}
	end := b.head + b.size
	if end <= len(b.buf) {
		return b.buf[b.head:end:end], nil
	}
	return b.buf[b.head:], b.buf[: end-len(b.buf) : end-len(b.buf)]
}

// All iterates over the content in logical order.
func (b *Buffer) All() iter.Seq2[int, byte] {
	return func(yield func(int, byte) bool) {
		first, second := b.Slices()
		for i, c := range first {
			if !yield(i, c) {
				return
			}
		}
		for i, c := range second {
			if !yield(len(first)+i, c) {
				return
			}
		}
	}
}

// Peek copies content starting at logical offset off into dst without
// consuming it, and returns the number of bytes copied.
func (b *Buffer) Peek(dst []byte, off int) int {
	if off < 0 || off > b.size {
		panic(fmt.Sprintf("ringbuf: peek offset %d out of range [0:%d]", off, b.size))
	}
	first, second := b.Slices()
	if off < len(first) {
		n := copy(dst, first[off:])
		return n + copy(dst[n:], second)
	}
	return copy(dst, second[off-len(first):])
}

// Bytes returns a copy of the content.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, b.size)
	b.copyOut(out)
	return out
}

// Clone returns an independent buffer with the same content and capacity.
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{poison: b.poison}
	if len(b.buf) > 0 {
		c.buf = make([]byte, len(b.buf))
		c.size = b.copyOut(c.buf)
	}
	return c
}

// CopyFrom replaces the content with a copy of src's. The current store is
// reused when it is large enough; otherwise a store the size of src's is
// allocated and the old one is dropped.
func (b *Buffer) CopyFrom(src *Buffer) {
	if b == src {
		return
	}
	if len(b.buf) < src.size {
		b.drop()
		b.buf = make([]byte, len(src.buf))
	}
	b.head = 0
	b.size = src.copyOut(b.buf)
}

// Move transfers the storage and content to the returned Buffer and leaves
// b empty with no storage.
func (b *Buffer) Move() Buffer {
	out := *b
	*b = Buffer{poison: b.poison}
	return out
}

// Equal reports whether b and o hold the same bytes, regardless of capacity
// or layout.
func (b *Buffer) Equal(o *Buffer) bool {
	if b.size != o.size {
		return false
	}
	for i, c := range b.All() {
		if o.At(i) != c {
			return false
		}
	}
	return true
}

// Release drops the storage. The buffer remains usable and starts empty.
func (b *Buffer) Release() {
	b.drop()
	b.size = 0
	b.head = 0
}
