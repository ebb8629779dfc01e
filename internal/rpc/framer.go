package rpc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/GriffinCanCode/editorhost/internal/arena"
	"github.com/GriffinCanCode/editorhost/internal/ringbuf"
)

const (
	// HeaderSize is the size of the length prefix.
	HeaderSize = 4

	// DefaultMaxFrame bounds payloads when no limit is configured.
	DefaultMaxFrame = 16 << 20
)

// Framer converts between messages and length-prefixed frames.
type Framer struct {
	codec    Codec
	maxFrame int
}

// NewFramer creates a framer. A maxFrame of zero or less selects
// DefaultMaxFrame.
func NewFramer(codec Codec, maxFrame int) *Framer {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrame
	}
	return &Framer{codec: codec, maxFrame: maxFrame}
}

// Codec returns the framer's codec.
func (f *Framer) Codec() Codec { return f.codec }

// MaxFrame returns the payload size limit.
func (f *Framer) MaxFrame() int { return f.maxFrame }

// Decode appends to dst every complete frame at the front of ring and
// consumes their bytes. Payloads are copied into a before decoding and the
// decoded Method, Params and Error stay in a, valid until its next Reset.
// A trailing partial frame is left in ring.
//
// On ErrMalformedFrame the bad frame has been consumed and the messages
// decoded before it are returned; calling Decode again continues after it.
// On ErrFrameTooLarge nothing further is consumed.
func (f *Framer) Decode(dst []Message, ring *ringbuf.Buffer, a *arena.Arena) ([]Message, error) {
	var hdr [HeaderSize]byte
	for ring.Len() >= HeaderSize {
		ring.Peek(hdr[:], 0)
		size := binary.BigEndian.Uint32(hdr[:])
		if uint64(size) > uint64(f.maxFrame) {
			return dst, fmt.Errorf("%w: %d bytes exceeds %d", ErrFrameTooLarge, size, f.maxFrame)
		}
		n := int(size)
		if ring.Len() < HeaderSize+n {
			break
		}

		raw := a.Alloc(n)
		ring.Peek(raw, HeaderSize)
		ring.Consume(HeaderSize + n)

		m := Message{Raw: raw}
		if err := f.codec.DecodeMessage(raw, &m, a); err != nil {
			return dst, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
		}
		dst = append(dst, m)
	}
	return dst, nil
}

// Append appends the frame for m to dst.
func (f *Framer) Append(dst []byte, m *Message) ([]byte, error) {
	payload, err := f.codec.EncodeMessage(m)
	if err != nil {
		return dst, fmt.Errorf("encode %s: %w", m.Type, err)
	}
	if len(payload) > f.maxFrame {
		return dst, fmt.Errorf("%w: %d bytes exceeds %d", ErrFrameTooLarge, len(payload), f.maxFrame)
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}

// Encode writes the frame for m to w in a single Write and returns the
// number of bytes written.
func (f *Framer) Encode(w io.Writer, m *Message) (int, error) {
	frame, err := f.Append(nil, m)
	if err != nil {
		return 0, err
	}
	return w.Write(frame)
}
