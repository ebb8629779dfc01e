// Package rpc frames editor messages on top of the transport buffers.
//
// A frame is a 4-byte big-endian payload length followed by the payload. The
// payload is a four element array [type, msgid, method|error, params|result]
// encoded with a Codec (CBOR by default, JSON optionally):
//
//	request      [0, msgid, method, params]
//	response     [1, msgid, error, result]
//	notification [2, 0, method, params]
//
// Framer.Decode parses complete frames from the front of a ringbuf.Buffer,
// copies each payload into an arena.Arena and consumes it from the buffer.
// Decoded messages reference arena memory through Message.Raw and are only
// valid until the arena is reset.
package rpc
