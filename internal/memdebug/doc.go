// Package memdebug provides memory poisoning for the transport buffers.
//
// The ring buffer and the arena hand out slices of memory they own and later
// take back in bulk. Using such a slice after it was taken back is a bug that
// the type system cannot catch. When poisoning is on, released bytes are
// overwritten with PoisonByte so that a stale read shows up as a recognizable
// pattern in tests and crash dumps instead of plausible data.
//
// Build with -tags memdebug to turn poisoning on by default:
//
//	go test -tags memdebug ./...
//
// Components also accept an explicit per-instance switch, so tests can check
// poisoning without the tag. Production correctness never depends on it.
package memdebug
