// Package session embeds an editor child process and runs its message
// transport.
//
// A Session opens pipes for the child's standard streams, spawns the editor
// with the child ends installed, and keeps the parent ends. A single read
// goroutine owns the ring buffer and the arena: it fills the buffer from the
// child's stdout, decodes complete frames into arena memory, hands each
// batch to the Handler and then resets the arena. Writes to the child's
// stdin are serialized by Send.
//
// Restart policy is left to the caller, which observes the child through
// Wait and Done.
package session
