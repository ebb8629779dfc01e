package process

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// closedFD marks an end that was closed or transferred.
const closedFD = -1

// FD is a raw descriptor that can be named in a Streams slot without
// transferring ownership.
type FD int

// Fd returns the descriptor.
func (fd FD) Fd() uintptr { return uintptr(fd) }

// Pipe is a unidirectional OS pipe. It owns both descriptors until they are
// closed or taken. Ends still owned when the Pipe becomes unreachable are
// closed by the garbage collector, so a Pipe must stay reachable while a
// descriptor from ReadEnd or WriteEnd is in use.
type Pipe struct {
	ends *pipeEnds
}

type pipeEnds struct {
	r, w int
}

func (e *pipeEnds) close() {
	_ = closeEnd(&e.r)
	_ = closeEnd(&e.w)
}

// OpenPipe creates a pipe whose ends are not inherited by children unless a
// spawn installs them explicitly.
func OpenPipe() (*Pipe, error) {
	r, w, err := pipe()
	if err != nil {
		return nil, fmt.Errorf("open pipe: %w", err)
	}
	p := &Pipe{ends: &pipeEnds{r: r, w: w}}
	runtime.AddCleanup(p, (*pipeEnds).close, p.ends)
	return p, nil
}

// ReadEnd returns the read descriptor, or -1 if it is no longer owned.
func (p *Pipe) ReadEnd() FD { return FD(p.ends.r) }

// WriteEnd returns the write descriptor, or -1 if it is no longer owned.
func (p *Pipe) WriteEnd() FD { return FD(p.ends.w) }

// TakeRead transfers the read end to the caller as a pollable file.
// It returns nil if the end is no longer owned.
func (p *Pipe) TakeRead() *os.File {
	return take(&p.ends.r, "|0")
}

// TakeWrite transfers the write end to the caller as a pollable file.
// It returns nil if the end is no longer owned.
func (p *Pipe) TakeWrite() *os.File {
	return take(&p.ends.w, "|1")
}

func take(fd *int, name string) *os.File {
	if *fd == closedFD {
		return nil
	}
	// non-blocking lets the runtime poller interrupt reads on Close
	_ = unix.SetNonblock(*fd, true)
	f := os.NewFile(uintptr(*fd), name)
	*fd = closedFD
	return f
}

// CloseRead closes the read end. Closing an end twice is a no-op.
func (p *Pipe) CloseRead() error {
	return closeEnd(&p.ends.r)
}

// CloseWrite closes the write end. Closing an end twice is a no-op.
func (p *Pipe) CloseWrite() error {
	return closeEnd(&p.ends.w)
}

// Close closes every end still owned.
func (p *Pipe) Close() error {
	rerr := p.CloseRead()
	werr := p.CloseWrite()
	if rerr != nil {
		return rerr
	}
	return werr
}

func closeEnd(fd *int) error {
	if *fd == closedFD {
		return nil
	}
	err := unix.Close(*fd)
	*fd = closedFD
	if err != nil {
		return fmt.Errorf("close pipe end: %w", err)
	}
	return nil
}
