//go:build unix && !linux

package process

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// pipe falls back to pipe+fcntl under the fork lock where pipe2 is missing.
func pipe() (r, w int, err error) {
	var fds [2]int
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	if err := unix.Pipe(fds[:]); err != nil {
		return closedFD, closedFD, err
	}
	unix.CloseOnExec(fds[0])
	unix.CloseOnExec(fds[1])
	return fds[0], fds[1], nil
}
