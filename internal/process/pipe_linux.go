package process

import "golang.org/x/sys/unix"

func pipe() (r, w int, err error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return closedFD, closedFD, err
	}
	return fds[0], fds[1], nil
}
