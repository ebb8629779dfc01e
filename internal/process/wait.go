package process

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// ExitStatus describes how a child terminated.
type ExitStatus struct {
	Code     int            // exit code, or -1 when killed by a signal
	Signaled bool
	Signal   syscall.Signal // terminating signal when Signaled
}

func (s ExitStatus) String() string {
	if s.Signaled {
		return fmt.Sprintf("signal: %v", s.Signal)
	}
	return fmt.Sprintf("exit status %d", s.Code)
}

// Wait blocks until the child pid terminates and reaps it.
func Wait(pid int) (ExitStatus, error) {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return ExitStatus{}, fmt.Errorf("wait %d: %w", pid, err)
		}
		break
	}

	if ws.Signaled() {
		return ExitStatus{Code: -1, Signaled: true, Signal: syscall.Signal(ws.Signal())}, nil
	}
	return ExitStatus{Code: ws.ExitStatus()}, nil
}

// Kill sends sig to the child pid.
func Kill(pid int, sig syscall.Signal) error {
	if err := unix.Kill(pid, sig); err != nil {
		return fmt.Errorf("signal %d: %w", pid, err)
	}
	return nil
}
