package process

import (
	"fmt"
	"os"

	"github.com/creack/pty"
)

// Terminal is a pseudo-terminal pair. The TTY end can be named in any
// Streams slot for editors that refuse to run without a terminal; the
// front-end keeps the PTY end.
type Terminal struct {
	PTY *os.File
	TTY *os.File
}

// OpenTerminal allocates a pseudo-terminal sized cols x rows.
func OpenTerminal(cols, rows int) (*Terminal, error) {
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}

	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open PTY: %w", err)
	}
	if err := pty.Setsize(ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		ptmx.Close()
		tty.Close()
		return nil, fmt.Errorf("failed to size PTY: %w", err)
	}
	return &Terminal{PTY: ptmx, TTY: tty}, nil
}

// Resize changes the terminal dimensions.
func (t *Terminal) Resize(cols, rows int) error {
	return pty.Setsize(t.PTY, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// Size returns the current dimensions.
func (t *Terminal) Size() (cols, rows int, err error) {
	rows, cols, err = pty.Getsize(t.PTY)
	return cols, rows, err
}

// CloseTTY closes the child's end once it has been handed to a spawn.
func (t *Terminal) CloseTTY() error {
	if t.TTY == nil {
		return nil
	}
	err := t.TTY.Close()
	t.TTY = nil
	return err
}

// Close closes both ends.
func (t *Terminal) Close() error {
	terr := t.CloseTTY()
	if t.PTY != nil {
		if err := t.PTY.Close(); err != nil {
			return err
		}
		t.PTY = nil
	}
	return terr
}
