package backend

import (
	"errors"
	"io"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("terminal closed")

// Terminal implements Backend on the controlling terminal.
type Terminal struct {
	tty    tcell.Tty
	out    io.Writer
	mu     sync.Mutex
	cached int
	closed bool
}

// NewTerminal opens the controlling terminal through tcell.
//
// The tty is started so writes reach the device; the host editor already
// owns the terminal in raw mode and Close restores the state it had on open.
func NewTerminal() (*Terminal, error) {
	tty, err := tcell.NewDevTty()
	if err != nil {
		return nil, err
	}
	if err := tty.Start(); err != nil {
		tty.Close()
		return nil, err
	}

	t := &Terminal{tty: tty, out: tty}
	tty.NotifyResize(func() {
		t.mu.Lock()
		t.cached = 0
		t.mu.Unlock()
	})
	return t, nil
}

// NewWriterTerminal creates a terminal backend writing to w. It cannot
// report pixel metrics.
func NewWriterTerminal(w io.Writer) *Terminal {
	return &Terminal{out: w}
}

func (t *Terminal) Emit(row, col int, blob []byte) error {
	frame := Frame(row, col, blob)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	_, err := t.out.Write(frame)
	return err
}

func (t *Terminal) CellPixelHeight() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tty == nil || t.closed {
		return 0, false
	}
	if t.cached > 0 {
		return t.cached, true
	}

	ws, err := t.tty.WindowSize()
	if err != nil || ws.Height <= 0 || ws.PixelHeight <= 0 {
		return 0, false
	}
	t.cached = ws.PixelHeight / ws.Height
	return t.cached, t.cached > 0
}

func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if t.tty == nil {
		return nil
	}

	t.tty.NotifyResize(nil)
	err := t.tty.Stop()
	if cerr := t.tty.Close(); err == nil {
		err = cerr
	}
	return err
}
