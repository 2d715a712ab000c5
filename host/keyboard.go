// Package host implements the non-core, real-terminal collaborators at
// the machine's boundary: raw-mode keyboard capture and a terminal
// renderer for the display device. Neither package is part of the
// emulation core; both talk to a *device.Keyboard / *device.Display
// through their already-defined public surface.
package host

import (
	"log"
	"os"
	"time"

	"github.com/cjriches/simulatron/device"
	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// Keyboard puts the controlling terminal into raw mode and forwards
// every byte read from stdin to a device.Keyboard as a KeyEvent,
// decoding the Ctrl/Alt metadata the device's register file expects.
type Keyboard struct {
	original unix.Termios
	stop     chan struct{}
}

// NewKeyboard enables raw mode and starts polling stdin, feeding
// decoded events to dev until Stop is called.
func NewKeyboard(dev *device.Keyboard) (*Keyboard, error) {
	k := &Keyboard{stop: make(chan struct{})}
	if err := termios.Tcgetattr(os.Stdin.Fd(), &k.original); err != nil {
		return nil, err
	}
	raw := k.original
	raw.Lflag &^= unix.ICANON | unix.ECHO
	if err := termios.Tcsetattr(os.Stdin.Fd(), termios.TCSANOW, &raw); err != nil {
		return nil, err
	}
	log.Printf("host: terminal in raw mode")

	go k.poll(dev)
	return k, nil
}

// Stop restores the terminal's original mode and stops polling.
func (k *Keyboard) Stop() {
	close(k.stop)
	if err := termios.Tcsetattr(os.Stdin.Fd(), termios.TCSANOW, &k.original); err != nil {
		log.Printf("host: failed to restore terminal mode: %v", err)
	}
}

func (k *Keyboard) poll(dev *device.Keyboard) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	buf := make([]byte, 1)
	for {
		select {
		case <-k.stop:
			return
		case <-ticker.C:
			n, err := os.Stdin.Read(buf)
			if err != nil || n == 0 {
				continue
			}
			dev.Feed(decodeKey(buf[0]))
		}
	}
}

// decodeKey maps a raw byte read from a raw-mode terminal to a
// KeyEvent. Control characters 0x01-0x1A are Ctrl+A..Ctrl+Z; this
// port does not attempt to distinguish an Alt-prefixed escape sequence
// from a bare Escape keypress, so Alt is always reported false here
// (a fuller escape-sequence parser is out of scope for this front end).
func decodeKey(b byte) device.KeyEvent {
	if b >= 0x01 && b <= 0x1A {
		return device.KeyEvent{Key: b - 1 + 'a', Ctrl: true}
	}
	return device.KeyEvent{Key: b}
}
