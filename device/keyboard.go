package device

import (
	"sync"

	"github.com/cjriches/simulatron/interrupt"
)

// KeyEvent is the structured event the host front-end produces for each
// keystroke. The front-end itself (capturing real terminal input) is out
// of scope for the core; this is the interface boundary §1 calls for.
type KeyEvent struct {
	Key  byte
	Ctrl bool
	Alt  bool
}

// Metadata bit layout, this port's own decision (neither spec.md nor
// original_source fixes it further): bit 0 ctrl, bit 1 alt.
const (
	metaCtrl = 1 << 0
	metaAlt  = 1 << 1
)

// Keyboard is the memory-mapped keyboard register file: a one-byte key
// buffer and a one-byte metadata register, both read-only to the bus.
type Keyboard struct {
	mu       sync.Mutex
	buffer   byte
	metadata byte
	irq      *interrupt.Controller
}

func NewKeyboard(irq *interrupt.Controller) *Keyboard {
	return &Keyboard{irq: irq}
}

// Feed is called by the host front-end (or a test) whenever a key event
// arrives. It latches the key into the register file and raises the
// keyboard interrupt.
func (k *Keyboard) Feed(ev KeyEvent) {
	k.mu.Lock()
	k.buffer = ev.Key
	meta := byte(0)
	if ev.Ctrl {
		meta |= metaCtrl
	}
	if ev.Alt {
		meta |= metaAlt
	}
	k.metadata = meta
	k.mu.Unlock()
	k.irq.Raise(interrupt.Keyboard)
}

// ReadRegister implements bus.RegisterDevice. offset 0 is the key
// buffer, offset 1 is the metadata byte.
func (k *Keyboard) ReadRegister(offset uint32) byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	switch offset {
	case 0:
		return k.buffer
	case 1:
		return k.metadata
	default:
		return 0
	}
}

// WriteRegister is unused: the keyboard register file is read-only to
// the bus. Present only to satisfy bus.RegisterDevice.
func (k *Keyboard) WriteRegister(uint32, byte) {}
