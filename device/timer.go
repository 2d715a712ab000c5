package device

import (
	"time"

	"github.com/cjriches/simulatron/interrupt"
)

// Timer is the privileged periodic timer device. TIMER n arms it to
// raise interrupt.Timer every n milliseconds; n=0 disables it. Setting a
// new interval while already running restarts the count from then,
// without raising a final interrupt for the old interval (§5).
type Timer struct {
	irq      *interrupt.Controller
	commands chan time.Duration
	done     chan struct{}
}

func NewTimer(irq *interrupt.Controller) *Timer {
	t := &Timer{
		irq:      irq,
		commands: make(chan time.Duration),
		done:     make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Timer) run() {
	var ticker *time.Ticker
	var tick <-chan time.Time
	for {
		select {
		case d, ok := <-t.commands:
			if !ok {
				if ticker != nil {
					ticker.Stop()
				}
				return
			}
			if ticker != nil {
				ticker.Stop()
				ticker = nil
				tick = nil
			}
			if d > 0 {
				ticker = time.NewTicker(d)
				tick = ticker.C
			}
		case <-tick:
			t.irq.Raise(interrupt.Timer)
		}
	}
}

// SetInterval implements the TIMER instruction: milliseconds, 0 disables.
func (t *Timer) SetInterval(ms uint32) {
	t.commands <- time.Duration(ms) * time.Millisecond
}

// Stop terminates the timer's goroutine. Machine.Shutdown calls this.
func (t *Timer) Stop() {
	close(t.commands)
}
