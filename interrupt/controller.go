// Package interrupt implements the latched interrupt controller that
// arbitrates between the CPU and every memory-mapped device. It is the
// one synchronisation point shared between the single CPU goroutine and
// the independent device goroutines (keyboard poller, disk watchers,
// timer ticker) described by the machine's concurrency model.
package interrupt

import "sync"

// Numbers, in the 2.0.0 final (non-alpha) numbering. Priority is
// ascending: 0 is serviced before 7 when both are pending and unmasked.
const (
	IllegalOperation uint8 = 0
	DivideByZero     uint8 = 1
	PageFault        uint8 = 2
	Keyboard         uint8 = 3
	DiskA            uint8 = 4
	DiskB            uint8 = 5
	Timer            uint8 = 6
	Syscall          uint8 = 7

	Count = 8
)

// Controller holds the latched pending set and the interrupt mask
// register. Devices call Raise from their own goroutines; the CPU calls
// Service and Clear between instructions. All three are safe for
// concurrent use.
type Controller struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending [Count]bool
	imr     uint16
}

// New returns a controller with everything masked and nothing pending,
// matching the machine's boot-time configuration.
func New() *Controller {
	c := &Controller{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Raise latches interrupt n as pending. It stays latched even while
// masked; unmasking it later makes it servicable, as required by the
// "latched interrupt" semantics.
func (c *Controller) Raise(n uint8) {
	c.mu.Lock()
	c.pending[n] = true
	c.mu.Unlock()
	c.cond.Broadcast()
}

// Clear removes n from the pending set. The CPU calls this once it has
// committed to servicing n.
func (c *Controller) Clear(n uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[n] = false
}

// SetIMR installs a new interrupt mask.
func (c *Controller) SetIMR(imr uint16) {
	c.mu.Lock()
	c.imr = imr
	c.mu.Unlock()
	c.cond.Broadcast()
}

// IMR returns the current interrupt mask.
func (c *Controller) IMR() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.imr
}

// Service returns the lowest-numbered pending interrupt that is also
// unmasked, if any. It does not clear the pending bit; the CPU does that
// itself as part of interrupt entry (§4.7 step 6), after it has
// committed to servicing it.
func (c *Controller) Service() (n uint8, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := uint8(0); i < Count; i++ {
		if c.pending[i] && c.imr&(1<<i) != 0 {
			return i, true
		}
	}
	return 0, false
}

// Pending reports whether n is currently latched, regardless of mask.
func (c *Controller) Pending(n uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[n]
}

// WaitServicable blocks until some interrupt is both latched and
// unmasked, then returns it without clearing it. It backs the CPU's
// PAUSE instruction, which suspends the fetch loop until an enabled
// interrupt arrives.
func (c *Controller) WaitServicable() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		for i := uint8(0); i < Count; i++ {
			if c.pending[i] && c.imr&(1<<i) != 0 {
				return i
			}
		}
		c.cond.Wait()
	}
}
