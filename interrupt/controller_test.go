package interrupt

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServicePicksLowestUnmasked(t *testing.T) {
	c := New()
	c.SetIMR(1<<Timer | 1<<Keyboard)
	c.Raise(Timer)
	c.Raise(Keyboard)

	n, ok := c.Service()
	assert.True(t, ok)
	assert.Equal(t, Keyboard, n, "ascending priority: Keyboard (3) before Timer (6)")
}

func TestMaskedInterruptStaysLatched(t *testing.T) {
	c := New()
	c.Raise(DiskA)
	_, ok := c.Service()
	assert.False(t, ok, "masked interrupt is not servicable")
	assert.True(t, c.Pending(DiskA), "but remains latched")

	c.SetIMR(1 << DiskA)
	n, ok := c.Service()
	assert.True(t, ok)
	assert.Equal(t, DiskA, n, "enabling the bit later makes it servicable")
}

func TestClearRemovesPending(t *testing.T) {
	c := New()
	c.SetIMR(0xFF)
	c.Raise(Syscall)
	c.Clear(Syscall)
	_, ok := c.Service()
	assert.False(t, ok)
}

func TestConcurrentRaise(t *testing.T) {
	c := New()
	c.SetIMR(0xFF)
	var wg sync.WaitGroup
	for i := uint8(0); i < Count; i++ {
		wg.Add(1)
		go func(n uint8) {
			defer wg.Done()
			c.Raise(n)
		}(i)
	}
	wg.Wait()
	for i := uint8(0); i < Count; i++ {
		assert.True(t, c.Pending(i))
	}
}
