package device

import (
	"testing"

	"github.com/cjriches/simulatron/interrupt"
	"github.com/stretchr/testify/assert"
)

func TestKeyboardFeedLatchesAndRaises(t *testing.T) {
	irq := interrupt.New()
	irq.SetIMR(1 << interrupt.Keyboard)
	kb := NewKeyboard(irq)

	kb.Feed(KeyEvent{Key: 'A', Ctrl: true, Alt: false})

	assert.Equal(t, byte('A'), kb.ReadRegister(0))
	assert.Equal(t, byte(metaCtrl), kb.ReadRegister(1))

	n, ok := irq.Service()
	assert.True(t, ok)
	assert.Equal(t, interrupt.Keyboard, n)
}
