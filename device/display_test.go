package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayWriteAndSnapshot(t *testing.T) {
	d := NewDisplay()
	d.WriteRegister(0, 'X')     // char at cell 0
	d.WriteRegister(fgOffset, 0b110000) // fg at cell 0: R=3 => 255
	d.WriteRegister(bgOffset, 0b000011) // bg at cell 0: B=3 => 255

	snap := d.Snapshot()
	assert.Equal(t, byte('X'), snap[0].Char)
	assert.Equal(t, [3]byte{255, 0, 0}, snap[0].FgRGB)
	assert.Equal(t, [3]byte{0, 0, 255}, snap[0].BgRGB)
}

func TestDisplayIsReadOnlyZero(t *testing.T) {
	d := NewDisplay()
	assert.Equal(t, byte(0), d.ReadRegister(0))
}
