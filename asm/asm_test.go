package asm

import (
	"testing"

	"github.com/cjriches/simulatron/bus"
	"github.com/cjriches/simulatron/cpu"
	"github.com/cjriches/simulatron/interrupt"
	"github.com/cjriches/simulatron/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopTimer struct{}

func (noopTimer) SetInterval(uint32) {}

func TestAssembleAddByteLiteral(t *testing.T) {
	code, err := Assemble("ADD r0b, #1")
	require.NoError(t, err)
	assert.Equal(t, []byte{cpu.OpADD, 0x10, cpu.OperandLiteral, 1}, code)
}

func TestAssembleLabelForwardReference(t *testing.T) {
	src := `
JUMP [target]
HALT
target:
PAUSE
`
	code, err := Assemble(src)
	require.NoError(t, err)
	// JUMP(1) + mode(1) + addr(4) + HALT(1) = 7 bytes before "target".
	require.Len(t, code, 8)
	assert.Equal(t, []byte{0, 0, 0, 7}, code[2:6])
	assert.Equal(t, cpu.OpPAUSE, code[7])
}

func TestAssembledProgramExecutesOnCPU(t *testing.T) {
	code, err := Assemble("ADD r0b, #1\nJOVERFLOW [0x500]")
	require.NoError(t, err)

	ram := memory.NewSparse()
	b := bus.New(ram)
	rom := make([]byte, bus.ROMSize)
	copy(rom, code)
	b.LoadROM(rom)

	irq := interrupt.New()
	c := cpu.New(b, irq, noopTimer{})
	c.R[0] = 0x7F
	c.PC = bus.ROMStart

	c.Step()
	assert.Equal(t, uint32(0x80), c.R[0]&0xFF)
	assert.True(t, c.Flags&cpu.FlagO != 0)

	c.Step()
	assert.Equal(t, uint32(0x500), c.PC)
}

func TestUndefinedLabelIsAnError(t *testing.T) {
	_, err := Assemble("JUMP [nowhere]")
	assert.Error(t, err)
}
