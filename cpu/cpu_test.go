package cpu

import (
	"testing"

	"github.com/cjriches/simulatron/bus"
	"github.com/cjriches/simulatron/interrupt"
	"github.com/cjriches/simulatron/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- tiny byte-level assembler helpers, local to this test file ---

func u32(v uint32) []byte { return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)} }
func u16(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }

func litAddr(addr uint32) []byte { return append([]byte{AddrLiteral}, u32(addr)...) }

func regOperand(ref byte) []byte { return []byte{OperandRegister, ref} }
func litOperandWord(v uint32) []byte {
	return append([]byte{OperandLiteral}, u32(v)...)
}
func litOperandByte(v byte) []byte { return []byte{OperandLiteral, v} }

const regR0 = 0x00
const regR0b = 0x10

func newTestMachine(t *testing.T) (*CPU, *bus.Bus, *interrupt.Controller) {
	t.Helper()
	ram := memory.NewSparse()
	b := bus.New(ram)
	irq := interrupt.New()
	c := New(b, irq, noopTimer{})
	return c, b, irq
}

type noopTimer struct{}

func (noopTimer) SetInterval(uint32) {}

func loadROM(b *bus.Bus, code []byte) {
	rom := make([]byte, bus.ROMSize)
	copy(rom, code)
	b.LoadROM(rom)
}

func TestROMFetchPause(t *testing.T) {
	c, b, irq := newTestMachine(t)
	loadROM(b, []byte{OpPAUSE})
	c.PC = bus.ROMStart

	c.Step()
	assert.True(t, c.Paused)

	irq.SetIMR(0)
	assert.False(t, irq.Pending(interrupt.IllegalOperation))

	irq.SetIMR(1 << interrupt.IllegalOperation)
	irq.Raise(interrupt.IllegalOperation)
	done := make(chan struct{})
	go func() {
		c.Step()
		close(done)
	}()
	<-done
	assert.False(t, c.Paused)
}

func TestMMUInvalidPageFault(t *testing.T) {
	c, b, irq := newTestMachine(t)
	irq.SetIMR(1 << interrupt.PageFault)

	// Vector table: interrupt 2 (page fault) -> 0x100.
	for i, bb := range u32(0x100) {
		b.WriteByte(uint32(interrupt.PageFault)*4+uint32(i), bb)
	}

	c.PDPR = 0x10000
	c.Mode = User
	c.PC = 0x00000000 // directory[0].V=0 by construction (RAM starts zeroed)

	c.Step() // fetch faults: raises PageFault, PC restored to 0
	assert.Equal(t, uint32(0), c.PC)
	assert.Equal(t, User, c.Mode)

	c.Step() // interrupt serviced at the next instruction boundary

	assert.Equal(t, uint32(0x100), c.PC)
	assert.Equal(t, Kernel, c.Mode)
	assert.Equal(t, uint32(0), c.PFSR)

	_, ok := c.kpop(2) // saved IMR sits on top of the return address
	require.True(t, ok)
	returnAddr, ok := c.kpop(4)
	require.True(t, ok)
	assert.Equal(t, uint32(0x00000000), returnAddr)
}

func TestCopyOnWriteFault(t *testing.T) {
	c, b, irq := newTestMachine(t)
	irq.SetIMR(1 << interrupt.PageFault)

	for i, bb := range u32(0x200) {
		b.WriteByte(uint32(interrupt.PageFault)*4+uint32(i), bb)
	}

	const pdpr = 0x10000
	const dirFrame = 0x20000
	const tabFrame = 0x30000
	b.WriteByte(pdpr, byte(dirFrame>>24))
	b.WriteByte(pdpr+1, byte(dirFrame>>16))
	dirFrameU32 := uint32(dirFrame)
	b.WriteByte(pdpr+2, byte(dirFrameU32>>8))
	b.WriteByte(pdpr+3, byte(dirFrameU32)|0x01) // V=1

	// Virtual address 0x1000 has tab index 1, so the table entry lives
	// at tableFrame+4.
	tabEntry := uint32(tabFrame) | 1<<0 | 1<<1 | 1<<3 | 1<<5 // V,P,W,C
	for i, bb := range u32(tabEntry) {
		b.WriteByte(dirFrame+4+uint32(i), bb)
	}

	c.PDPR = pdpr
	c.Mode = User
	c.PC = bus.ROMStart // placeholder; we invoke the write path directly below

	ok := c.writeMem(0x00001000, 1, 0x55)
	assert.False(t, ok)
	assert.Equal(t, uint32(3), c.PFSR) // CopyOnWrite

	v, readOK := b.ReadByte(tabFrame)
	assert.True(t, readOK)
	assert.NotEqual(t, byte(0x55), v)
}

func TestArithmeticOverflowAndJOverflow(t *testing.T) {
	c, b, _ := newTestMachine(t)
	c.R[0] = 0x7F

	code := []byte{OpADD, regR0b}
	code = append(code, litOperandByte(1)...)
	code = append(code, OpJOVERFLOW)
	code = append(code, litAddr(0x500)...)
	loadROM(b, code)
	c.PC = bus.ROMStart

	c.Step() // ADD
	assert.Equal(t, uint32(0x80), c.R[0]&0xFF)
	assert.True(t, c.Flags&FlagN != 0)
	assert.True(t, c.Flags&FlagO != 0)
	assert.False(t, c.Flags&FlagZ != 0)
	assert.False(t, c.Flags&FlagC != 0)

	c.Step() // JOVERFLOW
	assert.Equal(t, uint32(0x500), c.PC)
}

func TestPauseRaceFreedomAfterIReturn(t *testing.T) {
	c, b, irq := newTestMachine(t)
	irq.SetIMR(1 << interrupt.Syscall)

	for i, bb := range u32(0x40) {
		b.WriteByte(uint32(interrupt.Syscall)*4+uint32(i), bb)
	}
	loadROM(b, []byte{OpIRETURN, OpPAUSE})

	c.KSPR = 0x8000
	require.True(t, c.kpush(2, 0x8000)) // FLAGS bit15=1 -> IRETURN keeps kernel mode
	require.True(t, c.kpush(4, bus.ROMStart+1))
	require.True(t, c.kpush(2, uint16ToU32(1<<interrupt.Syscall)))

	c.PC = bus.ROMStart
	c.Step() // IRETURN
	assert.False(t, c.Paused)

	c.PC = bus.ROMStart + 1
	c.Step() // PAUSE, should be a no-op since lastWasIRETURN
	assert.False(t, c.Paused)
}

func uint16ToU32(v uint16) uint32 { return uint32(v) }
