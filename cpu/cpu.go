// Package cpu implements the Simulatron fetch/decode/execute loop: the
// register file, flags, privilege mode, interrupt entry and return, and
// the instruction set itself. It consults the mmu package for every
// memory access made while in user mode and talks to RAM, ROM, and
// devices exclusively through a *bus.Bus.
package cpu

import (
	"log"

	"github.com/cjriches/simulatron/bus"
	"github.com/cjriches/simulatron/interrupt"
	"github.com/cjriches/simulatron/mmu"
)

// Version is the instruction-set revision this package implements:
// 2.0.0 final numbering (ascending interrupt priority, 4-byte page
// table entries, SCONVERT/UCONVERT rather than COPY-with-conversion).
// See DESIGN.md for the revision-drift decisions this pins down.
const Version = "2.0.0"

// Mode is the CPU's privilege state.
type Mode int

const (
	Kernel Mode = iota
	User
)

// Timer is the narrow capability the TIMER instruction needs from the
// timer device; satisfied by *device.Timer.
type Timer interface {
	SetInterval(ms uint32)
}

// CPU is the complete architectural state machine value: register
// file, flags, privilege mode, and the suspension flags that drive the
// fetch loop. Nothing here is process-wide; a *CPU plus its *bus.Bus
// and *interrupt.Controller fully determine behaviour.
type CPU struct {
	R [8]uint32
	F [8]float32

	Flags uint16
	USPR  uint32
	KSPR  uint32
	PDPR  uint32
	IMR   uint16
	PFSR  uint32

	PC   uint32
	Mode Mode

	Halted bool
	Paused bool

	lastWasIRETURN bool

	bus   *bus.Bus
	irq   *interrupt.Controller
	timer Timer

	// Trace, when true, logs every decoded instruction the way the
	// original loop logged ADD/AND/NOT/BR. Off by default; tests and
	// interactive runs turn it on deliberately.
	Trace bool
}

// Flag bits within the FLAGS register.
const (
	FlagZ uint16 = 1 << 0
	FlagN uint16 = 1 << 1
	FlagC uint16 = 1 << 2
	FlagO uint16 = 1 << 3
)

// New constructs a CPU in the deterministic boot configuration: kernel
// mode, IMR=0, halted=false, paused=false, all registers and flags
// zero.
func New(b *bus.Bus, irq *interrupt.Controller, timer Timer) *CPU {
	return &CPU{bus: b, irq: irq, timer: timer, Mode: Kernel}
}

func (c *CPU) raiseIllegalOp() {
	c.irq.Raise(interrupt.IllegalOperation)
}

func (c *CPU) raiseDivByZero() {
	c.irq.Raise(interrupt.DivideByZero)
}

// translate resolves a CPU-visible address to a physical one. In
// kernel mode addresses are already physical. In user mode it runs the
// two-level walk and, on failure, publishes PFSR and raises the
// page-fault interrupt itself; the caller only needs to check ok.
func (c *CPU) translate(addr uint32, intent mmu.Intent) (uint32, bool) {
	if c.Mode == Kernel {
		return addr, true
	}
	phys, fault := mmu.Translate(c.bus, c.PDPR, addr, intent)
	if fault != nil {
		c.PFSR = fault.Code
		c.irq.Raise(interrupt.PageFault)
		return 0, false
	}
	return phys, true
}

// fetchByte reads one byte through the address path with fetch intent
// and advances PC, per the instruction cycle's step 1/2.
func (c *CPU) fetchByte() (byte, bool) {
	phys, ok := c.translate(c.PC, mmu.Fetch)
	if !ok {
		return 0, false
	}
	v, ok := c.bus.ReadByte(phys)
	if !ok {
		c.raiseIllegalOp()
		return 0, false
	}
	c.PC++
	return v, true
}

// fetchN reads width bytes (big-endian) through the fetch path,
// building a variable-width literal operand.
func (c *CPU) fetchN(width int) (uint32, bool) {
	var v uint32
	for i := 0; i < width; i++ {
		b, ok := c.fetchByte()
		if !ok {
			return 0, false
		}
		v = v<<8 | uint32(b)
	}
	return v, true
}

func (c *CPU) fetchByteOperand() (byte, bool) {
	v, ok := c.fetchN(1)
	return byte(v), ok
}

func (c *CPU) fetchWordOperand() (uint32, bool) { return c.fetchN(4) }

func (c *CPU) fetchRegRef() (RegRef, bool) {
	b, ok := c.fetchByteOperand()
	if !ok {
		return RegRef{}, false
	}
	r, ok := decodeRegRef(b)
	if !ok {
		c.raiseIllegalOp()
		return RegRef{}, false
	}
	return r, true
}

// readMem reads width bytes big-endian from addr, going through the
// MMU in user mode for the given intent (Read or Fetch, never Write).
func (c *CPU) readMem(addr uint32, width int, intent mmu.Intent) (uint32, bool) {
	var v uint32
	for i := 0; i < width; i++ {
		phys, ok := c.translate(addr+uint32(i), intent)
		if !ok {
			return 0, false
		}
		b, ok := c.bus.ReadByte(phys)
		if !ok {
			c.raiseIllegalOp()
			return 0, false
		}
		v = v<<8 | uint32(b)
	}
	return v, true
}

// writeMem writes width bytes of value, big-endian, to addr.
func (c *CPU) writeMem(addr uint32, width int, value uint32) bool {
	for i := 0; i < width; i++ {
		shift := uint(8 * (width - 1 - i))
		b := byte(value >> shift)
		phys, ok := c.translate(addr+uint32(i), mmu.Write)
		if !ok {
			return false
		}
		if !c.bus.WriteByte(phys, b) {
			c.raiseIllegalOp()
			return false
		}
	}
	return true
}

// activeStackPointer returns the register PUSH/POP/CALL/RETURN and
// interrupt entry use: KSPR in kernel mode, USPR in user mode,
// regardless of the current page mapping.
func (c *CPU) activeStackPointer() *uint32 {
	if c.Mode == Kernel {
		return &c.KSPR
	}
	return &c.USPR
}

// kpush and kpop always use KSPR directly and bypass the MMU; they back
// interrupt entry/return and USERMODE, which only ever run in kernel
// mode and deal in physical addresses on the kernel stack.
func (c *CPU) kpush(width int, value uint32) bool {
	c.KSPR -= uint32(width)
	return c.writeMem(c.KSPR, width, value)
}

func (c *CPU) kpop(width int) (uint32, bool) {
	v, ok := c.readMem(c.KSPR, width, mmu.Read)
	if !ok {
		return 0, false
	}
	c.KSPR += uint32(width)
	return v, true
}

// Step advances the machine by exactly one unit of the instruction
// cycle: servicing an interrupt, waking from PAUSE, or fetching,
// decoding and executing one instruction. It never blocks except
// inside PAUSE's wait.
func (c *CPU) Step() {
	if c.Halted {
		return
	}
	if n, ok := c.irq.Service(); ok {
		c.Paused = false
		c.enterInterrupt(n)
		c.lastWasIRETURN = false
		return
	}
	if c.Paused {
		n := c.irq.WaitServicable()
		c.Paused = false
		c.enterInterrupt(n)
		c.lastWasIRETURN = false
		return
	}

	start := c.PC
	opcode, ok := c.fetchByte()
	if !ok {
		c.PC = start
		c.lastWasIRETURN = false
		return
	}
	if c.Trace {
		log.Printf("0x%08x %s", start, mnemonic(opcode))
	}
	if !c.execute(opcode) {
		c.PC = start
		c.lastWasIRETURN = false
		return
	}
	c.lastWasIRETURN = opcode == OpIRETURN
}

// Run steps the CPU until it halts.
func (c *CPU) Run() {
	for !c.Halted {
		c.Step()
	}
}

// enterInterrupt performs the seven-step atomic interrupt-entry
// sequence. Any memory fault partway through is unrecoverable: a
// double fault halts the CPU.
func (c *CPU) enterInterrupt(n uint8) {
	wasKernel := c.Mode == Kernel
	c.Mode = Kernel

	flagsToPush := c.Flags &^ 0x8000
	if wasKernel {
		flagsToPush |= 0x8000
	}
	if !c.kpush(2, uint32(flagsToPush)) {
		c.Halted = true
		return
	}
	if !c.kpush(4, c.PC) {
		c.Halted = true
		return
	}
	if !c.kpush(2, uint32(c.IMR)) {
		c.Halted = true
		return
	}

	c.IMR = 0
	c.irq.SetIMR(0)
	c.irq.Clear(n)

	target := c.bus.ReadPhysicalWord(uint32(n) * 4)
	c.PC = target
}

// execIRETURN implements §4.8: pop IMR, PC, FLAGS, and switch mode
// according to the popped FLAGS' bit 15.
func (c *CPU) execIRETURN() bool {
	if c.Mode == User {
		c.raiseIllegalOp()
		return false
	}
	imr, ok := c.kpop(2)
	if !ok {
		c.Halted = true
		return false
	}
	pc, ok := c.kpop(4)
	if !ok {
		c.Halted = true
		return false
	}
	flags, ok := c.kpop(2)
	if !ok {
		c.Halted = true
		return false
	}

	c.IMR = uint16(imr)
	c.irq.SetIMR(c.IMR)
	c.PC = pc
	if flags&0x8000 == 0 {
		c.Mode = User
	} else {
		c.Mode = Kernel
	}
	c.Flags = uint16(flags) &^ 0x8000
	return true
}

// execUSERMODE implements §4.9: pop a virtual address off the kernel
// stack, clear FLAGS, switch to user mode, and jump there.
func (c *CPU) execUSERMODE() bool {
	if c.Mode == User {
		c.raiseIllegalOp()
		return false
	}
	addr, ok := c.kpop(4)
	if !ok {
		c.Halted = true
		return false
	}
	c.Flags = 0
	c.Mode = User
	c.PC = addr
	return true
}

// execTIMER implements §4.9: n=0 disables the periodic timer interrupt,
// otherwise it fires every n milliseconds.
func (c *CPU) execTIMER(ms uint32) bool {
	if c.Mode == User {
		c.raiseIllegalOp()
		return false
	}
	c.timer.SetInterval(ms)
	return true
}

// execPAUSE implements the PAUSE race-free contract: if the previous
// retired instruction was IRETURN, PAUSE is a no-op; otherwise it asks
// the outer loop to suspend until an enabled interrupt is latched.
func (c *CPU) execPAUSE() bool {
	if c.Mode == User {
		c.raiseIllegalOp()
		return false
	}
	if !c.lastWasIRETURN {
		c.Paused = true
	}
	return true
}

func (c *CPU) execHALT() bool {
	if c.Mode == User {
		c.raiseIllegalOp()
		return false
	}
	c.Halted = true
	return true
}
