// Package machine wires memory, the bus, the interrupt controller, every
// device, and the CPU into one bootable unit. It owns the pieces the
// teacher's VM.Start/Stop pair owned (program loading, start, stop) but
// generalized from one fixed-format LC-3 image to the Simulatron's
// ROM/disk-directory boot sequence and its richer device set.
package machine

import (
	"fmt"
	"os"

	"github.com/cjriches/simulatron/bus"
	"github.com/cjriches/simulatron/cpu"
	"github.com/cjriches/simulatron/device"
	"github.com/cjriches/simulatron/interrupt"
	"github.com/cjriches/simulatron/memory"
)

// Machine is the fully wired virtual machine: one CPU, one bus, one
// interrupt controller, and the fixed device set (display, keyboard,
// two disks, timer). Everything reachable from a guest program's point
// of view lives behind these fields; host front ends (host.Keyboard,
// host.Display) are attached separately by the caller since they are
// not part of the emulation core.
type Machine struct {
	Bus  *bus.Bus
	IRQ  *interrupt.Controller
	CPU  *cpu.CPU

	Display *device.Display
	Keyboard *device.Keyboard
	DiskA    *device.Disk
	DiskB    *device.Disk
	Timer    *device.Timer
}

// Config names the ROM image and the two disk directories a Machine
// boots with. DiskADir/DiskBDir need not already contain a file; a disk
// with no file present simply boots disconnected.
type Config struct {
	ROMPath  string
	DiskADir string
	DiskBDir string
	// Dense selects memory.Dense over the default memory.Sparse RAM
	// backing. Sparse is the right default for test fixtures and most
	// guest programs, which touch a small fraction of the 4 GiB address
	// space; Dense trades that sparsity for flat-array access cost.
	Dense bool
}

// New constructs a Machine in the deterministic boot configuration
// (kernel mode, IMR=0, nothing pending, every register zero) with the
// given ROM image loaded and both disk controllers watching their
// configured directories.
func New(cfg Config) (*Machine, error) {
	rom, err := os.ReadFile(cfg.ROMPath)
	if err != nil {
		return nil, fmt.Errorf("machine: reading ROM %s: %w", cfg.ROMPath, err)
	}
	if len(rom) > bus.ROMSize {
		return nil, fmt.Errorf("machine: ROM %s is %d bytes, exceeds the %d-byte ROM region",
			cfg.ROMPath, len(rom), bus.ROMSize)
	}
	for _, dir := range []string{cfg.DiskADir, cfg.DiskBDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("machine: disk directory %s does not exist", dir)
		}
	}

	var ram memory.Provider
	if cfg.Dense {
		ram = memory.NewDense()
	} else {
		ram = memory.NewSparse()
	}

	b := bus.New(ram)
	b.LoadROM(rom)

	irq := interrupt.New()

	disp := device.NewDisplay()
	kbd := device.NewKeyboard(irq)
	diskA := device.NewDisk(cfg.DiskADir, b.DiskAData(), irq, interrupt.DiskA)
	diskB := device.NewDisk(cfg.DiskBDir, b.DiskBData(), irq, interrupt.DiskB)
	timer := device.NewTimer(irq)

	b.AttachDisplay(disp)
	b.AttachKeyboard(kbd)
	b.AttachDiskA(diskA)
	b.AttachDiskB(diskB)

	c := cpu.New(b, irq, timer)

	return &Machine{
		Bus:      b,
		IRQ:      irq,
		CPU:      c,
		Display:  disp,
		Keyboard: kbd,
		DiskA:    diskA,
		DiskB:    diskB,
		Timer:    timer,
	}, nil
}

// Step advances the CPU by exactly one instruction cycle step.
func (m *Machine) Step() { m.CPU.Step() }

// Run steps the CPU until it halts.
func (m *Machine) Run() { m.CPU.Run() }

// Halted reports whether the CPU has executed a HALT.
func (m *Machine) Halted() bool { return m.CPU.Halted }

// Shutdown stops every device goroutine. It does not touch CPU state;
// call it once the CPU has halted or the caller is otherwise done.
func (m *Machine) Shutdown() {
	m.Timer.Stop()
	m.DiskA.Stop()
	m.DiskB.Stop()
}
