// Package bus implements the memory bus: it classifies every physical
// address against the fixed region map, enforces per-region read/write
// permissions, and routes the access to RAM, ROM, or a device register
// file.
package bus

import (
	"encoding/binary"

	"github.com/cjriches/simulatron/memory"
)

// Direction is the set of accesses a region permits.
type Direction int

const (
	Neither Direction = iota
	ReadOnly
	WriteOnly
	Both
)

// Region boundaries, per the fixed physical memory map.
const (
	VectorStart = 0x00000000
	VectorEnd   = 0x0000001F

	Reserved1Start = 0x00000020
	Reserved1End   = 0x0000003F

	ROMStart = 0x00000040
	ROMEnd   = 0x0000023F
	ROMSize  = ROMEnd - ROMStart + 1

	DisplayStart = 0x00000240
	DisplayEnd   = 0x000019AF
	DisplaySize  = DisplayEnd - DisplayStart + 1

	KeyboardStart = 0x000019B0
	KeyboardEnd   = 0x000019B1

	Reserved2Start = 0x000019B2
	Reserved2End   = 0x00001FEB

	DiskAStatusStart = 0x00001FEC
	DiskAStatusEnd   = 0x00001FEC
	DiskABlocksStart = 0x00001FED
	DiskABlocksEnd   = 0x00001FF0
	DiskAAddrStart   = 0x00001FF1
	DiskAAddrEnd     = 0x00001FF4
	DiskACmdStart    = 0x00001FF5
	DiskACmdEnd      = 0x00001FF5

	DiskBStatusStart = 0x00001FF6
	DiskBStatusEnd   = 0x00001FF6
	DiskBBlocksStart = 0x00001FF7
	DiskBBlocksEnd   = 0x00001FFA
	DiskBAddrStart   = 0x00001FFB
	DiskBAddrEnd     = 0x00001FFE
	DiskBCmdStart    = 0x00001FFF
	DiskBCmdEnd      = 0x00001FFF

	DiskADataStart = 0x00002000
	DiskADataEnd   = 0x00002FFF
	DiskBDataStart = 0x00003000
	DiskBDataEnd   = 0x00003FFF
)

// RegisterDevice is the capability a memory-mapped device exposes to the
// bus: read or write a byte at an offset relative to the device's region
// start. The bus enforces region direction; a device's ReadRegister is
// only ever called for addresses the region map marks readable, and
// likewise for WriteRegister.
type RegisterDevice interface {
	ReadRegister(offset uint32) byte
	WriteRegister(offset uint32, value byte)
}

// Fault is an illegal-operation condition raised by the bus itself
// (as opposed to a page fault, which comes from the MMU). It always
// corresponds to interrupt.IllegalOperation.
type Fault struct {
	Addr  uint32
	Write bool
}

func (f *Fault) Error() string {
	if f.Write {
		return "illegal operation: write to read-only or neither region"
	}
	return "illegal operation: read from write-only or neither region"
}

// Bus owns the region table and every device handle.
type Bus struct {
	ram memory.Provider
	rom [ROMSize]byte

	vector [VectorEnd - VectorStart + 1]byte

	display  RegisterDevice
	keyboard RegisterDevice
	diskA    RegisterDevice
	diskB    RegisterDevice

	diskAData [DiskADataEnd - DiskADataStart + 1]byte
	diskBData [DiskBDataEnd - DiskBDataStart + 1]byte
}

// New constructs a Bus backed by the given RAM provider. Device handles
// are attached separately via the Attach* methods once they exist.
func New(ram memory.Provider) *Bus {
	return &Bus{ram: ram}
}

func (b *Bus) LoadROM(data []byte) {
	copy(b.rom[:], data)
}

func (b *Bus) AttachDisplay(d RegisterDevice)  { b.display = d }
func (b *Bus) AttachKeyboard(d RegisterDevice) { b.keyboard = d }
func (b *Bus) AttachDiskA(d RegisterDevice)    { b.diskA = d }
func (b *Bus) AttachDiskB(d RegisterDevice)    { b.diskB = d }

// DiskAData and DiskBData expose the raw 4 KiB copy-in/copy-out buffers
// so the disk controllers can transfer blocks to and from the backing
// file without going back through the bus's permission checks (the
// controller is a trusted party, not guest code).
func (b *Bus) DiskAData() []byte { return b.diskAData[:] }
func (b *Bus) DiskBData() []byte { return b.diskBData[:] }

// ReadByte reads one byte at the given physical address. ok is false if
// the address is not readable, in which case the CPU must raise
// interrupt.IllegalOperation.
func (b *Bus) ReadByte(addr uint32) (value byte, ok bool) {
	switch {
	case addr >= VectorStart && addr <= VectorEnd:
		return b.vector[addr-VectorStart], true

	case addr >= Reserved1Start && addr <= Reserved1End:
		return 0, false
	case addr >= Reserved2Start && addr <= Reserved2End:
		return 0, false

	case addr >= ROMStart && addr <= ROMEnd:
		return b.rom[addr-ROMStart], true

	case addr >= DisplayStart && addr <= DisplayEnd:
		return 0, false // write-only

	case addr >= KeyboardStart && addr <= KeyboardEnd:
		if b.keyboard == nil {
			return 0, true
		}
		return b.keyboard.ReadRegister(addr - KeyboardStart), true

	case addr >= DiskAStatusStart && addr <= DiskABlocksEnd:
		if b.diskA == nil {
			return 0, true
		}
		return b.diskA.ReadRegister(addr - DiskAStatusStart), true
	case addr >= DiskAAddrStart && addr <= DiskACmdEnd:
		return 0, false // write-only

	case addr >= DiskBStatusStart && addr <= DiskBBlocksEnd:
		if b.diskB == nil {
			return 0, true
		}
		return b.diskB.ReadRegister(addr - DiskBStatusStart), true
	case addr >= DiskBAddrStart && addr <= DiskBCmdEnd:
		return 0, false // write-only

	case addr >= DiskADataStart && addr <= DiskADataEnd:
		return b.diskAData[addr-DiskADataStart], true
	case addr >= DiskBDataStart && addr <= DiskBDataEnd:
		return b.diskBData[addr-DiskBDataStart], true

	case addr >= memory.RAMStart:
		return b.ram.ReadByte(addr), true

	default:
		return 0, false
	}
}

// WriteByte writes one byte at the given physical address. ok is false
// if the address is not writable.
func (b *Bus) WriteByte(addr uint32, value byte) (ok bool) {
	switch {
	case addr >= VectorStart && addr <= VectorEnd:
		b.vector[addr-VectorStart] = value
		return true

	case addr >= Reserved1Start && addr <= Reserved1End:
		return false
	case addr >= Reserved2Start && addr <= Reserved2End:
		return false

	case addr >= ROMStart && addr <= ROMEnd:
		return false // read-only

	case addr >= DisplayStart && addr <= DisplayEnd:
		if b.display != nil {
			b.display.WriteRegister(addr-DisplayStart, value)
		}
		return true

	case addr >= KeyboardStart && addr <= KeyboardEnd:
		return false // read-only

	case addr >= DiskAStatusStart && addr <= DiskABlocksEnd:
		return false // read-only
	case addr >= DiskAAddrStart && addr <= DiskACmdEnd:
		if b.diskA != nil {
			b.diskA.WriteRegister(addr-DiskAStatusStart, value)
		}
		return true

	case addr >= DiskBStatusStart && addr <= DiskBBlocksEnd:
		return false // read-only
	case addr >= DiskBAddrStart && addr <= DiskBCmdEnd:
		if b.diskB != nil {
			b.diskB.WriteRegister(addr-DiskBStatusStart, value)
		}
		return true

	case addr >= DiskADataStart && addr <= DiskADataEnd:
		b.diskAData[addr-DiskADataStart] = value
		return true
	case addr >= DiskBDataStart && addr <= DiskBDataEnd:
		b.diskBData[addr-DiskBDataStart] = value
		return true

	case addr >= memory.RAMStart:
		b.ram.WriteByte(addr, value)
		return true

	default:
		return false
	}
}

// ReadPhysicalWord reads 4 big-endian bytes at addr, bypassing
// permission checks. It exists solely for the MMU's page-directory and
// page-table walk and for the CPU's interrupt-vector fetch, both of
// which read RAM the kernel owns directly, not through guest-visible
// LOAD semantics.
func (b *Bus) ReadPhysicalWord(addr uint32) uint32 {
	buf := make([]byte, 4)
	for i := 0; i < 4; i++ {
		v, _ := b.ReadByte(addr + uint32(i))
		buf[i] = v
	}
	return binary.BigEndian.Uint32(buf)
}
