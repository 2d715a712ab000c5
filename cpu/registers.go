package cpu

import "math"

// RegKind identifies which part of the register file a register
// reference byte names. The byte encoding is fixed by the architecture:
// 0x00-0x07 r0-r7 (word), 0x08-0x0F r0h-r7h (half), 0x10-0x17 r0b-r7b
// (byte), 0x18-0x1F f0-f7 (float), then the named special registers
// 0x20-0x25. Anything beyond 0x25 is not a valid reference.
type RegKind int

const (
	KindGPRWord RegKind = iota
	KindGPRHalf
	KindGPRByte
	KindFloat
	KindFlags
	KindUSPR
	KindKSPR
	KindPDPR
	KindIMR
	KindPFSR
)

// RegRef is a decoded register reference: which register, and at what
// width/kind it was addressed.
type RegRef struct {
	Kind  RegKind
	Index int // meaningful for KindGPR* and KindFloat
}

// decodeRegRef maps a register reference byte to a RegRef. ok is false
// for any byte past 0x25, which is always an invalid reference.
func decodeRegRef(b byte) (RegRef, bool) {
	switch {
	case b <= 0x07:
		return RegRef{Kind: KindGPRWord, Index: int(b)}, true
	case b <= 0x0F:
		return RegRef{Kind: KindGPRHalf, Index: int(b - 0x08)}, true
	case b <= 0x17:
		return RegRef{Kind: KindGPRByte, Index: int(b - 0x10)}, true
	case b <= 0x1F:
		return RegRef{Kind: KindFloat, Index: int(b - 0x18)}, true
	case b == 0x20:
		return RegRef{Kind: KindFlags}, true
	case b == 0x21:
		return RegRef{Kind: KindUSPR}, true
	case b == 0x22:
		return RegRef{Kind: KindKSPR}, true
	case b == 0x23:
		return RegRef{Kind: KindPDPR}, true
	case b == 0x24:
		return RegRef{Kind: KindIMR}, true
	case b == 0x25:
		return RegRef{Kind: KindPFSR}, true
	default:
		return RegRef{}, false
	}
}

// Width returns the register's width in bytes, which is also the width
// any "variable" literal operand following this reference takes.
func (r RegRef) Width() int {
	switch r.Kind {
	case KindGPRByte:
		return 1
	case KindGPRHalf, KindFlags, KindIMR:
		return 2
	default:
		return 4
	}
}

func (r RegRef) IsFloat() bool { return r.Kind == KindFloat }

func (r RegRef) IsInteger() bool {
	switch r.Kind {
	case KindGPRWord, KindGPRHalf, KindGPRByte:
		return true
	default:
		return false
	}
}

// privilegedRead reports whether reading this reference in user mode
// is illegal.
func (r RegRef) privilegedRead() bool {
	switch r.Kind {
	case KindKSPR, KindPDPR, KindIMR, KindPFSR:
		return true
	default:
		return false
	}
}

// privilegedWrite reports whether writing this reference in user mode
// is illegal. PFSR is handled separately: it is illegal to write in
// any mode.
func (r RegRef) privilegedWrite() bool {
	switch r.Kind {
	case KindKSPR, KindPDPR, KindIMR:
		return true
	default:
		return false
	}
}

// readRegRef returns the register's value as a 32-bit bit pattern
// (zero-extended for narrower integers, math.Float32bits for floats).
// It raises illegal-op and returns !ok if the reference is privileged
// and the CPU is in user mode.
func (c *CPU) readRegRef(r RegRef) (uint32, bool) {
	if r.privilegedRead() && c.Mode == User {
		c.raiseIllegalOp()
		return 0, false
	}
	switch r.Kind {
	case KindGPRWord:
		return c.R[r.Index], true
	case KindGPRHalf:
		return c.R[r.Index] & 0xFFFF, true
	case KindGPRByte:
		return c.R[r.Index] & 0xFF, true
	case KindFloat:
		return math.Float32bits(c.F[r.Index]), true
	case KindFlags:
		return uint32(c.Flags &^ 0x8000), true // bit 15 always reads 0
	case KindUSPR:
		return c.USPR, true
	case KindKSPR:
		return c.KSPR, true
	case KindPDPR:
		return c.PDPR, true
	case KindIMR:
		return uint32(c.IMR), true
	case KindPFSR:
		return c.PFSR, true
	default:
		c.raiseIllegalOp()
		return 0, false
	}
}

// writeRegRef installs bits into the register named by r, masking to
// the reference's width so a sub-register write only touches its own
// bits. PFSR is read-only in every mode; writing it is always illegal.
func (c *CPU) writeRegRef(r RegRef, bits uint32) bool {
	if r.Kind == KindPFSR {
		c.raiseIllegalOp()
		return false
	}
	if r.privilegedWrite() && c.Mode == User {
		c.raiseIllegalOp()
		return false
	}
	switch r.Kind {
	case KindGPRWord:
		c.R[r.Index] = bits
	case KindGPRHalf:
		c.R[r.Index] = (c.R[r.Index] &^ 0xFFFF) | (bits & 0xFFFF)
	case KindGPRByte:
		c.R[r.Index] = (c.R[r.Index] &^ 0xFF) | (bits & 0xFF)
	case KindFloat:
		c.F[r.Index] = math.Float32frombits(bits)
	case KindFlags:
		c.Flags = uint16(bits) &^ 0x8000
	case KindUSPR:
		c.USPR = bits
	case KindKSPR:
		c.KSPR = bits
	case KindPDPR:
		c.PDPR = bits
	case KindIMR:
		c.IMR = uint16(bits)
		c.irq.SetIMR(c.IMR)
	default:
		c.raiseIllegalOp()
		return false
	}
	return true
}
