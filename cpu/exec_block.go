package cpu

import "github.com/cjriches/simulatron/mmu"

// execBLOCKCOPY copies length bytes src->dst, lowest address first. A
// fault partway through leaves the instruction's PC unmoved (per
// Step's fault handling), so the next attempt re-decodes the same
// operands and retries the whole copy from byte 0 — overwriting any
// already-copied prefix with the same values, which is harmless.
func (c *CPU) execBLOCKCOPY() bool {
	dst, ok := c.fetchAddress()
	if !ok {
		return false
	}
	src, ok := c.fetchAddress()
	if !ok {
		return false
	}
	length, ok := c.fetchAddress()
	if !ok {
		return false
	}
	for i := uint32(0); i < length; i++ {
		v, ok := c.readMem(src+i, 1, mmu.Read)
		if !ok {
			return false
		}
		if !c.writeMem(dst+i, 1, v) {
			return false
		}
	}
	return true
}

// execBLOCKSET fills length bytes starting at dst with value.
func (c *CPU) execBLOCKSET() bool {
	dst, ok := c.fetchAddress()
	if !ok {
		return false
	}
	value, ok := c.fetchByteOperand()
	if !ok {
		return false
	}
	length, ok := c.fetchAddress()
	if !ok {
		return false
	}
	for i := uint32(0); i < length; i++ {
		if !c.writeMem(dst+i, 1, uint32(value)) {
			return false
		}
	}
	return true
}

// execBLOCKCMP compares length bytes at a1 and a2. Z is set only if
// every byte matched; N reflects the unsigned sign of a1[i]-a2[i] at
// the first differing byte.
func (c *CPU) execBLOCKCMP() bool {
	a1, ok := c.fetchAddress()
	if !ok {
		return false
	}
	a2, ok := c.fetchAddress()
	if !ok {
		return false
	}
	length, ok := c.fetchAddress()
	if !ok {
		return false
	}

	equal := true
	var negative bool
	for i := uint32(0); i < length; i++ {
		v1, ok := c.readMem(a1+i, 1, mmu.Read)
		if !ok {
			return false
		}
		v2, ok := c.readMem(a2+i, 1, mmu.Read)
		if !ok {
			return false
		}
		if v1 != v2 {
			equal = false
			negative = v1 < v2
			break
		}
	}

	var f uint16
	if equal {
		f |= FlagZ
	}
	if negative {
		f |= FlagN
	}
	c.Flags = f
	return true
}
