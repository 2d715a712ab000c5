package cpu

import "math"

// execConvert implements SCONVERT/UCONVERT: the only sanctioned way to
// move a value between an integer register and a float register.
// SCONVERT treats the integer side as signed, UCONVERT as unsigned.
func (c *CPU) execConvert(op Opcode) bool {
	dst, ok := c.fetchRegRef()
	if !ok {
		return false
	}
	src, ok := c.fetchRegRef()
	if !ok {
		return false
	}
	if dst.IsFloat() == src.IsFloat() {
		c.raiseIllegalOp()
		return false
	}

	if dst.IsFloat() {
		v, ok := c.readRegRef(src)
		if !ok {
			return false
		}
		var f float32
		if op == OpSCONVERT {
			f = float32(signExtend(v, src.Width()))
		} else {
			f = float32(v & maskWidth(src.Width()))
		}
		c.setFloatFlags(f)
		return c.writeRegRef(dst, math.Float32bits(f))
	}

	v, ok := c.readRegRef(src)
	if !ok {
		return false
	}
	fv := math.Float32frombits(v)
	width := dst.Width()
	var result uint32
	if op == OpSCONVERT {
		result = uint32(int64(fv)) & maskWidth(width)
	} else {
		result = uint32(uint64(fv)) & maskWidth(width)
	}
	c.setIntFlags(result, width, false, false)
	return c.writeRegRef(dst, result)
}
