package cpu

import (
	"github.com/cjriches/simulatron/interrupt"
	"github.com/cjriches/simulatron/mmu"
)

// execute decodes and runs the operands for one opcode already fetched
// from PC. It returns false if any decode step or the instruction body
// itself raised a fault; the caller is responsible for resetting PC to
// the start of the instruction in that case.
func (c *CPU) execute(op Opcode) bool {
	switch op {
	case OpHALT:
		return c.execHALT()
	case OpPAUSE:
		return c.execPAUSE()
	case OpTIMER:
		ms, ok := c.fetchWordOperand()
		if !ok {
			return false
		}
		return c.execTIMER(ms)
	case OpUSERMODE:
		return c.execUSERMODE()
	case OpIRETURN:
		return c.execIRETURN()

	case OpLOAD:
		return c.execLOAD()
	case OpSTORE:
		return c.execSTORE()
	case OpCOPY:
		return c.execCOPY()
	case OpSWAP:
		return c.execSWAP()
	case OpPUSH:
		return c.execPUSH()
	case OpPOP:
		return c.execPOP()

	case OpNEGATE:
		return c.execUnaryArith(op)
	case OpADD, OpADDCARRY, OpSUB, OpSUBBORROW, OpMULT, OpSDIV, OpUDIV, OpSREM, OpUREM:
		return c.execBinaryArith(op)

	case OpNOT:
		return c.execUnaryBitwise(op)
	case OpAND, OpOR, OpXOR, OpLSHIFT, OpSRSHIFT, OpURSHIFT,
		OpLROT, OpRROT, OpLROTCARRY, OpRROTCARRY:
		return c.execBinaryBitwise(op)

	case OpJUMP:
		addr, ok := c.fetchAddress()
		if !ok {
			return false
		}
		c.PC = addr
		return true
	case OpCOMPARE:
		return c.execCOMPARE()
	case OpJEQUAL, OpJNOTEQUAL, OpSJGREATER, OpSJGREATEREQ, OpUJGREATER, OpUJGREATEREQ,
		OpSJLESSER, OpSJLESSEREQ, OpUJLESSER, OpUJLESSEREQ,
		OpJOVERFLOW, OpJNOOVERFLOW, OpJCARRY, OpJNOCARRY, OpJSIGN, OpJNOSIGN:
		return c.execConditionalJump(op)
	case OpCALL:
		return c.execCALL()
	case OpRETURN:
		return c.execRETURN()
	case OpSYSCALL:
		return c.execSYSCALL()

	case OpBLOCKCOPY:
		return c.execBLOCKCOPY()
	case OpBLOCKSET:
		return c.execBLOCKSET()
	case OpBLOCKCMP:
		return c.execBLOCKCMP()

	case OpSCONVERT, OpUCONVERT:
		return c.execConvert(op)

	default:
		c.raiseIllegalOp()
		return false
	}
}

func (c *CPU) execLOAD() bool {
	dst, ok := c.fetchRegRef()
	if !ok {
		return false
	}
	addr, ok := c.fetchAddress()
	if !ok {
		return false
	}
	v, ok := c.readMem(addr, dst.Width(), mmu.Read)
	if !ok {
		return false
	}
	return c.writeRegRef(dst, v)
}

func (c *CPU) execSTORE() bool {
	addr, ok := c.fetchAddress()
	if !ok {
		return false
	}
	src, ok := c.fetchRegRef()
	if !ok {
		return false
	}
	v, ok := c.readRegRef(src)
	if !ok {
		return false
	}
	return c.writeMem(addr, src.Width(), v)
}

// execCOPY moves a value between same-type registers, or installs a
// same-width literal. Differing-type register-to-register moves
// (int<->float) are illegal; use SCONVERT/UCONVERT instead.
func (c *CPU) execCOPY() bool {
	dst, ok := c.fetchRegRef()
	if !ok {
		return false
	}
	v, ok := c.fetchOperandValue(dst)
	if !ok {
		return false
	}
	return c.writeRegRef(dst, v)
}

// execSWAP atomically exchanges a register and a memory word of the
// register's width.
func (c *CPU) execSWAP() bool {
	reg, ok := c.fetchRegRef()
	if !ok {
		return false
	}
	addr, ok := c.fetchAddress()
	if !ok {
		return false
	}
	regVal, ok := c.readRegRef(reg)
	if !ok {
		return false
	}
	memVal, ok := c.readMem(addr, reg.Width(), mmu.Read)
	if !ok {
		return false
	}
	if !c.writeMem(addr, reg.Width(), regVal) {
		return false
	}
	return c.writeRegRef(reg, memVal)
}

func (c *CPU) execPUSH() bool {
	reg, ok := c.fetchRegRef()
	if !ok {
		return false
	}
	v, ok := c.readRegRef(reg)
	if !ok {
		return false
	}
	sp := c.activeStackPointer()
	*sp -= uint32(reg.Width())
	return c.writeMem(*sp, reg.Width(), v)
}

func (c *CPU) execPOP() bool {
	reg, ok := c.fetchRegRef()
	if !ok {
		return false
	}
	sp := c.activeStackPointer()
	v, ok := c.readMem(*sp, reg.Width(), mmu.Read)
	if !ok {
		return false
	}
	*sp += uint32(reg.Width())
	return c.writeRegRef(reg, v)
}

func (c *CPU) execCALL() bool {
	target, ok := c.fetchAddress()
	if !ok {
		return false
	}
	sp := c.activeStackPointer()
	*sp -= 4
	if !c.writeMem(*sp, 4, c.PC) {
		return false
	}
	c.PC = target
	return true
}

func (c *CPU) execRETURN() bool {
	sp := c.activeStackPointer()
	addr, ok := c.readMem(*sp, 4, mmu.Read)
	if !ok {
		return false
	}
	*sp += 4
	c.PC = addr
	return true
}

func (c *CPU) execSYSCALL() bool {
	c.irq.Raise(interrupt.Syscall)
	return true
}
