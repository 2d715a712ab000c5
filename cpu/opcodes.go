package cpu

// Opcode is the fixed one-byte instruction tag. The numeric values are
// this port's own assignment (grouped by instruction class rather than
// mirroring any particular historical revision's hex table); nothing
// in the architecture is observable by its raw opcode byte, only by
// its mnemonic and semantics, so tests and the assembler address
// instructions by mnemonic.
type Opcode = byte

const (
	OpHALT Opcode = iota
	OpPAUSE
	OpTIMER
	OpUSERMODE
	OpIRETURN

	OpLOAD
	OpSTORE
	OpCOPY
	OpSWAP
	OpPUSH
	OpPOP

	OpNEGATE
	OpADD
	OpADDCARRY
	OpSUB
	OpSUBBORROW
	OpMULT
	OpSDIV
	OpUDIV
	OpSREM
	OpUREM

	OpNOT
	OpAND
	OpOR
	OpXOR
	OpLSHIFT
	OpSRSHIFT
	OpURSHIFT
	OpLROT
	OpRROT
	OpLROTCARRY
	OpRROTCARRY

	OpJUMP
	OpCOMPARE
	OpJEQUAL
	OpJNOTEQUAL
	OpSJGREATER
	OpSJGREATEREQ
	OpUJGREATER
	OpUJGREATEREQ
	OpSJLESSER
	OpSJLESSEREQ
	OpUJLESSER
	OpUJLESSEREQ
	OpJOVERFLOW
	OpJNOOVERFLOW
	OpJCARRY
	OpJNOCARRY
	OpJSIGN
	OpJNOSIGN
	OpCALL
	OpRETURN
	OpSYSCALL

	OpBLOCKCOPY
	OpBLOCKSET
	OpBLOCKCMP

	OpSCONVERT
	OpUCONVERT

	opcodeCount
)

var mnemonics = [opcodeCount]string{
	OpHALT:      "HALT",
	OpPAUSE:     "PAUSE",
	OpTIMER:     "TIMER",
	OpUSERMODE:  "USERMODE",
	OpIRETURN:   "IRETURN",
	OpLOAD:      "LOAD",
	OpSTORE:     "STORE",
	OpCOPY:      "COPY",
	OpSWAP:      "SWAP",
	OpPUSH:      "PUSH",
	OpPOP:       "POP",
	OpNEGATE:    "NEGATE",
	OpADD:       "ADD",
	OpADDCARRY:  "ADDCARRY",
	OpSUB:       "SUB",
	OpSUBBORROW: "SUBBORROW",
	OpMULT:      "MULT",
	OpSDIV:      "SDIV",
	OpUDIV:      "UDIV",
	OpSREM:      "SREM",
	OpUREM:      "UREM",

	OpNOT:       "NOT",
	OpAND:       "AND",
	OpOR:        "OR",
	OpXOR:       "XOR",
	OpLSHIFT:    "LSHIFT",
	OpSRSHIFT:   "SRSHIFT",
	OpURSHIFT:   "URSHIFT",
	OpLROT:      "LROT",
	OpRROT:      "RROT",
	OpLROTCARRY: "LROTCARRY",
	OpRROTCARRY: "RROTCARRY",

	OpJUMP:         "JUMP",
	OpCOMPARE:      "COMPARE",
	OpJEQUAL:       "JEQUAL",
	OpJNOTEQUAL:    "JNOTEQUAL",
	OpSJGREATER:    "SJGREATER",
	OpSJGREATEREQ:  "SJGREATEREQ",
	OpUJGREATER:    "UJGREATER",
	OpUJGREATEREQ:  "UJGREATEREQ",
	OpSJLESSER:     "SJLESSER",
	OpSJLESSEREQ:   "SJLESSEREQ",
	OpUJLESSER:     "UJLESSER",
	OpUJLESSEREQ:   "UJLESSEREQ",
	OpJOVERFLOW:    "JOVERFLOW",
	OpJNOOVERFLOW:  "JNOOVERFLOW",
	OpJCARRY:       "JCARRY",
	OpJNOCARRY:     "JNOCARRY",
	OpJSIGN:        "JSIGN",
	OpJNOSIGN:      "JNOSIGN",
	OpCALL:         "CALL",
	OpRETURN:       "RETURN",
	OpSYSCALL:      "SYSCALL",

	OpBLOCKCOPY: "BLOCKCOPY",
	OpBLOCKSET:  "BLOCKSET",
	OpBLOCKCMP:  "BLOCKCMP",

	OpSCONVERT: "SCONVERT",
	OpUCONVERT: "UCONVERT",
}

func mnemonic(op Opcode) string {
	if int(op) >= len(mnemonics) {
		return "UNKNOWN"
	}
	if m := mnemonics[op]; m != "" {
		return m
	}
	return "UNKNOWN"
}
