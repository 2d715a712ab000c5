// Package asm is a minimal two-pass assembler for small Simulatron
// instruction fragments, mirroring simulatron-silk's two-stage
// structure (resolve labels, then emit) closely enough to build the
// tiny programs asm_test.go and similar fixtures need. It is test
// tooling: it covers the opcode and operand forms exercised by this
// port's tests, not the full instruction set or a general object-file
// format.
package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cjriches/simulatron/cpu"
)

// Addressing/operand tags, taken straight from cpu/decode.go so this
// assembler can never drift from the decode path it feeds.
const (
	addrLiteral     = cpu.AddrLiteral
	addrRegister    = cpu.AddrRegister
	operandRegister = cpu.OperandRegister
	operandLiteral  = cpu.OperandLiteral
)

// opcodes maps every mnemonic this assembler accepts to its real
// cpu.Opcode value, so the two packages can never fall out of sync.
var opcodes = map[string]byte{
	"HALT": cpu.OpHALT, "PAUSE": cpu.OpPAUSE, "TIMER": cpu.OpTIMER,
	"USERMODE": cpu.OpUSERMODE, "IRETURN": cpu.OpIRETURN,
	"LOAD": cpu.OpLOAD, "STORE": cpu.OpSTORE, "COPY": cpu.OpCOPY,
	"SWAP": cpu.OpSWAP, "PUSH": cpu.OpPUSH, "POP": cpu.OpPOP,
	"NEGATE": cpu.OpNEGATE,
	"ADD": cpu.OpADD, "ADDCARRY": cpu.OpADDCARRY, "SUB": cpu.OpSUB,
	"SUBBORROW": cpu.OpSUBBORROW, "MULT": cpu.OpMULT,
	"SDIV": cpu.OpSDIV, "UDIV": cpu.OpUDIV, "SREM": cpu.OpSREM, "UREM": cpu.OpUREM,
	"NOT": cpu.OpNOT, "AND": cpu.OpAND, "OR": cpu.OpOR, "XOR": cpu.OpXOR,
	"LSHIFT": cpu.OpLSHIFT, "SRSHIFT": cpu.OpSRSHIFT, "URSHIFT": cpu.OpURSHIFT,
	"LROT": cpu.OpLROT, "RROT": cpu.OpRROT,
	"LROTCARRY": cpu.OpLROTCARRY, "RROTCARRY": cpu.OpRROTCARRY,
	"JUMP": cpu.OpJUMP, "COMPARE": cpu.OpCOMPARE,
	"JEQUAL": cpu.OpJEQUAL, "JNOTEQUAL": cpu.OpJNOTEQUAL,
	"SJGREATER": cpu.OpSJGREATER, "SJGREATEREQ": cpu.OpSJGREATEREQ,
	"UJGREATER": cpu.OpUJGREATER, "UJGREATEREQ": cpu.OpUJGREATEREQ,
	"SJLESSER": cpu.OpSJLESSER, "SJLESSEREQ": cpu.OpSJLESSEREQ,
	"UJLESSER": cpu.OpUJLESSER, "UJLESSEREQ": cpu.OpUJLESSEREQ,
	"JOVERFLOW": cpu.OpJOVERFLOW, "JNOOVERFLOW": cpu.OpJNOOVERFLOW,
	"JCARRY": cpu.OpJCARRY, "JNOCARRY": cpu.OpJNOCARRY,
	"JSIGN": cpu.OpJSIGN, "JNOSIGN": cpu.OpJNOSIGN,
	"CALL": cpu.OpCALL, "RETURN": cpu.OpRETURN, "SYSCALL": cpu.OpSYSCALL,
	"BLOCKCOPY": cpu.OpBLOCKCOPY, "BLOCKSET": cpu.OpBLOCKSET, "BLOCKCMP": cpu.OpBLOCKCMP,
	"SCONVERT": cpu.OpSCONVERT, "UCONVERT": cpu.OpUCONVERT,
}

// noOperandOps take no operands at all.
var noOperandOps = map[string]bool{
	"HALT": true, "PAUSE": true, "USERMODE": true, "IRETURN": true,
	"RETURN": true, "SYSCALL": true,
}

// registerRef maps a register mnemonic to its encoded byte, its width in
// bytes, and whether it is a float register. ok is false for anything
// that is not a register name.
func registerRef(name string) (ref byte, width int, isFloat bool, ok bool) {
	name = strings.ToLower(name)
	switch name {
	case "flags":
		return 0x20, 2, false, true
	case "uspr":
		return 0x21, 4, false, true
	case "kspr":
		return 0x22, 4, false, true
	case "pdpr":
		return 0x23, 4, false, true
	case "imr":
		return 0x24, 2, false, true
	case "pfsr":
		return 0x25, 4, false, true
	}
	if len(name) >= 2 && name[0] == 'r' {
		suffix := name[1:]
		if n, kind, ok := splitRegSuffix(suffix); ok {
			switch kind {
			case "":
				return byte(0x00 + n), 4, false, true
			case "h":
				return byte(0x08 + n), 2, false, true
			case "b":
				return byte(0x10 + n), 1, false, true
			}
		}
	}
	if len(name) >= 2 && name[0] == 'f' {
		if n, kind, ok := splitRegSuffix(name[1:]); ok && kind == "" {
			return byte(0x18 + n), 4, true, true
		}
	}
	return 0, 0, false, false
}

func splitRegSuffix(s string) (n int, kind string, ok bool) {
	if len(s) == 0 {
		return 0, "", false
	}
	digit := s[0]
	if digit < '0' || digit > '7' {
		return 0, "", false
	}
	rest := s[1:]
	if rest != "" && rest != "h" && rest != "b" {
		return 0, "", false
	}
	return int(digit - '0'), rest, true
}

// relocation is an unresolved label reference patched in during pass 2.
type relocation struct {
	pos   int
	width int
	label string
}

// Assembler runs the two passes over one source unit. Use Assemble for
// the common one-shot case.
type Assembler struct {
	labels map[string]int
	relocs []relocation
	code   []byte
}

// Assemble parses source (one instruction or "label:" per line,
// "#" starts a comment unless it begins a "#literal" operand) and
// returns the fully linked byte stream.
func Assemble(source string) ([]byte, error) {
	a := &Assembler{labels: make(map[string]int)}
	if err := a.pass1(source); err != nil {
		return nil, err
	}
	if err := a.pass2(); err != nil {
		return nil, err
	}
	return a.code, nil
}

// pass1 walks the source once, recording each label's byte offset and
// emitting instruction bytes with zeroed placeholders for any operand
// that names a label, alongside a relocation to patch in pass 2. This
// mirrors simulatron-silk's parser/linker split: resolve symbols, then
// emit, except here both happen in one forward scan since every
// instruction's encoded length is fixed by its operand syntax, not by
// what a label eventually resolves to.
func (a *Assembler) pass1(source string) error {
	for lineNo, rawLine := range strings.Split(source, "\n") {
		line := stripComment(rawLine)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, ":") {
			label := strings.TrimSuffix(line, ":")
			a.labels[label] = len(a.code)
			continue
		}
		if err := a.assembleLine(line); err != nil {
			return fmt.Errorf("asm: line %d: %w", lineNo+1, err)
		}
	}
	return nil
}

// stripComment cuts line at the first '#' that starts a comment. A '#'
// immediately followed by a digit or '-' is a #literal operand instead.
func stripComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] != '#' {
			continue
		}
		if i+1 < len(line) && (line[i+1] >= '0' && line[i+1] <= '9' || line[i+1] == '-') {
			continue
		}
		return line[:i]
	}
	return line
}

func (a *Assembler) assembleLine(line string) error {
	fields := strings.SplitN(line, " ", 2)
	mnemonic := strings.ToUpper(strings.TrimSpace(fields[0]))
	op, ok := opcodes[mnemonic]
	if !ok {
		return fmt.Errorf("unknown mnemonic %q", fields[0])
	}
	a.code = append(a.code, op)

	var args []string
	if len(fields) == 2 {
		for _, part := range strings.Split(fields[1], ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				args = append(args, part)
			}
		}
	}
	if noOperandOps[mnemonic] {
		return nil
	}

	switch mnemonic {
	case "TIMER":
		return a.emitLiteralWord(args, 0)
	case "LOAD":
		if len(args) != 2 {
			return fmt.Errorf("%s needs dst, address", mnemonic)
		}
		if err := a.emitRegRef(args[0]); err != nil {
			return err
		}
		return a.emitAddress(args[1])
	case "STORE":
		if len(args) != 2 {
			return fmt.Errorf("%s needs address, src", mnemonic)
		}
		if err := a.emitAddress(args[0]); err != nil {
			return err
		}
		return a.emitRegRef(args[1])
	case "JUMP", "CALL":
		if len(args) != 1 {
			return fmt.Errorf("%s needs one address operand", mnemonic)
		}
		return a.emitAddress(args[0])
	case "JEQUAL", "JNOTEQUAL", "SJGREATER", "SJGREATEREQ", "UJGREATER", "UJGREATEREQ",
		"SJLESSER", "SJLESSEREQ", "UJLESSER", "UJLESSEREQ",
		"JOVERFLOW", "JNOOVERFLOW", "JCARRY", "JNOCARRY", "JSIGN", "JNOSIGN":
		if len(args) != 1 {
			return fmt.Errorf("%s needs one address operand", mnemonic)
		}
		return a.emitAddress(args[0])
	case "BLOCKCOPY", "BLOCKCMP":
		if len(args) != 3 {
			return fmt.Errorf("%s needs dst, src, length", mnemonic)
		}
		if err := a.emitAddress(args[0]); err != nil {
			return err
		}
		if err := a.emitAddress(args[1]); err != nil {
			return err
		}
		return a.emitAddress(args[2])
	case "BLOCKSET":
		if len(args) != 3 {
			return fmt.Errorf("%s needs dst, value, length", mnemonic)
		}
		if err := a.emitAddress(args[0]); err != nil {
			return err
		}
		if err := a.emitByteLiteral(args[1]); err != nil {
			return err
		}
		return a.emitAddress(args[2])
	case "SCONVERT", "UCONVERT":
		if len(args) != 2 {
			return fmt.Errorf("%s needs dst, src", mnemonic)
		}
		if err := a.emitRegRef(args[0]); err != nil {
			return err
		}
		return a.emitRegRef(args[1])
	case "SWAP":
		if len(args) != 2 {
			return fmt.Errorf("%s needs register, address", mnemonic)
		}
		if err := a.emitRegRef(args[0]); err != nil {
			return err
		}
		return a.emitAddress(args[1])
	case "PUSH", "POP", "NEGATE", "NOT":
		if len(args) != 1 {
			return fmt.Errorf("%s needs one register operand", mnemonic)
		}
		return a.emitRegRef(args[0])
	case "COPY", "COMPARE",
		"ADD", "ADDCARRY", "SUB", "SUBBORROW", "MULT", "SDIV", "UDIV", "SREM", "UREM",
		"AND", "OR", "XOR", "LSHIFT", "SRSHIFT", "URSHIFT",
		"LROT", "RROT", "LROTCARRY", "RROTCARRY":
		if len(args) != 2 {
			return fmt.Errorf("%s needs dst, operand", mnemonic)
		}
		_, width, isFloat, ok := registerRef(args[0])
		if !ok {
			return fmt.Errorf("%s: %q is not a register", mnemonic, args[0])
		}
		if err := a.emitRegRef(args[0]); err != nil {
			return err
		}
		return a.emitValueOperand(args[1], width, isFloat)
	default:
		return fmt.Errorf("asm: mnemonic %s not supported by this test assembler", mnemonic)
	}
}

func (a *Assembler) emitRegRef(tok string) error {
	ref, _, _, ok := registerRef(tok)
	if !ok {
		return fmt.Errorf("not a register: %q", tok)
	}
	a.code = append(a.code, ref)
	return nil
}

// emitAddress handles "[0x1000]", "[label]", or "[r0]".
func (a *Assembler) emitAddress(tok string) error {
	if !strings.HasPrefix(tok, "[") || !strings.HasSuffix(tok, "]") {
		return fmt.Errorf("address operand must be [..]: %q", tok)
	}
	inner := strings.TrimSpace(tok[1 : len(tok)-1])
	if ref, _, _, ok := registerRef(inner); ok {
		a.code = append(a.code, addrRegister, ref)
		return nil
	}
	a.code = append(a.code, addrLiteral)
	return a.emitWordOrLabel(inner)
}

// emitValueOperand handles a register name, or a "#literal" matching
// dstWidth/dstIsFloat.
func (a *Assembler) emitValueOperand(tok string, dstWidth int, dstIsFloat bool) error {
	if ref, _, isFloat, ok := registerRef(tok); ok {
		if isFloat != dstIsFloat {
			return fmt.Errorf("operand %q does not match destination's float/int kind", tok)
		}
		a.code = append(a.code, operandRegister, ref)
		return nil
	}
	if !strings.HasPrefix(tok, "#") {
		return fmt.Errorf("value operand must be a register or #literal: %q", tok)
	}
	a.code = append(a.code, operandLiteral)
	v, err := parseIntLiteral(tok[1:])
	if err != nil {
		return err
	}
	return a.emitFixedWidth(uint32(v), dstWidth)
}

func (a *Assembler) emitByteLiteral(tok string) error {
	if !strings.HasPrefix(tok, "#") {
		return fmt.Errorf("expected #literal, got %q", tok)
	}
	v, err := parseIntLiteral(tok[1:])
	if err != nil {
		return err
	}
	a.code = append(a.code, byte(v))
	return nil
}

func (a *Assembler) emitLiteralWord(args []string, _ int) error {
	if len(args) != 1 {
		return fmt.Errorf("TIMER needs one literal operand")
	}
	if !strings.HasPrefix(args[0], "#") {
		return fmt.Errorf("TIMER operand must be #literal")
	}
	v, err := parseIntLiteral(args[0][1:])
	if err != nil {
		return err
	}
	return a.emitFixedWidth(uint32(v), 4)
}

func (a *Assembler) emitFixedWidth(v uint32, width int) error {
	switch width {
	case 1:
		a.code = append(a.code, byte(v))
	case 2:
		a.code = append(a.code, byte(v>>8), byte(v))
	case 4:
		a.code = append(a.code, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	default:
		return fmt.Errorf("unsupported literal width %d", width)
	}
	return nil
}

// emitWordOrLabel emits a 4-byte placeholder for tok, recording a
// relocation if tok is a label rather than a numeric literal.
func (a *Assembler) emitWordOrLabel(tok string) error {
	if v, err := parseIntLiteral(tok); err == nil {
		return a.emitFixedWidth(uint32(v), 4)
	}
	a.relocs = append(a.relocs, relocation{pos: len(a.code), width: 4, label: tok})
	a.code = append(a.code, 0, 0, 0, 0)
	return nil
}

func parseIntLiteral(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseInt(s[2:], 16, 64)
	}
	return strconv.ParseInt(s, 10, 64)
}

// pass2 patches every recorded relocation now that every label's
// address is known.
func (a *Assembler) pass2() error {
	for _, r := range a.relocs {
		addr, ok := a.labels[r.label]
		if !ok {
			return fmt.Errorf("asm: undefined label %q", r.label)
		}
		switch r.width {
		case 4:
			v := uint32(addr)
			a.code[r.pos] = byte(v >> 24)
			a.code[r.pos+1] = byte(v >> 16)
			a.code[r.pos+2] = byte(v >> 8)
			a.code[r.pos+3] = byte(v)
		default:
			return fmt.Errorf("asm: unsupported relocation width %d", r.width)
		}
	}
	return nil
}
