package cpu

import (
	"fmt"
)

// CodeOp is the operation selected by an instruction's high byte.
type CodeOp int

const (
	OP_NOP     = CodeOp(0)  // nop
	OP_HALT    = CodeOp(1)  // halt
	OP_LD      = CodeOp(2)  // ld
	OP_ADD     = CodeOp(3)  // add
	OP_SUB     = CodeOp(4)  // sub
	OP_OR      = CodeOp(5)  // or
	OP_AND     = CodeOp(6)  // and
	OP_XOR     = CodeOp(7)  // xor
	OP_SE_IMM  = CodeOp(8)  // se
	OP_SNE_IMM = CodeOp(9)  // sne
	OP_SE_REG  = CodeOp(10) // se
	OP_SNE_REG = CodeOp(11) // sne
)

var _op_names = [...]string{
	OP_NOP:     "nop",
	OP_HALT:    "halt",
	OP_LD:      "ld",
	OP_ADD:     "add",
	OP_SUB:     "sub",
	OP_OR:      "or",
	OP_AND:     "and",
	OP_XOR:     "xor",
	OP_SE_IMM:  "se",
	OP_SNE_IMM: "sne",
	OP_SE_REG:  "se",
	OP_SNE_REG: "sne",
}

func (op CodeOp) String() string {
	if op < 0 || int(op) >= len(_op_names) {
		return fmt.Sprintf("CodeOp(%d)", int(op))
	}
	return _op_names[op]
}

// High byte encodings. The register-immediate families add the
// register index to their base. For se and sne the base is 0x71 and
// 0x81, so 0x71 compares r0 and 0x73 compares r2; no immediate compare
// encoding names a register outside the bank.
const (
	CODE_HALT    = uint8(0x00)
	CODE_LD      = uint8(0x10) // ld r0..r2: 0x10..0x12
	CODE_ADD     = uint8(0x20)
	CODE_SUB     = uint8(0x30)
	CODE_OR      = uint8(0x40)
	CODE_AND     = uint8(0x50)
	CODE_XOR     = uint8(0x60)
	CODE_SE_IMM  = uint8(0x71) // se r0..r2: 0x71..0x73
	CODE_SNE_IMM = uint8(0x81) // sne r0..r2: 0x81..0x83
	CODE_SE_REG  = uint8(0x90)
	CODE_SNE_REG = uint8(0xA0)
	CODE_NOP     = uint8(0xF0) // Canonical unassigned high byte.
)

// Code is a single two-byte instruction.
type Code struct {
	High uint8
	Low  uint8
}

// MakeCode creates an instruction from its 16-bit word.
func MakeCode(word uint16) Code {
	return Code{High: uint8(word >> 8), Low: uint8(word)}
}

// MakeCodeHalt creates a halt instruction.
func MakeCodeHalt() Code {
	return Code{High: CODE_HALT}
}

// MakeCodeLoad creates a load-immediate instruction.
func MakeCodeLoad(reg int, value uint8) Code {
	return Code{High: CODE_LD + uint8(reg), Low: value}
}

// MakeCodeAlu creates a register-register arithmetic or logic instruction.
func MakeCodeAlu(op CodeOp, x, y int) Code {
	var high uint8
	switch op {
	case OP_ADD:
		high = CODE_ADD
	case OP_SUB:
		high = CODE_SUB
	case OP_OR:
		high = CODE_OR
	case OP_AND:
		high = CODE_AND
	case OP_XOR:
		high = CODE_XOR
	default:
		panic(fmt.Sprintf("%v is not an alu operation", op))
	}
	return Code{High: high, Low: makePair(x, y)}
}

// MakeCodeSkip creates a conditional skip instruction. OP_SE_IMM and
// OP_SNE_IMM compare register a against the immediate b; OP_SE_REG and
// OP_SNE_REG compare registers a and b.
func MakeCodeSkip(op CodeOp, a, b int) Code {
	switch op {
	case OP_SE_IMM:
		return Code{High: CODE_SE_IMM + uint8(a), Low: uint8(b)}
	case OP_SNE_IMM:
		return Code{High: CODE_SNE_IMM + uint8(a), Low: uint8(b)}
	case OP_SE_REG:
		return Code{High: CODE_SE_REG, Low: makePair(a, b)}
	case OP_SNE_REG:
		return Code{High: CODE_SNE_REG, Low: makePair(a, b)}
	}
	panic(fmt.Sprintf("%v is not a skip operation", op))
}

func makePair(x, y int) uint8 {
	return uint8((x&0xf)<<4) | uint8(y&0xf)
}

// Word returns the 16-bit instruction word.
func (code Code) Word() uint16 {
	return uint16(code.High)<<8 | uint16(code.Low)
}

// Op returns the operation selected by the high byte.
func (code Code) Op() CodeOp {
	switch high := code.High; {
	case high == CODE_HALT:
		return OP_HALT
	case high >= CODE_LD && high < CODE_LD+REGISTERS:
		return OP_LD
	case high == CODE_ADD:
		return OP_ADD
	case high == CODE_SUB:
		return OP_SUB
	case high == CODE_OR:
		return OP_OR
	case high == CODE_AND:
		return OP_AND
	case high == CODE_XOR:
		return OP_XOR
	case high >= CODE_SE_IMM && high < CODE_SE_IMM+REGISTERS:
		return OP_SE_IMM
	case high >= CODE_SNE_IMM && high < CODE_SNE_IMM+REGISTERS:
		return OP_SNE_IMM
	case high == CODE_SE_REG:
		return OP_SE_REG
	case high == CODE_SNE_REG:
		return OP_SNE_REG
	}
	return OP_NOP
}

// ImmDecode decodes the register and immediate of a ld, se or sne
// immediate instruction.
func (code Code) ImmDecode() (reg int, imm uint8) {
	imm = code.Low
	switch code.Op() {
	case OP_LD:
		reg = int(code.High - CODE_LD)
	case OP_SE_IMM:
		reg = int(code.High - CODE_SE_IMM)
	case OP_SNE_IMM:
		reg = int(code.High - CODE_SNE_IMM)
	default:
		reg = -1
	}
	return
}

// PairDecode decodes the two register nibbles of the low byte.
func (code Code) PairDecode() (x, y int) {
	x = int(code.Low>>4) & 0xf
	y = int(code.Low>>0) & 0xf
	return
}

// String returns the assembly language representation of this instruction.
// Words with no exact mnemonic form are rendered as '.word'.
func (code Code) String() (out string) {
	op := code.Op()

	switch op {
	case OP_HALT:
		if code.Low == 0 {
			return op.String()
		}
	case OP_LD, OP_SE_IMM, OP_SNE_IMM:
		reg, imm := code.ImmDecode()
		return fmt.Sprintf("%v r%d 0x%02X", op, reg, imm)
	case OP_ADD, OP_SUB, OP_OR, OP_AND, OP_XOR, OP_SE_REG, OP_SNE_REG:
		x, y := code.PairDecode()
		if regOk(x) && regOk(y) {
			return fmt.Sprintf("%v r%d r%d", op, x, y)
		}
	}

	return fmt.Sprintf(".word 0x%04X", code.Word())
}

// Hex returns the four-digit instruction text.
func (code Code) Hex() string {
	return fmt.Sprintf("%04X", code.Word())
}
