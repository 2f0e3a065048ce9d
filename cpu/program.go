package cpu

import (
	"iter"
	"strings"
)

// CODE_WIDTH is the number of hex digits in one instruction.
const CODE_WIDTH = 4

// Program is an instruction stream: four uppercase hex digits per
// instruction, back to back, read from Ip onwards. The stream ends at
// the first group that does not decode.
type Program struct {
	Text    string   // Instruction text.
	Ip      int      // Index of the next instruction to fetch.
	Opcodes []Opcode // Assembler listing, if the text was assembled.
}

// Opcode represents a line of assembled code with its source location
// and generated instructions.
type Opcode struct {
	LineNo int
	Ip     int
	Words  []string
	Codes  []Code
}

type Debug struct {
	*Opcode
	Index int
}

// NewProgram creates a program over instruction text.
func NewProgram(text string) *Program {
	return &Program{Text: text}
}

// ProgramOf encodes instructions into a new program.
func ProgramOf(codes ...Code) *Program {
	var text strings.Builder
	for _, code := range codes {
		text.WriteString(code.Hex())
	}

	return NewProgram(text.String())
}

// hexValue decodes a single uppercase hex digit.
func hexValue(c byte) (value uint8, ok bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return 10 + c - 'A', true
	}
	return
}

// decodeAt decodes the instruction at index ip.
func (prog *Program) decodeAt(ip int) (code Code, ok bool) {
	pos := ip * CODE_WIDTH
	if ip < 0 || pos+CODE_WIDTH > len(prog.Text) {
		return
	}

	var digits [CODE_WIDTH]uint8
	for n := range CODE_WIDTH {
		digits[n], ok = hexValue(prog.Text[pos+n])
		if !ok {
			return
		}
	}

	code = Code{
		High: digits[0]<<4 | digits[1],
		Low:  digits[2]<<4 | digits[3],
	}
	return
}

// FetchCode fetches the next instruction and advances Ip past it.
// ErrIpEmpty is returned, and Ip left alone, once the stream no longer
// decodes.
func (prog *Program) FetchCode() (code Code, err error) {
	code, ok := prog.decodeAt(prog.Ip)
	if !ok {
		err = ErrIpEmpty
		return
	}

	prog.Ip++
	return
}

// Rewind moves Ip back to the first instruction.
func (prog *Program) Rewind() {
	prog.Ip = 0
}

// Codes iterates over every decodable instruction from the start of the
// stream, without moving Ip.
func (prog *Program) Codes() iter.Seq2[int, Code] {
	return func(yield func(ip int, code Code) bool) {
		for ip := 0; ; ip++ {
			code, ok := prog.decodeAt(ip)
			if !ok || !yield(ip, code) {
				return
			}
		}
	}
}

// Hex returns the decodable part of the stream as instruction text.
func (prog *Program) Hex() string {
	var text strings.Builder
	for _, code := range prog.Codes() {
		text.WriteString(code.Hex())
	}

	return text.String()
}

// Debug returns the listing entry that generated instruction ip.
func (prog *Program) Debug(ip int) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if ip >= op.Ip && ip < op.Ip+len(op.Codes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  ip - op.Ip,
			}
			break
		}
	}

	return
}
