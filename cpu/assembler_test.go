package cpu

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assemble(t *testing.T, program ...string) (prog *Program) {
	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(t, err)
	if err != nil {
		t.Fatal(err)
	}

	return
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Opcodes))
	assert.Equal("", prog.Text)

	assert.Equal("0", asm.Equate["LINENO"])
	assert.Equal(fmt.Sprintf("%v", REGISTERS), asm.Equate["REGISTERS"])
	assert.Equal("r2", asm.Equate["REG_CARRY"])
}

func TestAssemblerInstructions(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"ld r0 1",
		"ld r1 0x02  ; comment",
		"",
		"; whole line comment",
		"add r0 r1",
		"sub r1 r0",
		"or r2 r0",
		"and r0 r2",
		"xor r1 r1",
		"se r0 5",
		"sne r2 0xFF",
		"se r0 r1",
		"sne r1 r2",
		"nop",
		".word 0xBEEF",
		"halt",
	)

	assert.Equal("1001"+"1102"+"2001"+"3010"+"4020"+"5002"+"6011"+
		"7105"+"83FF"+"9001"+"A012"+"F000"+"BEEF"+"0000", prog.Text)

	expected := []Opcode{
		{1, 0, []string{"ld", "r0", "1"}, []Code{MakeCodeLoad(0, 1)}},
		{2, 1, []string{"ld", "r1", "0x02"}, []Code{MakeCodeLoad(1, 2)}},
		{5, 2, []string{"add", "r0", "r1"}, []Code{MakeCodeAlu(OP_ADD, 0, 1)}},
	}
	assert.Equal(expected, prog.Opcodes[:3])
	assert.Equal(16, prog.Opcodes[len(prog.Opcodes)-1].LineNo)
}

func TestAssemblerEqu(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		".equ CONST_10 0x10",
		".equ ACC r0",
		"ld ACC CONST_10",
		".equ CONST_30 $(2 * CONST_10 + CONST_10)",
		"ld r1 CONST_30",
		"ld r2 $(LINENO * 8 + 0x10)",
		"add ACC REG_CARRY",
		"halt",
	)

	assert.Equal("1010"+"1130"+"1240"+"2002"+"0000", prog.Text)
}

func TestAssemblerCharacter(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"ld r0 'A'",
		"se r1 '\\n'",
		"ld r2 $('z' - 'a')",
	)

	assert.Equal("1041"+"720A"+"1219", prog.Text)
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		".macro SETADD rn a b",
		"ld rn a",
		"ld r2 b",
		"add rn r2",
		".endm",
		"SETADD r0 8 8",
		".equ CONST_10 0x10",
		"SETADD r1 CONST_10 $(CONST_10 + 1)",
		"halt",
	)

	assert.Equal("1008"+"1208"+"2002"+"1110"+"1211"+"2012"+"0000", prog.Text)
	assert.Equal(3, len(prog.Opcodes[0].Codes)+len(prog.Opcodes[1].Codes)+len(prog.Opcodes[2].Codes))
	assert.Equal(2, prog.Opcodes[0].LineNo)
}

func TestAssemblerMacroScope(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join([]string{
		".equ v 7",
		".macro DEF v",
		".equ SEEN $(v)",
		"ld r0 v",
		".endm",
		".macro ONE n",
		"ld r0 n",
		".endm",
		"DEF 3",
		"ONE 1",
		"ld r1 SEEN",
		"ld r2 v",
		"halt",
	}, "\n")))
	assert.NoError(err)

	assert.Equal("1003"+"1001"+"1103"+"1207"+"0000", prog.Text)
	assert.Equal("7", asm.Equate["v"])
	assert.Equal("0x3", asm.Equate["SEEN"])
	assert.NotContains(asm.Equate, "n")
}

func TestAssemblerPredefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("START", "0x42")

	prog, err := asm.Parse(strings.NewReader("ld r0 START\nhalt"))
	assert.NoError(err)
	assert.Equal("10420000", prog.Text)
}

func TestAssemblerRoundTrip(t *testing.T) {
	assert := assert.New(t)

	for word := range 0x10000 {
		code := MakeCode(uint16(word))

		asm := &Assembler{}
		prog, err := asm.Parse(strings.NewReader(code.String()))
		if !assert.NoError(err, code.String()) {
			return
		}
		if !assert.Equal(code.Hex(), prog.Text, code.String()) {
			return
		}
	}
}

func TestAssemblerErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program []string
		lineno  int
		err     error
	}){
		{"invalid", []string{"halt", "jump r0"}, 2, ErrInstructionInvalid},
		{"register", []string{"ld r3 1"}, 1, ErrRegisterInvalid},
		{"register_imm", []string{"add r0 1"}, 1, ErrRegisterInvalid},
		{"missing", []string{"ld r0"}, 1, ErrOpcodeValueMissing},
		{"extra", []string{"halt now"}, 1, ErrOpcodeExtraArgs},
		{"extra_alu", []string{"add r0 r1 r2"}, 1, ErrOpcodeExtraArgs},
		{"equ_syntax", []string{".equ A"}, 1, ErrEquateSyntax},
		{"equ_duplicate", []string{".equ A 1", ".equ A 2"}, 2, ErrEquateDuplicate},
		{"macro_nesting", []string{".macro A", ".macro B"}, 2, ErrMacroNesting},
		{"macro_duplicate", []string{".macro A", ".endm", ".macro A"}, 3, ErrMacroDuplicate},
		{"macro_lonely", []string{".macro A", "halt"}, 2, ErrMacroLonely},
		{"macro_endm", []string{".endm"}, 1, ErrMacroLonelyEndm},
		{"macro_args", []string{".macro A x", "ld r0 x", ".endm", "A"}, 4, ErrMacroSyntax},
		{"macro_args_duplicate", []string{".macro A x x", ".endm"}, 1, ErrMacroSyntax},
		{"macro_recursion", []string{".macro A", "A", ".endm", "A"}, 4, ErrMacroRecursion},
		{"macro_recursion_indirect", []string{".macro A", "B", ".endm", ".macro B", "A", ".endm", "B"}, 7, ErrMacroRecursion},
		{"value_low", []string{"ld r0 -0x90000000"}, 1, ErrParseNumber("-0x90000000")},
		{"value_high", []string{".word 0x100000000"}, 1, ErrParseNumber("0x100000000")},
		{"expr_high", []string{"ld r0 $(1<<32)"}, 1, ErrParseExpression("1<<32")},
		{"expr_low", []string{"ld r0 $(-(1<<31)-1)"}, 1, ErrParseExpression("-(1<<31)-1")},
	}

	for _, entry := range table {
		asm := &Assembler{}
		_, err := asm.Parse(strings.NewReader(strings.Join(entry.program, "\n")))
		assert.ErrorIs(err, entry.err, entry.name)

		var syntax *ErrSyntax
		if assert.True(errors.As(err, &syntax), entry.name) {
			assert.Equal(entry.lineno, syntax.LineNo, entry.name)
		}
	}
}

func TestAssemblerValueErrors(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	_, err := asm.Parse(strings.NewReader("ld r0 0x100"))
	var rng *ErrValueRange
	assert.True(errors.As(err, &rng))
	assert.Equal(uint32(0x100), rng.Value)
	assert.Equal(uint32(0xff), rng.Limit)

	_, err = asm.Parse(strings.NewReader(".word 0x10000"))
	assert.True(errors.As(err, &rng))

	_, err = asm.Parse(strings.NewReader("ld r0 twelve"))
	var num ErrParseNumber
	assert.True(errors.As(err, &num))
	assert.Equal(ErrParseNumber("twelve"), num)

	_, err = asm.Parse(strings.NewReader("ld r0 $(1 +)"))
	assert.Error(err)

	_, err = asm.Parse(strings.NewReader(`ld r0 $("one")`))
	var expr ErrParseExpression
	assert.True(errors.As(err, &expr))
}

func TestAssemblerMacroError(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	_, err := asm.Parse(strings.NewReader(".macro BAD\nld r9 1\n.endm\nBAD"))

	var macro *ErrMacro
	assert.True(errors.As(err, &macro))
	assert.Equal("BAD", macro.Macro)
	assert.Equal(2, macro.Line)
	assert.ErrorIs(err, ErrRegisterInvalid)
}
