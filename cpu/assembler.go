// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":    "0",
	"REGISTERS": fmt.Sprintf("%v", REGISTERS),
	"REG_CARRY": fmt.Sprintf("r%v", REG_CARRY),
}

// Assembler is a single pass macro assembler for the tricpu system.
type Assembler struct {
	Verbose bool         // If set, verbosely logs the assembler actions.
	Logger  *slog.Logger // Log destination; slog.Default() if nil.
	Opcode  []Opcode     // List of generated opcodes.

	predefine map[string]string   // Predefines
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	expanding map[string]bool // Macros being expanded.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// regMap is a map of register names to register indexes.
var regMap = map[string]int{
	"r0": 0,
	"r1": 1,
	"r2": 2,
}

// register returns the register index for a word.
func (asm *Assembler) register(word string) (reg int, err error) {
	reg, ok := regMap[word]
	if !ok {
		err = ErrRegisterInvalid
	}
	return
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}
	if len(word) == 0 {
		err = ErrParseNumber("~")
		return
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(word[1 : len(word)-1])
		return
	}
	v64, err := strconv.ParseInt(word, 0, 33)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	value, ok := toWord(v64)
	if !ok {
		err = ErrParseNumber(word)
		return
	}

	if invert {
		value = ^value
	}

	return
}

// toWord maps a signed value onto a 32-bit word, two's complement for
// negatives. Values outside [-0x80000000, 0xffffffff] do not fit.
func toWord(v64 int64) (value uint32, ok bool) {
	if v64 > 0xffffffff || v64 < -0x80000000 {
		return
	}

	return uint32(v64), true
}

// limitOf returns the value of a word, checked against an upper limit.
func (asm *Assembler) limitOf(word string, limit uint32) (value uint32, err error) {
	value, err = asm.valueOf(word)
	if err != nil {
		return
	}
	if value > limit {
		err = &ErrValueRange{Value: value, Limit: limit}
	}
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value32 uint32
		value32, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt(int(value32))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if ok {
		value, ok = toWord(st_int64)
	}
	if !ok {
		err = ErrParseExpression(expr)
	}
	return
}

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
)

// parseLine expands a single line into the words of an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(line)
	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		err = asm.expand(words[0], macro, words[1:])
		words = nil
		return
	}

	return
}

// expand assembles the body of a macro with its arguments bound as
// equates. Equates defined by the body outlive the expansion; the
// argument bindings do not.
func (asm *Assembler) expand(name string, macro *Macro, args []string) (err error) {
	if len(args) != len(macro.Args) {
		return ErrMacroSyntax
	}
	if asm.expanding[name] {
		return ErrMacroRecursion
	}
	asm.expanding[name] = true
	defer delete(asm.expanding, name)

	shadowed := map[string]string{}
	for n, arg := range macro.Args {
		if old, ok := asm.Equate[arg]; ok {
			shadowed[arg] = old
		}
		asm.Equate[arg] = args[n]
	}
	defer func() {
		for _, arg := range macro.Args {
			delete(asm.Equate, arg)
		}
		maps.Copy(asm.Equate, shadowed)
	}()

	for n, line := range macro.Lines {
		lineno := macro.LineNo + n

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err == nil {
			err = asm.parseWords(words, lineno)
		}
		if err != nil {
			return &ErrMacro{Macro: name, Line: lineno, Err: err}
		}
	}

	return
}

// currentIp gets the index of the next instruction to be generated.
func (asm *Assembler) currentIp() int {
	if len(asm.Opcode) == 0 {
		return 0
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Ip + len(last.Codes)
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	logger := asm.Logger
	if logger == nil {
		logger = slog.Default()
	}

	asm.Opcode = asm.Opcode[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.expanding = map[string]bool{}
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			logger.Debug(f("asm"), "line", lineno, "text", text)
		}

		line, _, _ = strings.Cut(text, ";")
		line = strings.TrimSpace(line)
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
				Args:   words[2:],
			}
			for n, arg := range macro.Args {
				if slices.Contains(macro.Args[:n], arg) {
					err = ErrMacroSyntax
					return
				}
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	var codes []Code
	for _, op := range asm.Opcode {
		codes = append(codes, op.Codes...)
	}

	prog = ProgramOf(codes...)
	prog.Opcodes = slices.Clone(asm.Opcode)

	return
}

// aluMap maps ALU opcode names.
var aluMap = map[string]CodeOp{
	"add": OP_ADD,
	"sub": OP_SUB,
	"or":  OP_OR,
	"and": OP_AND,
	"xor": OP_XOR,
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(codes) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Ip: asm.currentIp(), Words: initial_words, Codes: codes}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	args := words[1:]

	// arity checks the operand count.
	arity := func(n int) (err error) {
		switch {
		case len(args) < n:
			err = ErrOpcodeValueMissing
		case len(args) > n:
			err = ErrOpcodeExtraArgs
		}
		return
	}

	switch words[0] {
	case "halt":
		if err = arity(0); err != nil {
			return
		}
		codes = append(codes, MakeCodeHalt())
	case "nop":
		if err = arity(0); err != nil {
			return
		}
		codes = append(codes, Code{High: CODE_NOP})
	case ".word":
		if err = arity(1); err != nil {
			return
		}
		var value uint32
		value, err = asm.limitOf(args[0], 0xffff)
		if err != nil {
			return
		}
		codes = append(codes, MakeCode(uint16(value)))
	case "ld":
		if err = arity(2); err != nil {
			return
		}
		var reg int
		reg, err = asm.register(args[0])
		if err != nil {
			return
		}
		var value uint32
		value, err = asm.limitOf(args[1], 0xff)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeLoad(reg, uint8(value)))
	case "add", "sub", "or", "and", "xor":
		if err = arity(2); err != nil {
			return
		}
		var x, y int
		x, err = asm.register(args[0])
		if err != nil {
			return
		}
		y, err = asm.register(args[1])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeAlu(aluMap[words[0]], x, y))
	case "se", "sne":
		if err = arity(2); err != nil {
			return
		}
		var a int
		a, err = asm.register(args[0])
		if err != nil {
			return
		}
		op_reg, op_imm := OP_SE_REG, OP_SE_IMM
		if words[0] == "sne" {
			op_reg, op_imm = OP_SNE_REG, OP_SNE_IMM
		}
		b, is_reg := regMap[args[1]]
		if is_reg {
			codes = append(codes, MakeCodeSkip(op_reg, a, b))
			break
		}
		var value uint32
		value, err = asm.limitOf(args[1], 0xff)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeSkip(op_imm, a, int(value)))
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}
