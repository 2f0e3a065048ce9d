package cpu

import (
	"fmt"
	"log/slog"
)

const (
	REGISTERS = 3 // Size of the register file.
	REG_CARRY = 2 // Register receiving the add carry and sub borrow.
)

// Cpu is the simulation context for the three register processor.
type Cpu struct {
	Verbose bool         // Set to enable the per-instruction trace.
	Logger  *slog.Logger // Trace destination; slog.Default() if nil.

	Register [REGISTERS]uint8 // Register bank.
	Skip     bool             // Pending skip of the next instruction.

	Ticks int // Instructions consumed, skipped ones included.
}

// NewCpu creates a new, reset CPU.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}

	return
}

// regOk reports whether a decoded register index is in the register bank.
func regOk(reg int) bool {
	return reg >= 0 && reg < REGISTERS
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	r := cpu.Register
	text = fmt.Sprintf("R012=0x(%02x,%02x,%02x) / %d,%d,%d", r[0], r[1], r[2], r[0], r[1], r[2])
	if cpu.Skip {
		text += " skip"
	}

	return
}

// Registers returns the register bank as decimal text, "r0 r1 r2".
func (cpu *Cpu) Registers() string {
	r := cpu.Register
	return fmt.Sprintf("%d %d %d", r[0], r[1], r[2])
}

// Reset the CPU state.
// - Clears the registers and the pending skip.
// - Zeros the tick counter.
func (cpu *Cpu) Reset() {
	clear(cpu.Register[:])
	cpu.Skip = false
	cpu.Ticks = 0

	if cpu.Verbose {
		cpu.logger().Debug(f("cpu: reset"))
	}
}

func (cpu *Cpu) logger() *slog.Logger {
	if cpu.Logger == nil {
		return slog.Default()
	}
	return cpu.Logger
}

// trace emits one record for an executed instruction.
func (cpu *Cpu) trace(code Code, pre [REGISTERS]uint8, skipped bool) {
	cpu.logger().Debug(f("exec"),
		"code", code.Hex(),
		"op", code.String(),
		"skipped", skipped,
		slog.Group("pre", "r0", pre[0], "r1", pre[1], "r2", pre[2]),
		slog.Group("post", "r0", cpu.Register[0], "r1", cpu.Register[1], "r2", cpu.Register[2]),
		"skip", cpu.Skip,
	)
}

// Execute executes a single decoded instruction, and reports whether
// it halted the processor.
//
// A pending skip consumes the instruction without effect, even a halt.
// Instructions naming a register outside the bank, and unknown
// instructions, do nothing.
func (cpu *Cpu) Execute(code Code) (halt bool) {
	cpu.Ticks++

	if cpu.Verbose {
		pre := cpu.Register
		skipped := cpu.Skip
		defer func() { cpu.trace(code, pre, skipped) }()
	}

	if cpu.Skip {
		cpu.Skip = false
		return
	}

	op := code.Op()
	switch op {
	case OP_HALT:
		halt = true
	case OP_LD:
		k, imm := code.ImmDecode()
		if regOk(k) {
			cpu.Register[k] = imm
		}
	case OP_ADD, OP_SUB, OP_OR, OP_AND, OP_XOR:
		x, y := code.PairDecode()
		if regOk(x) && regOk(y) {
			cpu.doAlu(op, x, y)
		}
	case OP_SE_IMM, OP_SNE_IMM:
		k, imm := code.ImmDecode()
		if regOk(k) {
			cpu.doSkip(op == OP_SE_IMM, cpu.Register[k], imm)
		}
	case OP_SE_REG, OP_SNE_REG:
		x, y := code.PairDecode()
		if regOk(x) && regOk(y) {
			cpu.doSkip(op == OP_SE_REG, cpu.Register[x], cpu.Register[y])
		}
	default:
		// nop
	}

	return
}

// doAlu performs the requested ALU action on registers x and y, leaving
// the result in x. add and sub write the carry after the result.
func (cpu *Cpu) doAlu(op CodeOp, x, y int) {
	input := int(cpu.Register[x])
	value := int(cpu.Register[y])

	switch op {
	case OP_ADD:
		output := input + value
		cpu.Register[x] = uint8(output)
		cpu.Register[REG_CARRY] = uint8(output >> 8)
	case OP_SUB:
		output := input - value
		cpu.Register[x] = uint8(output)
		cpu.Register[REG_CARRY] = 0
		if output < 0 {
			cpu.Register[REG_CARRY] = 1
		}
	case OP_OR:
		cpu.Register[x] = uint8(input | value)
	case OP_AND:
		cpu.Register[x] = uint8(input & value)
	case OP_XOR:
		cpu.Register[x] = uint8(input ^ value)
	}
}

// doSkip sets the pending skip when a == b matches equal.
func (cpu *Cpu) doSkip(equal bool, a, b uint8) {
	if (a == b) == equal {
		cpu.Skip = true
	}
}
