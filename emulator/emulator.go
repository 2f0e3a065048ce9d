// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ezrec/tricpu/cpu"
)

// Emulator state. CPU + instruction stream + register dump output.
type Emulator struct {
	Verbose  bool         // If set, enables the execution trace.
	Logger   *slog.Logger // Trace destination; slog.Default() if nil.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program.

	Output io.Writer // Receives the register dump on halt.
	Halted bool      // Set once a halt has executed.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{},
		Output:  io.Discard,
	}

	return
}

// Load reads a single line of instruction text as the new program.
func (emu *Emulator) Load(input io.Reader) (err error) {
	line, err := bufio.NewReader(input).ReadString('\n')
	if errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		return
	}

	emu.Program = cpu.NewProgram(strings.TrimRight(line, "\r\n"))

	return
}

// Reset the emulator state: machine, program cursor and halt latch.
func (emu *Emulator) Reset() {
	emu.sync()

	emu.Cpu.Reset()
	emu.Program.Rewind()
	emu.Halted = false
}

// sync passes the trace settings down to the CPU.
func (emu *Emulator) sync() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Logger = emu.Logger
}

// Ticks returns the instructions consumed since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Ip returns the index of the next instruction to fetch.
func (emu *Emulator) Ip() int {
	return emu.Program.Ip
}

// LineNo returns the source line number for the next instruction, or
// zero if the program was not assembled.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Program.Ip)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single fetch and execute.
//
// done is set when the stream ends or a halt executes. Only a halt
// writes the register dump to Output.
func (emu *Emulator) Tick() (done bool, err error) {
	emu.sync()

	if emu.Halted {
		done = true
		return
	}

	ip := emu.Program.Ip
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Ip: ip, LineNo: lineno, Err: err}
		}
	}()

	code, err := emu.Program.FetchCode()
	if errors.Is(err, cpu.ErrIpEmpty) {
		err = nil
		done = true
		return
	}
	if err != nil {
		return
	}

	if !emu.Cpu.Execute(code) {
		return
	}

	emu.Halted = true
	done = true

	_, err = fmt.Fprintln(emu.Output, emu.Cpu.Registers())

	return
}

// Run ticks until the program halts or its stream ends.
func (emu *Emulator) Run() (err error) {
	var done bool
	for !done {
		done, err = emu.Tick()
		if err != nil {
			return
		}
	}

	return
}
