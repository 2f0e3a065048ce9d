// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/ezrec/tricpu/cpu"
	"github.com/ezrec/tricpu/emulator"
	"github.com/ezrec/tricpu/logs"
	"github.com/ezrec/tricpu/translate"
)

var f = translate.From

var ErrDefineSyntax = errors.New(f("expected NAME=VALUE"))

// defines collects repeated -D NAME=VALUE assembler equates.
type defines map[string]string

func (d defines) String() string {
	return fmt.Sprint(map[string]string(d))
}

func (d defines) Set(arg string) error {
	name, value, ok := strings.Cut(arg, "=")
	name = strings.TrimSpace(name)
	if !ok || len(name) == 0 || strings.ContainsAny(name, " \t") {
		return ErrDefineSyntax
	}
	d[name] = strings.TrimSpace(value)
	return nil
}

func main() {
	var compile string
	var save bool
	var input string
	var output string
	var trace string
	var verbose bool
	define := defines{}

	flag.StringVar(&compile, "c", "", ".tc file to assemble")
	flag.BoolVar(&save, "s", false, "Write the program as hex, do not execute")
	flag.StringVar(&input, "i", "-", "Program input")
	flag.StringVar(&output, "o", "-", "Register dump output")
	flag.StringVar(&trace, "t", "", "JSON execution trace file")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.Var(define, "D", "Predefine an assembler equate, NAME=VALUE (repeatable)")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatal(f("%v: Unknown arguments: %v", os.Args[0], flag.Args()))
	}

	var extra []slog.Handler
	if len(trace) != 0 {
		tf, err := os.Create(trace)
		if err != nil {
			log.Fatalf("%v: %v", trace, err)
		}
		defer tf.Close()
		extra = append(extra, logs.JSON(tf))
	}

	var stderr io.Writer
	if verbose {
		stderr = os.Stderr
	}
	if verbose || len(trace) != 0 {
		logs.Level.Set(slog.LevelDebug)
	}
	logger := logs.New(stderr, extra...)
	logger.Debug(f("locale"), "tag", translate.Tag().String())

	var out io.Writer = os.Stdout
	if output != "-" {
		ouf, err := os.Create(output)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		defer ouf.Close()
		out = ouf
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose || len(trace) != 0
	emu.Logger = logger
	emu.Output = out

	if len(compile) != 0 {
		// Assemble a new instruction stream.
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose, Logger: logger}
		for name, value := range define {
			asm.Predefine(name, value)
		}
		emu.Program, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	} else {
		var in io.Reader = os.Stdin
		if input == "-" {
			if term.IsTerminal(int(os.Stdin.Fd())) {
				fmt.Fprint(os.Stderr, f("program> "))
			}
		} else {
			inf, err := os.Open(input)
			if err != nil {
				log.Fatalf("%v: %v", input, err)
			}
			defer inf.Close()
			in = inf
		}

		err := emu.Load(in)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
	}

	if save {
		_, err := fmt.Fprintln(out, emu.Program.Hex())
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	}

	emu.Reset()
	err := emu.Run()
	if err != nil {
		log.Fatal(err)
	}
}
