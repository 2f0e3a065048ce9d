// Package cpu implements the processor and assembler for the tricpu system.
//
// The processor has three 8-bit general-purpose registers (r0-r2) and a
// one-shot skip flag. Register r2 doubles as the carry/borrow flag after
// add and sub. Instructions are two bytes, carried as four uppercase
// hexadecimal digits in a Program's text, and are fetched one at a time
// until a halt or until the text stops decoding.
//
// The assembler provides a small assembly language for the instruction
// set, supporting macros, equates, and compile-time expression evaluation.
package cpu
