// Package isa defines the RE^2 instruction set shared by the assembler and
// the virtual machine.
//
// The machine has sixteen 16-bit registers (%SP, %BP and %IP are registers
// 13, 14 and 15), a flat 64K byte address space, and a downward growing word
// stack. Instructions are a single opcode byte followed by zero to two operand
// bytes; polymorphic mnemonics pick the opcode from the operand's addressing
// mode.
package isa
