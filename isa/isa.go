// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package isa

import (
	"fmt"
)

// Register file layout.
const (
	REGISTER_COUNT = 16                 // Number of 16-bit registers.
	REGISTER_MASK  = REGISTER_COUNT - 1 // Mask applied to every decoded register operand.
	REG_SP         = REGISTER_COUNT - 3 // Stack pointer.
	REG_BP         = REGISTER_COUNT - 2 // Base pointer.
	REG_IP         = REGISTER_COUNT - 1 // Instruction pointer.
)

// Address space limits.
const (
	MAX_ADDR     = 0xffff // Highest addressable byte.
	MEMORY_SIZE  = MAX_ADDR + 1
	MAX_SECTION  = 0x7fff // Largest section payload.
	STACK_ADDR   = 0xfff0 // Initial SP and BP.
	SIGNATURE_SZ = 8
)

// SIGNATURE is the 8 byte magic ("RE^2" + version) heading every image.
var SIGNATURE = [SIGNATURE_SZ]byte{0x52, 0x45, 0x5e, 0x32, 0x00, 0x00, 0x00, 0x01}

// Mode is an operand addressing mode, and the index into a ModeTable.
type Mode int

const (
	MODE_REGISTER        = Mode(0) // register
	MODE_SYMBOL          = Mode(1) // symbol
	MODE_IMM8            = Mode(2) // imm8
	MODE_IMM16           = Mode(3) // imm16
	MODE_ADDRESS         = Mode(4) // address
	MODE_INDIRECT        = Mode(5) // indirect
	MODE_INDIRECT_OFFSET = Mode(6) // indirect+offset
	MODE_COUNT           = 7
)

var modeNames = [MODE_COUNT]string{
	"register", "symbol", "imm8", "imm16", "address", "indirect", "indirect+offset",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// NONE marks an addressing mode a mnemonic does not support.
const NONE = -1

// ModeTable maps each addressing mode to an opcode, or NONE.
type ModeTable [MODE_COUNT]int

// Opcode returns the opcode for an addressing mode.
func (mt ModeTable) Opcode(mode Mode) (op Opcode, ok bool) {
	if mode < 0 || int(mode) >= len(mt) || mt[mode] == NONE {
		return
	}

	return Opcode(mt[mode]), true
}

// Supports returns true if the addressing mode is encodable.
func (mt ModeTable) Supports(mode Mode) bool {
	_, ok := mt.Opcode(mode)
	return ok
}

// Simple maps operand-less (or fixed operand) mnemonics to their opcode.
var Simple = map[string]Opcode{
	"AND":       OP_AND,
	"DUP":       OP_DUP,
	"MULT":      OP_MULT,
	"NOT":       OP_NOT,
	"OR":        OP_OR,
	"SUB":       OP_SUB,
	"MOD":       OP_MOD,
	"DIV":       OP_DIV,
	"SAR":       OP_SAR,
	"SHL":       OP_SHL,
	"SHR":       OP_SHR,
	"ADD":       OP_ADD,
	"EXIT":      OP_EXIT,
	"XOR":       OP_XOR,
	"RET":       OP_RET,
	"OUTPUTNUM": OP_OUTPUTNUM,
	"INPUT":     OP_INPUT,
}

// Polymorphic maps mnemonics to the opcode chosen per addressing mode.
//
// Slots: register, symbol, imm8, imm16, address, (reg), offset(reg).
var Polymorphic = map[string]ModeTable{
	"PUSH":      {0x4b, 0x6f, 0x3d, 0x6f, NONE, NONE, NONE},
	"POP":       {0x4f, NONE, NONE, NONE, NONE, NONE, NONE},
	"LOADB":     {NONE, 0x8e, NONE, NONE, 0x8e, 0x51, 0x6c},
	"LOADW":     {NONE, 0x44, NONE, NONE, 0x44, 0x6a, 0x50},
	"STOREB":    {NONE, 0x56, NONE, NONE, 0x56, 0x67, 0x64},
	"STOREW":    {NONE, 0x57, NONE, NONE, 0x57, 0x69, 0x63},
	"JMP":       {NONE, 0x58, NONE, NONE, 0x58, 0x5f, NONE},
	"CALL":      {NONE, 0x5a, NONE, NONE, 0x5a, 0x7d, NONE},
	"JNZ":       {NONE, 0xde, NONE, NONE, 0xde, NONE, NONE},
	"JZ":        {NONE, 0xfc, NONE, NONE, 0xfc, NONE, NONE},
	"JN":        {NONE, 0xfe, NONE, NONE, 0xfe, NONE, NONE},
	"JP":        {NONE, 0xff, NONE, NONE, 0xff, NONE, NONE},
	"OUTPUTSTR": {NONE, 0xda, NONE, NONE, 0xda, 0x6b, 0x65},
}

// Pseudo instructions expand to canned byte sequences.
var Pseudo = map[string][]byte{
	// PUSH %BP, PUSH %SP, POP %BP
	"ENTER": {0x4b, 0x1e, 0x4b, 0x5d, 0x4f, 0xae},
	// PUSH %BP, POP %SP, POP %BP
	"LEAVE": {0x4b, 0x7e, 0x4f, 0x2d, 0x4f, 0x4e},
}

// IsMnemonic returns true if the word (upper case) names an instruction.
func IsMnemonic(word string) bool {
	if _, ok := Simple[word]; ok {
		return true
	}
	if _, ok := Polymorphic[word]; ok {
		return true
	}
	_, ok := Pseudo[word]
	return ok
}

// Directives are the assembler directive names, without the leading '.'.
var Directives = []string{"SECTION", "BASE", "ENTRY", "STR", "DB", "EQU"}
