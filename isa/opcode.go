package isa

import (
	"fmt"
	"strings"
)

// Opcode is a single byte instruction selector.
type Opcode uint8

const (
	OP_AND         = Opcode(0x21) // AND
	OP_DUP         = Opcode(0x22) // DUP
	OP_MULT        = Opcode(0x25) // MULT
	OP_NOT         = Opcode(0x26) // NOT
	OP_OR          = Opcode(0x2a) // OR
	OP_SUB         = Opcode(0x2b) // SUB
	OP_MOD         = Opcode(0x2d) // MOD
	OP_DIV         = Opcode(0x2f) // DIV
	OP_SAR         = Opcode(0x3c) // SAR
	OP_PUSH_IMM8   = Opcode(0x3d) // PUSH $imm8
	OP_SHL         = Opcode(0x3e) // SHL
	OP_SHR         = Opcode(0x3f) // SHR
	OP_LOADW_ADDR  = Opcode(0x44) // LOADW addr
	OP_PUSH_REG    = Opcode(0x4b) // PUSH %r
	OP_POP_REG     = Opcode(0x4f) // POP %r
	OP_LOADW_OFF   = Opcode(0x50) // LOADW off(%r)
	OP_LOADB_IND   = Opcode(0x51) // LOADB (%r)
	OP_STOREB_ADDR = Opcode(0x56) // STOREB addr
	OP_STOREW_ADDR = Opcode(0x57) // STOREW addr
	OP_JMP_ADDR    = Opcode(0x58) // JMP addr
	OP_CALL_ADDR   = Opcode(0x5a) // CALL addr
	OP_ADD         = Opcode(0x5e) // ADD
	OP_JMP_IND     = Opcode(0x5f) // JMP (%r)
	OP_STOREW_OFF  = Opcode(0x63) // STOREW off(%r)
	OP_STOREB_OFF  = Opcode(0x64) // STOREB off(%r)
	OP_OUTSTR_OFF  = Opcode(0x65) // OUTPUTSTR off(%r)
	OP_STOREB_IND  = Opcode(0x67) // STOREB (%r)
	OP_STOREW_IND  = Opcode(0x69) // STOREW (%r)
	OP_LOADW_IND   = Opcode(0x6a) // LOADW (%r)
	OP_OUTSTR_IND  = Opcode(0x6b) // OUTPUTSTR (%r)
	OP_LOADB_OFF   = Opcode(0x6c) // LOADB off(%r)
	OP_EXIT        = Opcode(0x6d) // EXIT $imm16
	OP_PUSH_IMM16  = Opcode(0x6f) // PUSH $imm16
	OP_XOR         = Opcode(0x7c) // XOR
	OP_CALL_IND    = Opcode(0x7d) // CALL (%r)
	OP_RET         = Opcode(0x7e) // RET
	OP_LOADB_ADDR  = Opcode(0x8e) // LOADB addr
	OP_OUTSTR_ADDR = Opcode(0xda) // OUTPUTSTR addr
	OP_OUTPUTNUM   = Opcode(0xdb) // OUTPUTNUM
	OP_POP         = Opcode(0xdc) // POP
	OP_JNZ         = Opcode(0xde) // JNZ addr
	OP_INPUT       = Opcode(0xdf) // INPUT
	OP_JZ          = Opcode(0xfc) // JZ addr
	OP_JN          = Opcode(0xfe) // JN addr
	OP_JP          = Opcode(0xff) // JP addr
)

// Operand is the operand layout following an opcode byte.
type Operand int

const (
	OPERAND_NONE     = Operand(0) // no operand bytes
	OPERAND_REGISTER = Operand(1) // register byte
	OPERAND_IMM8     = Operand(2) // signed byte
	OPERAND_IMM16    = Operand(3) // signed little-endian word
	OPERAND_ADDRESS  = Operand(4) // little-endian address
	OPERAND_INDIRECT = Operand(5) // register byte
	OPERAND_OFFSET   = Operand(6) // register byte, signed offset byte
)

// Size returns the number of operand bytes.
func (o Operand) Size() int {
	switch o {
	case OPERAND_REGISTER, OPERAND_IMM8, OPERAND_INDIRECT:
		return 1
	case OPERAND_IMM16, OPERAND_ADDRESS, OPERAND_OFFSET:
		return 2
	}
	return 0
}

// Operation describes a decoded opcode.
type Operation struct {
	Name    string
	Operand Operand
}

// Operations is the inverse of the assembler tables: opcode to operation.
var Operations = map[Opcode]Operation{
	OP_AND:         {"AND", OPERAND_NONE},
	OP_DUP:         {"DUP", OPERAND_NONE},
	OP_MULT:        {"MULT", OPERAND_NONE},
	OP_NOT:         {"NOT", OPERAND_NONE},
	OP_OR:          {"OR", OPERAND_NONE},
	OP_SUB:         {"SUB", OPERAND_NONE},
	OP_MOD:         {"MOD", OPERAND_NONE},
	OP_DIV:         {"DIV", OPERAND_NONE},
	OP_SAR:         {"SAR", OPERAND_NONE},
	OP_PUSH_IMM8:   {"PUSH", OPERAND_IMM8},
	OP_SHL:         {"SHL", OPERAND_NONE},
	OP_SHR:         {"SHR", OPERAND_NONE},
	OP_LOADW_ADDR:  {"LOADW", OPERAND_ADDRESS},
	OP_PUSH_REG:    {"PUSH", OPERAND_REGISTER},
	OP_POP_REG:     {"POP", OPERAND_REGISTER},
	OP_LOADW_OFF:   {"LOADW", OPERAND_OFFSET},
	OP_LOADB_IND:   {"LOADB", OPERAND_INDIRECT},
	OP_STOREB_ADDR: {"STOREB", OPERAND_ADDRESS},
	OP_STOREW_ADDR: {"STOREW", OPERAND_ADDRESS},
	OP_JMP_ADDR:    {"JMP", OPERAND_ADDRESS},
	OP_CALL_ADDR:   {"CALL", OPERAND_ADDRESS},
	OP_ADD:         {"ADD", OPERAND_NONE},
	OP_JMP_IND:     {"JMP", OPERAND_INDIRECT},
	OP_STOREW_OFF:  {"STOREW", OPERAND_OFFSET},
	OP_STOREB_OFF:  {"STOREB", OPERAND_OFFSET},
	OP_OUTSTR_OFF:  {"OUTPUTSTR", OPERAND_OFFSET},
	OP_STOREB_IND:  {"STOREB", OPERAND_INDIRECT},
	OP_STOREW_IND:  {"STOREW", OPERAND_INDIRECT},
	OP_LOADW_IND:   {"LOADW", OPERAND_INDIRECT},
	OP_OUTSTR_IND:  {"OUTPUTSTR", OPERAND_INDIRECT},
	OP_LOADB_OFF:   {"LOADB", OPERAND_OFFSET},
	OP_EXIT:        {"EXIT", OPERAND_IMM16},
	OP_PUSH_IMM16:  {"PUSH", OPERAND_IMM16},
	OP_XOR:         {"XOR", OPERAND_NONE},
	OP_CALL_IND:    {"CALL", OPERAND_INDIRECT},
	OP_RET:         {"RET", OPERAND_NONE},
	OP_LOADB_ADDR:  {"LOADB", OPERAND_ADDRESS},
	OP_OUTSTR_ADDR: {"OUTPUTSTR", OPERAND_ADDRESS},
	OP_OUTPUTNUM:   {"OUTPUTNUM", OPERAND_NONE},
	OP_POP:         {"POP", OPERAND_NONE},
	OP_JNZ:         {"JNZ", OPERAND_ADDRESS},
	OP_INPUT:       {"INPUT", OPERAND_NONE},
	OP_JZ:          {"JZ", OPERAND_ADDRESS},
	OP_JN:          {"JN", OPERAND_ADDRESS},
	OP_JP:          {"JP", OPERAND_ADDRESS},
}

func (op Opcode) String() string {
	info, ok := Operations[op]
	if !ok {
		return fmt.Sprintf("0x%02x", uint8(op))
	}
	return info.Name
}

// RegisterName returns the assembler spelling of a register index.
func RegisterName(reg int) string {
	switch reg & REGISTER_MASK {
	case REG_SP:
		return "%SP"
	case REG_BP:
		return "%BP"
	case REG_IP:
		return "%IP"
	}
	return fmt.Sprintf("%%%d", reg&REGISTER_MASK)
}

// Disassemble decodes the instruction at addr.
// Returns the text and the total instruction size; size is 0 for an
// unknown opcode or an instruction running past the end of mem.
func Disassemble(mem []byte, addr int) (text string, size int) {
	if addr < 0 || addr >= len(mem) {
		return
	}

	op := Opcode(mem[addr])
	info, ok := Operations[op]
	if !ok {
		text = fmt.Sprintf(".DB %02X", uint8(op))
		return
	}

	size = 1 + info.Operand.Size()
	if addr+size > len(mem) {
		size = 0
		text = info.Name
		return
	}

	args := mem[addr+1 : addr+size]
	var sb strings.Builder
	sb.WriteString(info.Name)
	switch info.Operand {
	case OPERAND_REGISTER:
		fmt.Fprintf(&sb, " %v", RegisterName(int(args[0])))
	case OPERAND_IMM8:
		fmt.Fprintf(&sb, " $%v", int8(args[0]))
	case OPERAND_IMM16:
		fmt.Fprintf(&sb, " $%v", int16(uint16(args[0])|uint16(args[1])<<8))
	case OPERAND_ADDRESS:
		fmt.Fprintf(&sb, " 0x%04x", uint16(args[0])|uint16(args[1])<<8)
	case OPERAND_INDIRECT:
		fmt.Fprintf(&sb, " (%v)", RegisterName(int(args[0])))
	case OPERAND_OFFSET:
		fmt.Fprintf(&sb, " %v(%v)", int8(args[1]), RegisterName(int(args[0])))
	}
	text = sb.String()

	return
}
