package asm

import (
	"math"
	"strconv"
	"strings"

	"github.com/ezrec/re2/isa"
)

// operand is a decoded instruction operand.
type operand struct {
	Mode   isa.Mode
	Data   []byte // Encoded operand bytes.
	Symbol string // Label name for MODE_SYMBOL.
}

// instruction encodes a mnemonic and its operand.
func (asm *Assembler) instruction(tok Token) {
	scope := asm.Reporter.Begin()
	defer scope.Release()

	name := strings.ToUpper(tok.Text)

	if opcode, ok := isa.Simple[name]; ok {
		if opcode == isa.OP_EXIT {
			asm.exit()
			return
		}
		asm.emit(byte(opcode))
		return
	}

	if code, ok := isa.Pseudo[name]; ok {
		asm.emit(code...)
		return
	}

	if table, ok := isa.Polymorphic[name]; ok {
		if name == "POP" && !asm.line.HasNext() {
			asm.emit(byte(isa.OP_POP))
			return
		}
		asm.polymorphic(table)
		return
	}

	asm.Reporter.Error(f("invalid instruction."), asm.at(tok.Pos))
}

// exit encodes EXIT and its 16-bit status.
func (asm *Assembler) exit() {
	asm.Reporter.SetDefault(SITUATION_MISSING_TOKEN, Reporting{LEVEL_ERROR,
		f("expected: valid 16-bit hexadecimal or decimal immediate value.")})

	arg, ok := asm.next()
	if !ok {
		return
	}

	if arg.Type != TOKEN_IMMEDIATE {
		asm.Reporter.Report(SITUATION_MISSING_TOKEN, asm.at(arg.Pos))
		return
	}

	value, ok := asm.tokenNumber(arg, math.MinInt16, math.MaxInt16)
	if !ok {
		return
	}

	asm.emit(byte(isa.OP_EXIT), byte(value), byte(value>>8))
}

// polymorphic selects the opcode for the operand's addressing mode.
func (asm *Assembler) polymorphic(table isa.ModeTable) {
	asm.Reporter.SetDefault(SITUATION_MISSING_TOKEN, Reporting{LEVEL_ERROR,
		expectedOperands(table)})

	arg, ok := asm.next()
	if !ok {
		return
	}

	op, ok := asm.decodeOperand(arg)
	if !ok {
		return
	}

	opcode, ok := table.Opcode(op.Mode)
	if !ok {
		asm.Reporter.Report(SITUATION_MISSING_TOKEN, asm.at(arg.Pos))
		return
	}

	if op.Mode == isa.MODE_SYMBOL {
		if asm.emit(byte(opcode)) {
			asm.writeSymbol(op.Symbol)
		}
		return
	}

	asm.emit(append([]byte{byte(opcode)}, op.Data...)...)
}

// decodeOperand classifies a token into an addressing mode and its encoding.
func (asm *Assembler) decodeOperand(tok Token) (op operand, ok bool) {
	switch tok.Type {
	case TOKEN_REGISTER:
		reg, valid := decodeRegister(tok.Text)
		if !valid {
			asm.Reporter.Report(SITUATION_INVALID_REGISTER, asm.at(tok.Pos))
			return
		}
		op = operand{Mode: isa.MODE_REGISTER, Data: []byte{byte(reg)}}
	case TOKEN_SYMBOL:
		op = operand{Mode: isa.MODE_SYMBOL, Symbol: tok.Text}
	case TOKEN_IMMEDIATE:
		value, valid := asm.tokenNumber(tok, math.MinInt16, math.MaxInt16)
		if !valid {
			return
		}
		if value >= math.MinInt8 && value <= math.MaxInt8 {
			op = operand{Mode: isa.MODE_IMM8, Data: []byte{byte(value)}}
		} else {
			op = operand{Mode: isa.MODE_IMM16, Data: []byte{byte(value), byte(value >> 8)}}
		}
	case TOKEN_ADDRESS:
		value, valid := asm.tokenNumber(tok, 0, isa.MAX_ADDR)
		if !valid {
			return
		}
		op = operand{Mode: isa.MODE_ADDRESS, Data: []byte{byte(value), byte(value >> 8)}}
	case TOKEN_INDIRECT:
		text, offset, _ := tok.Group(2)
		reg, valid := decodeRegister(text)
		if !valid {
			asm.Reporter.Report(SITUATION_INVALID_REGISTER, asm.at(tok.Pos+offset))
			return
		}

		text, offset, found := tok.Group(1)
		if !found {
			op = operand{Mode: isa.MODE_INDIRECT, Data: []byte{byte(reg)}}
			break
		}

		disp, err := strconv.ParseInt(text, 0, 8)
		if err != nil {
			asm.Reporter.Report(SITUATION_INVALID_OFFSET, asm.at(tok.Pos+offset))
			return
		}
		op = operand{Mode: isa.MODE_INDIRECT_OFFSET, Data: []byte{byte(reg), byte(disp)}}
	default:
		asm.Reporter.Report(SITUATION_INVALID_TOKEN, asm.at(tok.Pos))
		return
	}

	ok = true
	return
}

// expectedOperands lists the addressing modes a mode table supports.
func expectedOperands(table isa.ModeTable) string {
	var allowed []string
	if table.Supports(isa.MODE_REGISTER) {
		allowed = append(allowed, f("register identifier"))
	}
	if table.Supports(isa.MODE_IMM8) || table.Supports(isa.MODE_IMM16) {
		allowed = append(allowed, f("hexadecimal/decimal immediate value"))
	}
	if table.Supports(isa.MODE_ADDRESS) {
		allowed = append(allowed, f("hexadecimal/decimal address"))
	}
	if table.Supports(isa.MODE_INDIRECT) {
		item := f("indirect address pointer")
		if table.Supports(isa.MODE_INDIRECT_OFFSET) {
			item += f(" (optional offset)")
		}
		allowed = append(allowed, item)
	}
	if table.Supports(isa.MODE_SYMBOL) {
		allowed = append(allowed, f("label identifier"))
	}

	var list string
	switch len(allowed) {
	case 0:
		panic("asm: mode table supports no operands")
	case 1:
		list = allowed[0]
	case 2:
		list = allowed[0] + " or " + allowed[1]
	default:
		list = strings.Join(allowed, ", or ")
	}

	return f("expected: valid %v.", list)
}

// tokenNumber decodes the numeric group of an immediate or address token,
// checking it against [lo, hi].
func (asm *Assembler) tokenNumber(tok Token, lo, hi int) (value int, ok bool) {
	bounds := []string{"$MIN", strconv.Itoa(lo), "$MAX", strconv.Itoa(hi)}

	text, _, found := tok.Group(1)
	if !found {
		asm.Reporter.Report(SITUATION_NUMBER_PARSE, asm.at(tok.Pos), bounds...)
		return
	}

	value, err := decodeNumber(text)
	if err != nil {
		asm.Reporter.Report(SITUATION_NUMBER_PARSE, asm.at(tok.Pos), bounds...)
		return
	}

	if value < lo || value > hi {
		asm.Reporter.Report(SITUATION_NUMBER_RANGE, asm.at(tok.Pos), bounds...)
		return
	}

	ok = true
	return
}
