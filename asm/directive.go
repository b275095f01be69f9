package asm

import (
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ezrec/re2/isa"
)

// hexByte is a .DB operand.
var hexByte = regexp.MustCompile(`^[A-Fa-f0-9]{1,2}$`)

// directive dispatches a directive starting a line.
// Returns abort == true if parsing must stop.
func (asm *Assembler) directive(tok Token) (abort bool) {
	name := strings.ToUpper(tok.Text[1:])
	if name == "SECTION" {
		return asm.directiveSection()
	}

	scope := asm.Reporter.Begin()
	defer scope.Release()

	switch name {
	case "BASE":
		asm.directiveBase(tok)
	case "ENTRY":
		asm.directiveEntry(tok)
	case "STR":
		asm.directiveStr()
	case "DB":
		asm.directiveDb(tok)
	case "EQU":
		asm.directiveEqu()
	default:
		asm.Reporter.Error(f("invalid directive."), asm.at(tok.Pos))
	}

	return
}

// requireSection reports a missing section header.
func (asm *Assembler) requireSection() (ok bool) {
	if asm.section == nil {
		asm.Reporter.Error(f("expected: section header."), asm.at(0))
		return
	}

	return true
}

// .SECTION
func (asm *Assembler) directiveSection() (abort bool) {
	if asm.section != nil && !asm.section.HasBase() {
		asm.Reporter.Error(f("expected: section address base."), asm.sourceAt(asm.section.Line, 0))
		abort = true
		return
	}

	asm.section = newSection(asm.lineno)
	asm.Sections = append(asm.Sections, asm.section)

	if asm.Verbose {
		log.Printf("%v: section %v", asm.lineno, len(asm.Sections)-1)
	}

	return
}

// .BASE <address>
func (asm *Assembler) directiveBase(tok Token) {
	if !asm.requireSection() {
		asm.line.Skip()
		return
	}

	if asm.section.HasBase() {
		asm.Reporter.Error(f("duplicate .BASE directives."), asm.at(tok.Pos))
		asm.line.Skip()
		return
	}

	asm.Reporter.SetDefault(SITUATION_MISSING_TOKEN, Reporting{LEVEL_ERROR,
		f("expected: 16-bit integer address.")})

	arg, ok := asm.next()
	if !ok {
		return
	}

	if arg.Type != TOKEN_ADDRESS {
		asm.Reporter.Report(SITUATION_MISSING_TOKEN, asm.at(arg.Pos))
		return
	}

	base, ok := asm.tokenNumber(arg, 0, isa.MAX_ADDR)
	if !ok {
		return
	}

	if base+len(asm.section.Data) > isa.MAX_ADDR {
		asm.Reporter.Error(ErrSectionFull.Error(), asm.at(arg.Pos))
		asm.section.full = true
	}

	asm.section.Base = base
}

// .ENTRY <address|label>
func (asm *Assembler) directiveEntry(tok Token) {
	if asm.entrySet {
		asm.Reporter.Error(f("duplicate .ENTRY directives."), asm.at(tok.Pos))
		asm.line.Skip()
		return
	}

	asm.Reporter.SetDefault(SITUATION_MISSING_TOKEN, Reporting{LEVEL_ERROR,
		f("expected: 16-bit address or label to entry point.")})

	arg, ok := asm.next()
	if !ok {
		return
	}

	switch arg.Type {
	case TOKEN_ADDRESS:
		entry, ok := asm.tokenNumber(arg, 0, isa.MAX_ADDR)
		if !ok {
			return
		}
		asm.entry = entry
	case TOKEN_SYMBOL:
		asm.entryLabel = arg.Text
	default:
		asm.Reporter.Report(SITUATION_MISSING_TOKEN, asm.at(arg.Pos))
		return
	}

	asm.entrySet = true
}

// .STR "<text>"
func (asm *Assembler) directiveStr() {
	if !asm.requireSection() {
		asm.line.Skip()
		return
	}

	rest, pos := asm.line.Remaining()
	str := strings.TrimLeftFunc(rest, unicode.IsSpace)
	pos += len(rest) - len(str)
	str = strings.TrimRightFunc(str, unicode.IsSpace)

	if len(str) == 0 {
		asm.Reporter.Error(f("expected: string token."), asm.at(len(asm.line.Text)))
		return
	}

	data, ok := asm.decodeString(str, pos)
	if !ok {
		return
	}

	asm.emit(append(data, 0)...)
}

// .DB <hex>...
func (asm *Assembler) directiveDb(tok Token) {
	if !asm.requireSection() {
		asm.line.Skip()
		return
	}

	if !asm.line.HasNext() {
		asm.Reporter.Error(f("expected: data bytes in hex values."), asm.at(tok.Pos))
		return
	}

	var data []byte
	for asm.line.HasNext() {
		arg, _ := asm.line.Next()
		if !hexByte.MatchString(arg.Text) {
			asm.Reporter.Error(f("expected: hex number from 00 to FF"), asm.at(arg.Pos))
			asm.line.Skip()
			return
		}

		value, _ := strconv.ParseUint(arg.Text, 16, 8)
		data = append(data, byte(value))
	}

	asm.emit(data...)
}

// .EQU <name> <expression>
func (asm *Assembler) directiveEqu() {
	asm.Reporter.SetDefault(SITUATION_MISSING_TOKEN, Reporting{LEVEL_ERROR,
		f("expected: equate name.")})

	arg, ok := asm.next()
	if !ok {
		return
	}

	if arg.Type != TOKEN_SYMBOL {
		asm.Reporter.Report(SITUATION_MISSING_TOKEN, asm.at(arg.Pos))
		asm.line.Skip()
		return
	}

	rest, pos := asm.line.Remaining()
	expr := strings.TrimLeftFunc(rest, unicode.IsSpace)
	pos += len(rest) - len(expr)
	expr = strings.TrimRightFunc(expr, unicode.IsSpace)

	if len(expr) == 0 {
		asm.Reporter.Error(ErrExpression.Error(), asm.at(len(asm.line.Text)))
		return
	}

	value, err := asm.evaluate(expr)
	if err != nil {
		if asm.Verbose {
			log.Printf("%v: .EQU %v: %v", asm.lineno, arg.Text, err)
		}
		asm.Reporter.Error(ErrExpression.Error(), asm.at(pos))
		return
	}

	if value < math.MinInt16 || value > isa.MAX_ADDR {
		asm.Reporter.Report(SITUATION_NUMBER_RANGE, asm.at(pos),
			"$MIN", strconv.Itoa(math.MinInt16), "$MAX", strconv.Itoa(isa.MAX_ADDR))
		return
	}

	asm.define(arg.Text, value, asm.at(arg.Pos), true)
}
