package asm

import (
	"iter"
	"maps"
	"slices"

	"github.com/ezrec/re2/internal"
	"github.com/ezrec/re2/isa"
)

// Label is a bound name in the label table.
type Label struct {
	Address uint16 // Absolute address, or the equate value truncated to 16 bits.
	Value   int    // Signed value, as seen by .EQU expressions.
	Line    int    // Defining source line.
	Column  int    // Defining source column (1-based).
	Equate  bool   // Set if bound by .EQU rather than a label definition.
}

// writeSymbol emits the address of a label into the current section, or a
// placeholder to be patched when the label is defined.
func (asm *Assembler) writeSymbol(name string) {
	sec := asm.section

	label, ok := asm.Labels[name]
	if ok {
		asm.emit(byte(label.Address), byte(label.Address>>8))
		return
	}

	offset := len(sec.Data)
	if asm.emit(0xff, 0xff) {
		sec.links[name] = append(sec.links[name], offset)
	}
}

// resolveSymbol patches all pending references to a label in this section.
func (sec *Section) resolveSymbol(name string, address int) {
	for _, offset := range sec.links[name] {
		sec.patch(offset, address)
	}
	delete(sec.links, name)
}

// define binds a name in the label table, and patches every section
// referencing it.
func (asm *Assembler) define(name string, value int, loc Location, equate bool) {
	address := value & isa.MAX_ADDR

	asm.Labels[name] = Label{
		Address: uint16(address),
		Value:   value,
		Line:    loc.Line,
		Column:  loc.Column(),
		Equate:  equate,
	}

	for _, sec := range asm.Sections {
		sec.resolveSymbol(name, address)
	}

	asm.Reporter.Log(Reporting{
		Level:   LEVEL_DEBUG,
		Message: f("label `%v` bound to %v", name, hex16(address)),
	}, loc)
}

// unresolved returns the sorted set of label names still referenced but
// never defined, including a deferred entry point.
func (asm *Assembler) unresolved() (names []string) {
	var pending []iter.Seq[string]
	for _, sec := range asm.Sections {
		pending = append(pending, maps.Keys(sec.links))
	}

	if len(asm.entryLabel) != 0 {
		if _, ok := asm.Labels[asm.entryLabel]; !ok {
			pending = append(pending, slices.Values([]string{asm.entryLabel}))
		}
	}

	names = internal.SortedUnique(pending...)
	return
}
