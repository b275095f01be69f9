package asm

import (
	"github.com/ezrec/re2/isa"
)

// NO_BASE marks a section whose base address has not been set.
const NO_BASE = -1

// Section is a relocatable run of bytes, placed at Base in the image.
type Section struct {
	Base int    // Base address, or NO_BASE.
	Data []byte // Section payload.
	Line int    // Source line of the .SECTION directive.

	links map[string][]int // Pending label patches, as offsets into Data.
	full  bool             // Set once the section has overflowed.
}

func newSection(lineno int) *Section {
	return &Section{
		Base:  NO_BASE,
		Line:  lineno,
		links: make(map[string][]int),
	}
}

// HasBase returns true once .BASE has committed the section address.
func (sec *Section) HasBase() bool {
	return sec.Base != NO_BASE
}

// Address returns the absolute address of the next byte written.
func (sec *Section) Address() int {
	return sec.Base + len(sec.Data)
}

// Pending returns the labels still awaiting resolution in this section.
func (sec *Section) Pending() map[string][]int {
	return sec.links
}

// write appends bytes to the section, failing if the section would exceed
// its size limit or run past the top of memory.
func (sec *Section) write(data ...byte) (err error) {
	size := len(sec.Data) + len(data)
	base := max(sec.Base, 0)
	if size > isa.MAX_SECTION || base+size > isa.MAX_ADDR {
		err = ErrSectionFull
		return
	}

	sec.Data = append(sec.Data, data...)
	return
}

// writeWord appends a little-endian 16-bit value.
func (sec *Section) writeWord(value int) (err error) {
	return sec.write(byte(value), byte(value>>8))
}

// patch overwrites a previously written little-endian word.
func (sec *Section) patch(offset int, value int) {
	sec.Data[offset] = byte(value)
	sec.Data[offset+1] = byte(value >> 8)
}
