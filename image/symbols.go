package image

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// LineInfo maps the first byte of an instruction or datum to its source line.
type LineInfo struct {
	Address uint16 `cbor:"1,keyasint"`
	Line    int    `cbor:"2,keyasint"`
}

// Symbols is the debug sidecar of an image, written next to it as
// <image>.sym.
type Symbols struct {
	File   string            `cbor:"1,keyasint"` // Source file name.
	Labels map[string]uint16 `cbor:"2,keyasint"` // Label and equate addresses.
	Lines  []LineInfo        `cbor:"3,keyasint"` // Sorted by Address.
}

// Marshal serializes the symbols to canonical CBOR.
func (sym *Symbols) Marshal() ([]byte, error) {
	return cborEncMode.Marshal(sym)
}

// WriteTo writes the CBOR encoding of the symbols.
func (sym *Symbols) WriteTo(w io.Writer) (n int64, err error) {
	data, err := sym.Marshal()
	if err != nil {
		return
	}

	nw, err := w.Write(data)
	n = int64(nw)
	return
}

// UnmarshalSymbols deserializes symbols from CBOR bytes.
func UnmarshalSymbols(data []byte) (*Symbols, error) {
	var sym Symbols
	if err := cbor.Unmarshal(data, &sym); err != nil {
		return nil, fmt.Errorf("image: unmarshal symbols: %w", err)
	}
	sym.Sort()
	return &sym, nil
}

// ReadSymbols reads and deserializes symbols.
func ReadSymbols(r io.Reader) (sym *Symbols, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return
	}
	return UnmarshalSymbols(data)
}

// Sort orders the line table by address.
func (sym *Symbols) Sort() {
	sort.SliceStable(sym.Lines, func(i, j int) bool {
		return sym.Lines[i].Address < sym.Lines[j].Address
	})
}

// LineOf returns the source line of the instruction containing addr:
// the line of the closest entry at or below addr.
func (sym *Symbols) LineOf(addr uint16) (line int, ok bool) {
	if sym == nil {
		return
	}

	n := sort.Search(len(sym.Lines), func(i int) bool {
		return sym.Lines[i].Address > addr
	})
	if n == 0 {
		return
	}

	return sym.Lines[n-1].Line, true
}

// LabelOf returns the name of a label at exactly addr.
// When several names share the address, the lexically first one is returned.
func (sym *Symbols) LabelOf(addr uint16) (name string, ok bool) {
	if sym == nil {
		return
	}

	for _, label := range slices.Sorted(maps.Keys(sym.Labels)) {
		if sym.Labels[label] == addr {
			return label, true
		}
	}

	return
}
