package emulator

import (
	"fmt"
	"strconv"

	"github.com/ezrec/re2/translate"
)

var f = translate.From

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	LineNo int    // Source line, or 0 if unknown.
	Addr   uint16 // Address of the faulting instruction.
	Err    error
}

func (err *ErrRuntime) Error() string {
	addr := fmt.Sprintf("0x%04x", err.Addr)
	if err.LineNo == 0 {
		return f("%v: %v", addr, err.Err)
	}
	return f("line %v (%v): %v", strconv.Itoa(err.LineNo), addr, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
