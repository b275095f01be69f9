package vm

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ezrec/re2/isa"
	"github.com/ezrec/re2/translate"
)

var f = translate.From

var (
	ErrSegmentationFault = errors.New(f("segmentation fault"))
	ErrInvalidInput      = errors.New(f("invalid number entered"))
	ErrDivideByZero      = errors.New(f("division by zero"))
	ErrInvalidOpcode     = errors.New(f("invalid opcode"))
	ErrHalted            = errors.New(f("machine halted"))
)

// ErrFault is a memory access outside of the address space.
type ErrFault struct {
	Err  error
	Addr int
}

func (err *ErrFault) Error() string {
	return f("%v at %v", err.Err, fmt.Sprintf("%#04x", err.Addr))
}

func (err *ErrFault) Unwrap() error {
	return err.Err
}

// ErrOpcode is an undefined opcode, at the address it was fetched from.
type ErrOpcode struct {
	Opcode isa.Opcode
	Addr   uint16
}

func (err *ErrOpcode) Error() string {
	return f("invalid opcode: %v @%v", fmt.Sprintf("0x%02x", uint8(err.Opcode)), fmt.Sprintf("0x%04x", err.Addr))
}

// Is matches ErrInvalidOpcode.
func (err *ErrOpcode) Is(target error) bool {
	return target == ErrInvalidOpcode
}

// ErrExit is a program exit with a non-zero status.
type ErrExit struct {
	Status int
}

func (err *ErrExit) Error() string {
	return f("exit status %v", strconv.Itoa(err.Status))
}
