package asm

import (
	"errors"
	"strconv"

	"github.com/ezrec/re2/translate"
)

var f = translate.From

var (
	ErrAborted      = errors.New(f("assembly aborted"))
	ErrSectionFull  = errors.New(f("out of memory."))
	ErrExpression   = errors.New(f("invalid expression."))
	ErrNotAnInteger = errors.New(f("expression is not an integer"))
)

// ErrAssembly is returned by Parse when diagnostics of ERROR level were
// emitted.
type ErrAssembly struct {
	Errors   int
	Warnings int
	Aborted  bool // Set if parsing stopped before the end of the source.
}

func (err *ErrAssembly) Error() string {
	return f("%v error(s), %v warning(s)", strconv.Itoa(err.Errors), strconv.Itoa(err.Warnings))
}

func (err *ErrAssembly) Unwrap() error {
	if err.Aborted {
		return ErrAborted
	}
	return nil
}
