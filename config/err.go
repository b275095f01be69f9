package config

import (
	"errors"
	"strings"

	"github.com/ezrec/re2/translate"
)

var f = translate.From

var (
	ErrStackRange = errors.New(f("vm.stack must be from 0 to 0xffff"))
	ErrExtension  = errors.New(f("assembler.extension must be a file extension, such as .re"))
)

// ErrConfig is a configuration file that could not be used.
type ErrConfig struct {
	Path string
	Err  error
}

func (err *ErrConfig) Error() string {
	return f("%v: %v", err.Path, err.Err)
}

func (err *ErrConfig) Unwrap() error {
	return err.Err
}

// ErrUnknownKey lists keys not understood by the toolchain.
type ErrUnknownKey struct {
	Keys []string
}

func (err *ErrUnknownKey) Error() string {
	return f("unknown key(s): %v", strings.Join(err.Keys, ", "))
}
