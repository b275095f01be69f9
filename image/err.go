package image

import (
	"errors"
	"strconv"

	"github.com/ezrec/re2/translate"
)

var f = translate.From

var (
	ErrFormat          = errors.New(f("binary format error"))
	ErrSignature       = errors.New(f("signature mismatch"))
	ErrSectionCount    = errors.New(f("invalid section count"))
	ErrSectionSize     = errors.New(f("invalid section size"))
	ErrTruncated       = errors.New(f("truncated image"))
	ErrTooManySections = errors.New(f("too many sections"))
)

// ErrDecode is a binary format error at an offset in the image.
type ErrDecode struct {
	Offset int64
	Err    error
}

func (err *ErrDecode) Error() string {
	return f("%v at offset %v: %v", ErrFormat.Error(), strconv.FormatInt(err.Offset, 10), err.Err)
}

func (err *ErrDecode) Unwrap() error {
	return err.Err
}

// Is matches ErrFormat.
func (err *ErrDecode) Is(target error) bool {
	return target == ErrFormat
}
