// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package image reads and writes RE^2 binary images.
//
// All integers are little-endian:
//
//	signature  8 bytes  52 45 5E 32 00 00 00 01
//	entry      2 bytes
//	count      1 byte   (signed)
//	sections   count * { base 2, size 2 (signed), data[size] }
package image

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/ezrec/re2/isa"
)

// Section is a run of bytes loaded at Base.
type Section struct {
	Base uint16
	Data []byte
}

// Image is a loadable program.
type Image struct {
	Entry    uint16
	Sections []Section
}

// Size returns the encoded size of the image in bytes.
func (img *Image) Size() (size int) {
	size = isa.SIGNATURE_SZ + 2 + 1
	for _, sec := range img.Sections {
		size += 4 + len(sec.Data)
	}
	return
}

// WriteTo encodes the image.
func (img *Image) WriteTo(w io.Writer) (n int64, err error) {
	if len(img.Sections) > math.MaxInt8 {
		err = ErrTooManySections
		return
	}

	buff := bytes.NewBuffer(make([]byte, 0, img.Size()))
	buff.Write(isa.SIGNATURE[:])
	_ = binary.Write(buff, binary.LittleEndian, img.Entry)
	buff.WriteByte(byte(len(img.Sections)))

	for _, sec := range img.Sections {
		if len(sec.Data) > isa.MAX_SECTION {
			err = ErrSectionSize
			return
		}
		_ = binary.Write(buff, binary.LittleEndian, sec.Base)
		_ = binary.Write(buff, binary.LittleEndian, uint16(len(sec.Data)))
		buff.Write(sec.Data)
	}

	return buff.WriteTo(w)
}

// MarshalBinary encodes the image to a byte slice.
func (img *Image) MarshalBinary() (data []byte, err error) {
	var buff bytes.Buffer
	_, err = img.WriteTo(&buff)
	if err != nil {
		return
	}
	data = buff.Bytes()
	return
}

// countingReader tracks the offset for decode errors.
type countingReader struct {
	r      io.Reader
	offset int64
}

func (cr *countingReader) Read(p []byte) (n int, err error) {
	n, err = cr.r.Read(p)
	cr.offset += int64(n)
	return
}

// read fills v, converting short reads to ErrTruncated.
func (cr *countingReader) read(v any) (err error) {
	err = binary.Read(cr, binary.LittleEndian, v)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		err = ErrTruncated
	}
	return
}

// Read decodes an image. Every decode failure matches ErrFormat.
func Read(r io.Reader) (img *Image, err error) {
	cr := &countingReader{r: r}
	defer func() {
		if err != nil {
			img = nil
			err = &ErrDecode{Offset: cr.offset, Err: err}
		}
	}()

	var signature [isa.SIGNATURE_SZ]byte
	err = cr.read(&signature)
	if err != nil {
		return
	}
	if signature != isa.SIGNATURE {
		err = ErrSignature
		return
	}

	img = &Image{}
	err = cr.read(&img.Entry)
	if err != nil {
		return
	}

	var count int8
	err = cr.read(&count)
	if err != nil {
		return
	}
	if count < 0 {
		err = ErrSectionCount
		return
	}

	img.Sections = make([]Section, count)
	for n := range img.Sections {
		sec := &img.Sections[n]

		err = cr.read(&sec.Base)
		if err != nil {
			return
		}

		var size int16
		err = cr.read(&size)
		if err != nil {
			return
		}
		if size < 0 {
			err = ErrSectionSize
			return
		}

		sec.Data = make([]byte, size)
		_, err = io.ReadFull(cr, sec.Data)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			err = ErrTruncated
		}
		if err != nil {
			return
		}
	}

	return
}

// UnmarshalBinary decodes an image from a byte slice.
func (img *Image) UnmarshalBinary(data []byte) (err error) {
	decoded, err := Read(bytes.NewReader(data))
	if err != nil {
		return
	}
	*img = *decoded
	return
}
