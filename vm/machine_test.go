package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/re2/image"
	"github.com/ezrec/re2/isa"
)

const testBase = 0x1000

func run(code []byte, input string, extra ...image.Section) (m *Machine, output string, err error) {
	var buff bytes.Buffer
	m = NewMachine(strings.NewReader(input), &buff)

	img := &image.Image{
		Entry:    testBase,
		Sections: append([]image.Section{{Base: testBase, Data: code}}, extra...),
	}

	err = m.Load(img)
	if err != nil {
		return
	}

	err = m.Run()
	output = buff.String()
	return
}

func TestMachineHello(t *testing.T) {
	assert := assert.New(t)

	// OUTPUTSTR msg; EXIT $0; msg: .STR "Hi"
	m, output, err := run([]byte{0xda, 0x06, 0x10, 0x6d, 0x00, 0x00, 'H', 'i', 0x00}, "")
	assert.NoError(err)
	assert.Equal("Hi", output)
	assert.True(m.Halted)
	assert.Equal(0, m.Status)
	assert.Equal(2, m.Ticks)
}

func TestMachineArithmetic(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		a, b   uint16
		op     isa.Opcode
		output string
	}){
		{0x7fff, 1, isa.OP_ADD, "-32768"},
		{1, 2, isa.OP_SUB, "-1"},
		{300, 300, isa.OP_MULT, "24464"},
		{0xfff9, 2, isa.OP_DIV, "-3"},
		{0xfff9, 2, isa.OP_MOD, "-1"},
		{0x8000, 0xffff, isa.OP_DIV, "-32768"},
		{1, 15, isa.OP_SHL, "-32768"},
		{1, 16, isa.OP_SHL, "0"},
		{1, 33, isa.OP_SHL, "2"},
		{0xfffc, 1, isa.OP_SAR, "-2"},
		{0xffff, 17, isa.OP_SHR, "32767"},
		{0xfffc, 1, isa.OP_SHR, "-2"},
		{0x0f0f, 0x00ff, isa.OP_AND, "15"},
		{0x0f00, 0x00f0, isa.OP_OR, "4080"},
		{0x00ff, 0x000f, isa.OP_XOR, "240"},
	}

	for _, entry := range table {
		code := []byte{
			0x6f, byte(entry.a), byte(entry.a >> 8),
			0x6f, byte(entry.b), byte(entry.b >> 8),
			byte(entry.op),
			0xdb,
			0x6d, 0x00, 0x00,
		}
		m, output, err := run(code, "")
		assert.NoError(err, entry.op.String())
		assert.Equal(entry.output, output, entry.op.String())
		assert.Equal(uint16(isa.STACK_ADDR), m.Register[isa.REG_SP], entry.op.String())
	}
}

func TestMachineNot(t *testing.T) {
	assert := assert.New(t)

	_, output, err := run([]byte{0x3d, 0x00, 0x26, 0xdb, 0x6d, 0x00, 0x00}, "")
	assert.NoError(err)
	assert.Equal("-1", output)
}

func TestMachineDivideByZero(t *testing.T) {
	assert := assert.New(t)

	for _, op := range []isa.Opcode{isa.OP_DIV, isa.OP_MOD} {
		_, _, err := run([]byte{0x3d, 0x01, 0x3d, 0x00, byte(op)}, "")
		assert.True(errors.Is(err, ErrDivideByZero), op.String())
	}
}

func TestMachineSignExtend(t *testing.T) {
	assert := assert.New(t)

	// PUSH $-1; OUTPUTNUM; LOADB data; OUTPUTNUM; EXIT $0; data: .DB 80
	code := []byte{0x3d, 0xff, 0xdb, 0x8e, 0x0a, 0x10, 0xdb, 0x6d, 0x00, 0x00, 0x80}
	_, output, err := run(code, "")
	assert.NoError(err)
	assert.Equal("-1-128", output)
}

func TestMachineStack(t *testing.T) {
	assert := assert.New(t)

	var buff bytes.Buffer
	m := NewMachine(nil, &buff)
	img := &image.Image{
		Entry: testBase,
		Sections: []image.Section{
			// PUSH $0x1234; DUP; POP; POP %0
			{Base: testBase, Data: []byte{0x6f, 0x34, 0x12, 0x22, 0xdc, 0x4f, 0x00}},
		},
	}
	assert.NoError(m.Load(img))
	assert.Equal(uint16(isa.STACK_ADDR), m.Register[isa.REG_BP])

	table := [](struct {
		sp uint16
		ip uint16
	}){
		{0xffee, 0x1003},
		{0xffec, 0x1004},
		{0xffee, 0x1005},
		{0xfff0, 0x1007},
	}

	for n, entry := range table {
		done, err := m.Tick()
		assert.NoError(err, n)
		assert.False(done, n)
		assert.Equal(entry.sp, m.Register[isa.REG_SP], n)
		assert.Equal(entry.ip, m.Register[isa.REG_IP], n)
	}

	assert.Equal(byte(0x34), m.Memory[0xffee])
	assert.Equal(byte(0x12), m.Memory[0xffef])
	assert.Equal(uint16(0x1234), m.Register[0])
}

func TestMachineIpCache(t *testing.T) {
	assert := assert.New(t)

	// LOADW (%IP); OUTPUTNUM; OUTPUTSTR 6(%IP); EXIT $0; .STR "OK"
	code := []byte{0x6a, 0x0f, 0xdb, 0x65, 0x0f, 0x06, 0x6d, 0x00, 0x00, 'O', 'K', 0x00}
	_, output, err := run(code, "")
	assert.NoError(err)
	assert.Equal("3946OK", output)
}

func TestMachineCall(t *testing.T) {
	assert := assert.New(t)

	// CALL sub; EXIT $0; sub: PUSH $7; OUTPUTNUM; RET
	code := []byte{0x5a, 0x06, 0x10, 0x6d, 0x00, 0x00, 0x3d, 0x07, 0xdb, 0x7e}
	m, output, err := run(code, "")
	assert.NoError(err)
	assert.Equal("7", output)
	assert.Equal(uint16(isa.STACK_ADDR), m.Register[isa.REG_SP])

	// PUSH $vector; POP %1; CALL (%1); EXIT $0; sub: PUSH $8; OUTPUTNUM; RET; vector: .DB 0a 10
	code = []byte{0x6f, 0x0e, 0x10, 0x4f, 0x01, 0x7d, 0x01, 0x6d, 0x00, 0x00, 0x3d, 0x08, 0xdb, 0x7e, 0x0a, 0x10}
	_, output, err = run(code, "")
	assert.NoError(err)
	assert.Equal("8", output)
}

func TestMachineBranch(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		op    isa.Opcode
		value uint16
		taken bool
	}){
		{isa.OP_JNZ, 0, false},
		{isa.OP_JNZ, 0x8000, true},
		{isa.OP_JZ, 0, true},
		{isa.OP_JZ, 1, false},
		{isa.OP_JN, 0xffff, true},
		{isa.OP_JN, 0, false},
		{isa.OP_JP, 1, true},
		{isa.OP_JP, 0, false},
		{isa.OP_JP, 0x8000, false},
	}

	for _, entry := range table {
		// PUSH value; Jcc done; EXIT $1; done: EXIT $0
		code := []byte{
			0x6f, byte(entry.value), byte(entry.value >> 8),
			byte(entry.op), 0x09, 0x10,
			0x6d, 0x01, 0x00,
			0x6d, 0x00, 0x00,
		}
		m, _, _ := run(code, "")
		if entry.taken {
			assert.Equal(0, m.Status, entry.op.String())
		} else {
			assert.Equal(1, m.Status, entry.op.String())
		}
	}
}

func TestMachineJump(t *testing.T) {
	assert := assert.New(t)

	// JMP over; EXIT $1; over: EXIT $2
	m, _, err := run([]byte{0x58, 0x06, 0x10, 0x6d, 0x01, 0x00, 0x6d, 0x02, 0x00}, "")
	assert.Equal(2, m.Status)

	var exit *ErrExit
	if assert.True(errors.As(err, &exit)) {
		assert.Equal(2, exit.Status)
	}
}

func TestMachineExitStatus(t *testing.T) {
	assert := assert.New(t)

	m, _, err := run([]byte{0x6d, 0xff, 0xff}, "")
	assert.Equal(-1, m.Status)
	assert.Equal(&ErrExit{Status: -1}, err)

	done, err := m.Tick()
	assert.True(done)
	assert.True(errors.Is(err, ErrHalted))
}

func TestMachineInput(t *testing.T) {
	assert := assert.New(t)

	// INPUT; OUTPUTNUM; EXIT $0
	code := []byte{0xdf, 0xdb, 0x6d, 0x00, 0x00}

	table := [](struct {
		input  string
		output string
		err    error
	}){
		{"  -123\n", "-123", nil},
		{"32767", "32767", nil},
		{"+5 6", "5", nil},
		{"abc", "", ErrInvalidInput},
		{"40000", "", ErrInvalidInput},
		{"0x10", "", ErrInvalidInput},
		{"", "", ErrInvalidInput},
	}

	for _, entry := range table {
		_, output, err := run(code, entry.input)
		if entry.err == nil {
			assert.NoError(err, entry.input)
		} else {
			assert.True(errors.Is(err, entry.err), entry.input)
		}
		assert.Equal(entry.output, output, entry.input)
	}
}

func TestMachineSegfault(t *testing.T) {
	assert := assert.New(t)

	// LOADW 0xffff
	_, _, err := run([]byte{0x44, 0xff, 0xff}, "")
	assert.True(errors.Is(err, ErrSegmentationFault))

	var fault *ErrFault
	if assert.True(errors.As(err, &fault)) {
		assert.Equal(0x10000, fault.Addr)
	}

	// LOADB 0xffff; EXIT $0
	_, _, err = run([]byte{0x8e, 0xff, 0xff, 0x6d, 0x00, 0x00}, "")
	assert.NoError(err)

	// LOADW -2(%0) with %0 == 0
	_, _, err = run([]byte{0x50, 0x00, 0xfe}, "")
	assert.True(errors.Is(err, ErrSegmentationFault))

	// OUTPUTSTR 0xfffe, without a terminating NUL.
	_, output, err := run([]byte{0xda, 0xfe, 0xff}, "", image.Section{Base: 0xfffe, Data: []byte{'a', 'b'}})
	assert.True(errors.Is(err, ErrSegmentationFault))
	assert.Equal("", output)
}

func TestMachineInvalidOpcode(t *testing.T) {
	assert := assert.New(t)

	_, _, err := run([]byte{0x3d, 0x01, 0x00}, "")
	assert.True(errors.Is(err, ErrInvalidOpcode))

	var bad *ErrOpcode
	if assert.True(errors.As(err, &bad)) {
		assert.Equal(isa.Opcode(0x00), bad.Opcode)
		assert.Equal(uint16(0x1002), bad.Addr)
	}
	assert.Equal("invalid opcode: 0x00 @0x1002", err.Error())
}

func TestMachineLoad(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine(nil, nil)

	err := m.Load(&image.Image{Sections: []image.Section{{Base: 0xffff, Data: []byte{1, 2}}}})
	assert.True(errors.Is(err, ErrSegmentationFault))

	err = m.LoadFrom(bytes.NewReader([]byte("not an image")))
	assert.True(errors.Is(err, image.ErrFormat))

	img := &image.Image{Entry: 0x2000, Sections: []image.Section{{Base: 0xfffe, Data: []byte{1, 2}}}}
	data, err := img.MarshalBinary()
	assert.NoError(err)
	assert.NoError(m.LoadFrom(bytes.NewReader(data)))
	assert.Equal(uint16(0x2000), m.Register[isa.REG_IP])
	assert.Equal(byte(2), m.Memory[0xffff])
}

func TestMachineString(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine(nil, nil)
	m.Register[1] = 0xffff

	text := m.String()
	assert.Contains(text, "  %0: 0000 (0)\n")
	assert.Contains(text, "  %1: FFFF (-1)\n")
	assert.Contains(text, " %SP: FFF0 (-16)\n")
	assert.Contains(text, " %IP: 0000 (0)\n")
}
