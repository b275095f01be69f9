package emulator

import (
	"bytes"
	"errors"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/re2/asm"
	"github.com/ezrec/re2/image"
	"github.com/ezrec/re2/vm"
)

func doRun(program []string, input string, t *testing.T) (emu *Emulator, output string, err error) {
	assert := assert.New(t)

	source := strings.Join(program, "\n")

	as := &asm.Assembler{}
	prog, err := as.Parse("test.s", strings.NewReader(source))
	assert.NoError(err)
	if err != nil {
		t.Fatalf("%v", err)
	}

	var buff bytes.Buffer
	emu = NewEmulator(strings.NewReader(input), &buff)
	err = emu.Load(prog.Image(), prog.Symbols())
	assert.NoError(err)
	assert.NoError(emu.LoadSource(strings.NewReader(source)))

	err = emu.Run()
	output = buff.String()
	return
}

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(nil, nil)

	assert.False(emu.Verbose)
	assert.NotNil(emu.Machine)
	assert.Equal(0, emu.LineNo())
}

func TestEmulatorPrograms(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program []string
		input   string
		output  string
		code    int
	}){
		{"exit", []string{
			".SECTION",
			".BASE 0x0000",
			".ENTRY start",
			"start:",
			"EXIT $0",
		}, "", "", EXIT_OK},
		{"add", []string{
			".SECTION",
			".BASE 0x1000",
			".ENTRY start",
			"start:",
			"    PUSH $5",
			"    PUSH $3",
			"    ADD",
			"    OUTPUTNUM",
			"    EXIT $0",
		}, "", "8", EXIT_OK},
		{"hello", []string{
			".SECTION",
			".BASE 0x1000",
			".ENTRY start",
			"start:",
			"    OUTPUTSTR msg",
			"    EXIT $0",
			".SECTION",
			".BASE 0x2000",
			"msg:",
			`    .STR "Hi"`,
		}, "", "Hi", EXIT_OK},
		{"status", []string{
			".SECTION",
			".BASE 0x1000",
			".ENTRY 0x1000",
			"    EXIT $7",
		}, "", "", 7},
		{"input", []string{
			".SECTION",
			".BASE 0x1000",
			".ENTRY start",
			"start:",
			"    INPUT",
			"    PUSH $-2",
			"    MULT",
			"    OUTPUTNUM",
			"    EXIT $0",
		}, " 21\n", "-42", EXIT_OK},
		{"bad-input", []string{
			".SECTION",
			".BASE 0x1000",
			".ENTRY start",
			"start:",
			"    INPUT",
			"    EXIT $0",
		}, "twelve", "", EXIT_BAD_NUMBER},
		{"segfault", []string{
			".SECTION",
			".BASE 0x1000",
			".ENTRY start",
			"start:",
			"    LOADW 0xffff",
			"    EXIT $0",
		}, "", "", EXIT_SEGFAULT},
		{"divide", []string{
			".SECTION",
			".BASE 0x1000",
			".ENTRY start",
			"start:",
			"    PUSH $1",
			"    PUSH $0",
			"    DIV",
			"    EXIT $0",
		}, "", "", EXIT_FAILURE},
		{"countdown", []string{
			".SECTION",
			".BASE 0x1000",
			".ENTRY main",
			"main:",
			"    PUSH $3",
			"    POP %1",
			"loop:",
			"    PUSH %1",
			"    OUTPUTNUM",
			"    CALL space",
			"    PUSH %1",
			"    PUSH $1",
			"    SUB",
			"    DUP",
			"    POP %1",
			"    JNZ loop",
			"    EXIT $0",
			".SECTION",
			".BASE 0x2000",
			"space:",
			"    OUTPUTSTR blank",
			"    RET",
			"blank:",
			`    .STR " "`,
		}, "", "3 2 1 ", EXIT_OK},
		{"frame", []string{
			".SECTION",
			".BASE 0x1000",
			".ENTRY main",
			"main:",
			"    PUSH $40",
			"    CALL double",
			"    POP",
			"    PUSH %0",
			"    OUTPUTNUM",
			"    EXIT $0",
			"double:",
			"    ENTER",
			"    LOADW 4(%BP)",
			"    DUP",
			"    ADD",
			"    POP %0",
			"    LEAVE",
			"    RET",
		}, "", "80", EXIT_OK},
	}

	for _, entry := range table {
		_, output, err := doRun(entry.program, entry.input, t)
		assert.Equal(entry.code, ExitCode(err), entry.name)
		assert.Equal(entry.output, output, entry.name)
	}
}

func TestEmulatorRuntimeError(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".SECTION",
		".BASE 0x1000",
		".ENTRY start",
		"start:",
		"    PUSH $1",
		"    LOADW 0xffff",
		"    EXIT $0",
	}

	_, _, err := doRun(program, "", t)

	var rt *ErrRuntime
	if assert.True(errors.As(err, &rt)) {
		assert.Equal(6, rt.LineNo)
		assert.Equal(uint16(0x1002), rt.Addr)
	}
	assert.True(errors.Is(err, vm.ErrSegmentationFault))
	assert.Equal("line 6 (0x1002): segmentation fault at 0x10000", err.Error())
}

func TestEmulatorVerbose(t *testing.T) {
	assert := assert.New(t)

	var trace bytes.Buffer
	log.SetOutput(&trace)
	flags := log.Flags()
	log.SetFlags(0)
	defer func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	}()

	program := []string{
		".SECTION",
		".BASE 0x1000",
		".ENTRY start",
		"start:",
		"    EXIT $3",
	}

	as := &asm.Assembler{}
	prog, err := as.Parse("test.s", strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)

	emu := NewEmulator(nil, nil)
	emu.Verbose = true
	assert.NoError(emu.Load(prog.Image(), prog.Symbols()))
	assert.NoError(emu.LoadSource(strings.NewReader(strings.Join(program, "\n"))))
	assert.Equal(5, emu.LineNo())

	err = emu.Run()
	assert.Equal(3, ExitCode(err))

	text := trace.String()
	assert.Contains(text, "start:\n")
	assert.Contains(text, "5:     EXIT $3\n")
	assert.Contains(text, "1000: EXIT $3\n")
}

func TestExitCode(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		err  error
		code int
	}){
		{nil, EXIT_OK},
		{&vm.ErrExit{Status: 9}, 9},
		{&ErrRuntime{Err: &vm.ErrFault{Err: vm.ErrSegmentationFault}}, EXIT_SEGFAULT},
		{&ErrRuntime{Err: vm.ErrInvalidInput}, EXIT_BAD_NUMBER},
		{&ErrRuntime{Err: vm.ErrDivideByZero}, EXIT_FAILURE},
		{&ErrRuntime{Err: &vm.ErrOpcode{}}, EXIT_FAILURE},
		{&image.ErrDecode{Err: image.ErrSignature}, EXIT_FAILURE},
		{&asm.ErrAssembly{Errors: 1}, EXIT_FAILURE},
	}

	for n, entry := range table {
		assert.Equal(entry.code, ExitCode(entry.err), n)
	}
}
