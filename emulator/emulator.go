// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"bufio"
	"errors"
	"io"
	"log"

	"github.com/ezrec/re2/image"
	"github.com/ezrec/re2/isa"
	"github.com/ezrec/re2/vm"
)

// Exit codes of the toolchain binaries.
const (
	EXIT_OK         = 0 // Normal termination.
	EXIT_FAILURE    = 1 // Assembly, format, opcode or arithmetic error.
	EXIT_USAGE      = 2 // Missing arguments.
	EXIT_SEGFAULT   = 3 // Memory access outside the address space.
	EXIT_BAD_NUMBER = 4 // Malformed INPUT.
)

// Emulator state. Machine + debug symbols.
type Emulator struct {
	Verbose    bool // If set, traces each instruction with its source line.
	*vm.Machine     // Reference to the machine.

	Symbols *image.Symbols // Debug symbols, if any.
	Source  []string       // Source text, if any, for tracing.
}

// NewEmulator creates a new emulator.
func NewEmulator(input io.Reader, output io.Writer) (emu *Emulator) {
	emu = &Emulator{
		Machine: vm.NewMachine(input, output),
	}

	return
}

// Load an image and its (optional) debug symbols.
func (emu *Emulator) Load(img *image.Image, sym *image.Symbols) (err error) {
	emu.Symbols = sym
	emu.Source = nil

	return emu.Machine.Load(img)
}

// LoadSource reads the source listing used by verbose tracing.
func (emu *Emulator) LoadSource(r io.Reader) (err error) {
	emu.Source = nil

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		emu.Source = append(emu.Source, scanner.Text())
	}

	return scanner.Err()
}

// Ip returns current instruction pointer.
func (emu *Emulator) Ip() uint16 {
	return emu.Machine.Register[isa.REG_IP]
}

// LineNo returns the source line number of the current instruction, or 0.
func (emu *Emulator) LineNo() int {
	line, _ := emu.Symbols.LineOf(emu.Ip())
	return line
}

// Line returns the source text of a line, if known.
func (emu *Emulator) Line(lineno int) (text string, ok bool) {
	if lineno < 1 || lineno > len(emu.Source) {
		return
	}

	return emu.Source[lineno-1], true
}

// Tick performs a single instruction of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	ip := emu.Ip()
	lineno := emu.LineNo()

	defer func() {
		if err != nil && !errors.Is(err, vm.ErrHalted) {
			err = &ErrRuntime{LineNo: lineno, Addr: ip, Err: err}
		}
	}()

	if emu.Verbose {
		if label, ok := emu.Symbols.LabelOf(ip); ok {
			log.Printf("%v:", label)
		}
		if text, ok := emu.Line(lineno); ok {
			log.Printf("%v: %v\n", lineno, text)
		}
	}

	emu.Machine.Verbose = emu.Verbose

	done, err = emu.Machine.Tick()

	return
}

// Run the loaded program until it exits or faults. A non-zero EXIT status
// is returned as a *vm.ErrExit.
func (emu *Emulator) Run() (err error) {
	for {
		var done bool
		done, err = emu.Tick()
		if err != nil {
			return
		}
		if done {
			break
		}
	}

	if emu.Machine.Status != 0 {
		err = &vm.ErrExit{Status: emu.Machine.Status}
	}

	return
}

// ExitCode maps an error from the toolchain to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return EXIT_OK
	}

	var exit *vm.ErrExit
	if errors.As(err, &exit) {
		return exit.Status
	}

	switch {
	case errors.Is(err, vm.ErrSegmentationFault):
		return EXIT_SEGFAULT
	case errors.Is(err, vm.ErrInvalidInput):
		return EXIT_BAD_NUMBER
	}

	return EXIT_FAILURE
}
