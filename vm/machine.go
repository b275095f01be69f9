// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package vm

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"

	"github.com/ezrec/re2/image"
	"github.com/ezrec/re2/isa"
)

// Machine is the state of an RE^2 virtual machine: 16 registers and
// 64KiB of byte addressed memory.
type Machine struct {
	Verbose bool // If set, logs every executed instruction.

	Register  [isa.REGISTER_COUNT]uint16 // Register bank.
	Memory    [isa.MEMORY_SIZE]byte      // Flat memory.
	IpCache   uint16                     // IP at the start of the current instruction.
	StackBase uint16                     // Initial SP and BP.

	Ticks  int  // Instructions executed since Load.
	Halted bool // Set once EXIT has executed.
	Status int  // EXIT status, once halted.

	input  *bufio.Reader
	output io.Writer
}

// NewMachine creates a machine reading INPUT from input and writing
// OUTPUTNUM and OUTPUTSTR to output.
func NewMachine(input io.Reader, output io.Writer) (m *Machine) {
	m = &Machine{
		StackBase: isa.STACK_ADDR,
		output:    output,
	}

	if input != nil {
		m.input = bufio.NewReader(input)
	}

	if m.output == nil {
		m.output = io.Discard
	}

	m.Reset()

	return
}

// Reset clears memory and registers, and sets up the stack.
func (m *Machine) Reset() {
	clear(m.Register[:])
	clear(m.Memory[:])

	m.Register[isa.REG_SP] = m.StackBase
	m.Register[isa.REG_BP] = m.StackBase
	m.IpCache = 0
	m.Ticks = 0
	m.Halted = false
	m.Status = 0
}

// Load resets the machine and copies an image into memory.
func (m *Machine) Load(img *image.Image) (err error) {
	m.Reset()

	for _, sec := range img.Sections {
		base := int(sec.Base)
		if base+len(sec.Data) > isa.MEMORY_SIZE {
			err = &ErrFault{Err: ErrSegmentationFault, Addr: isa.MEMORY_SIZE}
			return
		}
		copy(m.Memory[base:], sec.Data)
	}

	m.Register[isa.REG_IP] = img.Entry

	if m.Verbose {
		log.Printf("loaded %v section(s), entry 0x%04x", len(img.Sections), img.Entry)
	}

	return
}

// LoadFrom reads an image and loads it.
func (m *Machine) LoadFrom(r io.Reader) (err error) {
	img, err := image.Read(r)
	if err != nil {
		return
	}

	return m.Load(img)
}

// String returns the register state.
func (m *Machine) String() (text string) {
	for reg := range isa.REGISTER_COUNT {
		value := m.Register[reg]
		text += fmt.Sprintf("%4s: %04X (%v)\n", isa.RegisterName(reg), value, int16(value))
	}
	return
}

// fetch8 reads the byte at IP, and advances IP.
func (m *Machine) fetch8() byte {
	ip := m.Register[isa.REG_IP]
	m.Register[isa.REG_IP] = ip + 1
	return m.Memory[ip]
}

// fetch16 reads a little-endian word at IP, and advances IP.
func (m *Machine) fetch16() uint16 {
	lo := m.fetch8()
	hi := m.fetch8()
	return uint16(lo) | uint16(hi)<<8
}

// fetchRegister reads a register operand.
func (m *Machine) fetchRegister() int {
	return int(m.fetch8()) & isa.REGISTER_MASK
}

// indirect returns the effective address of off(%reg).
// Addressing through IP uses the IP of the start of the instruction.
func (m *Machine) indirect(reg int, off int) int {
	if reg == isa.REG_IP {
		return int(m.IpCache) + off
	}
	return int(m.Register[reg]) + off
}

func (m *Machine) load8(addr int) (value byte, err error) {
	if addr < 0 || addr > isa.MAX_ADDR {
		err = &ErrFault{Err: ErrSegmentationFault, Addr: addr}
		return
	}

	value = m.Memory[addr]
	return
}

func (m *Machine) load16(addr int) (value uint16, err error) {
	lo, err := m.load8(addr)
	if err != nil {
		return
	}

	hi, err := m.load8(addr + 1)
	if err != nil {
		return
	}

	value = uint16(lo) | uint16(hi)<<8
	return
}

func (m *Machine) store8(addr int, value byte) (err error) {
	if addr < 0 || addr > isa.MAX_ADDR {
		err = &ErrFault{Err: ErrSegmentationFault, Addr: addr}
		return
	}

	m.Memory[addr] = value
	return
}

func (m *Machine) store16(addr int, value uint16) (err error) {
	err = m.store8(addr, byte(value))
	if err != nil {
		return
	}

	return m.store8(addr+1, byte(value>>8))
}

// push decrements SP, then stores the word at SP.
func (m *Machine) push(value uint16) (err error) {
	m.Register[isa.REG_SP] -= 2
	return m.store16(int(m.Register[isa.REG_SP]), value)
}

// pop increments SP, then loads the word below SP.
func (m *Machine) pop() (value uint16, err error) {
	m.Register[isa.REG_SP] += 2
	return m.load16(int(m.Register[isa.REG_SP]) - 2)
}

// pushByte pushes a sign extended byte.
func (m *Machine) pushByte(value byte) (err error) {
	return m.push(uint16(int16(int8(value))))
}

// arithmetic are the two operand stack operations: b = pop(), a = pop(),
// push(a op b). Operands are sign extended.
var arithmetic = map[isa.Opcode]func(a, b int32) (int32, error){
	isa.OP_AND:  func(a, b int32) (int32, error) { return a & b, nil },
	isa.OP_OR:   func(a, b int32) (int32, error) { return a | b, nil },
	isa.OP_XOR:  func(a, b int32) (int32, error) { return a ^ b, nil },
	isa.OP_ADD:  func(a, b int32) (int32, error) { return a + b, nil },
	isa.OP_SUB:  func(a, b int32) (int32, error) { return a - b, nil },
	isa.OP_MULT: func(a, b int32) (int32, error) { return a * b, nil },
	isa.OP_DIV: func(a, b int32) (int32, error) {
		if b == 0 {
			return 0, ErrDivideByZero
		}
		return a / b, nil
	},
	isa.OP_MOD: func(a, b int32) (int32, error) {
		if b == 0 {
			return 0, ErrDivideByZero
		}
		return a % b, nil
	},
	isa.OP_SAR: func(a, b int32) (int32, error) { return a >> (b & 31), nil },
	isa.OP_SHL: func(a, b int32) (int32, error) { return a << (b & 31), nil },
	isa.OP_SHR: func(a, b int32) (int32, error) { return int32(uint32(a) >> (b & 31)), nil },
}

// branches are the conditional jumps, testing the popped value.
var branches = map[isa.Opcode]func(v int16) bool{
	isa.OP_JNZ: func(v int16) bool { return v != 0 },
	isa.OP_JZ:  func(v int16) bool { return v == 0 },
	isa.OP_JN:  func(v int16) bool { return v < 0 },
	isa.OP_JP:  func(v int16) bool { return v > 0 },
}

// Tick executes a single instruction. done is set once the program has
// executed EXIT, and the status is in Status. Ticking a halted machine
// returns ErrHalted.
func (m *Machine) Tick() (done bool, err error) {
	if m.Halted {
		done = true
		err = ErrHalted
		return
	}

	m.IpCache = m.Register[isa.REG_IP]
	opcode := isa.Opcode(m.fetch8())

	if m.Verbose {
		text, _ := isa.Disassemble(m.Memory[:], int(m.IpCache))
		log.Printf("%04x: %v", m.IpCache, text)
	}

	m.Ticks++

	err = m.execute(opcode)
	done = m.Halted

	return
}

// Run executes until EXIT or a fault. A non-zero exit status is
// returned as an *ErrExit.
func (m *Machine) Run() (err error) {
	for {
		var done bool
		done, err = m.Tick()
		if err != nil {
			return
		}
		if done {
			break
		}
	}

	if m.Status != 0 {
		err = &ErrExit{Status: m.Status}
	}

	return
}

// execute performs a decoded opcode. IP has been advanced past the opcode.
func (m *Machine) execute(opcode isa.Opcode) (err error) {
	if op, ok := arithmetic[opcode]; ok {
		var a, b uint16
		b, err = m.pop()
		if err != nil {
			return
		}
		a, err = m.pop()
		if err != nil {
			return
		}
		var result int32
		result, err = op(int32(int16(a)), int32(int16(b)))
		if err != nil {
			return
		}
		return m.push(uint16(result))
	}

	if cond, ok := branches[opcode]; ok {
		addr := m.fetch16()
		var value uint16
		value, err = m.pop()
		if err != nil {
			return
		}
		if cond(int16(value)) {
			m.Register[isa.REG_IP] = addr
		}
		return
	}

	switch opcode {
	case isa.OP_NOT:
		var value uint16
		value, err = m.pop()
		if err != nil {
			return
		}
		return m.push(^value)
	case isa.OP_DUP:
		var value uint16
		value, err = m.load16(int(m.Register[isa.REG_SP]))
		if err != nil {
			return
		}
		return m.push(value)
	case isa.OP_PUSH_IMM8:
		return m.pushByte(m.fetch8())
	case isa.OP_PUSH_IMM16:
		return m.push(m.fetch16())
	case isa.OP_PUSH_REG:
		return m.push(m.Register[m.fetchRegister()])
	case isa.OP_POP_REG:
		reg := m.fetchRegister()
		var value uint16
		value, err = m.pop()
		if err != nil {
			return
		}
		m.Register[reg] = value
	case isa.OP_POP:
		_, err = m.pop()
	case isa.OP_LOADB_ADDR:
		return m.loadByte(int(m.fetch16()))
	case isa.OP_LOADW_ADDR:
		return m.loadWord(int(m.fetch16()))
	case isa.OP_LOADB_IND:
		return m.loadByte(m.indirect(m.fetchRegister(), 0))
	case isa.OP_LOADW_IND:
		return m.loadWord(m.indirect(m.fetchRegister(), 0))
	case isa.OP_LOADB_OFF:
		reg := m.fetchRegister()
		return m.loadByte(m.indirect(reg, int(int8(m.fetch8()))))
	case isa.OP_LOADW_OFF:
		reg := m.fetchRegister()
		return m.loadWord(m.indirect(reg, int(int8(m.fetch8()))))
	case isa.OP_STOREB_ADDR:
		return m.storeByte(int(m.fetch16()))
	case isa.OP_STOREW_ADDR:
		return m.storeWord(int(m.fetch16()))
	case isa.OP_STOREB_IND:
		return m.storeByte(m.indirect(m.fetchRegister(), 0))
	case isa.OP_STOREW_IND:
		return m.storeWord(m.indirect(m.fetchRegister(), 0))
	case isa.OP_STOREB_OFF:
		reg := m.fetchRegister()
		return m.storeByte(m.indirect(reg, int(int8(m.fetch8()))))
	case isa.OP_STOREW_OFF:
		reg := m.fetchRegister()
		return m.storeWord(m.indirect(reg, int(int8(m.fetch8()))))
	case isa.OP_JMP_ADDR:
		m.Register[isa.REG_IP] = m.fetch16()
	case isa.OP_JMP_IND:
		var target uint16
		target, err = m.load16(m.indirect(m.fetchRegister(), 0))
		if err != nil {
			return
		}
		m.Register[isa.REG_IP] = target
	case isa.OP_CALL_ADDR:
		target := m.fetch16()
		err = m.push(m.Register[isa.REG_IP])
		if err != nil {
			return
		}
		m.Register[isa.REG_IP] = target
	case isa.OP_CALL_IND:
		reg := m.fetchRegister()
		err = m.push(m.Register[isa.REG_IP])
		if err != nil {
			return
		}
		var target uint16
		target, err = m.load16(m.indirect(reg, 0))
		if err != nil {
			return
		}
		m.Register[isa.REG_IP] = target
	case isa.OP_RET:
		var target uint16
		target, err = m.pop()
		if err != nil {
			return
		}
		m.Register[isa.REG_IP] = target
	case isa.OP_OUTSTR_ADDR:
		return m.outputString(int(m.fetch16()))
	case isa.OP_OUTSTR_IND:
		return m.outputString(m.indirect(m.fetchRegister(), 0) & isa.MAX_ADDR)
	case isa.OP_OUTSTR_OFF:
		reg := m.fetchRegister()
		return m.outputString(m.indirect(reg, int(int8(m.fetch8()))) & isa.MAX_ADDR)
	case isa.OP_OUTPUTNUM:
		var value uint16
		value, err = m.pop()
		if err != nil {
			return
		}
		_, err = io.WriteString(m.output, strconv.Itoa(int(int16(value))))
	case isa.OP_INPUT:
		var value int16
		value, err = m.readNumber()
		if err != nil {
			return
		}
		return m.push(uint16(value))
	case isa.OP_EXIT:
		m.Status = int(int16(m.fetch16()))
		m.Halted = true
		if m.Verbose {
			log.Printf("exit %v after %v tick(s)", m.Status, m.Ticks)
		}
	default:
		err = &ErrOpcode{Opcode: opcode, Addr: m.IpCache}
	}

	return
}

func (m *Machine) loadByte(addr int) (err error) {
	value, err := m.load8(addr)
	if err != nil {
		return
	}
	return m.pushByte(value)
}

func (m *Machine) loadWord(addr int) (err error) {
	value, err := m.load16(addr)
	if err != nil {
		return
	}
	return m.push(value)
}

func (m *Machine) storeByte(addr int) (err error) {
	value, err := m.pop()
	if err != nil {
		return
	}
	return m.store8(addr, byte(value))
}

func (m *Machine) storeWord(addr int) (err error) {
	value, err := m.pop()
	if err != nil {
		return
	}
	return m.store16(addr, value)
}

// outputString writes the NUL terminated string at addr. A string running
// past the end of memory faults before anything is written.
func (m *Machine) outputString(addr int) (err error) {
	end := addr
	for {
		var c byte
		c, err = m.load8(end)
		if err != nil {
			return
		}
		if c == 0 {
			break
		}
		end++
	}

	_, err = m.output.Write(m.Memory[addr:end])
	return
}

// flusher is an output stream with buffered data.
type flusher interface {
	Flush() error
}

// readNumber reads a whitespace delimited signed 16-bit decimal number.
func (m *Machine) readNumber() (value int16, err error) {
	if fl, ok := m.output.(flusher); ok {
		err = fl.Flush()
		if err != nil {
			return
		}
	}

	if m.input == nil {
		err = ErrInvalidInput
		return
	}

	var word string
	_, err = fmt.Fscan(m.input, &word)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidInput, err)
		return
	}

	v64, err := strconv.ParseInt(word, 10, 16)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidInput, err)
		return
	}

	value = int16(v64)
	return
}
