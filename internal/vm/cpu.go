package vm

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
)

// CPU is the register file and the fetch/decode/execute engine. It owns no
// memory, display or keyboard; those are handed to every cycle.
type CPU struct {
	registers [RegisterCount]uint8 // V registers (V0-VF)

	stack [StackSize]uint16 // Return addresses
	sp    uint8             // Stack pointer

	pc    uint16 // Program counter
	index uint16 // Index register

	delayTimer uint8
	soundTimer uint8

	lastAddr uint16 // Address of the last fetched word
	lastWord uint16 // Last fetched word

	random func() uint8
}

// State is a copy of the CPU registers for diagnostics and tests.
type State struct {
	V     [RegisterCount]uint8
	I     uint16
	PC    uint16
	SP    uint8
	Stack [StackSize]uint16
	Delay uint8
	Sound uint8
}

func NewCPU() *CPU {
	cpu := &CPU{random: randomByte}
	cpu.Reset()
	return cpu
}

func randomByte() uint8 {
	return uint8(rand.Intn(256))
}

func (c *CPU) Reset() {
	c.registers = [RegisterCount]uint8{}
	c.stack = [StackSize]uint16{}
	c.sp = 0
	c.pc = ProgramStart
	c.index = 0
	c.delayTimer = 0
	c.soundTimer = 0
	c.lastAddr = 0
	c.lastWord = 0
}

func (c *CPU) State() State {
	return State{
		V:     c.registers,
		I:     c.index,
		PC:    c.pc,
		SP:    c.sp,
		Stack: c.stack,
		Delay: c.delayTimer,
		Sound: c.soundTimer,
	}
}

func (s State) String() string {
	return fmt.Sprintf("pc=0x%04x i=0x%04x sp=%d dt=%d st=%d v=% x",
		s.PC, s.I, s.SP, s.Delay, s.Sound, s.V[:])
}

// LastFetch returns the address and value of the most recently fetched word.
func (c *CPU) LastFetch() (addr, word uint16) {
	return c.lastAddr, c.lastWord
}

// TickTimers decrements both timers, stopping at zero.
func (c *CPU) TickTimers() {
	if c.delayTimer > 0 {
		c.delayTimer--
	}
	if c.soundTimer > 0 {
		c.soundTimer--
	}
}

// Fetch reads the big-endian word at the program counter and steps past it.
// On a fault the program counter is left alone.
func (c *CPU) Fetch(mem *Memory) (uint16, error) {
	hi, err := mem.Read(int(c.pc))
	if err != nil {
		return 0, err
	}
	lo, err := mem.Read(int(c.pc) + 1)
	if err != nil {
		return 0, err
	}

	word := uint16(hi)<<8 | uint16(lo) // Op code is two bytes

	c.lastAddr = c.pc
	c.lastWord = word
	c.pc += InstructionSize
	return word, nil
}

// RunCycle clears the keyboard, polls input, then fetches, decodes and
// executes one instruction. A nil error means the cycle ran normally;
// otherwise it is ErrHalted, ErrCancelled, ErrReboot or a fault.
func (c *CPU) RunCycle(ctx context.Context, mem *Memory, disp *Display, kb *Keyboard) error {
	kb.Clear()
	return c.runCycle(ctx, mem, disp, kb)
}

// runCycle is RunCycle without clearing the keyboard first.
func (c *CPU) runCycle(ctx context.Context, mem *Memory, disp *Display, kb *Keyboard) error {
	switch kb.Poll() {
	case SignalQuit:
		return ErrCancelled
	case SignalReset:
		return ErrReboot
	}
	if ctx.Err() != nil {
		return ErrCancelled
	}

	if int(c.pc) >= MemorySize {
		return &AddressFault{Addr: int(c.pc)}
	}

	word, err := c.Fetch(mem)
	if err != nil {
		return err
	}

	instr := Decode(word)

	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		slog.Debug(
			"exec",
			"pc", fmt.Sprintf("0x%04x", c.lastAddr),
			"opcode", fmt.Sprintf("0x%04x", word),
			"instr", instr.String(),
		)
	}

	return c.Execute(ctx, instr, mem, disp, kb)
}

func (c *CPU) skipIf(cond bool) {
	if cond {
		c.pc += InstructionSize
	}
}

// Execute applies one decoded instruction. The program counter is expected
// to already point past it. An instruction either applies fully or, when it
// returns a fault, not at all.
func (c *CPU) Execute(ctx context.Context, instr Instruction, mem *Memory, disp *Display, kb *Keyboard) error {
	v := &c.registers

	switch in := instr.(type) {
	case Halt:
		return ErrHalted

	case None, Routine:
		// Tolerated so that ROMs carrying legacy or unknown words keep going.

	case Clear:
		disp.Clear()

	case Call:
		if int(c.sp) >= StackSize {
			return fmt.Errorf("call 0x%04x: %w", in.NNN, ErrStackOverflow)
		}
		c.stack[c.sp] = c.pc
		c.sp++
		c.pc = in.NNN

	case Return:
		if c.sp == 0 {
			return ErrStackUnderflow
		}
		c.sp--
		c.pc = c.stack[c.sp]

	case Goto:
		c.pc = in.NNN

	case Jump:
		c.pc = uint16(v[0]) + in.NNN

	case Eq:
		c.skipIf(v[in.X] == in.NN)

	case Neq:
		c.skipIf(v[in.X] != in.NN)

	case EqReg:
		c.skipIf(v[in.X] == v[in.Y])

	case NeqReg:
		c.skipIf(v[in.X] != v[in.Y])

	case SetConst:
		v[in.X] = in.NN

	case AddConst:
		v[in.X] += in.NN

	case SetReg:
		v[in.X] = v[in.Y]

	case Or:
		v[in.X] |= v[in.Y]

	case And:
		v[in.X] &= v[in.Y]

	case Xor:
		v[in.X] ^= v[in.Y]

	case AddReg:
		v[in.X] += v[in.Y]

	case SubReg:
		v[in.X] -= v[in.Y]

	case Subtract:
		// Reversed operands: VX = VY - VX.
		v[in.X] = v[in.Y] - v[in.X]

	case ShiftRight:
		// Only VX is shifted and VY is ignored. The flag takes bit 7.
		x := v[in.X]
		v[FlagRegister] = x >> 7
		v[in.X] = x >> 1

	case ShiftLeft:
		// Only VX is shifted and VY is ignored. The flag takes bit 0.
		x := v[in.X]
		v[FlagRegister] = x & 0x1
		v[in.X] = x << 1

	case SetIndex:
		c.index = in.NNN

	case AddIndex:
		c.index += uint16(v[in.X])

	case SpriteIndex:
		c.index = uint16(v[in.X]) * FontGlyphSize

	case Rand:
		v[in.X] = c.random() & in.NN

	case Draw:
		return c.draw(in, mem, disp)

	case KeyPressed:
		c.skipIf(kb.IsPressed(v[in.X]))

	case KeyNotPressed:
		c.skipIf(!kb.IsPressed(v[in.X]))

	case GetKey:
		key, err := kb.WaitForKey(ctx)
		if err != nil {
			return err
		}
		v[in.X] = uint8(key)

	case GetDelay:
		v[in.X] = c.delayTimer

	case SetDelay:
		c.delayTimer = v[in.X]

	case SetSound:
		c.soundTimer = v[in.X]

	case BCD:
		base := int(c.index)
		if err := mem.check(base + 2); err != nil {
			return err
		}
		x := v[in.X]
		// Range checked above, the writes cannot fail.
		_ = mem.Write(base, x/100)
		_ = mem.Write(base+1, (x/10)%10)
		_ = mem.Write(base+2, x%10)

	case Dump:
		base := int(c.index)
		if err := mem.check(base + int(in.N)); err != nil {
			return err
		}
		// Range checked above, the writes cannot fail.
		for i := 0; i <= int(in.N); i++ {
			_ = mem.Write(base+i, v[i])
		}

	case Load:
		base := int(c.index)
		if err := mem.check(base + int(in.N)); err != nil {
			return err
		}
		// Range checked above, the reads cannot fail.
		for i := 0; i <= int(in.N); i++ {
			v[i], _ = mem.Read(base + i)
		}

	default:
		panic(fmt.Sprintf("vm: unhandled instruction %T", instr))
	}

	return nil
}

// draw XORs an 8xN sprite read from I onto the display at (VX, VY). VF is
// set to 1 when a lit pixel is turned off and left alone otherwise.
func (c *CPU) draw(in Draw, mem *Memory, disp *Display) error {
	var rows [16]uint8
	for y := 0; y < int(in.N); y++ {
		b, err := mem.Read(int(c.index) + y)
		if err != nil {
			return err
		}
		rows[y] = b
	}

	xLocation, yLocation := int(c.registers[in.X]), int(c.registers[in.Y])

	collision := false
	for y := 0; y < int(in.N); y++ {
		const width = 8
		for x := 0; x < width; x++ {
			if rows[y]&(0x80>>x) == 0 {
				continue
			}
			if disp.DrawPixel(xLocation+x, yLocation+y, true) {
				collision = true
			}
		}
	}

	if collision {
		c.registers[FlagRegister] = 1
	}
	return nil
}
