package vm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPU_Reset(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCPU()
	s := cpu.State()
	assert.Equal(ProgramStart, s.PC)
	assert.Equal(uint8(0), s.SP)
	assert.Equal(uint16(0), s.I)
}

func TestCPU_Fetch(t *testing.T) {
	assert := assert.New(t)

	r := newRig(0xA2F0)
	word, err := r.cpu.Fetch(r.mem)
	assert.NoError(err)
	assert.Equal(uint16(0xA2F0), word)
	assert.Equal(ProgramStart+2, r.cpu.pc)

	addr, last := r.cpu.LastFetch()
	assert.Equal(ProgramStart, addr)
	assert.Equal(uint16(0xA2F0), last)
}

func TestCPU_Arithmetic(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		x, y   uint8
		word   uint16
		want   uint8
		flag   uint8
		setsVF bool
	}){
		{"add_const_wraps", 250, 0, 0x700A, 4, 0, false},
		{"set_reg", 1, 9, 0x8010, 9, 0, false},
		{"or", 0xF0, 0x0F, 0x8011, 0xFF, 0, false},
		{"and", 0xF0, 0x3C, 0x8012, 0x30, 0, false},
		{"xor", 0xFF, 0x0F, 0x8013, 0xF0, 0, false},
		{"add_reg_wraps", 200, 100, 0x8014, 44, 0, false},
		{"sub_reg", 10, 3, 0x8015, 7, 0, false},
		{"sub_reg_wraps", 3, 10, 0x8015, 249, 0, false},
		{"subtract_reversed", 10, 3, 0x8017, 249, 0, false},
		{"subtract", 3, 10, 0x8017, 7, 0, false},
		{"shr_bit7_to_vf", 0x81, 0, 0x8016, 0x40, 1, true},
		{"shr_bit7_clear", 0x01, 0, 0x8016, 0x00, 0, true},
		{"shl_bit0_to_vf", 0x81, 0, 0x801E, 0x02, 1, true},
		{"shl_bit0_clear", 0x80, 0, 0x801E, 0x00, 0, true},
		{"shift_ignores_vy", 0x02, 0xFF, 0x801E, 0x04, 0, true},
	}

	for _, entry := range table {
		r := newRig(entry.word)
		r.cpu.registers[0] = entry.x
		r.cpu.registers[1] = entry.y
		r.cpu.registers[FlagRegister] = 0x55

		require.NoError(t, r.cycle(), entry.name)

		assert.Equal(entry.want, r.cpu.registers[0], entry.name)
		if entry.setsVF {
			assert.Equal(entry.flag, r.cpu.registers[FlagRegister], entry.name)
		} else {
			assert.Equal(uint8(0x55), r.cpu.registers[FlagRegister], entry.name)
		}
		assert.Equal(ProgramStart+2, r.cpu.pc, entry.name)
	}
}

func TestCPU_SetAndAddConst(t *testing.T) {
	assert := assert.New(t)

	r := newRig(0x6A12, 0x7AF0)
	r.run(t, 2)
	assert.Equal(uint8(0x02), r.cpu.registers[0xA])
}

func TestCPU_Skips(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		word uint16
		skip bool
	}){
		{"eq_taken", 0x3005, true},
		{"eq_not_taken", 0x3006, false},
		{"neq_taken", 0x4006, true},
		{"neq_not_taken", 0x4005, false},
		{"eq_reg_taken", 0x5010, true},
		{"eq_reg_not_taken", 0x5020, false},
		{"neq_reg_taken", 0x9020, true},
		{"neq_reg_not_taken", 0x9010, false},
	}

	for _, entry := range table {
		r := newRig(entry.word)
		r.cpu.registers[0] = 5
		r.cpu.registers[1] = 5
		r.cpu.registers[2] = 6

		require.NoError(t, r.cycle(), entry.name)

		want := ProgramStart + 2
		if entry.skip {
			want += 2
		}
		assert.Equal(want, r.cpu.pc, entry.name)
	}
}

func TestCPU_GotoAndJump(t *testing.T) {
	assert := assert.New(t)

	r := newRig(0x1300)
	r.run(t, 1)
	assert.Equal(uint16(0x300), r.cpu.pc)

	r = newRig(0xB300)
	r.cpu.registers[0] = 4
	r.run(t, 1)
	assert.Equal(uint16(0x304), r.cpu.pc)
}

func TestCPU_CallReturn(t *testing.T) {
	assert := assert.New(t)

	// 0x200: call 0x206; 0x202: mov v1, 1; 0x204: halt; 0x206: mov v0, 7; 0x208: rts
	r := newRig(0x2206, 0x6101, 0x0000, 0x6007, 0x00EE)

	r.run(t, 1)
	assert.Equal(uint16(0x206), r.cpu.pc)
	assert.Equal(uint8(1), r.cpu.sp)
	assert.Equal(uint16(0x202), r.cpu.stack[0])

	r.run(t, 2)
	assert.Equal(uint16(0x202), r.cpu.pc, "return resumes after the call")
	assert.Equal(uint8(0), r.cpu.sp)

	r.run(t, 1)
	assert.ErrorIs(r.cycle(), ErrHalted)
	assert.Equal(uint8(7), r.cpu.registers[0])
	assert.Equal(uint8(1), r.cpu.registers[1])
}

func TestCPU_StackOverflow(t *testing.T) {
	assert := assert.New(t)

	// Calls itself forever.
	r := newRig(0x2200)
	r.run(t, StackSize)
	assert.Equal(uint8(StackSize), r.cpu.sp)

	before := r.cpu.State()
	err := r.cycle()
	assert.ErrorIs(err, ErrStackOverflow)
	assert.True(IsFatal(err))

	after := r.cpu.State()
	assert.Equal(before.SP, after.SP)
	assert.Equal(before.Stack, after.Stack)
}

func TestCPU_StackUnderflow(t *testing.T) {
	r := newRig(0x00EE)
	err := r.cycle()
	assert.ErrorIs(t, err, ErrStackUnderflow)
	assert.True(t, IsFatal(err))
}

func TestCPU_Index(t *testing.T) {
	assert := assert.New(t)

	r := newRig(0xA123)
	r.run(t, 1)
	assert.Equal(uint16(0x123), r.cpu.index)

	r = newRig(0xF01E)
	r.cpu.index = 0xFFFF
	r.cpu.registers[0] = 2
	r.run(t, 1)
	assert.Equal(uint16(1), r.cpu.index, "16-bit wrap")

	r = newRig(0xF029)
	r.cpu.registers[0] = 0xA
	r.run(t, 1)
	assert.Equal(uint16(50), r.cpu.index)
}

func TestCPU_Rand(t *testing.T) {
	assert := assert.New(t)

	r := newRig(0xC30F, 0xC3F0)
	r.cpu.random = func() uint8 { return 0xA5 }

	r.run(t, 1)
	assert.Equal(uint8(0x05), r.cpu.registers[3])
	r.run(t, 1)
	assert.Equal(uint8(0xA0), r.cpu.registers[3])
}

func TestCPU_RandomByteRange(t *testing.T) {
	seen := map[uint8]bool{}
	for i := 0; i < 20000; i++ {
		seen[randomByte()] = true
	}
	assert.Greater(t, len(seen), 250)
}

func TestCPU_Draw_Collision(t *testing.T) {
	assert := assert.New(t)

	// Draw the glyph for 0 at (0, 0) twice.
	r := newRig(0xF029, 0xD015, 0xD015)
	r.cpu.registers[FlagRegister] = 0

	r.run(t, 2)
	assert.Equal(uint8(0), r.cpu.registers[FlagRegister])
	lit := r.disp.Dump()
	assert.True(r.disp.Pixel(0, 0))
	assert.True(r.disp.Pixel(3, 0))
	assert.False(r.disp.Pixel(4, 0))
	assert.True(r.disp.Pixel(0, 1))
	assert.False(r.disp.Pixel(1, 1))

	r.run(t, 1)
	assert.Equal(uint8(1), r.cpu.registers[FlagRegister])
	assert.NotEqual(lit, r.disp.Dump())
	assert.Equal(NewDisplay().Dump(), r.disp.Dump(), "second draw erases everything")
}

func TestCPU_Draw_LeavesFlagWithoutCollision(t *testing.T) {
	r := newRig(0xD015)
	r.cpu.registers[FlagRegister] = 7
	r.cpu.registers[0] = 10
	r.cpu.registers[1] = 10
	r.run(t, 1)
	assert.Equal(t, uint8(7), r.cpu.registers[FlagRegister])
}

func TestCPU_Draw_Wraps(t *testing.T) {
	assert := assert.New(t)

	// Top row of glyph 0 is 0xF0: four lit columns.
	r := newRig(0xD011)
	r.cpu.registers[0] = ScreenWidth - 1
	r.cpu.registers[1] = ScreenHeight - 1
	r.run(t, 1)

	assert.True(r.disp.Pixel(ScreenWidth-1, ScreenHeight-1))
	assert.True(r.disp.Pixel(0, ScreenHeight-1))
	assert.True(r.disp.Pixel(1, ScreenHeight-1))
	assert.True(r.disp.Pixel(2, ScreenHeight-1))
	assert.False(r.disp.Pixel(3, ScreenHeight-1))
}

func TestCPU_Draw_Fault(t *testing.T) {
	assert := assert.New(t)

	r := newRig(0xD012)
	r.cpu.index = MemorySize - 1
	r.cpu.registers[FlagRegister] = 9

	err := r.cycle()
	var fault *AddressFault
	assert.True(errors.As(err, &fault))
	assert.Equal(MemorySize, fault.Addr)
	assert.Equal(NewDisplay().Dump(), r.disp.Dump(), "nothing drawn")
	assert.Equal(uint8(9), r.cpu.registers[FlagRegister])
}

func TestCPU_Keys(t *testing.T) {
	assert := assert.New(t)

	r := newRig(0xE09E, 0x0000, 0xE09E, 0xE0A1)
	r.cpu.registers[0] = 5

	r.src.steps = []*HostEvent{down('5'), nil}
	r.run(t, 1)
	assert.Equal(ProgramStart+4, r.cpu.pc, "pressed, skipped")

	// The key from the previous cycle is gone.
	r.run(t, 1)
	assert.Equal(ProgramStart+6, r.cpu.pc, "not pressed, not skipped")

	r.src.steps = []*HostEvent{down('6'), nil}
	r.run(t, 1)
	assert.Equal(ProgramStart+10, r.cpu.pc, "other key, skipped")
}

func TestCPU_GetKey(t *testing.T) {
	assert := assert.New(t)

	r := newRig(0xF30A)
	r.src.steps = []*HostEvent{nil, nil, down('b')}
	r.run(t, 1)
	assert.Equal(uint8(0xB), r.cpu.registers[3])
	assert.Equal(ProgramStart+2, r.cpu.pc)
}

func TestCPU_GetKey_Quit(t *testing.T) {
	r := newRig(0xF30A)
	r.src.steps = []*HostEvent{nil, down('w'), quit()}
	err := r.cycle()
	assert.ErrorIs(t, err, ErrCancelled)
	assert.False(t, IsFatal(err))
	assert.Equal(t, uint8(0), r.cpu.registers[3])
}

func TestCPU_Timers(t *testing.T) {
	assert := assert.New(t)

	r := newRig(0xF015, 0xF118, 0xF207)
	r.cpu.registers[0] = 3
	r.cpu.registers[1] = 1
	r.run(t, 2)

	r.cpu.TickTimers()
	r.run(t, 1)
	assert.Equal(uint8(2), r.cpu.registers[2])
	assert.Equal(uint8(0), r.cpu.soundTimer)

	for i := 0; i < 10; i++ {
		r.cpu.TickTimers()
	}
	assert.Equal(uint8(0), r.cpu.delayTimer, "floor at zero")
	assert.Equal(uint8(0), r.cpu.soundTimer, "floor at zero")
}

func TestCPU_BCD(t *testing.T) {
	assert := assert.New(t)

	r := newRig(0xF033)
	r.cpu.registers[0] = 234
	r.cpu.index = 0x400
	r.run(t, 1)

	for i, want := range []uint8{2, 3, 4} {
		b, _ := r.mem.Read(0x400 + i)
		assert.Equal(want, b)
	}
	assert.Equal(uint16(0x400), r.cpu.index)
}

func TestCPU_BCD_Fault(t *testing.T) {
	assert := assert.New(t)

	r := newRig(0xF033)
	r.cpu.registers[0] = 255
	r.cpu.index = MemorySize - 2

	var fault *AddressFault
	assert.True(errors.As(r.cycle(), &fault))

	b, _ := r.mem.Read(MemorySize - 2)
	assert.Equal(uint8(0), b, "nothing written")
}

func TestCPU_DumpLoad(t *testing.T) {
	assert := assert.New(t)

	r := newRig(0xF255, 0x6000, 0x6100, 0x6200, 0x6300, 0xF265)
	r.cpu.index = 0x500
	r.cpu.registers = [RegisterCount]uint8{1, 2, 3, 4}

	r.run(t, 1)
	for i, want := range []uint8{1, 2, 3, 0} {
		b, _ := r.mem.Read(0x500 + i)
		assert.Equal(want, b, "byte %d", i)
	}
	assert.Equal(uint16(0x500), r.cpu.index)

	r.run(t, 5)
	assert.Equal([]uint8{1, 2, 3, 0}, r.cpu.registers[:4])
}

func TestCPU_Dump_Fault(t *testing.T) {
	r := newRig(0xFF55)
	r.cpu.index = MemorySize - 8

	var fault *AddressFault
	assert.True(t, errors.As(r.cycle(), &fault))
	assert.Equal(t, MemorySize+7, fault.Addr)
}

func TestCPU_NoOps(t *testing.T) {
	assert := assert.New(t)

	for _, word := range []uint16{0x0123, 0x5121, 0xF0FF} {
		r := newRig(word)
		before := r.cpu.State()

		require.NoError(t, r.cycle())

		after := r.cpu.State()
		assert.Equal(before.PC+2, after.PC, "0x%04x", word)
		before.PC = after.PC
		assert.Equal(before, after, "0x%04x", word)
	}
}

func TestCPU_Halt(t *testing.T) {
	r := newRig()
	err := r.cycle()
	assert.ErrorIs(t, err, ErrHalted)
	assert.False(t, IsFatal(err))
}

func TestCPU_PCFault(t *testing.T) {
	assert := assert.New(t)

	r := newRig()
	r.cpu.pc = MemorySize

	var fault *AddressFault
	assert.True(errors.As(r.cycle(), &fault))
	assert.Equal(MemorySize, fault.Addr)

	r.cpu.pc = MemorySize - 1
	assert.True(errors.As(r.cycle(), &fault))
	assert.Equal(MemorySize, fault.Addr)
	assert.Equal(uint16(MemorySize-1), r.cpu.pc, "fetch fault leaves pc alone")
}

func TestCPU_CancelBeforeFetch(t *testing.T) {
	assert := assert.New(t)

	r := newRig(0x6001)
	r.src.steps = []*HostEvent{quit()}
	assert.ErrorIs(r.cycle(), ErrCancelled)
	assert.Equal(ProgramStart, r.cpu.pc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(r.cpu.RunCycle(ctx, r.mem, r.disp, r.kb), ErrCancelled)
	assert.Equal(ProgramStart, r.cpu.pc)
}

func TestCPU_Reboot(t *testing.T) {
	r := newRig(0x6001)
	r.src.steps = []*HostEvent{down(HostBackspace)}
	assert.ErrorIs(t, r.cycle(), ErrReboot)
}
