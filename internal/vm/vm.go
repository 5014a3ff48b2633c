package vm

import "time"

const (
	MemorySize    = 4096
	StackSize     = 12
	RegisterCount = 16
	ScreenWidth   = 64
	ScreenHeight  = 32
	KeyCount      = 16

	ProgramStart    = uint16(0x200)
	InstructionSize = 2

	// FlagRegister doubles as carry, shift-out and collision output.
	FlagRegister = 0x0F
)

type Key uint8

const (
	Key0 = Key(iota)
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
)

// Renderer turns framebuffer state into pixels. The core never manages a
// window itself.
type Renderer interface {
	Clear()
	Blit(x, y int, on bool)
	Present() error
}

// HAL is a frontend: something that can show the framebuffer and deliver
// host key events.
type HAL interface {
	Renderer
	EventSource
}

// Config holds the run-loop timing policy.
type Config struct {
	// ClockHz is the number of instruction cycles per second. Zero runs
	// unthrottled.
	ClockHz int

	// TimerHz is the delay/sound timer decrement rate. Zero disables timer
	// decay.
	TimerHz int

	// Step makes every cycle wait for the "next" control key.
	Step bool
}

// DefaultConfig returns the timing most ROMs expect.
func DefaultConfig() Config {
	return Config{
		ClockHz: 500,
		TimerHz: 60,
	}
}

func period(hz int) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Second / time.Duration(hz)
}
