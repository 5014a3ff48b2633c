package vm

import (
	"errors"

	"github.com/kapitanov/chip8emu/internal/translate"
)

var f = translate.From

var (
	// ErrHalted is returned by a cycle that executed the all-zero word.
	ErrHalted = errors.New(f("halted"))

	// ErrCancelled means a quit signal was seen, either while polling input
	// at the start of a cycle or while waiting for a key.
	ErrCancelled = errors.New(f("cancelled"))

	// ErrReboot means the reset control key was pressed.
	ErrReboot = errors.New(f("reboot"))

	ErrStackOverflow  = errors.New(f("stack overflow"))
	ErrStackUnderflow = errors.New(f("stack underflow"))
)

// AddressFault reports an access outside of memory. It is fatal to the run.
type AddressFault struct {
	Addr int
}

func (err *AddressFault) Error() string {
	return f("address fault at 0x%04x", err.Addr)
}

// IsFatal reports whether err should stop the run loop for good, as opposed
// to a deliberate stop (halt, quit, reboot).
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrHalted) && !errors.Is(err, ErrCancelled) && !errors.Is(err, ErrReboot)
}
