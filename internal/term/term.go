// Package term is a frontend for plain terminals. The framebuffer is drawn
// as text and keys are read one at a time from a terminal in cbreak mode.
package term

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kapitanov/chip8emu/internal/vm"
	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

const (
	cursorHome  = "\033[H"
	clearScreen = "\033[2J"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// Terminal implements vm.HAL on a posix terminal.
type Terminal struct {
	input  *os.File
	output io.Writer

	canAttr    unix.Termios
	cbreakAttr unix.Termios

	events chan vm.HostEvent
	frame  [vm.ScreenWidth * vm.ScreenHeight]bool
}

var _ vm.HAL = (*Terminal)(nil)

// New puts input into cbreak mode and starts reading keys from it.
// Shutdown restores the original mode.
func New(input *os.File, output io.Writer) (*Terminal, error) {
	if input == nil {
		return nil, fmt.Errorf("terminal frontend requires an input file")
	}

	t := &Terminal{
		input:  input,
		output: output,
		events: make(chan vm.HostEvent, 64),
	}

	if err := termios.Tcgetattr(t.input.Fd(), &t.canAttr); err != nil {
		return nil, fmt.Errorf("failed to read terminal attributes: %w", err)
	}
	t.cbreakAttr = t.canAttr
	termios.Cfmakecbreak(&t.cbreakAttr)
	if err := termios.Tcsetattr(t.input.Fd(), termios.TCIFLUSH, &t.cbreakAttr); err != nil {
		return nil, fmt.Errorf("failed to set cbreak mode: %w", err)
	}
	slog.Debug("term: cbreak mode")

	fmt.Fprint(t.output, clearScreen, hideCursor)

	go t.readKeys(bufio.NewReader(t.input))

	return t, nil
}

// Shutdown returns the terminal to canonical mode.
func (t *Terminal) Shutdown() {
	fmt.Fprint(t.output, showCursor)
	if err := termios.Tcsetattr(t.input.Fd(), termios.TCIFLUSH, &t.canAttr); err != nil {
		slog.Error("failed to restore terminal", "err", err)
	}
}

// readKeys forwards every byte as a key-down. Terminals have no key-up.
// Escape sequences sent by arrow and function keys are dropped whole; only
// an escape byte arriving on its own is reported as Escape.
func (t *Terminal) readKeys(r *bufio.Reader) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err != io.EOF {
				slog.Debug("term: read", "err", err)
			}
			t.events <- vm.HostEvent{Type: vm.HostQuit}
			return
		}
		if rune(b) == vm.HostEscape && r.Buffered() > 0 && skipSequence(r) {
			continue
		}
		t.events <- vm.HostEvent{Type: vm.HostKeyDown, Code: rune(b)}
	}
}

// skipSequence consumes the rest of a CSI (ESC [ ... final) or SS3
// (ESC O x) sequence. It reports false, consuming nothing, when the
// buffered input does not start one.
func skipSequence(r *bufio.Reader) bool {
	next, err := r.Peek(1)
	if err != nil {
		return false
	}

	switch next[0] {
	case '[':
		_, _ = r.ReadByte()
		for {
			b, err := r.ReadByte()
			if err != nil || (b >= 0x40 && b <= 0x7e) {
				return true
			}
		}
	case 'O':
		_, _ = r.ReadByte()
		_, _ = r.ReadByte()
		return true
	default:
		return false
	}
}

func (t *Terminal) PollEvent() (vm.HostEvent, bool) {
	select {
	case e := <-t.events:
		return e, true
	default:
		return vm.HostEvent{}, false
	}
}

func (t *Terminal) Clear() {
	t.frame = [vm.ScreenWidth * vm.ScreenHeight]bool{}
}

func (t *Terminal) Blit(x, y int, on bool) {
	if x < 0 || x >= vm.ScreenWidth || y < 0 || y >= vm.ScreenHeight {
		return
	}
	t.frame[x+y*vm.ScreenWidth] = on
}

// Present draws two rows of pixels per text line using half-block glyphs,
// so the 64x32 screen fits in 64x16 characters.
func (t *Terminal) Present() error {
	buf := make([]byte, 0, len(cursorHome)+(vm.ScreenWidth*3+1)*vm.ScreenHeight/2)
	buf = append(buf, cursorHome...)

	for y := 0; y < vm.ScreenHeight; y += 2 {
		for x := 0; x < vm.ScreenWidth; x++ {
			top := t.frame[x+y*vm.ScreenWidth]
			bottom := t.frame[x+(y+1)*vm.ScreenWidth]
			buf = append(buf, halfBlock(top, bottom)...)
		}
		buf = append(buf, '\n')
	}

	_, err := t.output.Write(buf)
	return err
}

func halfBlock(top, bottom bool) string {
	switch {
	case top && bottom:
		return "█"
	case top:
		return "▀"
	case bottom:
		return "▄"
	default:
		return " "
	}
}
