package vm

import (
	"fmt"
	"io"
	"log/slog"
)

// FontAddr is where the hexadecimal glyphs live. Each glyph is FontGlyphSize
// bytes, so the glyph for digit d starts at d*FontGlyphSize.
const (
	FontAddr      = 0x000
	FontGlyphSize = 5
)

var chip8Font = []uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Memory is the 4k address space. Every access is bounds checked and an
// address outside of it is an *AddressFault rather than a wrap.
type Memory struct {
	buf [MemorySize]uint8
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) check(addr int) error {
	if addr < 0 || addr >= MemorySize {
		return &AddressFault{Addr: addr}
	}
	return nil
}

func (m *Memory) Read(addr int) (uint8, error) {
	if err := m.check(addr); err != nil {
		return 0, err
	}
	return m.buf[addr], nil
}

func (m *Memory) Write(addr int, value uint8) error {
	if err := m.check(addr); err != nil {
		return err
	}
	m.buf[addr] = value
	return nil
}

// Reset zeroes every byte, font table included.
func (m *Memory) Reset() {
	m.buf = [MemorySize]uint8{}
}

// LoadFontTable writes the 16 glyphs at 0x000-0x04F.
func (m *Memory) LoadFontTable() {
	slog.Debug("load font", "at", fmt.Sprintf("0x%04x", FontAddr), "n", len(chip8Font))
	copy(m.buf[FontAddr:], chip8Font)
}

// LoadProgram copies program to ProgramStart and clears the rest of program
// space. A program that does not fit is truncated, not rejected. It returns
// the number of bytes actually loaded.
func (m *Memory) LoadProgram(program []byte) int {
	space := m.buf[ProgramStart:]
	for i := range space {
		space[i] = 0
	}

	n := copy(space, program)
	if n < len(program) {
		slog.Warn("program truncated", "size", len(program), "loaded", n)
	}

	slog.Info("load program", "at", fmt.Sprintf("0x%04x", ProgramStart), "n", n)
	return n
}

// Dump writes the whole address space as hex, 16 bytes per line.
func (m *Memory) Dump(w io.Writer) error {
	const lineSize = 16

	for addr := 0; addr < MemorySize; addr += lineSize {
		if _, err := fmt.Fprintf(w, "%04x:", addr); err != nil {
			return err
		}
		for _, b := range m.buf[addr : addr+lineSize] {
			if _, err := fmt.Fprintf(w, " %02x", b); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	return nil
}
