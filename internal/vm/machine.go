package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// maxTimerCatchUp bounds the timer ticks owed after a single cycle.
const maxTimerCatchUp = 4

// Machine is the run loop. It owns memory, display, keyboard and CPU for one
// emulation run and decides when timers tick and frames are presented.
type Machine struct {
	cpu     *CPU
	memory  *Memory
	display *Display
	keys    *Keyboard

	hal     HAL
	cfg     Config
	program []byte

	now func() time.Time
}

func NewMachine(program []byte, hal HAL, cfg Config) *Machine {
	return &Machine{
		cpu:     NewCPU(),
		memory:  NewMemory(),
		display: NewDisplay(),
		keys:    NewKeyboard(hal),
		hal:     hal,
		cfg:     cfg,
		program: program,
		now:     time.Now,
	}
}

func (m *Machine) CPU() *CPU {
	return m.cpu
}

func (m *Machine) Memory() *Memory {
	return m.memory
}

func (m *Machine) Display() *Display {
	return m.display
}

// Run resets the machine and executes the program until it is cancelled,
// rebooted or faults. A halted program leaves the last frame up and waits
// for quit or reboot.
func (m *Machine) Run(ctx context.Context) error {
	m.initialize()

	cyclePeriod := period(m.cfg.ClockHz)
	timerPeriod := period(m.cfg.TimerHz)
	lastTick := m.now()

	for {
		start := m.now()

		var err error
		if m.cfg.Step {
			// Clear before waiting so keys pressed ahead of the step key
			// reach the stepped cycle.
			m.keys.Clear()
			if err := m.keys.WaitForStep(ctx); err != nil {
				return err
			}
			err = m.cpu.runCycle(ctx, m.memory, m.display, m.keys)
		} else {
			err = m.cpu.RunCycle(ctx, m.memory, m.display, m.keys)
		}
		if err != nil {
			if errors.Is(err, ErrHalted) {
				addr, _ := m.cpu.LastFetch()
				slog.Info("program halted", "pc", fmt.Sprintf("0x%04x", addr))
				if err := m.display.Present(m.hal); err != nil {
					return err
				}
				return m.waitForReboot(ctx)
			}

			if IsFatal(err) {
				addr, word := m.cpu.LastFetch()
				return fmt.Errorf("pc 0x%04x opcode 0x%04x: %w", addr, word, err)
			}
			return err
		}

		if err := m.display.Present(m.hal); err != nil {
			return err
		}

		now := m.now()
		for n := 0; timerPeriod > 0 && now.Sub(lastTick) >= timerPeriod; n++ {
			if n == maxTimerCatchUp {
				// Blocked for a while, most likely in a key wait. Drop the
				// backlog rather than decaying the timers in a burst.
				lastTick = now
				break
			}
			m.cpu.TickTimers()
			lastTick = lastTick.Add(timerPeriod)
		}

		if cyclePeriod > 0 {
			if d := cyclePeriod - m.now().Sub(start); d > 0 {
				time.Sleep(d)
			}
		}
	}
}

func (m *Machine) waitForReboot(ctx context.Context) error {
	for {
		switch m.keys.Poll() {
		case SignalQuit:
			return ErrCancelled
		case SignalReset:
			return ErrReboot
		}

		if err := idle(ctx); err != nil {
			return err
		}
	}
}

func (m *Machine) initialize() {
	m.cpu.Reset()
	m.display.Clear()
	m.keys.Clear()

	m.memory.Reset()
	m.memory.LoadFontTable()
	m.memory.LoadProgram(m.program)
}
