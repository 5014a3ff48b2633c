package vm

import (
	"context"
	"time"
)

type HostEventType int

const (
	HostKeyDown HostEventType = iota
	HostKeyUp
	HostQuit
)

// Host key codes that are not printable characters.
const (
	HostEscape    = rune(0x1b)
	HostBackspace = rune(0x08)
	HostDelete    = rune(0x7f)
)

// HostEvent is a raw event from the frontend. Code is the host key as a
// character, lower or upper case.
type HostEvent struct {
	Type HostEventType
	Code rune
}

// EventSource delivers host events without blocking. The second return is
// false when nothing is pending.
type EventSource interface {
	PollEvent() (HostEvent, bool)
}

// Signal is the result of translating one host event.
type Signal int

const (
	SignalNone Signal = iota
	SignalKey
	SignalNext
	SignalReset
	SignalQuit
)

const keyPollInterval = time.Millisecond

// Keyboard tracks the most recent key-down since the last Clear, and turns
// host events into key codes and control signals.
type Keyboard struct {
	src     EventSource
	key     Key
	pressed bool
}

func NewKeyboard(src EventSource) *Keyboard {
	return &Keyboard{src: src}
}

// Clear forgets the tracked key.
func (kb *Keyboard) Clear() {
	kb.key = 0
	kb.pressed = false
}

func keyMap(code rune) (Key, bool) {
	switch {
	case code >= '0' && code <= '9':
		return Key(code - '0'), true
	case code >= 'a' && code <= 'f':
		return KeyA + Key(code-'a'), true
	case code >= 'A' && code <= 'F':
		return KeyA + Key(code-'A'), true
	default:
		return 0, false
	}
}

// Record translates e. Recognised keys become the tracked key; control keys
// are returned as signals and do not touch it.
func (kb *Keyboard) Record(e HostEvent) Signal {
	switch e.Type {
	case HostQuit:
		return SignalQuit
	case HostKeyUp:
		return SignalNone
	}

	switch e.Code {
	case HostEscape:
		return SignalQuit
	case HostBackspace, HostDelete:
		return SignalReset
	case 'w', 'W':
		return SignalNext
	}

	key, ok := keyMap(e.Code)
	if !ok {
		return SignalNone
	}

	kb.key = key
	kb.pressed = true
	return SignalKey
}

// Poll drains the event source and returns the strongest control signal
// seen: quit over reset over next. Keys are recorded, last one wins.
func (kb *Keyboard) Poll() Signal {
	strongest := SignalNone
	for {
		e, ok := kb.src.PollEvent()
		if !ok {
			return strongest
		}

		sig := kb.Record(e)
		if sig != SignalKey && sig > strongest {
			strongest = sig
		}
	}
}

// IsPressed reports whether the tracked key is code.
func (kb *Keyboard) IsPressed(code uint8) bool {
	return kb.pressed && uint8(kb.key) == code
}

// Current returns the tracked key, if any.
func (kb *Keyboard) Current() (Key, bool) {
	return kb.key, kb.pressed
}

// WaitForKey polls the event source until a key is pressed. Quit, or ctx
// ending, yields ErrCancelled; reset yields ErrReboot. Nothing else runs
// while it waits, timers included.
func (kb *Keyboard) WaitForKey(ctx context.Context) (Key, error) {
	for {
		for e, ok := kb.src.PollEvent(); ok; e, ok = kb.src.PollEvent() {
			switch kb.Record(e) {
			case SignalKey:
				return kb.key, nil
			case SignalQuit:
				return 0, ErrCancelled
			case SignalReset:
				return 0, ErrReboot
			}
		}

		if err := idle(ctx); err != nil {
			return 0, err
		}
	}
}

// WaitForStep polls the event source until the next control key.
func (kb *Keyboard) WaitForStep(ctx context.Context) error {
	for {
		for e, ok := kb.src.PollEvent(); ok; e, ok = kb.src.PollEvent() {
			switch kb.Record(e) {
			case SignalNext:
				return nil
			case SignalQuit:
				return ErrCancelled
			case SignalReset:
				return ErrReboot
			}
		}

		if err := idle(ctx); err != nil {
			return err
		}
	}
}

func idle(ctx context.Context) error {
	t := time.NewTimer(keyPollInterval)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ErrCancelled
	case <-t.C:
		return nil
	}
}
