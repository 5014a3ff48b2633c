package vm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeSource plays back one step per PollEvent call. A nil step reports
// nothing pending, as does running out of steps.
type fakeSource struct {
	steps []*HostEvent
	polls int
}

func (s *fakeSource) PollEvent() (HostEvent, bool) {
	s.polls++
	if len(s.steps) == 0 {
		return HostEvent{}, false
	}

	e := s.steps[0]
	s.steps = s.steps[1:]
	if e == nil {
		return HostEvent{}, false
	}
	return *e, true
}

func down(code rune) *HostEvent {
	return &HostEvent{Type: HostKeyDown, Code: code}
}

func up(code rune) *HostEvent {
	return &HostEvent{Type: HostKeyUp, Code: code}
}

func quit() *HostEvent {
	return &HostEvent{Type: HostQuit}
}

// fakeHAL records what the machine hands to the renderer.
type fakeHAL struct {
	fakeSource

	clears   int
	presents int
	lit      map[[2]int]bool
}

func newFakeHAL(steps ...*HostEvent) *fakeHAL {
	return &fakeHAL{
		fakeSource: fakeSource{steps: steps},
		lit:        map[[2]int]bool{},
	}
}

func (h *fakeHAL) Clear() {
	h.clears++
	h.lit = map[[2]int]bool{}
}

func (h *fakeHAL) Blit(x, y int, on bool) {
	h.lit[[2]int{x, y}] = on
}

func (h *fakeHAL) Present() error {
	h.presents++
	return nil
}

func program(words ...uint16) []byte {
	bs := make([]byte, 0, 2*len(words))
	for _, w := range words {
		bs = append(bs, byte(w>>8), byte(w))
	}
	return bs
}

type rig struct {
	cpu  *CPU
	mem  *Memory
	disp *Display
	kb   *Keyboard
	src  *fakeSource
}

func newRig(words ...uint16) *rig {
	mem := NewMemory()
	mem.LoadFontTable()
	mem.LoadProgram(program(words...))

	src := &fakeSource{}

	return &rig{
		cpu:  NewCPU(),
		mem:  mem,
		disp: NewDisplay(),
		kb:   NewKeyboard(src),
		src:  src,
	}
}

func (r *rig) cycle() error {
	return r.cpu.RunCycle(context.Background(), r.mem, r.disp, r.kb)
}

func (r *rig) run(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, r.cycle(), "cycle %d", i)
	}
}
