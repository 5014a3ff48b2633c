package hal

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/faiface/mainthread"
	"github.com/kapitanov/chip8emu/internal/vm"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	WindowWidth  = 1024
	WindowHeight = 512
)

const (
	bgColor = uint32(0x000000)
	fgColor = uint32(0xbea700)
)

// HAL is the SDL2 window frontend. SDL must only be touched from the OS main
// thread, so every call goes through mainthread; the caller is expected to
// run the emulator inside mainthread.Run.
type HAL struct {
	window          *sdl.Window
	renderer        *sdl.Renderer
	texture         *sdl.Texture
	backBuffer      []uint32
	backBufferPitch int
}

var _ vm.HAL = (*HAL)(nil)

func New() (*HAL, error) {
	hal := &HAL{
		backBuffer:      make([]uint32, vm.ScreenWidth*vm.ScreenHeight),
		backBufferPitch: int(vm.ScreenWidth) * int(unsafe.Sizeof(uint32(0))),
	}

	err := mainthread.CallErr(func() error {
		if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
			return fmt.Errorf("failed to init sdl: %w", err)
		}

		window, err := sdl.CreateWindow("CHIP-8", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, WindowWidth, WindowHeight, sdl.WINDOW_SHOWN|sdl.WINDOW_UTILITY)
		if err != nil {
			return fmt.Errorf("failed to create sdl window: %w", err)
		}
		slog.Debug("hal: create window")
		window.Show()
		hal.window = window

		renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
		if err != nil {
			return fmt.Errorf("failed to create sdl renderer: %w", err)
		}
		err = renderer.SetLogicalSize(WindowWidth, WindowHeight)
		if err != nil {
			return fmt.Errorf("failed to resize sdl renderer: %w", err)
		}
		slog.Debug("hal: create renderer")
		hal.renderer = renderer

		texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, vm.ScreenWidth, vm.ScreenHeight)
		if err != nil {
			return fmt.Errorf("failed to create sdl texture: %w", err)
		}
		slog.Debug("hal: create texture")
		hal.texture = texture

		return nil
	})
	if err != nil {
		return nil, err
	}

	return hal, nil
}

func (hal *HAL) Shutdown() {
	mainthread.Call(func() {
		if hal.texture != nil {
			if err := hal.texture.Destroy(); err != nil {
				slog.Error("failed to destroy sdl texture", "err", err)
			}
		}

		if hal.renderer != nil {
			if err := hal.renderer.Destroy(); err != nil {
				slog.Error("failed to destroy sdl renderer", "err", err)
			}
		}

		if hal.window != nil {
			if err := hal.window.Destroy(); err != nil {
				slog.Error("failed to destroy sdl window", "err", err)
			}
		}

		sdl.Quit()
	})
}

// PollEvent returns the next window or keyboard event, skipping everything
// else SDL reports. Key codes are SDL keycodes, which for digits, letters,
// escape and backspace are their ASCII values.
func (hal *HAL) PollEvent() (vm.HostEvent, bool) {
	var (
		ev vm.HostEvent
		ok bool
	)

	mainthread.Call(func() {
		for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
			switch e.GetType() {
			case sdl.QUIT:
				slog.Debug("hal: exit requested")
				ev, ok = vm.HostEvent{Type: vm.HostQuit}, true
				return

			case sdl.KEYDOWN:
				ke := e.(*sdl.KeyboardEvent)
				if ke.Repeat != 0 {
					continue
				}
				ev, ok = vm.HostEvent{Type: vm.HostKeyDown, Code: rune(ke.Keysym.Sym)}, true
				return

			case sdl.KEYUP:
				ke := e.(*sdl.KeyboardEvent)
				ev, ok = vm.HostEvent{Type: vm.HostKeyUp, Code: rune(ke.Keysym.Sym)}, true
				return
			}
		}
	})

	return ev, ok
}

func (hal *HAL) Clear() {
	for i := range hal.backBuffer {
		hal.backBuffer[i] = bgColor
	}
}

func (hal *HAL) Blit(x, y int, on bool) {
	if x < 0 || x >= vm.ScreenWidth || y < 0 || y >= vm.ScreenHeight {
		return
	}

	color := bgColor
	if on {
		color = fgColor
	}
	hal.backBuffer[x+y*vm.ScreenWidth] = color
}

func (hal *HAL) Present() error {
	return mainthread.CallErr(func() error {
		backBufferPtr := unsafe.Pointer(&hal.backBuffer[0])
		if err := hal.texture.Update(nil, backBufferPtr, hal.backBufferPitch); err != nil {
			return fmt.Errorf("failed to update sdl texture: %w", err)
		}

		if err := hal.renderer.Clear(); err != nil {
			return fmt.Errorf("failed to clear sdl renderer: %w", err)
		}

		if err := hal.renderer.Copy(hal.texture, nil, nil); err != nil {
			return fmt.Errorf("failed to copy sdl texture to renderer: %w", err)
		}

		hal.renderer.Present()
		return nil
	})
}
