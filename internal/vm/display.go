package vm

import "strings"

// Display is the 64x32 monochrome framebuffer. All coordinates wrap, so a
// sprite drawn past an edge continues from the opposite edge.
type Display struct {
	gfx   [ScreenWidth * ScreenHeight]bool
	dirty bool
}

func NewDisplay() *Display {
	return &Display{dirty: true}
}

func (d *Display) Clear() {
	for i := range d.gfx {
		d.gfx[i] = false
	}
	d.dirty = true
}

func screenAddr(x, y int) int {
	x %= ScreenWidth
	if x < 0 {
		x += ScreenWidth
	}
	y %= ScreenHeight
	if y < 0 {
		y += ScreenHeight
	}

	return ScreenWidth*y + x
}

// DrawPixel XORs on into the cell at the wrapped coordinates and reports
// whether the cell was lit immediately before.
func (d *Display) DrawPixel(x, y int, on bool) bool {
	i := screenAddr(x, y)
	was := d.gfx[i]
	if on {
		d.gfx[i] = !was
		d.dirty = true
	}
	return was
}

// Pixel reports the state of the cell at the wrapped coordinates.
func (d *Display) Pixel(x, y int) bool {
	return d.gfx[screenAddr(x, y)]
}

// Dirty reports whether the framebuffer changed since the last Present.
func (d *Display) Dirty() bool {
	return d.dirty
}

// Present hands the framebuffer to r if it changed since the last hand-off.
func (d *Display) Present(r Renderer) error {
	if !d.dirty {
		return nil
	}

	r.Clear()
	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			if d.gfx[x+y*ScreenWidth] {
				r.Blit(x, y, true)
			}
		}
	}

	if err := r.Present(); err != nil {
		return err
	}

	d.dirty = false
	return nil
}

// Dump renders the framebuffer as text, '#' for lit cells and '.' otherwise.
func (d *Display) Dump() string {
	var sb strings.Builder
	sb.Grow((ScreenWidth + 1) * ScreenHeight)

	for y := 0; y < ScreenHeight; y++ {
		for x := 0; x < ScreenWidth; x++ {
			if d.gfx[x+y*ScreenWidth] {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}
