package scene

import (
	"image/color"

	"tinygo.org/x/drivers"

	"panelport/hal"
	"panelport/port"
)

// fbDisplay exposes a clipped region of a frame buffer as a
// drivers.Displayer for tinyfont.
type fbDisplay struct {
	fb   *port.FrameBuffer
	clip port.Area
}

func (d fbDisplay) Size() (x, y int16) {
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	ix, iy := int(x), int(y)
	if ix < d.clip.X1 || ix >= d.clip.X2 || iy < d.clip.Y1 || iy >= d.clip.Y2 {
		return
	}
	d.fb.SetPixel(ix, iy, hal.RGB565(c.R, c.G, c.B))
}

func (d fbDisplay) Display() error { return nil }

var _ drivers.Displayer = fbDisplay{}

// canvas is an off-screen RGB565 surface implementing tinyterm.Displayer.
type canvas struct {
	w, h int
	pix  []byte

	onChange func()
}

func newCanvas(w, h int) *canvas {
	return &canvas{w: w, h: h, pix: make([]byte, w*h*2)}
}

func (c *canvas) Size() (x, y int16) { return int16(c.w), int16(c.h) }

func (c *canvas) SetPixel(x, y int16, col color.RGBA) {
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= c.w || iy < 0 || iy >= c.h {
		return
	}
	p := hal.RGB565(col.R, col.G, col.B)
	off := iy*c.w*2 + ix*2
	c.pix[off] = byte(p)
	c.pix[off+1] = byte(p >> 8)
}

func (c *canvas) Display() error {
	if c.onChange != nil {
		c.onChange()
	}
	return nil
}

func (c *canvas) FillRectangle(x, y, width, height int16, col color.RGBA) error {
	x0 := clampInt(int(x), 0, c.w)
	y0 := clampInt(int(y), 0, c.h)
	x1 := clampInt(int(x)+int(width), 0, c.w)
	y1 := clampInt(int(y)+int(height), 0, c.h)
	if x0 >= x1 || y0 >= y1 {
		return nil
	}
	p := hal.RGB565(col.R, col.G, col.B)
	lo, hi := byte(p), byte(p>>8)
	for py := y0; py < y1; py++ {
		row := c.pix[py*c.w*2+x0*2 : py*c.w*2+x1*2]
		for i := 0; i < len(row); i += 2 {
			row[i] = lo
			row[i+1] = hi
		}
	}
	return nil
}

// The canvas has no hardware scroll or rotation.
func (c *canvas) SetScroll(int16)                    {}
func (c *canvas) SetRotation(drivers.Rotation) error { return nil }

// blit copies the canvas part of clip into fb, with the canvas origin at
// (x0, y0).
func (c *canvas) blit(fb *port.FrameBuffer, x0, y0 int, clip port.Area) {
	a := port.Area{X1: x0, Y1: y0, X2: x0 + c.w, Y2: y0 + c.h}.Intersect(clip)
	if a.Empty() {
		return
	}
	pix := fb.Pix()
	stride := fb.Stride()
	n := a.Width() * 2
	for y := a.Y1; y < a.Y2; y++ {
		src := (y-y0)*c.w*2 + (a.X1-x0)*2
		dst := y*stride + a.X1*2
		copy(pix[dst:dst+n], c.pix[src:src+n])
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
