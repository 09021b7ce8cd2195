package scene

import (
	"image"
	"image/color"

	"golang.org/x/image/vector"

	"panelport/hal"
	"panelport/port"
)

// kappa places cubic Bezier control points on a quarter circle.
const kappa = 0.5522848

// Circle is a filled, anti-aliased disc.
type Circle struct {
	scr    *Screen
	cx, cy int
	d      int
	col    color.RGBA

	mask *image.Alpha
}

// NewCircle adds a circle of diameter d centred on (cx, cy).
func (s *Screen) NewCircle(cx, cy, d int, c color.RGBA) *Circle {
	o := &Circle{scr: s, cx: cx, cy: cy, d: max(d, 0), col: c}
	s.Add(o)
	return o
}

func (c *Circle) Bounds() port.Area {
	x1 := c.cx - c.d/2
	y1 := c.cy - c.d/2
	return port.Area{X1: x1, Y1: y1, X2: x1 + c.d, Y2: y1 + c.d}
}

func (c *Circle) Diameter() int { return c.d }

// SetDiameter resizes the circle around its centre.
func (c *Circle) SetDiameter(d int) {
	d = max(d, 0)
	if d == c.d {
		return
	}
	old := c.Bounds()
	c.d = d
	c.scr.Invalidate(old.Union(c.Bounds()))
}

// Move centres the circle on (cx, cy).
func (c *Circle) Move(cx, cy int) {
	if cx == c.cx && cy == c.cy {
		return
	}
	old := c.Bounds()
	c.cx, c.cy = cx, cy
	c.scr.Invalidate(old.Union(c.Bounds()))
}

func (c *Circle) SetColor(col color.RGBA) {
	c.col = col
	c.scr.Invalidate(c.Bounds())
}

func (c *Circle) coverage() *image.Alpha {
	if c.mask != nil && c.mask.Rect.Dx() == c.d {
		return c.mask
	}
	m := image.NewAlpha(image.Rect(0, 0, c.d, c.d))
	r := float32(c.d) / 2
	z := vector.NewRasterizer(c.d, c.d)
	z.MoveTo(2*r, r)
	z.CubeTo(2*r, r+kappa*r, r+kappa*r, 2*r, r, 2*r)
	z.CubeTo(r-kappa*r, 2*r, 0, r+kappa*r, 0, r)
	z.CubeTo(0, r-kappa*r, r-kappa*r, 0, r, 0)
	z.CubeTo(r+kappa*r, 0, 2*r, r-kappa*r, 2*r, r)
	z.ClosePath()
	z.Draw(m, m.Bounds(), image.Opaque, image.Point{})
	c.mask = m
	return m
}

func (c *Circle) Draw(fb *port.FrameBuffer, clip port.Area) {
	if c.d == 0 {
		return
	}
	b := c.Bounds()
	area := b.Intersect(clip)
	if area.Empty() {
		return
	}
	m := c.coverage()
	fg := hal.RGB565(c.col.R, c.col.G, c.col.B)
	pix := fb.Pix()
	stride := fb.Stride()
	for y := area.Y1; y < area.Y2; y++ {
		mrow := m.Pix[(y-b.Y1)*m.Stride:]
		for x := area.X1; x < area.X2; x++ {
			a := mrow[x-b.X1]
			switch a {
			case 0:
				continue
			case 0xFF:
				fb.SetPixel(x, y, fg)
			default:
				off := y*stride + x*2
				under := uint16(pix[off]) | uint16(pix[off+1])<<8
				fb.SetPixel(x, y, blend565(under, c.col, a))
			}
		}
	}
}

// blend565 mixes c over an RGB565 pixel with coverage a.
func blend565(under uint16, c color.RGBA, a uint8) uint16 {
	r, g, b := hal.RGB888(under)
	mix := func(bg, fg uint8) uint8 {
		return uint8((uint32(fg)*uint32(a) + uint32(bg)*(255-uint32(a)) + 127) / 255)
	}
	return hal.RGB565(mix(r, c.R), mix(g, c.G), mix(b, c.B))
}
