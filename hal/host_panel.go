//go:build !baremetal

package hal

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var errPanelOff = errors.New("panel is powered off")

// SimPanel is a memory-backed RGB565 panel.
type SimPanel struct {
	mu     sync.Mutex
	width  int
	height int
	stride int
	buf    []byte

	delay  time.Duration
	fail   error
	logger Logger
	reset  *VirtualPin

	inited  bool
	powered bool
	resets  int
	draws   int
	bytes   int
	last    [4]int
}

func newSimPanel(width, height int, delay time.Duration, fail error, logger Logger) *SimPanel {
	stride := width * 2
	return &SimPanel{
		width:  width,
		height: height,
		stride: stride,
		buf:    make([]byte, stride*height),
		delay:  delay,
		fail:   fail,
		logger: logger,
	}
}

func (p *SimPanel) Width() int  { return p.width }
func (p *SimPanel) Height() int { return p.height }

func (p *SimPanel) Reset() error {
	if p.fail != nil {
		return p.fail
	}
	if p.reset != nil {
		_ = p.reset.Write(false)
		_ = p.reset.Write(true)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets++
	p.inited = false
	p.powered = false
	return nil
}

func (p *SimPanel) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resets == 0 {
		return fmt.Errorf("sim panel: init before reset")
	}
	p.inited = true
	return nil
}

func (p *SimPanel) Power(on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if on && !p.inited {
		return fmt.Errorf("sim panel: power on before init")
	}
	p.powered = on
	if p.logger != nil {
		if on {
			p.logger.WriteLineString("sim panel: display on")
		} else {
			p.logger.WriteLineString("sim panel: display off")
		}
	}
	return nil
}

func (p *SimPanel) DrawBitmap(x1, y1, x2, y2 int, pixels []byte) error {
	if x1 < 0 || y1 < 0 || x2 > p.width || y2 > p.height || x1 >= x2 || y1 >= y2 {
		return fmt.Errorf("sim panel: window (%d,%d)-(%d,%d) outside %dx%d", x1, y1, x2, y2, p.width, p.height)
	}
	w := x2 - x1
	h := y2 - y1
	if len(pixels) < w*h*2 {
		return fmt.Errorf("sim panel: %d bytes for %dx%d: %w", len(pixels), w, h, ErrBadBitmap)
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.powered {
		return errPanelOff
	}
	row := w * 2
	for y := 0; y < h; y++ {
		dst := (y1+y)*p.stride + x1*2
		copy(p.buf[dst:dst+row], pixels[y*row:(y+1)*row])
	}
	p.draws++
	p.bytes += w * h * 2
	p.last = [4]int{x1, y1, x2, y2}
	return nil
}

// Snapshot copies the panel contents (RGB565, little-endian) into dst.
func (p *SimPanel) Snapshot(dst []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	copy(dst, p.buf)
}

// Pixel returns the RGB565 value at (x, y).
func (p *SimPanel) Pixel(x, y int) uint16 {
	if x < 0 || y < 0 || x >= p.width || y >= p.height {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	off := y*p.stride + x*2
	return uint16(p.buf[off]) | uint16(p.buf[off+1])<<8
}

// Stats reports draw count, bytes transferred and the last window.
func (p *SimPanel) Stats() (draws, bytes int, last [4]int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draws, p.bytes, p.last
}

// Powered reports whether the display is on.
func (p *SimPanel) Powered() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.powered
}
