//go:build !tinygo

package hal

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// MIPI DCS commands shared by ST7789/ILI9xxx-class SPI controllers.
const (
	dcsSoftReset   = 0x01
	dcsSleepOut    = 0x11
	dcsInvertOn    = 0x21
	dcsDisplayOff  = 0x28
	dcsDisplayOn   = 0x29
	dcsColumnAddr  = 0x2A
	dcsPageAddr    = 0x2B
	dcsMemoryWrite = 0x2C
	dcsAddrMode    = 0x36
	dcsPixelFormat = 0x3A

	dcsPixel16bpp = 0x55
)

// spiTx is the part of a periph spi.Conn the panel uses.
type spiTx interface {
	Tx(w, r []byte) error
}

// pinOut is the part of a periph gpio.PinOut the panel uses.
type pinOut interface {
	Out(l gpio.Level) error
}

// spiPanel drives a DCS panel over SPI with a D/C line.
type spiPanel struct {
	mu     sync.Mutex
	bus    spiTx
	dc     pinOut
	rst    pinOut
	width  int
	height int

	sleep func(time.Duration)
	txBuf []byte
}

func newSPIPanel(bus spiTx, dc, rst pinOut, w, h int) *spiPanel {
	return &spiPanel{
		bus:    bus,
		dc:     dc,
		rst:    rst,
		width:  w,
		height: h,
		sleep:  time.Sleep,
		txBuf:  make([]byte, 4096),
	}
}

func (d *spiPanel) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rst == nil {
		return d.cmd(dcsSoftReset)
	}
	if err := d.rst.Out(gpio.Low); err != nil {
		return err
	}
	d.sleep(10 * time.Millisecond)
	if err := d.rst.Out(gpio.High); err != nil {
		return err
	}
	d.sleep(120 * time.Millisecond)
	return nil
}

func (d *spiPanel) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.cmd(dcsSleepOut); err != nil {
		return err
	}
	d.sleep(120 * time.Millisecond)
	for _, c := range [][]byte{
		{dcsPixelFormat, dcsPixel16bpp},
		{dcsAddrMode, 0x00},
		{dcsInvertOn},
	} {
		if err := d.cmd(c[0], c[1:]...); err != nil {
			return err
		}
	}
	return nil
}

func (d *spiPanel) Power(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if on {
		return d.cmd(dcsDisplayOn)
	}
	return d.cmd(dcsDisplayOff)
}

// DrawBitmap writes a little-endian RGB565 block. The controller wants
// inclusive window ends and big-endian pixels.
func (d *spiPanel) DrawBitmap(x1, y1, x2, y2 int, pixels []byte) error {
	if x1 < 0 || y1 < 0 || x2 > d.width || y2 > d.height || x1 >= x2 || y1 >= y2 {
		return fmt.Errorf("spi panel: window (%d,%d)-(%d,%d) outside %dx%d", x1, y1, x2, y2, d.width, d.height)
	}
	n := (x2 - x1) * (y2 - y1) * 2
	if len(pixels) < n {
		return ErrBadBitmap
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	ex, ey := x2-1, y2-1
	if err := d.cmd(dcsColumnAddr, byte(x1>>8), byte(x1), byte(ex>>8), byte(ex)); err != nil {
		return err
	}
	if err := d.cmd(dcsPageAddr, byte(y1>>8), byte(y1), byte(ey>>8), byte(ey)); err != nil {
		return err
	}
	if err := d.cmd(dcsMemoryWrite); err != nil {
		return err
	}

	chunk := d.txBuf[:len(d.txBuf)&^1]
	if len(chunk) < 2 {
		return errors.New("spi panel: tx buffer too small")
	}
	for off := 0; off < n; {
		m := min(len(chunk), n-off)
		src := pixels[off : off+m]
		for i := 0; i+1 < m; i += 2 {
			chunk[i] = src[i+1]
			chunk[i+1] = src[i]
		}
		if err := d.bus.Tx(chunk[:m], nil); err != nil {
			return fmt.Errorf("spi panel: pixel data: %w", err)
		}
		off += m
	}
	return nil
}

func (d *spiPanel) cmd(c byte, data ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.bus.Tx([]byte{c}, nil); err != nil {
		return fmt.Errorf("spi panel: cmd 0x%02X: %w", c, err)
	}
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	if len(data) > 0 {
		if err := d.bus.Tx(data, nil); err != nil {
			return fmt.Errorf("spi panel: cmd 0x%02X data: %w", c, err)
		}
	}
	return nil
}
