//go:build tinygo && baremetal

package hal

import (
	"errors"
	"machine"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/touch"
)

// Devices are the configured drivers a firmware image hands to the board.
// Display is required. Touch comes from I2C (GT911) when set, otherwise from
// Pointer.
type Devices struct {
	Display   drivers.Displayer
	I2C       drivers.I2C
	Pointer   touch.Pointer
	Backlight machine.Pin
	UART      *machine.UART
	Info      ChipInfo
}

type tinyGoBoard struct {
	dev       Devices
	logger    *uartLogger
	backlight *machinePin
}

// NewWithDevices returns a Board over already configured TinyGo drivers.
func NewWithDevices(dev Devices) Board {
	return &tinyGoBoard{
		dev:       dev,
		logger:    &uartLogger{uart: dev.UART},
		backlight: &machinePin{name: "BL", pin: dev.Backlight},
	}
}

func (b *tinyGoBoard) Logger() Logger       { return b.logger }
func (b *tinyGoBoard) Info() ChipInfo       { return b.dev.Info }
func (b *tinyGoBoard) PowerRail() PowerRail { return tinyGoRail{} }
func (b *tinyGoBoard) Backlight() GPIOPin   { return b.backlight }

func (b *tinyGoBoard) OpenDisplayBus(DisplayBusConfig) (DisplayBus, error) {
	if b.dev.Display == nil {
		return nil, ErrNoDevice
	}
	return displayerBus{d: b.dev.Display}, nil
}

func (b *tinyGoBoard) OpenTouchBus(TouchBusConfig) (TouchBus, error) {
	switch {
	case b.dev.I2C != nil:
		return i2cTouchBus{bus: b.dev.I2C}, nil
	case b.dev.Pointer != nil:
		return pointerBus{p: b.dev.Pointer}, nil
	}
	return nil, ErrNoDevice
}

// tinyGoRail is a no-op; the display supply is enabled by the board.
type tinyGoRail struct{}

func (tinyGoRail) Enable(int, int) error { return nil }

type displayerBus struct {
	d drivers.Displayer
}

func (b displayerBus) AttachPanel(cfg PanelConfig) (Panel, error) {
	w, h := b.d.Size()
	if int(w) < cfg.Width || int(h) < cfg.Height {
		return nil, errors.New("displayer smaller than panel config")
	}
	return &displayerPanel{d: b.d}, nil
}

// rgbBitmapDrawer is implemented by SPI drivers such as st7789 and ili9341.
type rgbBitmapDrawer interface {
	DrawRGBBitmap8(x, y int16, data []uint8, w, h int16) error
}

// displayerPanel adapts a drivers.Displayer. Drivers with DrawRGBBitmap8
// get bands of rows in big-endian order, swapped through a small fixed
// scratch; others get pixel by pixel writes.
type displayerPanel struct {
	d       drivers.Displayer
	scratch []byte
}

func (p *displayerPanel) Reset() error { return nil }
func (p *displayerPanel) Init() error  { return nil }

func (p *displayerPanel) Power(on bool) error {
	if s, ok := p.d.(interface{ Sleep(bool) error }); ok {
		return s.Sleep(!on)
	}
	return nil
}

func (p *displayerPanel) DrawBitmap(x1, y1, x2, y2 int, pixels []byte) error {
	w, h := x2-x1, y2-y1
	if w <= 0 || h <= 0 || len(pixels) < w*h*2 {
		return ErrBadBitmap
	}
	if fast, ok := p.d.(rgbBitmapDrawer); ok {
		var err error
		p.scratch, err = swapBands(pixels, w, h, p.scratch, func(y, rows int, buf []byte) error {
			return fast.DrawRGBBitmap8(int16(x1), int16(y1+y), buf, int16(w), int16(rows))
		})
		return err
	}
	i := 0
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			r, g, b := RGB888(uint16(pixels[i]) | uint16(pixels[i+1])<<8)
			p.d.SetPixel(int16(x), int16(y), colorRGBA(r, g, b))
			i += 2
		}
	}
	return p.d.Display()
}

type pointerBus struct {
	p touch.Pointer
}

func (b pointerBus) Probe(uint16) (TouchController, error) {
	return &pointerTouch{p: b.p}, nil
}

// pointerTouch reports a touch.Pointer contact with Z > 0 as one point.
type pointerTouch struct {
	p   touch.Pointer
	pt  touch.Point
	has bool
}

func (t *pointerTouch) Read() error {
	t.pt = t.p.ReadTouchPoint()
	t.has = t.pt.Z > 0
	return nil
}

func (t *pointerTouch) Points(dst []TouchPoint) int {
	if !t.has || len(dst) == 0 {
		return 0
	}
	dst[0] = TouchPoint{X: t.pt.X, Y: t.pt.Y, Strength: t.pt.Z}
	t.has = false
	return 1
}

type machinePin struct {
	name string
	pin  machine.Pin
}

func (p *machinePin) Name() string { return p.name }
func (p *machinePin) Caps() GPIOCaps {
	return GPIOCapInput | GPIOCapOutput | GPIOCapPullUp | GPIOCapPullDown
}

func (p *machinePin) Configure(mode GPIOMode, pull GPIOPull) error {
	if p.pin == machine.NoPin {
		return ErrNoDevice
	}
	m := machine.PinInput
	switch {
	case mode == GPIOModeOutput:
		m = machine.PinOutput
	case pull == GPIOPullUp:
		m = machine.PinInputPullup
	case pull == GPIOPullDown:
		m = machine.PinInputPulldown
	}
	p.pin.Configure(machine.PinConfig{Mode: m})
	return nil
}

func (p *machinePin) Read() (bool, error) { return p.pin.Get(), nil }

func (p *machinePin) Write(level bool) error {
	p.pin.Set(level)
	return nil
}

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	if l.uart == nil {
		println(s)
		return
	}
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) { l.WriteLineString(string(b)) }
