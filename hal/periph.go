//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// PeriphOptions wires a Linux SBC to an SPI panel and an I2C GT911.
// Pin and bus names are periph registry names.
type PeriphOptions struct {
	SPIPort      string
	SPIHz        int
	DCPin        string
	ResetPin     string
	BacklightPin string

	I2CBus string

	Log io.Writer
}

// Periph is a Board on a Linux single-board computer via periph.io.
type Periph struct {
	opts      PeriphOptions
	logger    *hostLogger
	backlight GPIOPin
}

// NewPeriph initializes the periph host drivers and resolves the pins.
func NewPeriph(opts PeriphOptions) (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	if opts.SPIPort == "" {
		opts.SPIPort = "SPI0.0"
	}
	if opts.SPIHz <= 0 {
		opts.SPIHz = 40_000_000
	}
	var w io.Writer = os.Stdout
	if opts.Log != nil {
		w = opts.Log
	}
	p := &Periph{opts: opts, logger: &hostLogger{w: w}}
	if opts.BacklightPin != "" {
		pin := gpioreg.ByName(opts.BacklightPin)
		if pin == nil {
			return nil, fmt.Errorf("backlight pin %q: %w", opts.BacklightPin, ErrNoDevice)
		}
		p.backlight = &periphPin{pin: pin}
	}
	return p, nil
}

func (p *Periph) Logger() Logger { return p.logger }

func (p *Periph) Info() ChipInfo {
	return ChipInfo{Model: runtime.GOOS + "/" + runtime.GOARCH, Cores: runtime.NumCPU()}
}

// PowerRail is a no-op: SPI panels on SBC headers are powered from the
// board's 3V3 rail.
func (p *Periph) PowerRail() PowerRail { return periphRail{} }

func (p *Periph) Backlight() GPIOPin { return p.backlight }

// OpenDisplayBus opens the SPI port. The lane settings of a DSI bus do not
// apply and are ignored.
func (p *Periph) OpenDisplayBus(DisplayBusConfig) (DisplayBus, error) {
	port, err := spireg.Open(p.opts.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("spi %s: %w", p.opts.SPIPort, err)
	}
	c, err := port.Connect(physic.Frequency(p.opts.SPIHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("spi %s connect: %w", p.opts.SPIPort, err)
	}
	return &periphDisplayBus{p: p, conn: c}, nil
}

func (p *Periph) OpenTouchBus(cfg TouchBusConfig) (TouchBus, error) {
	bus, err := i2creg.Open(p.opts.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("i2c %q: %w", p.opts.I2CBus, err)
	}
	if cfg.SpeedHz > 0 {
		if err := bus.SetSpeed(physic.Frequency(cfg.SpeedHz) * physic.Hertz); err != nil {
			p.logger.WriteLineString(fmt.Sprintf("i2c: keeping default speed: %v", err))
		}
	}
	return i2cTouchBus{bus: bus}, nil
}

type periphRail struct{}

func (periphRail) Enable(int, int) error { return nil }

type periphDisplayBus struct {
	p    *Periph
	conn spi.Conn
}

func (b *periphDisplayBus) AttachPanel(cfg PanelConfig) (Panel, error) {
	if cfg.Format != PixelFormatRGB565 {
		return nil, fmt.Errorf("spi panel: format %s unsupported", cfg.Format)
	}
	dc := gpioreg.ByName(b.p.opts.DCPin)
	if dc == nil {
		return nil, fmt.Errorf("dc pin %q: %w", b.p.opts.DCPin, ErrNoDevice)
	}
	var rst gpio.PinOut
	if b.p.opts.ResetPin != "" {
		if rst = gpioreg.ByName(b.p.opts.ResetPin); rst == nil {
			return nil, fmt.Errorf("reset pin %q: %w", b.p.opts.ResetPin, ErrNoDevice)
		}
	}
	return newSPIPanel(b.conn, dc, rst, cfg.Width, cfg.Height), nil
}

// periphPin adapts a periph pin to GPIOPin.
type periphPin struct {
	pin gpio.PinIO
}

func (p *periphPin) Name() string { return p.pin.Name() }

func (p *periphPin) Caps() GPIOCaps {
	return GPIOCapInput | GPIOCapOutput | GPIOCapPullUp | GPIOCapPullDown
}

func (p *periphPin) Configure(mode GPIOMode, pull GPIOPull) error {
	if mode == GPIOModeOutput {
		return p.pin.Out(gpio.Low)
	}
	pp := gpio.Float
	switch pull {
	case GPIOPullUp:
		pp = gpio.PullUp
	case GPIOPullDown:
		pp = gpio.PullDown
	}
	return p.pin.In(pp, gpio.NoEdge)
}

func (p *periphPin) Read() (bool, error) { return bool(p.pin.Read()), nil }

func (p *periphPin) Write(level bool) error { return p.pin.Out(gpio.Level(level)) }
