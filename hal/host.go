//go:build !baremetal

package hal

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"
)

// SimOptions configures the simulated board.
//
// The Fail* fields inject a hardware failure at the matching bring-up call.
type SimOptions struct {
	Width  int
	Height int

	// TransferDelay emulates the bus time of one DrawBitmap call.
	TransferDelay time.Duration

	// TouchAddr is the address the simulated controller answers on.
	TouchAddr uint16
	// Taps, when set, drives the touch controller from a periodic script
	// instead of SetTouch.
	Taps *TapScript

	Log io.Writer

	FailRail      error
	FailBus       error
	FailPanel     error
	FailTouchBus  error
	FailTouchRead error
}

// Sim is an in-process board: memory-backed panel, virtual pins and a
// touch controller fed by SetTouch or a tap script.
type Sim struct {
	opts SimOptions

	logger    *hostLogger
	rail      *simRail
	backlight *VirtualPin
	reset     *VirtualPin
	panel     *SimPanel
	touch     *SimTouch
}

// NewSim returns a simulated board.
func NewSim(opts SimOptions) *Sim {
	if opts.Width <= 0 {
		opts.Width = 720
	}
	if opts.Height <= 0 {
		opts.Height = 720
	}
	if opts.TouchAddr == 0 {
		opts.TouchAddr = GT911Addr
	}
	var w io.Writer = os.Stdout
	if opts.Log != nil {
		w = opts.Log
	}
	logger := &hostLogger{w: w}
	return &Sim{
		opts:      opts,
		logger:    logger,
		rail:      &simRail{fail: opts.FailRail},
		backlight: NewVirtualPin("BL", GPIOCapOutput, logger),
		reset:     NewVirtualPin("LCD_RST", GPIOCapOutput, nil),
		panel:     newSimPanel(opts.Width, opts.Height, opts.TransferDelay, opts.FailPanel, logger),
		touch:     newSimTouch(opts.Taps, opts.FailTouchRead),
	}
}

func (s *Sim) Logger() Logger       { return s.logger }
func (s *Sim) PowerRail() PowerRail { return s.rail }
func (s *Sim) Backlight() GPIOPin   { return s.backlight }

// Panel returns the simulated panel for presentation and inspection.
func (s *Sim) Panel() *SimPanel { return s.panel }

// Touch returns the simulated touch controller.
func (s *Sim) Touch() *SimTouch { return s.touch }

// BacklightPin returns the backlight pin with its inspection helpers.
func (s *Sim) BacklightPin() *VirtualPin { return s.backlight }

// RailEnabled reports the enabled LDO channel and voltage, or zeros.
func (s *Sim) RailEnabled() (channel, millivolts int) {
	s.rail.mu.Lock()
	defer s.rail.mu.Unlock()
	return s.rail.channel, s.rail.mv
}

func (s *Sim) Info() ChipInfo {
	return ChipInfo{
		Model:      "sim/" + runtime.GOARCH,
		Cores:      runtime.NumCPU(),
		Features:   ChipWiFi | ChipBLE,
		Revision:   100,
		FlashBytes: 16 * 1024 * 1024,
	}
}

func (s *Sim) OpenDisplayBus(cfg DisplayBusConfig) (DisplayBus, error) {
	if s.opts.FailBus != nil {
		return nil, s.opts.FailBus
	}
	if cfg.Lanes <= 0 || cfg.LaneMbps <= 0 {
		return nil, fmt.Errorf("sim dsi: invalid bus config %+v", cfg)
	}
	return simDisplayBus{s: s}, nil
}

func (s *Sim) OpenTouchBus(cfg TouchBusConfig) (TouchBus, error) {
	if s.opts.FailTouchBus != nil {
		return nil, s.opts.FailTouchBus
	}
	if cfg.SpeedHz <= 0 {
		return nil, fmt.Errorf("sim i2c%d: invalid speed %d", cfg.Port, cfg.SpeedHz)
	}
	return simTouchBus{s: s}, nil
}

type simDisplayBus struct {
	s *Sim
}

func (b simDisplayBus) AttachPanel(cfg PanelConfig) (Panel, error) {
	p := b.s.panel
	if cfg.Width != p.width || cfg.Height != p.height {
		return nil, fmt.Errorf("sim panel: %dx%d requested, panel is %dx%d", cfg.Width, cfg.Height, p.width, p.height)
	}
	if cfg.Format != PixelFormatRGB565 {
		return nil, fmt.Errorf("sim panel: format %s unsupported", cfg.Format)
	}
	if err := b.s.reset.Configure(GPIOModeOutput, GPIOPullNone); err != nil {
		return nil, err
	}
	p.reset = b.s.reset
	return p, nil
}

type simTouchBus struct {
	s *Sim
}

func (b simTouchBus) Probe(addr uint16) (TouchController, error) {
	if addr != b.s.opts.TouchAddr {
		return nil, fmt.Errorf("sim i2c probe 0x%02X: %w", addr, ErrNoDevice)
	}
	return b.s.touch, nil
}

type simRail struct {
	mu      sync.Mutex
	fail    error
	channel int
	mv      int
}

func (r *simRail) Enable(channel, millivolts int) error {
	if r.fail != nil {
		return r.fail
	}
	if channel <= 0 || millivolts <= 0 {
		return fmt.Errorf("sim ldo: invalid channel %d / %d mV", channel, millivolts)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channel = channel
	r.mv = millivolts
	return nil
}

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}
