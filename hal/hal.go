package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

var (
	ErrNoDevice  = errors.New("no device at address")
	ErrBadBitmap = errors.New("bitmap does not match window")
)

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb, stored little-endian.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// BytesPerPixel returns the storage size of one pixel.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGB565:
		return 2
	default:
		return 0
	}
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGB565:
		return "RGB565"
	default:
		return "unknown"
	}
}

// PowerRail is an on-chip LDO channel feeding an analog block (DSI PHY).
type PowerRail interface {
	Enable(channel, millivolts int) error
}

// DisplayBusConfig describes the physical display bus.
type DisplayBusConfig struct {
	Lanes    int
	LaneMbps int
}

// PanelConfig is passed to the panel driver when it is attached to a bus.
type PanelConfig struct {
	Width     int
	Height    int
	Format    PixelFormat
	ResetPin  int
	FrameBufs int
}

// DisplayBus is an opened display bus that panel drivers attach to.
type DisplayBus interface {
	AttachPanel(cfg PanelConfig) (Panel, error)
}

// Panel is the panel driver adapter.
//
// DrawBitmap transfers a tightly packed w*h pixel block to the window
// [x1,x2) x [y1,y2). It returns once the bus transfer has completed.
type Panel interface {
	Reset() error
	Init() error
	Power(on bool) error
	DrawBitmap(x1, y1, x2, y2 int, pixels []byte) error
}

// TouchBusConfig describes the I2C bus of the touch controller.
type TouchBusConfig struct {
	Port    int
	SDA     int
	SCL     int
	SpeedHz int
	IntPin  int
	RstPin  int
}

// TouchBus is an opened touch controller bus.
type TouchBus interface {
	Probe(addr uint16) (TouchController, error)
}

// TouchPoint is one reported contact.
type TouchPoint struct {
	X        int
	Y        int
	Strength int
}

// TouchController is the touch driver adapter.
//
// Read latches the controller's current report. Points copies at most
// len(dst) points of the latched report into dst and returns the count;
// the report is consumed by the call.
type TouchController interface {
	Read() error
	Points(dst []TouchPoint) int
}

// I2C is a minimal I2C bus: a write followed by a read to one address.
//
// Both tinygo.org/x/drivers.I2C and periph.io/x/conn/v3/i2c.Bus satisfy it.
type I2C interface {
	Tx(addr uint16, w, r []byte) error
}

// ChipFeature is a radio or memory feature of the SoC.
type ChipFeature uint8

const (
	ChipWiFi ChipFeature = 1 << iota
	ChipBT
	ChipBLE
	ChipIEEE802154
	ChipEmbeddedFlash
)

// ChipInfo describes the SoC the image is running on.
type ChipInfo struct {
	Model      string
	Cores      int
	Features   ChipFeature
	Revision   int // major*100 + minor
	FlashBytes uint32
}

// Board provides the only contact point between the image and the hardware.
type Board interface {
	Logger() Logger
	Info() ChipInfo
	PowerRail() PowerRail
	Backlight() GPIOPin
	OpenDisplayBus(cfg DisplayBusConfig) (DisplayBus, error)
	OpenTouchBus(cfg TouchBusConfig) (TouchBus, error)
}
