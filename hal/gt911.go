package hal

import (
	"fmt"
	"sync"
)

// GT911 I2C addresses. The controller latches one of them from the INT pin
// level during reset.
const (
	GT911Addr    uint16 = 0x5D
	GT911AddrAlt uint16 = 0x14
)

const (
	gt911RegProductID = 0x8140
	gt911RegStatus    = 0x814E
	gt911RegPoint1    = 0x8150

	gt911StatusReady = 0x80
	gt911MaxPoints   = 5
	gt911PointBytes  = 8
)

type gt911 struct {
	mu   sync.Mutex
	bus  I2C
	addr uint16

	n   int
	pts [gt911MaxPoints]TouchPoint
	buf [gt911MaxPoints * gt911PointBytes]byte
}

// NewGT911 probes a GT911 at addr and returns its touch adapter.
func NewGT911(bus I2C, addr uint16) (TouchController, error) {
	if bus == nil {
		return nil, fmt.Errorf("gt911: nil bus")
	}
	d := &gt911{bus: bus, addr: addr}

	var id [4]byte
	if err := d.readReg(gt911RegProductID, id[:]); err != nil {
		return nil, fmt.Errorf("gt911 probe 0x%02X: %w", addr, err)
	}
	if id[0] != '9' {
		return nil, fmt.Errorf("gt911 probe 0x%02X: product id %q: %w", addr, id[:], ErrNoDevice)
	}
	return d, nil
}

func (d *gt911) Read() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var status [1]byte
	if err := d.readReg(gt911RegStatus, status[:]); err != nil {
		return fmt.Errorf("gt911 status: %w", err)
	}
	if status[0]&gt911StatusReady == 0 {
		// No new report; the previous one stays latched until consumed.
		return nil
	}

	n := int(status[0] & 0x0F)
	if n > gt911MaxPoints {
		n = 0
	}
	if n > 0 {
		raw := d.buf[:n*gt911PointBytes]
		if err := d.readReg(gt911RegPoint1, raw); err != nil {
			return fmt.Errorf("gt911 points: %w", err)
		}
		for i := 0; i < n; i++ {
			rec := raw[i*gt911PointBytes:]
			d.pts[i] = TouchPoint{
				X:        int(rec[1]) | int(rec[2])<<8,
				Y:        int(rec[3]) | int(rec[4])<<8,
				Strength: int(rec[5]) | int(rec[6])<<8,
			}
		}
	}
	d.n = n

	if err := d.writeReg(gt911RegStatus, 0); err != nil {
		return fmt.Errorf("gt911 clear: %w", err)
	}
	return nil
}

func (d *gt911) Points(dst []TouchPoint) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := copy(dst, d.pts[:d.n])
	d.n = 0
	return n
}

func (d *gt911) readReg(reg uint16, r []byte) error {
	return d.bus.Tx(d.addr, []byte{byte(reg >> 8), byte(reg)}, r)
}

func (d *gt911) writeReg(reg uint16, v byte) error {
	return d.bus.Tx(d.addr, []byte{byte(reg >> 8), byte(reg), v}, nil)
}

// i2cTouchBus probes GT911 controllers on any I2C bus.
type i2cTouchBus struct {
	bus I2C
}

func (b i2cTouchBus) Probe(addr uint16) (TouchController, error) {
	return NewGT911(b.bus, addr)
}
