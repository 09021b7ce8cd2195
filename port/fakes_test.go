package port

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"panelport/hal"
)

// recorder collects hardware calls in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type nopLogger struct{}

func (nopLogger) WriteLineString(string) {}
func (nopLogger) WriteLineBytes([]byte)  {}

type fakeBoard struct {
	rec       *recorder
	backlight *hal.VirtualPin
	panel     *fakePanel
	touch     *fakeTouch
	touchAddr uint16

	failRail, failBus, failAttach, failTouchBus error
}

func newFakeBoard() *fakeBoard {
	rec := &recorder{}
	return &fakeBoard{
		rec:       rec,
		backlight: hal.NewVirtualPin("BL", hal.GPIOCapOutput, nil),
		panel:     &fakePanel{rec: rec},
		touch:     &fakeTouch{},
		touchAddr: hal.GT911Addr,
	}
}

func (b *fakeBoard) Logger() hal.Logger { return nopLogger{} }
func (b *fakeBoard) Info() hal.ChipInfo { return hal.ChipInfo{Model: "fake", Cores: 1} }

func (b *fakeBoard) PowerRail() hal.PowerRail { return fakeRail{b} }

func (b *fakeBoard) Backlight() hal.GPIOPin { return b.backlight }

func (b *fakeBoard) OpenDisplayBus(cfg hal.DisplayBusConfig) (hal.DisplayBus, error) {
	b.rec.add("bus %d@%d", cfg.Lanes, cfg.LaneMbps)
	if b.failBus != nil {
		return nil, b.failBus
	}
	return fakeBus{b}, nil
}

func (b *fakeBoard) OpenTouchBus(cfg hal.TouchBusConfig) (hal.TouchBus, error) {
	b.rec.add("i2c%d %dHz", cfg.Port, cfg.SpeedHz)
	if b.failTouchBus != nil {
		return nil, b.failTouchBus
	}
	return fakeTouchBus{b}, nil
}

type fakeRail struct{ b *fakeBoard }

func (r fakeRail) Enable(ch, mv int) error {
	r.b.rec.add("ldo %d %dmV", ch, mv)
	return r.b.failRail
}

type fakeBus struct{ b *fakeBoard }

func (f fakeBus) AttachPanel(cfg hal.PanelConfig) (hal.Panel, error) {
	f.b.rec.add("attach %dx%d %s", cfg.Width, cfg.Height, cfg.Format)
	if f.b.failAttach != nil {
		return nil, f.b.failAttach
	}
	return f.b.panel, nil
}

type fakeTouchBus struct{ b *fakeBoard }

func (f fakeTouchBus) Probe(addr uint16) (hal.TouchController, error) {
	f.b.rec.add("probe 0x%02X", addr)
	if addr != f.b.touchAddr {
		return nil, hal.ErrNoDevice
	}
	return f.b.touch, nil
}

type drawCall struct {
	X1, Y1, X2, Y2 int
	Pixels         []byte
}

type fakePanel struct {
	rec *recorder

	mu    sync.Mutex
	draws []drawCall
	err   error
	// gate, when set, blocks every DrawBitmap until a value is received.
	gate    chan struct{}
	entered chan struct{}
	inDraw  func()
}

func (p *fakePanel) Reset() error { p.rec.add("panel reset"); return nil }
func (p *fakePanel) Init() error  { p.rec.add("panel init"); return nil }
func (p *fakePanel) Power(on bool) error {
	p.rec.add("panel power %v", on)
	return nil
}

func (p *fakePanel) DrawBitmap(x1, y1, x2, y2 int, pixels []byte) error {
	if p.entered != nil {
		p.entered <- struct{}{}
	}
	if p.inDraw != nil {
		p.inDraw()
	}
	if p.gate != nil {
		<-p.gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draws = append(p.draws, drawCall{x1, y1, x2, y2, append([]byte(nil), pixels...)})
	return p.err
}

func (p *fakePanel) calls() []drawCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]drawCall(nil), p.draws...)
}

type fakeTouch struct {
	mu      sync.Mutex
	pts     []hal.TouchPoint
	readErr error
	reads   int
}

func (t *fakeTouch) set(pts ...hal.TouchPoint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pts = pts
}

func (t *fakeTouch) Read() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reads++
	return t.readErr
}

func (t *fakeTouch) Points(dst []hal.TouchPoint) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copy(dst, t.pts)
}

// fakeClient records the port's calls. RunPending runs pending if set.
type fakeClient struct {
	rec *recorder

	display Display
	input   InputDevice

	ticks   atomic.Uint64
	tickMs  atomic.Uint64
	runs    atomic.Uint64
	pending func() time.Duration

	mu    sync.Mutex
	ready []int
	// readyCh, when set, receives the index of every completed buffer.
	readyCh chan int
}

func newFakeClient(rec *recorder) *fakeClient {
	return &fakeClient{rec: rec}
}

func (c *fakeClient) AttachDisplay(d Display) error {
	c.rec.add("attach display")
	c.display = d
	return nil
}

func (c *fakeClient) AttachInput(in InputDevice) error {
	c.rec.add("attach input")
	c.input = in
	return nil
}

func (c *fakeClient) Tick(ms uint32) {
	c.ticks.Add(1)
	c.tickMs.Add(uint64(ms))
}

func (c *fakeClient) RunPending() time.Duration {
	c.runs.Add(1)
	if c.pending != nil {
		return c.pending()
	}
	return 50 * time.Millisecond
}

func (c *fakeClient) FlushReady(buf *FrameBuffer) {
	c.mu.Lock()
	c.ready = append(c.ready, buf.Index())
	c.mu.Unlock()
	if c.readyCh != nil {
		c.readyCh <- buf.Index()
	}
}

func (c *fakeClient) readyCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ready)
}

// failingAllocator fails the n-th allocation (0-based).
func failingAllocator(n int) Allocator {
	var calls int
	return AllocatorFunc(func(size, align int) ([]byte, error) {
		defer func() { calls++ }()
		if calls == n {
			return nil, errors.New("out of memory")
		}
		return heapAlloc(size, align)
	})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 32
	cfg.Height = 16
	cfg.Logger = discardLogger()
	return cfg
}
