// Package port bridges a panel driver and a touch driver into a render
// client: frame buffer handoff, flush and input bridges, a periodic tick, the
// render task and the lock that serializes access to the client.
package port

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"panelport/hal"
	"panelport/internal/board"
	"panelport/internal/logging"
)

// Buffering selects how many frame buffers the port allocates.
type Buffering uint8

const (
	BufferSingle Buffering = iota + 1
	BufferDouble
)

func (b Buffering) count() int {
	if b == BufferDouble {
		return 2
	}
	return 1
}

// Config is the port configuration. DefaultConfig returns the board wiring.
type Config struct {
	Width  int
	Height int
	Format hal.PixelFormat

	Buffering   Buffering
	FullRefresh bool
	// Align is the required byte alignment of each frame buffer.
	Align     int
	Allocator Allocator

	DSILanes         int
	DSILaneMbps      int
	PHYLDOChannel    int
	PHYLDOMillivolts int

	BacklightPin       int
	BacklightActiveLow bool
	ResetPin           int

	Touch     hal.TouchBusConfig
	TouchAddr uint16

	TickPeriod time.Duration

	// Goroutines have no priority, stack size or core affinity; these are
	// recorded for the firmware image and logged at task start.
	TaskPriority   int
	TaskStackBytes int
	TaskAffinity   int

	MinDelay        time.Duration
	MaxDelay        time.Duration
	TaskLockTimeout time.Duration

	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Width:              board.Width,
		Height:             board.Height,
		Format:             hal.PixelFormatRGB565,
		Buffering:          Buffering(board.NumFrameBufs),
		FullRefresh:        true,
		Align:              board.BufferAlign,
		Allocator:          HeapAllocator,
		DSILanes:           board.DSILanes,
		DSILaneMbps:        board.DSILaneMbps,
		PHYLDOChannel:      board.PHYLDOChannel,
		PHYLDOMillivolts:   board.PHYLDOMillivolts,
		BacklightPin:       board.PinBacklight,
		BacklightActiveLow: board.BacklightActiveLow,
		ResetPin:           board.PinLCDReset,
		Touch: hal.TouchBusConfig{
			Port:    board.TouchI2CPort,
			SDA:     board.PinTouchSDA,
			SCL:     board.PinTouchSCL,
			SpeedHz: board.TouchI2CHz,
			IntPin:  board.PinTouchINT,
			RstPin:  board.PinTouchRST,
		},
		TouchAddr:       hal.GT911Addr,
		TickPeriod:      board.TickPeriod,
		TaskPriority:    board.TaskPriority,
		TaskStackBytes:  board.TaskStackBytes,
		TaskAffinity:    board.TaskAffinity,
		MinDelay:        board.TaskMinDelay,
		MaxDelay:        board.TaskMaxDelay,
		TaskLockTimeout: WaitForever,
	}
}

// Validate reports the first unusable field.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: resolution %dx%d", ErrInvalidConfig, c.Width, c.Height)
	case c.Format.BytesPerPixel() == 0:
		return fmt.Errorf("%w: pixel format %s", ErrInvalidConfig, c.Format)
	case c.Buffering != BufferSingle && c.Buffering != BufferDouble:
		return fmt.Errorf("%w: buffering %d", ErrInvalidConfig, c.Buffering)
	case c.Align < 0 || c.Align&(c.Align-1) != 0:
		return fmt.Errorf("%w: alignment %d is not a power of two", ErrInvalidConfig, c.Align)
	case c.TickPeriod <= 0:
		return fmt.Errorf("%w: tick period %v", ErrInvalidConfig, c.TickPeriod)
	case c.MinDelay <= 0 || c.MaxDelay < c.MinDelay:
		return fmt.Errorf("%w: task delay range [%v, %v]", ErrInvalidConfig, c.MinDelay, c.MaxDelay)
	}
	return nil
}

// Stats are cumulative port counters.
type Stats struct {
	Frames uint64 // completed bus transfers
	Bytes  uint64 // pixel bytes transferred
	Errors uint64 // failed bus transfers
	Empty  uint64 // flushes with nothing to transfer
	Cycles uint64 // render handler runs
	Skips  uint64 // cycles skipped on lock timeout or handler panic
}

type counters struct {
	frames, bytes, errors, empty, cycles, skips atomic.Uint64
}

// Port is the display port context. All state of one panel lives here.
type Port struct {
	board  hal.Board
	client Client
	cfg    Config
	log    *slog.Logger

	started atomic.Bool
	ready   atomic.Bool
	stepMu  sync.Mutex
	done    []string

	lock  *Lock
	task  *Holder
	state atomic.Int32
	// wake cuts the render task's sleep short after another holder released
	// the lock, so scene changes show up without waiting out the delay.
	wake chan struct{}

	dbus     hal.DisplayBus
	panel    hal.Panel
	touchBus hal.TouchBus
	touch    hal.TouchController

	bufMu   sync.Mutex
	bufs    BufferPair
	next    int
	drawing *FrameBuffer
	jobs    chan flushJob
	jobMu   sync.Mutex
	// busClosed is set once the bus worker has stopped taking jobs.
	busClosed bool

	inputMu sync.Mutex
	last    Sample
	points  [1]hal.TouchPoint

	group  *errgroup.Group
	runCtx context.Context

	stats counters
}

// New returns an uninitialized port. Call Init before anything else.
func New(b hal.Board, client Client, cfg Config) *Port {
	if cfg.Allocator == nil {
		cfg.Allocator = HeapAllocator
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Tagged("port")
	}
	return &Port{
		board:  b,
		client: client,
		cfg:    cfg,
		log:    log,
		task:   NewHolder("render"),
		wake:   make(chan struct{}, 1),
		runCtx: context.Background(),
	}
}

func (p *Port) Config() Config { return p.cfg }

func (p *Port) Size() (w, h int)        { return p.cfg.Width, p.cfg.Height }
func (p *Port) Format() hal.PixelFormat { return p.cfg.Format }
func (p *Port) FullRefresh() bool       { return p.cfg.FullRefresh }

// Buffers returns the frame buffers allocated by Init.
func (p *Port) Buffers() BufferPair {
	p.bufMu.Lock()
	defer p.bufMu.Unlock()
	return p.bufs
}

// Completed lists the init steps that finished, in order.
func (p *Port) Completed() []string {
	p.stepMu.Lock()
	defer p.stepMu.Unlock()
	return append([]string(nil), p.done...)
}

// TaskHolder is the lock identity of the render task. A client that takes
// the port lock inside RunPending must use it.
func (p *Port) TaskHolder() *Holder { return p.task }

// Lock takes the port lock for h.
func (p *Port) Lock(ctx context.Context, h *Holder, timeout time.Duration) error {
	if p.lock == nil {
		return ErrNotInitialized
	}
	return p.lock.Acquire(ctx, h, timeout)
}

func (p *Port) Unlock(h *Holder) error {
	if p.lock == nil {
		return ErrNotInitialized
	}
	if err := p.lock.Release(h); err != nil {
		return err
	}
	p.wakeTask(h)
	return nil
}

// Do runs fn with the port lock held by h. The lock is released on every
// exit path.
func (p *Port) Do(ctx context.Context, h *Holder, timeout time.Duration, fn func() error) error {
	if p.lock == nil {
		return ErrNotInitialized
	}
	defer p.wakeTask(h)
	return p.lock.With(ctx, h, timeout, fn)
}

func (p *Port) Stats() Stats {
	return Stats{
		Frames: p.stats.frames.Load(),
		Bytes:  p.stats.bytes.Load(),
		Errors: p.stats.errors.Load(),
		Empty:  p.stats.empty.Load(),
		Cycles: p.stats.cycles.Load(),
		Skips:  p.stats.skips.Load(),
	}
}

// Wait blocks until the goroutines started by Init have returned, which
// happens once the context given to Init is done.
func (p *Port) Wait() error {
	if p.group == nil {
		return ErrNotInitialized
	}
	return p.group.Wait()
}
