// Package scene is a small retained-mode render client for the display
// port: a list of objects, animations and timers driven by the port's tick
// and render task.
package scene

import (
	"context"
	"errors"
	"image/color"
	"log/slog"
	"sync/atomic"
	"time"

	"panelport/hal"
	"panelport/internal/logging"
	"panelport/port"
)

var (
	ErrNoSlot   = errors.New("scene: no free slot")
	ErrDetached = errors.New("scene: display not attached")
)

// Options configures a Screen. Zero values select the defaults.
type Options struct {
	Background color.RGBA
	// RefreshPeriod is the minimum time between two flushed frames.
	RefreshPeriod time.Duration
	// InputPeriod is how often the input bridge is polled.
	InputPeriod time.Duration
	// BufferWait bounds how long a refresh waits for a free back buffer.
	BufferWait time.Duration
	Logger     *slog.Logger
}

const (
	defaultRefresh    = 33 * time.Millisecond
	defaultInput      = 30 * time.Millisecond
	defaultBufferWait = time.Second
	idleDelay         = 500 * time.Millisecond
)

// Object is something the screen can draw.
type Object interface {
	Bounds() port.Area
	// Draw renders the part of the object inside clip.
	Draw(fb *port.FrameBuffer, clip port.Area)
}

// Screen implements port.Client. Everything except Tick and FlushReady must
// be called with the port lock held.
type Screen struct {
	opts Options
	log  *slog.Logger
	bg   uint16

	disp port.Display
	in   port.InputDevice
	w, h int

	objects []Object
	dirty   port.Area

	timers timerTable
	anims  animTable

	onInput     func(port.Sample)
	lastSample  port.Sample
	lastInput   uint64
	lastRefresh uint64
	polled      bool
	rendered    bool

	ms      atomic.Uint64
	frames  atomic.Uint64
	flushed atomic.Uint64
}

func NewScreen(opts Options) *Screen {
	if opts.RefreshPeriod <= 0 {
		opts.RefreshPeriod = defaultRefresh
	}
	if opts.InputPeriod <= 0 {
		opts.InputPeriod = defaultInput
	}
	if opts.BufferWait <= 0 {
		opts.BufferWait = defaultBufferWait
	}
	log := opts.Logger
	if log == nil {
		log = logging.Tagged("scene")
	}
	bg := opts.Background
	return &Screen{
		opts: opts,
		log:  log,
		bg:   hal.RGB565(bg.R, bg.G, bg.B),
	}
}

func (s *Screen) AttachDisplay(d port.Display) error {
	if d.Format() != hal.PixelFormatRGB565 {
		return errors.New("scene: only RGB565 displays are supported")
	}
	s.disp = d
	s.w, s.h = d.Size()
	s.dirty = port.Full(s.w, s.h)
	return nil
}

func (s *Screen) AttachInput(in port.InputDevice) error {
	s.in = in
	return nil
}

// Tick advances the scene clock. Safe for concurrent use.
func (s *Screen) Tick(ms uint32) { s.ms.Add(uint64(ms)) }

// FlushReady counts completed flushes. Safe for concurrent use.
func (s *Screen) FlushReady(*port.FrameBuffer) { s.flushed.Add(1) }

// Now returns the scene clock in milliseconds.
func (s *Screen) Now() uint64 { return s.ms.Load() }

func (s *Screen) Size() (w, h int) { return s.w, s.h }

// Frames returns how many frames were rendered and flushed.
func (s *Screen) Frames() uint64 { return s.frames.Load() }

// Flushed returns how many flushes the port has completed.
func (s *Screen) Flushed() uint64 { return s.flushed.Load() }

// Add appends o on top of the existing objects.
func (s *Screen) Add(o Object) {
	s.objects = append(s.objects, o)
	s.Invalidate(o.Bounds())
}

// Remove deletes o from the screen.
func (s *Screen) Remove(o Object) {
	for i, cur := range s.objects {
		if cur == o {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			s.Invalidate(o.Bounds())
			return
		}
	}
}

// Clear removes all objects, animations and timers.
func (s *Screen) Clear() {
	s.objects = nil
	s.timers = timerTable{}
	s.anims = animTable{}
	s.onInput = nil
	s.Invalidate(port.Full(s.w, s.h))
}

// Invalidate marks a as needing a redraw.
func (s *Screen) Invalidate(a port.Area) {
	s.dirty = s.dirty.Union(a)
}

// Dirty returns the area waiting to be redrawn.
func (s *Screen) Dirty() port.Area { return s.dirty }

// OnInput installs the handler called with every input poll.
func (s *Screen) OnInput(fn func(port.Sample)) { s.onInput = fn }

// LastInput returns the most recent input sample.
func (s *Screen) LastInput() port.Sample { return s.lastSample }

// RunPending runs due timers and animations, polls input and renders the
// dirty area. It returns the time until it next has work.
func (s *Screen) RunPending() time.Duration {
	now := s.Now()
	next := idleDelay

	if d, ok := s.timers.run(now); ok {
		next = min(next, d)
	}
	if s.anims.step(now) {
		next = min(next, s.opts.RefreshPeriod)
	}

	if s.in != nil && s.onInput != nil {
		period := uint64(s.opts.InputPeriod / time.Millisecond)
		if !s.polled || now-s.lastInput >= period {
			s.lastSample = s.in.ReadInput()
			s.lastInput = now
			s.polled = true
			s.onInput(s.lastSample)
		}
		next = min(next, s.opts.InputPeriod)
	}

	if s.disp != nil && !s.dirty.Empty() {
		period := uint64(s.opts.RefreshPeriod / time.Millisecond)
		if !s.rendered || now-s.lastRefresh >= period {
			if err := s.refresh(); err != nil {
				s.log.Warn("refresh skipped", "err", err)
			}
			s.lastRefresh = now
			s.rendered = true
		}
		if !s.dirty.Empty() {
			next = min(next, s.opts.RefreshPeriod)
		}
	}
	return next
}

// Refresh renders and flushes the dirty area now.
func (s *Screen) Refresh() error {
	if s.disp == nil {
		return ErrDetached
	}
	if s.dirty.Empty() {
		return nil
	}
	return s.refresh()
}

func (s *Screen) refresh() error {
	area := s.dirty.Clip(s.w, s.h)
	if s.disp.FullRefresh() {
		area = port.Full(s.w, s.h)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.BufferWait)
	defer cancel()
	fb, err := s.disp.BackBuffer(ctx)
	if err != nil {
		return err
	}

	fb.Fill(area, s.bg)
	for _, o := range s.objects {
		if clip := o.Bounds().Intersect(area); !clip.Empty() {
			o.Draw(fb, clip)
		}
	}
	s.dirty = port.Area{}
	s.frames.Add(1)
	return s.disp.Flush(area, fb)
}
