package port

import (
	"context"
	"time"

	"panelport/hal"
)

// Display is the flush bridge the port registers with its client.
type Display interface {
	Size() (w, h int)
	Format() hal.PixelFormat
	FullRefresh() bool
	BackBuffer(ctx context.Context) (*FrameBuffer, error)
	Flush(area Area, buf *FrameBuffer) error
}

// InputDevice is the input bridge the port registers with its client.
type InputDevice interface {
	ReadInput() Sample
}

// Client is the render client driven by the port.
//
// Tick and FlushReady are called from the tick and bus goroutines without
// the port lock and must be safe for concurrent use. RunPending is called by
// the render task with the lock held and returns the delay until it next has
// work.
type Client interface {
	AttachDisplay(d Display) error
	AttachInput(in InputDevice) error
	Tick(ms uint32)
	RunPending() time.Duration
	FlushReady(buf *FrameBuffer)
}

// TouchState is the contact state of a Sample.
type TouchState uint8

const (
	Released TouchState = iota
	Pressed
)

func (s TouchState) String() string {
	if s == Pressed {
		return "pressed"
	}
	return "released"
}

// Sample is one poll of the touch controller.
type Sample struct {
	X, Y  int
	State TouchState
}
