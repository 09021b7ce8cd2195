// Package board holds the compile-time wiring of the 4" 720x720 MIPI-DSI
// touch panel board: resolution, bus timing, power rail, pins and the
// render task parameters.
package board

import "time"

// Panel.
const (
	Width            = 720
	Height           = 720
	NumFrameBufs     = 2
	DSILanes         = 2
	DSILaneMbps      = 480
	PHYLDOChannel    = 3
	PHYLDOMillivolts = 2500
)

// Pins.
const (
	PinLCDReset        = 27
	PinBacklight       = 26
	BacklightActiveLow = true

	TouchI2CPort = 0
	PinTouchSCL  = 8
	PinTouchSDA  = 7
	PinTouchINT  = 4
	PinTouchRST  = 5 // shared with the LCD reset line on some revisions

	TouchI2CHz = 400_000
)

// Render task.
const (
	TickPeriod     = 2 * time.Millisecond
	TaskMaxDelay   = 500 * time.Millisecond
	TaskMinDelay   = 1 * time.Millisecond
	TaskStackBytes = 32 * 1024
	TaskPriority   = 2
	TaskAffinity   = 1
)

// BufferAlign is the byte alignment the renderer requires for draw buffers.
const BufferAlign = 64
