//go:build !baremetal

package hal

import (
	"sync"
	"time"
)

// TapScript presses at a fixed point for High out of every Period.
type TapScript struct {
	X, Y   int
	Period time.Duration
	High   time.Duration

	t0  time.Time
	now func() time.Time
}

// NewTapScript returns a script driven by the wall clock.
func NewTapScript(x, y int, period, high time.Duration) *TapScript {
	return newTapScriptWithClock(x, y, period, high, time.Now)
}

func newTapScriptWithClock(x, y int, period, high time.Duration, now func() time.Time) *TapScript {
	if now == nil {
		now = time.Now
	}
	if period <= 0 {
		period = 1 * time.Second
	}
	if high < 0 {
		high = 0
	}
	if high > period {
		high = period
	}
	return &TapScript{X: x, Y: y, Period: period, High: high, t0: now(), now: now}
}

func (s *TapScript) pressed() bool {
	elapsed := s.now().Sub(s.t0)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	return elapsed%s.Period < s.High
}

// SimTouch is a single-contact touch controller fed by SetTouch or a script.
type SimTouch struct {
	mu     sync.Mutex
	script *TapScript
	fail   error

	pressed bool
	x, y    int

	latched bool
	lx, ly  int
	reads   int
}

func newSimTouch(script *TapScript, fail error) *SimTouch {
	return &SimTouch{script: script, fail: fail}
}

// SetTouch sets the live contact state.
func (t *SimTouch) SetTouch(x, y int, pressed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.x, t.y, t.pressed = x, y, pressed
}

func (t *SimTouch) Read() error {
	if t.fail != nil {
		return t.fail
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reads++
	if t.script != nil {
		t.latched = t.script.pressed()
		t.lx, t.ly = t.script.X, t.script.Y
		return nil
	}
	t.latched = t.pressed
	t.lx, t.ly = t.x, t.y
	return nil
}

func (t *SimTouch) Points(dst []TouchPoint) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.latched || len(dst) == 0 {
		return 0
	}
	dst[0] = TouchPoint{X: t.lx, Y: t.ly, Strength: 1}
	t.latched = false
	return 1
}

// Reads returns how many times the controller was read.
func (t *SimTouch) Reads() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reads
}
