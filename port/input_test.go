package port

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"panelport/hal"
)

func TestReadInput(t *testing.T) {
	c := qt.New(t)
	b := newFakeBoard()
	p := startPort(t, b, newFakeClient(b.rec), testConfig())

	c.Assert(p.ReadInput(), qt.Equals, Sample{State: Released})

	b.touch.set(hal.TouchPoint{X: 10, Y: 20}, hal.TouchPoint{X: 300, Y: 400})
	c.Assert(p.ReadInput(), qt.Equals, Sample{X: 10, Y: 20, State: Pressed})

	b.touch.set()
	c.Assert(p.ReadInput(), qt.Equals, Sample{X: 10, Y: 20, State: Released})

	b.touch.set(hal.TouchPoint{X: 1, Y: 2})
	b.touch.mu.Lock()
	b.touch.readErr = errors.New("i2c nack")
	b.touch.mu.Unlock()
	c.Assert(p.ReadInput(), qt.Equals, Sample{X: 10, Y: 20, State: Released})
	c.Assert(b.touch.reads, qt.Equals, 4)
}

func TestReadInputBeforeInit(t *testing.T) {
	b := newFakeBoard()
	p := New(b, newFakeClient(b.rec), testConfig())
	if got := p.ReadInput(); got.State != Released {
		t.Fatalf("ReadInput() = %+v, want released", got)
	}
}
