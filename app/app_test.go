package app

import (
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"panelport/hal"
	"panelport/port"
	"panelport/scene"
)

func testConfig(demo Demo) Config {
	cfg := DefaultConfig()
	cfg.Demo = demo
	cfg.SettleDelay = 0
	cfg.HeapPeriod = 0
	cfg.KeepLogger = true
	return cfg
}

func newTestSim(opts hal.SimOptions) *hal.Sim {
	if opts.Width == 0 {
		opts.Width, opts.Height = 720, 720
	}
	opts.Log = io.Discard
	return hal.NewSim(opts)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func boot(t *testing.T, b hal.Board, cfg Config) *System {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s, err := Boot(ctx, b, cfg)
	if err != nil {
		cancel()
		t.Fatalf("Boot() err = %v", err)
	}
	t.Cleanup(func() {
		cancel()
		if err := s.Wait(); err != nil {
			t.Errorf("Wait() = %v, want nil", err)
		}
	})
	return s
}

func TestBootPulseDrawsCircle(t *testing.T) {
	c := qt.New(t)
	sim := newTestSim(hal.SimOptions{})
	s := boot(t, sim, testConfig(DemoPulse))

	want := hal.RGB565(pulseColor.R, pulseColor.G, pulseColor.B)
	waitFor(t, "pulse circle on the panel", func() bool {
		return sim.Panel().Pixel(360, 360) == want
	})
	c.Assert(sim.Panel().Pixel(0, 0), qt.Equals, uint16(0))
	c.Assert(s.Port.Buffers().Count(), qt.Equals, 2)
	c.Assert(s.Screen.Frames() > 0, qt.IsTrue)

	ch, mv := sim.RailEnabled()
	c.Assert(ch, qt.Equals, 3)
	c.Assert(mv, qt.Equals, 2500)
	bl := sim.BacklightPin()
	c.Assert(bl.Mode(), qt.Equals, hal.GPIOModeOutput)
	c.Assert(bl.Writes(), qt.Equals, 1)
	on, err := bl.Read()
	c.Assert(err, qt.IsNil)
	c.Assert(on, qt.IsFalse, qt.Commentf("backlight is active low"))
}

func TestBootTouchMovesDot(t *testing.T) {
	sim := newTestSim(hal.SimOptions{})
	boot(t, sim, testConfig(DemoTouch))

	sim.Touch().SetTouch(100, 200, true)
	want := hal.RGB565(dotColor.R, dotColor.G, dotColor.B)
	waitFor(t, "dot under the touch point", func() bool {
		return sim.Panel().Pixel(100, 200) == want
	})
}

func TestBootConsolePrints(t *testing.T) {
	sim := newTestSim(hal.SimOptions{Width: 320, Height: 240})
	cfg := testConfig(DemoConsole)
	cfg.Port.Width, cfg.Port.Height = 320, 240
	boot(t, sim, cfg)

	// Text rows start below the top edge by the font's ascent, so the whole
	// panel is scanned.
	waitFor(t, "console text", func() bool {
		for y := 0; y < 240; y++ {
			for x := 0; x < 320; x++ {
				if sim.Panel().Pixel(x, y) != 0 {
					return true
				}
			}
		}
		return false
	})
}

func TestBootUpdate(t *testing.T) {
	c := qt.New(t)
	sim := newTestSim(hal.SimOptions{})
	s := boot(t, sim, testConfig(DemoPulse))

	err := s.Update(context.Background(), func(scr *scene.Screen) {
		scr.Clear()
	})
	c.Assert(err, qt.IsNil)
	waitFor(t, "cleared panel", func() bool {
		return sim.Panel().Pixel(360, 360) == 0
	})
}

func TestUpdatesDoNotOverlap(t *testing.T) {
	sim := newTestSim(hal.SimOptions{Width: 64, Height: 64})
	cfg := testConfig(DemoPulse)
	cfg.Port.Width, cfg.Port.Height = 64, 64
	s := boot(t, sim, cfg)

	var inside, most atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(context.Background(), func(*scene.Screen) {
				n := inside.Add(1)
				for {
					m := most.Load()
					if n <= m || most.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				inside.Add(-1)
			})
			if err != nil {
				t.Errorf("Update() = %v", err)
			}
		}()
	}
	wg.Wait()
	if got := most.Load(); got != 1 {
		t.Fatalf("concurrent Update callbacks = %d, want 1", got)
	}
}

func TestBootInitFailure(t *testing.T) {
	sim := newTestSim(hal.SimOptions{FailPanel: errors.New("panel dead")})
	_, err := Boot(context.Background(), sim, testConfig(DemoPulse))
	if !errors.Is(err, port.ErrHardwareInit) {
		t.Fatalf("Boot() err = %v, want ErrHardwareInit", err)
	}
}

func TestBootUnknownDemo(t *testing.T) {
	sim := newTestSim(hal.SimOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := Boot(ctx, sim, testConfig("spiral"))
	if err == nil || !strings.Contains(err.Error(), "spiral") {
		t.Fatalf("Boot() err = %v, want unknown demo", err)
	}
}

func TestParseDemo(t *testing.T) {
	c := qt.New(t)
	for _, d := range Demos {
		got, err := ParseDemo(string(d))
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, d)
	}
	_, err := ParseDemo("nope")
	c.Assert(err, qt.ErrorMatches, `app: unknown demo "nope".*`)
}

func TestFeatureString(t *testing.T) {
	tests := []struct {
		in   hal.ChipFeature
		want string
	}{
		{0, "none"},
		{hal.ChipWiFi, "wifi"},
		{hal.ChipWiFi | hal.ChipBLE, "wifi,ble"},
		{hal.ChipBT | hal.ChipEmbeddedFlash, "bt,embedded-flash"},
	}
	for _, tt := range tests {
		if got := featureString(tt.in); got != tt.want {
			t.Fatalf("featureString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHeapFreeExcludesReleased(t *testing.T) {
	tests := []struct {
		idle, released, want uint64
	}{
		{idle: 4096, released: 0, want: 4096},
		{idle: 4096, released: 1024, want: 3072},
		{idle: 1024, released: 1024, want: 0},
		{idle: 0, released: 8, want: 0},
	}
	for _, tt := range tests {
		ms := runtime.MemStats{HeapIdle: tt.idle, HeapReleased: tt.released}
		if got := heapFree(&ms); got != tt.want {
			t.Fatalf("heapFree(idle=%d released=%d) = %d, want %d", tt.idle, tt.released, got, tt.want)
		}
	}
}
