package port

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func singleBufferConfig() Config {
	cfg := testConfig()
	cfg.Buffering = BufferSingle
	cfg.FullRefresh = false
	return cfg
}

func TestFlushTransfersExactArea(t *testing.T) {
	b := newFakeBoard()
	client := newFakeClient(b.rec)
	p := startPort(t, b, client, singleBufferConfig())
	ctx := context.Background()
	w, _ := p.Size()

	areas := []Area{
		{0, 0, 32, 16},
		{3, 2, 9, 5},
		{31, 15, 32, 16},
		{0, 7, 32, 8},
		{10, 0, 11, 16},
	}
	for i, a := range areas {
		fb, err := p.BackBuffer(ctx)
		if err != nil {
			t.Fatalf("BackBuffer: %v", err)
		}
		for j := range fb.Pix() {
			fb.Pix()[j] = byte(j + i)
		}
		if err := p.Flush(a, fb); err != nil {
			t.Fatalf("Flush(%v): %v", a, err)
		}

		calls := b.panel.calls()
		if len(calls) != i+1 {
			t.Fatalf("after Flush(%v): %d panel draws, want %d", a, len(calls), i+1)
		}
		got := calls[i]
		if got.X1 != a.X1 || got.Y1 != a.Y1 || got.X2 != a.X2 || got.Y2 != a.Y2 {
			t.Fatalf("DrawBitmap window = (%d,%d)-(%d,%d), want %v", got.X1, got.Y1, got.X2, got.Y2, a)
		}
		var want []byte
		for y := a.Y1; y < a.Y2; y++ {
			want = append(want, fb.Pix()[y*w*2+a.X1*2:y*w*2+a.X2*2]...)
		}
		if diff := cmp.Diff(want, got.Pixels); diff != "" {
			t.Fatalf("pixels for %v mismatch (-want +got):\n%s", a, diff)
		}
		if n := client.readyCount(); n != i+1 {
			t.Fatalf("FlushReady calls = %d after %d flushes", n, i+1)
		}
		if fb.Owner() != OwnerNone {
			t.Fatalf("buffer owner after flush = %v, want none", fb.Owner())
		}
	}

	st := p.Stats()
	if st.Frames != uint64(len(areas)) || st.Errors != 0 {
		t.Fatalf("Stats() = %+v, want %d frames", st, len(areas))
	}
}

func TestFlushClipsAndSkipsEmptyArea(t *testing.T) {
	b := newFakeBoard()
	client := newFakeClient(b.rec)
	p := startPort(t, b, client, singleBufferConfig())
	ctx := context.Background()

	fb, _ := p.BackBuffer(ctx)
	if err := p.Flush(Area{X1: 40, Y1: 0, X2: 50, Y2: 4}, fb); err != nil {
		t.Fatalf("Flush(outside): %v", err)
	}
	if n := len(b.panel.calls()); n != 0 {
		t.Fatalf("panel draws for empty area = %d, want 0", n)
	}
	if n := client.readyCount(); n != 1 {
		t.Fatalf("FlushReady calls = %d, want 1", n)
	}

	fb, _ = p.BackBuffer(ctx)
	if err := p.Flush(Area{X1: -4, Y1: 10, X2: 4, Y2: 40}, fb); err != nil {
		t.Fatalf("Flush(partially outside): %v", err)
	}
	calls := b.panel.calls()
	if len(calls) != 1 {
		t.Fatalf("panel draws = %d, want 1", len(calls))
	}
	if got := [4]int{calls[0].X1, calls[0].Y1, calls[0].X2, calls[0].Y2}; got != [4]int{0, 10, 4, 16} {
		t.Fatalf("clipped window = %v, want [0 10 4 16]", got)
	}
	if st := p.Stats(); st.Empty != 1 {
		t.Fatalf("Stats().Empty = %d, want 1", st.Empty)
	}
}

func TestFlushFullRefreshForcesFrame(t *testing.T) {
	b := newFakeBoard()
	client := newFakeClient(b.rec)
	cfg := singleBufferConfig()
	cfg.FullRefresh = true
	p := startPort(t, b, client, cfg)

	fb, _ := p.BackBuffer(context.Background())
	if err := p.Flush(Area{X1: 1, Y1: 1, X2: 2, Y2: 2}, fb); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	c := b.panel.calls()[0]
	if got := [4]int{c.X1, c.Y1, c.X2, c.Y2}; got != [4]int{0, 0, 32, 16} {
		t.Fatalf("window = %v, want full frame", got)
	}
	if len(c.Pixels) != 32*16*2 {
		t.Fatalf("pixels = %d bytes, want %d", len(c.Pixels), 32*16*2)
	}
}

func TestFlushErrorStillSignalsReady(t *testing.T) {
	b := newFakeBoard()
	b.panel.err = errors.New("dsi fifo overflow")
	client := newFakeClient(b.rec)
	p := startPort(t, b, client, singleBufferConfig())

	fb, _ := p.BackBuffer(context.Background())
	if err := p.Flush(Area{0, 0, 4, 4}, fb); err == nil {
		t.Fatal("Flush() = nil, want transfer error")
	}
	if n := client.readyCount(); n != 1 {
		t.Fatalf("FlushReady calls = %d, want 1", n)
	}
	if st := p.Stats(); st.Errors != 1 || st.Frames != 0 {
		t.Fatalf("Stats() = %+v, want 1 error", st)
	}
	if _, err := p.BackBuffer(context.Background()); err != nil {
		t.Fatalf("BackBuffer after failed flush: %v", err)
	}
}

func TestFlushRejectsForeignBuffer(t *testing.T) {
	b := newFakeBoard()
	client := newFakeClient(b.rec)
	p := startPort(t, b, client, singleBufferConfig())

	fb := p.Buffers()[0]
	if err := p.Flush(Area{0, 0, 4, 4}, fb); !errors.Is(err, ErrBufferState) {
		t.Fatalf("Flush(not drawing) = %v, want ErrBufferState", err)
	}
	if n := client.readyCount(); n != 0 {
		t.Fatalf("FlushReady calls = %d, want 0", n)
	}
}

func TestBackBufferIsIdempotentUntilFlush(t *testing.T) {
	b := newFakeBoard()
	p := startPort(t, b, newFakeClient(b.rec), testConfig())
	ctx := context.Background()

	first, _ := p.BackBuffer(ctx)
	again, _ := p.BackBuffer(ctx)
	if first != again {
		t.Fatalf("BackBuffer() = buf %d then %d, want the same buffer", first.Index(), again.Index())
	}
	if first.Owner() != OwnerDrawer {
		t.Fatalf("owner = %v, want drawer", first.Owner())
	}
}

func TestDoubleBufferBatonPass(t *testing.T) {
	b := newFakeBoard()
	b.panel.gate = make(chan struct{})
	b.panel.entered = make(chan struct{}, 4)
	client := newFakeClient(b.rec)
	p := startPort(t, b, client, testConfig())
	t.Cleanup(func() { close(b.panel.gate) })
	ctx := context.Background()

	wait := func(what string) {
		t.Helper()
		select {
		case <-b.panel.entered:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", what)
		}
	}

	fb0, err := p.BackBuffer(ctx)
	if err != nil || fb0.Index() != 0 {
		t.Fatalf("BackBuffer() = %v, %v; want buffer 0", fb0, err)
	}
	if err := p.Flush(Full(32, 16), fb0); err != nil {
		t.Fatalf("Flush(buf 0): %v", err)
	}
	wait("transfer of buffer 0")
	if fb0.Owner() != OwnerBus {
		t.Fatalf("buffer 0 owner during transfer = %v, want bus", fb0.Owner())
	}

	// The drawer moves to the other buffer while the bus is busy.
	fb1, err := p.BackBuffer(ctx)
	if err != nil || fb1.Index() != 1 {
		t.Fatalf("BackBuffer() = %v, %v; want buffer 1", fb1, err)
	}
	if err := p.Flush(Full(32, 16), fb1); err != nil {
		t.Fatalf("Flush(buf 1): %v", err)
	}

	// Buffer 0 is still on the bus: the drawer has to wait.
	short, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	if got, err := p.BackBuffer(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("BackBuffer() during transfer = %v, %v; want deadline exceeded", got, err)
	}
	if n := client.readyCount(); n != 0 {
		t.Fatalf("FlushReady calls = %d before any transfer finished", n)
	}

	b.panel.gate <- struct{}{}
	wait("transfer of buffer 1")

	got, err := p.BackBuffer(ctx)
	if err != nil || got != fb0 {
		t.Fatalf("BackBuffer() after transfer = %v, %v; want buffer 0", got, err)
	}
	client.mu.Lock()
	ready := append([]int(nil), client.ready...)
	client.mu.Unlock()
	if diff := cmp.Diff([]int{0}, ready); diff != "" {
		t.Fatalf("FlushReady order mismatch (-want +got):\n%s", diff)
	}
	if fb1.Owner() != OwnerBus {
		t.Fatalf("buffer 1 owner = %v, want bus", fb1.Owner())
	}
}

func TestFlushAfterShutdownStillSignalsReady(t *testing.T) {
	b := newFakeBoard()
	client := newFakeClient(b.rec)
	cfg := testConfig()
	ctx, cancel := context.WithCancel(context.Background())
	p := New(b, client, cfg)
	if err := p.Init(ctx); err != nil {
		cancel()
		t.Fatalf("Init: %v", err)
	}

	fb, err := p.BackBuffer(context.Background())
	if err != nil {
		cancel()
		t.Fatalf("BackBuffer: %v", err)
	}
	cancel()
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	before := client.readyCount()
	err = p.Flush(Full(32, 16), fb)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Flush() after shutdown = %v, want context.Canceled", err)
	}
	if got := client.readyCount() - before; got != 1 {
		t.Fatalf("FlushReady calls for one Flush after shutdown = %d, want 1", got)
	}
	if fb.Owner() != OwnerNone {
		t.Fatalf("buffer owner = %v, want %v", fb.Owner(), OwnerNone)
	}
}
