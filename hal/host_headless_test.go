//go:build !tinygo

package hal

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunHeadlessStopsAfterDuration(t *testing.T) {
	sim := NewSim(SimOptions{Width: 8, Height: 8, Log: io.Discard})
	var frames atomic.Int32
	var booted atomic.Bool

	err := RunHeadless(context.Background(), sim, HeadlessConfig{
		Hz:       200,
		Duration: 60 * time.Millisecond,
		OnFrame:  func(*SimPanel) { frames.Add(1) },
	}, func(ctx context.Context, b Board) error {
		booted.Store(b == Board(sim))
		return nil
	})
	if err != nil {
		t.Fatalf("RunHeadless() = %v, want nil", err)
	}
	if !booted.Load() {
		t.Fatal("boot did not receive the simulator")
	}
	if frames.Load() == 0 {
		t.Fatal("OnFrame never called")
	}
}

func TestRunHeadlessReturnsBootError(t *testing.T) {
	sim := NewSim(SimOptions{Width: 8, Height: 8, Log: io.Discard})
	want := errors.New("panel not found")
	err := RunHeadless(context.Background(), sim, HeadlessConfig{}, func(context.Context, Board) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("RunHeadless() = %v, want %v", err, want)
	}
}

func TestRunHeadlessCancelled(t *testing.T) {
	sim := NewSim(SimOptions{Width: 8, Height: 8, Log: io.Discard})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	err := RunHeadless(ctx, sim, HeadlessConfig{}, func(context.Context, Board) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RunHeadless() = %v, want context.Canceled", err)
	}
}
