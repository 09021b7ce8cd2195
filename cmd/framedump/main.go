//go:build !tinygo

// Command framedump boots a demo on the simulated board without a window
// and writes what the panel shows afterwards to a BMP file.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"time"

	"golang.org/x/image/bmp"

	"panelport/app"
	"panelport/hal"
	"panelport/internal/board"
	"panelport/port"
)

const defaultOutPath = "frame.bmp"

type options struct {
	out      string
	demo     app.Demo
	duration time.Duration
	width    int
	height   int
	single   bool
}

func main() {
	var opts options
	var demo string
	flag.StringVar(&opts.out, "out", defaultOutPath, "Output BMP path.")
	flag.StringVar(&demo, "demo", string(app.DemoPulse), "Demo scene: pulse, touch or console.")
	flag.DurationVar(&opts.duration, "duration", 500*time.Millisecond, "How long to run before the capture.")
	flag.IntVar(&opts.width, "width", board.Width, "Panel width in pixels.")
	flag.IntVar(&opts.height, "height", board.Height, "Panel height in pixels.")
	flag.BoolVar(&opts.single, "single", false, "Use one frame buffer instead of two.")
	flag.Parse()

	if opts.out == "" {
		fmt.Fprintln(os.Stderr, "error: -out is required")
		os.Exit(2)
	}
	d, err := app.ParseDemo(demo)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
	opts.demo = d

	if err := run(context.Background(), opts); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if opts.duration <= 0 {
		return fmt.Errorf("duration %v must be positive", opts.duration)
	}
	sim := hal.NewSim(hal.SimOptions{Width: opts.width, Height: opts.height, Log: io.Discard})

	cfg := app.DefaultConfig()
	cfg.Demo = opts.demo
	cfg.HeapPeriod = 0
	cfg.Port.Width, cfg.Port.Height = opts.width, opts.height
	if opts.single {
		cfg.Port.Buffering = port.BufferSingle
	}

	err := hal.RunHeadless(ctx, sim, hal.HeadlessConfig{Duration: opts.duration}, func(ctx context.Context, b hal.Board) error {
		return app.Serve(ctx, b, cfg)
	})
	if err != nil {
		return err
	}

	f, err := os.Create(opts.out)
	if err != nil {
		return fmt.Errorf("create %q: %w", opts.out, err)
	}
	if err := writeBMP(f, sim.Panel()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %q: %w", opts.out, err)
	}
	return f.Close()
}

// writeBMP encodes the current panel contents.
func writeBMP(w io.Writer, p *hal.SimPanel) error {
	pw, ph := p.Width(), p.Height()
	raw := make([]byte, pw*ph*2)
	p.Snapshot(raw)
	img := image.NewRGBA(image.Rect(0, 0, pw, ph))
	hal.RGB565ToRGBA(img.Pix, raw)
	return bmp.Encode(w, img)
}
