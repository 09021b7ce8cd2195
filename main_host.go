//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"panelport/app"
	"panelport/hal"
	"panelport/internal/board"
	"panelport/port"
)

func main() {
	var (
		headless bool
		hz       int
		duration time.Duration
		demo     string
		single   bool
		partial  bool
		width    int
		height   int
		spiPort  string
		periph   hal.PeriphOptions
	)
	flag.BoolVar(&headless, "headless", false, "Run without a window.")
	flag.IntVar(&hz, "hz", 60, "Panel scan rate in headless mode.")
	flag.DurationVar(&duration, "duration", 0, "Stop after this long in headless mode (0 = run forever).")
	flag.StringVar(&demo, "demo", string(app.DemoPulse), "Demo scene: pulse, touch or console.")
	flag.BoolVar(&single, "single", false, "Use one frame buffer instead of two.")
	flag.BoolVar(&partial, "partial", false, "Flush only the dirty area instead of the full frame.")
	flag.IntVar(&width, "width", board.Width, "Panel width in pixels.")
	flag.IntVar(&height, "height", board.Height, "Panel height in pixels.")
	flag.StringVar(&spiPort, "spi", "", "Drive a real SPI panel on this periph port (e.g. SPI0.0) instead of the simulator.")
	flag.IntVar(&periph.SPIHz, "spi-hz", 40_000_000, "SPI clock in Hz.")
	flag.StringVar(&periph.DCPin, "dc", "GPIO25", "Panel D/C pin.")
	flag.StringVar(&periph.ResetPin, "rst", "GPIO27", "Panel reset pin.")
	flag.StringVar(&periph.BacklightPin, "bl", "GPIO18", "Backlight pin.")
	flag.StringVar(&periph.I2CBus, "i2c", "", "I2C bus of the GT911 touch controller.")
	flag.Parse()

	d, err := app.ParseDemo(demo)
	if err != nil {
		fail(err)
	}
	cfg := app.DefaultConfig()
	cfg.Demo = d
	cfg.Port.Width, cfg.Port.Height = width, height
	cfg.Port.FullRefresh = !partial
	if single {
		cfg.Port.Buffering = port.BufferSingle
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if spiPort != "" {
		periph.SPIPort = spiPort
		b, err := hal.NewPeriph(periph)
		if err != nil {
			fail(err)
		}
		if err := app.Serve(ctx, b, cfg); err != nil && !errors.Is(err, context.Canceled) {
			fail(err)
		}
		return
	}

	simOpts := hal.SimOptions{Width: width, Height: height}
	if headless && d == app.DemoTouch {
		// Nobody can touch a headless panel; tap a third of the way in.
		simOpts.Taps = hal.NewTapScript(width/3, height/3, 2*time.Second, 500*time.Millisecond)
	}
	sim := hal.NewSim(simOpts)
	boot := func(ctx context.Context, b hal.Board) error {
		return app.Serve(ctx, b, cfg)
	}

	if headless {
		err := hal.RunHeadless(ctx, sim, hal.HeadlessConfig{Hz: hz, Duration: duration}, boot)
		if err != nil && !errors.Is(err, context.Canceled) {
			fail(err)
		}
		return
	}

	if err := hal.RunWindow(sim, boot); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
