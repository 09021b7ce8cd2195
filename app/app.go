// Package app boots the display port on a board and runs one of the demo
// scenes on top of it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"panelport/hal"
	"panelport/internal/buildinfo"
	"panelport/internal/logging"
	"panelport/port"
	"panelport/scene"
)

// Config selects what Boot brings up.
type Config struct {
	Port  port.Config
	Scene scene.Options
	Demo  Demo

	// SettleDelay is waited between port init and building the scene.
	SettleDelay time.Duration
	// HeapPeriod is the interval of the free heap report. Zero disables it.
	HeapPeriod time.Duration

	// KeepLogger leaves the process logger alone instead of routing it to
	// the board's log output.
	KeepLogger bool
}

func DefaultConfig() Config {
	return Config{
		Port:        port.DefaultConfig(),
		Demo:        DemoPulse,
		SettleDelay: 100 * time.Millisecond,
		HeapPeriod:  5 * time.Second,
	}
}

// System is a booted port with its scene.
type System struct {
	Port   *port.Port
	Screen *scene.Screen

	log   *slog.Logger
	setup *port.Holder
	group *errgroup.Group
}

// Boot initializes the port on b, builds the configured demo and starts the
// heap monitor. Everything started by Boot stops when ctx is done.
func Boot(ctx context.Context, b hal.Board, cfg Config) (*System, error) {
	if b == nil {
		return nil, errors.New("app: nil board")
	}
	if !cfg.KeepLogger && b.Logger() != nil {
		logging.SetLogger(slog.New(logging.NewHandler(b.Logger(), nil)))
	}
	log := logging.Tagged("app")
	log.Info(buildinfo.Banner("panelport"))
	logChipInfo(log, b.Info())
	logHeap(log)

	scr := scene.NewScreen(cfg.Scene)
	p := port.New(b, scr, cfg.Port)
	if err := p.Init(ctx); err != nil {
		log.Error("port init failed", "err", err)
		return nil, err
	}

	if cfg.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.SettleDelay):
		}
	}

	s := &System{
		Port:   p,
		Screen: scr,
		log:    log,
		setup:  port.NewHolder("setup"),
	}
	err := p.Do(ctx, s.setup, port.WaitForever, func() error {
		return buildDemo(s, b, cfg.Demo)
	})
	if err != nil {
		log.Error("demo setup failed", "demo", cfg.Demo, "err", err)
		return nil, err
	}
	log.Info("demo running", "demo", cfg.Demo)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.HeapPeriod > 0 {
		g.Go(func() error {
			monitorHeap(gctx, log, cfg.HeapPeriod)
			return nil
		})
	}
	s.group = g
	return s, nil
}

// Update runs fn with the port lock held, for scene changes from outside
// the render task. Each call takes the lock as its own holder, so concurrent
// updates run one after the other.
func (s *System) Update(ctx context.Context, fn func(scr *scene.Screen)) error {
	return s.Port.Do(ctx, port.NewHolder("update"), port.WaitForever, func() error {
		fn(s.Screen)
		return nil
	})
}

// Wait blocks until the port and the heap monitor have stopped.
func (s *System) Wait() error {
	err := s.Port.Wait()
	if gerr := s.group.Wait(); err == nil {
		err = gerr
	}
	return err
}

func logChipInfo(log *slog.Logger, info hal.ChipInfo) {
	log.Info("chip",
		"model", info.Model,
		"cores", info.Cores,
		"features", featureString(info.Features),
		"rev", fmt.Sprintf("v%d.%d", info.Revision/100, info.Revision%100),
		"flash_mb", info.FlashBytes/(1024*1024),
	)
}

func featureString(f hal.ChipFeature) string {
	var s string
	add := func(bit hal.ChipFeature, name string) {
		if f&bit == 0 {
			return
		}
		if s != "" {
			s += ","
		}
		s += name
	}
	add(hal.ChipWiFi, "wifi")
	add(hal.ChipBT, "bt")
	add(hal.ChipBLE, "ble")
	add(hal.ChipIEEE802154, "802.15.4")
	add(hal.ChipEmbeddedFlash, "embedded-flash")
	if s == "" {
		return "none"
	}
	return s
}

// freeHeap is the heap the allocator holds but does not use. Spans already
// returned to the OS are not counted.
func freeHeap() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return heapFree(&ms)
}

func heapFree(ms *runtime.MemStats) uint64 {
	if ms.HeapReleased >= ms.HeapIdle {
		return 0
	}
	return ms.HeapIdle - ms.HeapReleased
}

func logHeap(log *slog.Logger) {
	log.Info("heap", "free", freeHeap())
}

func monitorHeap(ctx context.Context, log *slog.Logger, period time.Duration) {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			logHeap(log)
		}
	}
}

// Serve boots b and blocks until ctx is done.
func Serve(ctx context.Context, b hal.Board, cfg Config) error {
	s, err := Boot(ctx, b, cfg)
	if err != nil {
		return err
	}
	return s.Wait()
}
