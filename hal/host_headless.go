//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	// Hz is the rate at which the panel is scanned out to OnFrame.
	Hz int
	// Duration stops the run after this long; zero runs until ctx ends.
	Duration time.Duration
	// OnFrame, when set, is called with the simulated panel at every scan.
	OnFrame func(p *SimPanel)
}

// RunHeadless boots the image on sim without opening a window. It returns
// nil when Duration elapses, the boot error if boot fails, or ctx.Err().
func RunHeadless(ctx context.Context, sim *Sim, cfg HeadlessConfig, boot func(ctx context.Context, b Board) error) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	runCtx := ctx
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		if err := boot(gctx, sim); err != nil {
			return fmt.Errorf("boot: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				if cfg.OnFrame != nil {
					cfg.OnFrame(sim.panel)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
