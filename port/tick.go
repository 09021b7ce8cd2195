package port

import (
	"context"
	"time"
)

// runTick advances the client clock every TickPeriod. It never takes the
// port lock.
func (p *Port) runTick(ctx context.Context) error {
	ms := uint32(p.cfg.TickPeriod / time.Millisecond)
	if ms == 0 {
		ms = 1
	}
	t := time.NewTicker(p.cfg.TickPeriod)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			p.client.Tick(ms)
		case <-ctx.Done():
			return nil
		}
	}
}
