package port

import (
	"context"
	"fmt"
)

type flushJob struct {
	area Area
	buf  *FrameBuffer
}

// Flush sends area of buf to the panel and returns buf to the port. buf must
// be the buffer returned by BackBuffer. The client's FlushReady is called
// exactly once for every accepted flush, after the transfer has completed or
// failed.
//
// In single-buffer mode the transfer happens before Flush returns. In
// double-buffer mode it is queued to the bus worker and the drawer moves on
// to the other buffer.
func (p *Port) Flush(area Area, buf *FrameBuffer) error {
	if !p.ready.Load() {
		return ErrNotInitialized
	}
	if p.cfg.FullRefresh {
		area = Full(p.cfg.Width, p.cfg.Height)
	} else {
		area = area.Clip(p.cfg.Width, p.cfg.Height)
	}
	if err := p.handToBus(buf); err != nil {
		return fmt.Errorf("flush %s: %w", area, err)
	}

	if area.Empty() {
		p.stats.empty.Add(1)
		p.complete(buf)
		return nil
	}

	job := flushJob{area: area, buf: buf}
	if p.jobs == nil {
		return p.transfer(job)
	}
	// The queue holds one job per buffer, so the send never blocks.
	p.jobMu.Lock()
	defer p.jobMu.Unlock()
	if p.busClosed {
		p.complete(buf)
		return p.runCtx.Err()
	}
	p.jobs <- job
	return nil
}

func (p *Port) busWorker(ctx context.Context) error {
	for {
		select {
		case j := <-p.jobs:
			_ = p.transfer(j)
		case <-ctx.Done():
			// Queued buffers still get their FlushReady; later flushes
			// complete in Flush.
			p.jobMu.Lock()
			defer p.jobMu.Unlock()
			p.busClosed = true
			for {
				select {
				case j := <-p.jobs:
					p.complete(j.buf)
				default:
					return nil
				}
			}
		}
	}
}

func (p *Port) transfer(j flushJob) error {
	px := j.buf.region(j.area)
	err := p.panel.DrawBitmap(j.area.X1, j.area.Y1, j.area.X2, j.area.Y2, px)
	if err != nil {
		p.stats.errors.Add(1)
		p.log.Warn("draw bitmap failed", "area", j.area, "buf", j.buf.index, "err", err)
		err = fmt.Errorf("draw %s: %w", j.area, err)
	} else {
		p.stats.frames.Add(1)
		p.stats.bytes.Add(uint64(len(px)))
	}
	p.complete(j.buf)
	return err
}

// complete ends a flush. The client sees FlushReady before the buffer can
// be handed out again.
func (p *Port) complete(buf *FrameBuffer) {
	buf.owner.Store(uint32(OwnerNone))
	p.client.FlushReady(buf)
	p.release(buf)
}
