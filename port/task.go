package port

import (
	"context"
	"time"
)

// TaskState is the state of the render task.
type TaskState int32

const (
	TaskNotStarted TaskState = iota
	TaskIdle
	TaskRunning
	TaskSleeping
	TaskStopped
)

func (s TaskState) String() string {
	switch s {
	case TaskNotStarted:
		return "not-started"
	case TaskIdle:
		return "idle"
	case TaskRunning:
		return "running"
	case TaskSleeping:
		return "sleeping"
	case TaskStopped:
		return "stopped"
	}
	return "unknown"
}

func (p *Port) TaskState() TaskState { return TaskState(p.state.Load()) }

// ClampDelay bounds a requested sleep to [lo, hi].
func ClampDelay(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

// runTask is the render loop: lock, run the client's pending work, unlock,
// sleep. A lock timeout skips the cycle and retries after MinDelay.
func (p *Port) runTask(ctx context.Context) error {
	defer p.state.Store(int32(TaskStopped))

	t := time.NewTimer(time.Hour)
	t.Stop()
	for {
		p.state.Store(int32(TaskIdle))
		delay := p.cfg.MinDelay

		if err := p.lock.Acquire(ctx, p.task, p.cfg.TaskLockTimeout); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.stats.skips.Add(1)
			p.log.Debug("render cycle skipped", "err", err)
		} else {
			p.state.Store(int32(TaskRunning))
			d, ok := p.runPending()
			_ = p.lock.Release(p.task)
			if ok {
				delay = ClampDelay(d, p.cfg.MinDelay, p.cfg.MaxDelay)
			}
		}

		p.state.Store(int32(TaskSleeping))
		t.Reset(delay)
		select {
		case <-t.C:
		case <-p.wake:
			if !t.Stop() {
				select {
				case <-t.C:
				default:
				}
			}
		case <-ctx.Done():
			t.Stop()
			return nil
		}
	}
}

func (p *Port) runPending() (d time.Duration, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.stats.skips.Add(1)
			p.log.Error("render handler panic", "panic", r)
			ok = false
		}
	}()
	p.stats.cycles.Add(1)
	return p.client.RunPending(), true
}

// wakeTask ends the render task's current sleep early. Releases by the task
// itself do not count.
func (p *Port) wakeTask(h *Holder) {
	if h == p.task {
		return
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
}
