package port

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// WaitForever as a lock timeout blocks until the lock is free or the
// context ends. A negative timeout makes Acquire behave like TryAcquire.
const WaitForever time.Duration = 0

// Holder identifies a task for the re-entrant port lock.
type Holder struct {
	name string
}

func NewHolder(name string) *Holder { return &Holder{name: name} }

func (h *Holder) String() string {
	if h == nil {
		return "<nil>"
	}
	return h.name
}

// Lock is a re-entrant mutex keyed by Holder. A holder that already owns the
// lock re-enters it and must release it once per successful acquire.
type Lock struct {
	sem *semaphore.Weighted

	mu    sync.Mutex
	owner *Holder
	depth int
}

func NewLock() *Lock {
	return &Lock{sem: semaphore.NewWeighted(1)}
}

// Acquire takes the lock for h, waiting at most timeout. On failure the lock
// state is unchanged and the error wraps ErrLockTimeout or the context error.
func (l *Lock) Acquire(ctx context.Context, h *Holder, timeout time.Duration) error {
	if h == nil {
		return errors.New("port lock: nil holder")
	}
	if l.reenter(h) {
		return nil
	}
	if timeout < 0 {
		if !l.TryAcquire(h) {
			return fmt.Errorf("port lock %s: %w", h, ErrLockTimeout)
		}
		return nil
	}

	wctx := ctx
	if timeout != WaitForever {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := l.sem.Acquire(wctx, 1); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("port lock %s: %w", h, ctx.Err())
		}
		return fmt.Errorf("port lock %s after %v: %w", h, timeout, ErrLockTimeout)
	}
	l.take(h)
	return nil
}

// TryAcquire takes the lock for h without waiting.
func (l *Lock) TryAcquire(h *Holder) bool {
	if h == nil {
		return false
	}
	if l.reenter(h) {
		return true
	}
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.take(h)
	return true
}

// Release drops one level of h's hold.
func (l *Lock) Release(h *Holder) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h == nil || l.owner != h {
		return fmt.Errorf("port lock release by %s: %w", h, ErrNotOwner)
	}
	l.depth--
	if l.depth == 0 {
		l.owner = nil
		l.sem.Release(1)
	}
	return nil
}

// With runs fn while holding the lock and releases it on every exit path,
// including a panic in fn.
func (l *Lock) With(ctx context.Context, h *Holder, timeout time.Duration, fn func() error) error {
	if err := l.Acquire(ctx, h, timeout); err != nil {
		return err
	}
	defer l.Release(h)
	return fn()
}

// Owner returns the current holder and its depth.
func (l *Lock) Owner() (*Holder, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner, l.depth
}

func (l *Lock) reenter(h *Holder) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner == h {
		l.depth++
		return true
	}
	return false
}

func (l *Lock) take(h *Holder) {
	l.mu.Lock()
	l.owner = h
	l.depth = 1
	l.mu.Unlock()
}
