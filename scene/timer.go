package scene

import "time"

const maxTimers = 16

type timer struct {
	inUse  bool
	period uint64
	due    uint64
	fn     func()
}

type timerTable struct {
	slots [maxTimers]timer
}

// AddTimer calls fn every period from the render task. The first call is
// one period from now.
func (s *Screen) AddTimer(period time.Duration, fn func()) (int, error) {
	ms := uint64(period / time.Millisecond)
	if ms == 0 {
		ms = 1
	}
	for i := range s.timers.slots {
		t := &s.timers.slots[i]
		if t.inUse {
			continue
		}
		*t = timer{inUse: true, period: ms, due: s.Now() + ms, fn: fn}
		return i, nil
	}
	return -1, ErrNoSlot
}

// DelTimer frees a timer slot.
func (s *Screen) DelTimer(id int) {
	if id >= 0 && id < maxTimers {
		s.timers.slots[id] = timer{}
	}
}

// run fires due timers and returns the delay to the earliest next one.
func (tt *timerTable) run(now uint64) (time.Duration, bool) {
	var next uint64
	found := false
	for i := range tt.slots {
		t := &tt.slots[i]
		if !t.inUse {
			continue
		}
		if t.due <= now {
			t.fn()
			if !t.inUse {
				continue
			}
			t.due = now + t.period
		}
		if d := t.due - now; !found || d < next {
			next = d
			found = true
		}
	}
	return time.Duration(next) * time.Millisecond, found
}
