package scene

import (
	"errors"
	"time"
)

var errNoExec = errors.New("scene: animation has no Exec")

const maxAnims = 16

// RepeatInfinite as Anim.Repeat restarts the animation forever.
const RepeatInfinite = -1

// Path maps linear progress in [0, 1] to eased progress.
type Path func(t float64) float64

// PathLinear is constant speed.
func PathLinear(t float64) float64 { return t }

// PathEaseInOut accelerates then decelerates along a cubic Bezier with
// control values 0.05 and 0.95.
func PathEaseInOut(t float64) float64 {
	const p1, p2 = 0.05, 0.95
	u := 1 - t
	return 3*u*u*t*p1 + 3*u*t*t*p2 + t*t*t
}

// Anim animates an integer from From to To over Duration. With Playback set
// it then runs back to From over Playback. Repeat counts extra cycles.
type Anim struct {
	From, To int
	Duration time.Duration
	Playback time.Duration
	Repeat   int
	Path     Path
	// Exec applies a value; it runs on the render task.
	Exec func(v int)
}

type anim struct {
	inUse bool
	a     Anim
	start uint64
	last  int
}

type animTable struct {
	slots [maxAnims]anim
}

// Animate starts a and returns its slot.
func (s *Screen) Animate(a Anim) (int, error) {
	if a.Exec == nil {
		return -1, errNoExec
	}
	if a.Path == nil {
		a.Path = PathLinear
	}
	if a.Duration <= 0 {
		a.Duration = time.Millisecond
	}
	for i := range s.anims.slots {
		sl := &s.anims.slots[i]
		if sl.inUse {
			continue
		}
		*sl = anim{inUse: true, a: a, start: s.Now(), last: a.From}
		a.Exec(a.From)
		return i, nil
	}
	return -1, ErrNoSlot
}

// StopAnim frees an animation slot without applying a final value.
func (s *Screen) StopAnim(id int) {
	if id >= 0 && id < maxAnims {
		s.anims.slots[id] = anim{}
	}
}

// step applies the current value of every running animation and reports
// whether any is still running.
func (at *animTable) step(now uint64) bool {
	running := false
	for i := range at.slots {
		sl := &at.slots[i]
		if !sl.inUse {
			continue
		}
		v, done := sl.a.valueAt(now - sl.start)
		if v != sl.last {
			sl.last = v
			sl.a.Exec(v)
		}
		if done {
			*sl = anim{}
			continue
		}
		running = true
	}
	return running
}

// valueAt returns the value after elapsed milliseconds.
func (a Anim) valueAt(elapsed uint64) (v int, done bool) {
	fwd := uint64(a.Duration / time.Millisecond)
	if fwd == 0 {
		fwd = 1
	}
	back := uint64(a.Playback / time.Millisecond)
	cycle := fwd + back

	if a.Repeat != RepeatInfinite && elapsed >= cycle*uint64(a.Repeat+1) {
		if back > 0 {
			return a.From, true
		}
		return a.To, true
	}

	phase := elapsed % cycle
	if phase < fwd {
		return lerp(a.From, a.To, a.Path(float64(phase)/float64(fwd))), false
	}
	return lerp(a.To, a.From, a.Path(float64(phase-fwd)/float64(back))), false
}

func lerp(from, to int, t float64) int {
	if t <= 0 {
		return from
	}
	if t >= 1 {
		return to
	}
	f := float64(from) + float64(to-from)*t
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}
