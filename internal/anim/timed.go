package anim

import "time"

// Timed finishes after a fixed duration of accumulated frame time.
type Timed struct {
	Name     string
	Duration time.Duration
	elapsed  time.Duration
}

func NewTimed(name string, d time.Duration) *Timed {
	return &Timed{Name: name, Duration: d}
}

func (t *Timed) Advance(dt time.Duration) bool {
	t.elapsed += dt
	return t.elapsed >= t.Duration
}

// Progress is elapsed/duration clamped to [0,1], for drawing.
func (t *Timed) Progress() float64 {
	if t.Duration <= 0 {
		return 1
	}
	p := float64(t.elapsed) / float64(t.Duration)
	if p > 1 {
		p = 1
	}
	return p
}

// Func adapts a plain function to Animation.
type Func func(dt time.Duration) bool

func (f Func) Advance(dt time.Duration) bool { return f(dt) }
