package anim

import "time"

// Animation is a visual effect advanced by elapsed frame time. Advance
// returns true once the effect has finished.
type Animation interface {
	Advance(dt time.Duration) bool
}

// Sequencer plays animations strictly one at a time, first in first out.
// Only the front element advances; "the round's visuals are done" is simply
// Empty().
type Sequencer struct {
	queue []Animation
}

func NewSequencer() *Sequencer {
	return &Sequencer{queue: make([]Animation, 0, 8)}
}

// Enqueue appends an animation. Nil is ignored.
func (s *Sequencer) Enqueue(a Animation) {
	if a == nil {
		return
	}
	s.queue = append(s.queue, a)
}

// Advance steps the front animation by dt and pops it once finished. The
// next animation starts on the following call, never within the same one.
func (s *Sequencer) Advance(dt time.Duration) {
	if len(s.queue) == 0 {
		return
	}
	if s.queue[0].Advance(dt) {
		s.queue[0] = nil
		s.queue = s.queue[1:]
	}
}

func (s *Sequencer) Empty() bool { return len(s.queue) == 0 }

func (s *Sequencer) Len() int { return len(s.queue) }

// Front returns the animation currently playing, or nil.
func (s *Sequencer) Front() Animation {
	if len(s.queue) == 0 {
		return nil
	}
	return s.queue[0]
}

// Clear drops every queued animation.
func (s *Sequencer) Clear() {
	for i := range s.queue {
		s.queue[i] = nil
	}
	s.queue = s.queue[:0]
}
