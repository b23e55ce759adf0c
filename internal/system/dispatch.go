package system

import (
	"time"

	"github.com/l1jgo/turnloop/internal/core/event"
	coresys "github.com/l1jgo/turnloop/internal/core/system"
)

// DispatchSystem delivers last frame's turn events to bus subscribers.
// Phase 1 (Dispatch).
type DispatchSystem struct {
	bus *event.Bus
}

func NewDispatchSystem(bus *event.Bus) *DispatchSystem {
	return &DispatchSystem{bus: bus}
}

func (s *DispatchSystem) Phase() coresys.Phase { return coresys.PhaseDispatch }

func (s *DispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
