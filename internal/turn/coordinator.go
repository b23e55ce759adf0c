package turn

import (
	"time"

	"github.com/l1jgo/turnloop/internal/anim"
	coresys "github.com/l1jgo/turnloop/internal/core/system"
	"github.com/l1jgo/turnloop/internal/round"
)

// Coordinator is the one public seam into the turn loop: input submits
// through it, the frame loop ticks it, presentation reads from it.
// Phase 2 (Update).
type Coordinator struct {
	m *Machine
}

func NewCoordinator(m *Machine) *Coordinator {
	return &Coordinator{m: m}
}

func (c *Coordinator) Phase() coresys.Phase { return coresys.PhaseUpdate }

// Update lets the coordinator run as a frame system.
func (c *Coordinator) Update(dt time.Duration) { c.Tick(dt) }

// Submit offers a player intent. It returns false, with no side effects,
// unless the loop is Idle: one player intent in flight at a time.
func (c *Coordinator) Submit(in *round.Intent) bool { return c.m.Submit(in) }

// Tick is the per-frame entry point.
func (c *Coordinator) Tick(dt time.Duration) { c.m.Step(dt) }

func (c *Coordinator) CurrentState() State { return c.m.State() }

// Cancel aborts a pending wind-up. Only meaningful in AwaitingWindUp.
func (c *Coordinator) Cancel() bool { return c.m.Cancel("player aborted") }

// FrontAnimation is the animation currently playing, for drawing.
func (c *Coordinator) FrontAnimation() anim.Animation { return c.m.Sequencer().Front() }

func (c *Coordinator) LastOutcome() round.Outcome { return c.m.LastOutcome() }
