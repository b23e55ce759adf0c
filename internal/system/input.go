package system

import (
	"time"

	"github.com/l1jgo/turnloop/internal/action"
	"github.com/l1jgo/turnloop/internal/ai"
	"github.com/l1jgo/turnloop/internal/anim"
	coresys "github.com/l1jgo/turnloop/internal/core/system"
	"github.com/l1jgo/turnloop/internal/round"
	"github.com/l1jgo/turnloop/internal/turn"
	"github.com/l1jgo/turnloop/internal/world"
	"go.uber.org/zap"
)

// IntentSource yields the next player intent, or nil when there is none.
type IntentSource interface {
	Next() *round.Intent
}

// InputSystem offers at most one intent per frame to the coordinator, and
// only while it is Idle. Phase 0 (Input).
type InputSystem struct {
	coord     *turn.Coordinator
	src       IntentSource
	submitted int
	log       *zap.Logger
}

func NewInputSystem(coord *turn.Coordinator, src IntentSource, log *zap.Logger) *InputSystem {
	return &InputSystem{coord: coord, src: src, log: log}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	if s.coord.CurrentState() != turn.Idle {
		return
	}
	in := s.src.Next()
	if in == nil {
		return
	}
	if !s.coord.Submit(in) {
		s.log.Debug("intent dropped", zap.Uint64("actor", uint64(in.Actor())))
		return
	}
	s.submitted++
}

// Submitted counts accepted intents.
func (s *InputSystem) Submitted() int { return s.submitted }

// Autopilot plays the player with its own AI behavior. Attacks get a
// wind-up animation; everything else resolves immediately.
type Autopilot struct {
	world  *world.State
	src    *ai.Source
	windUp time.Duration
}

func NewAutopilot(ws *world.State, src *ai.Source, windUp time.Duration) *Autopilot {
	return &Autopilot{world: ws, src: src, windUp: windUp}
}

// Next plans the player's move without touching its behavior state. The
// change (a dormant player waking, a confusion countdown) lands only when
// the round executes the intent; a cancelled or refused intent leaves none.
func (a *Autopilot) Next() *round.Intent {
	player := a.world.Player()
	if player.IsZero() || !a.world.Alive(player) {
		return nil
	}
	ctx := &round.Context{Player: player, Roster: a.world}
	act, commit := a.src.Plan(ctx, player)
	switch act.(type) {
	case nil:
		return round.Immediate(player, planned{action.Wait{}, commit}, 0)
	case *action.Melee:
		return round.WithWindUp(player, planned{act, commit}, 0, anim.NewTimed("windup", a.windUp))
	}
	return round.Immediate(player, planned{act, commit}, 0)
}

// planned commits the autopilot's behavior change when it runs.
type planned struct {
	round.Action
	commit func()
}

func (p planned) Execute() (round.Result, error) {
	p.commit()
	return p.Action.Execute()
}
