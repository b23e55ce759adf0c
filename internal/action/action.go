// Package action holds the concrete actions actors perform. The round
// scheduler only sees them as round.Action.
package action

import (
	"fmt"

	"github.com/l1jgo/turnloop/internal/anim"
	"github.com/l1jgo/turnloop/internal/component"
	"github.com/l1jgo/turnloop/internal/config"
	"github.com/l1jgo/turnloop/internal/core/ecs"
	"github.com/l1jgo/turnloop/internal/round"
	"github.com/l1jgo/turnloop/internal/scripting"
	"github.com/l1jgo/turnloop/internal/world"
	"go.uber.org/zap"
)

// Combat resolves one melee swing. *scripting.Engine implements it.
type Combat interface {
	CalcMeleeAttack(ctx scripting.CombatContext) scripting.CombatResult
}

// Env is the shared dependency set for building actions.
type Env struct {
	World  *world.State
	Combat Combat
	Timing config.AnimationConfig
	log    *zap.Logger
}

func NewEnv(w *world.State, combat Combat, timing config.AnimationConfig, log *zap.Logger) *Env {
	return &Env{World: w, Combat: combat, Timing: timing, log: log}
}

// Hostile reports whether a and b are on opposite sides: the player versus
// everyone else.
func (e *Env) Hostile(a, b ecs.EntityID) bool {
	pa, pb := e.World.Actor(a), e.World.Actor(b)
	if pa == nil || pb == nil {
		return false
	}
	return pa.Player != pb.Player
}

// --- Move ---

// Move steps one tile. Bumping into a hostile actor attacks it instead.
type Move struct {
	env    *Env
	Actor  ecs.EntityID
	DX, DY int
}

func (e *Env) Move(actor ecs.EntityID, dx, dy int) *Move {
	return &Move{env: e, Actor: actor, DX: dx, DY: dy}
}

func (m *Move) Execute() (round.Result, error) {
	w := m.env.World
	p := w.Position(m.Actor)
	if p == nil {
		return round.Result{}, fmt.Errorf("move %s: no position", w.Name(m.Actor))
	}
	if m.DX == 0 && m.DY == 0 {
		return round.Result{}, nil
	}
	tx, ty := p.X+m.DX, p.Y+m.DY
	if occ := w.Grid().OccupantAt(tx, ty); !occ.IsZero() {
		if m.env.Hostile(m.Actor, occ) {
			return m.env.Melee(m.Actor, occ).Execute()
		}
		return round.Result{}, nil
	}
	if !w.MoveTo(m.Actor, tx, ty) {
		return round.Result{}, nil // wall or edge
	}
	return round.Result{
		Animation: anim.NewTimed("move", m.env.Timing.Move),
		Movement:  true,
	}, nil
}

// --- Melee ---

// Melee strikes an adjacent actor.
type Melee struct {
	env      *Env
	Attacker ecs.EntityID
	Target   ecs.EntityID
}

func (e *Env) Melee(attacker, target ecs.EntityID) *Melee {
	return &Melee{env: e, Attacker: attacker, Target: target}
}

func (m *Melee) Execute() (round.Result, error) {
	w := m.env.World
	if !w.Alive(m.Target) {
		return round.Result{}, nil // already gone this round
	}
	atk, tgt := w.Health(m.Attacker), w.Health(m.Target)
	if atk == nil || tgt == nil {
		return round.Result{}, fmt.Errorf("melee %s -> %s: missing health", w.Name(m.Attacker), w.Name(m.Target))
	}
	ap, tp := w.Position(m.Attacker), w.Position(m.Target)
	if ap == nil || tp == nil || world.Chebyshev(ap.X, ap.Y, tp.X, tp.Y) > 1 {
		return round.Result{}, nil // target stepped out of reach
	}

	res := m.env.Combat.CalcMeleeAttack(scripting.CombatContext{
		AttackerPower: atk.Power,
		AttackerHP:    atk.HP,
		TargetHP:      tgt.HP,
		TargetMaxHP:   tgt.MaxHP,
	})
	out := round.Result{Animation: anim.NewTimed("attack", m.env.Timing.Attack)}
	if !res.IsHit {
		return out, nil
	}
	out.ActorDied = w.Damage(m.Target, res.Damage)
	if !out.ActorDied && res.Confuse > 0 {
		confuse(w.Behavior(m.Target), res.Confuse)
	}
	m.env.log.Debug("melee",
		zap.String("attacker", w.Name(m.Attacker)),
		zap.String("target", w.Name(m.Target)),
		zap.Int("damage", res.Damage),
		zap.Bool("killed", out.ActorDied))
	return out, nil
}

// confuse overrides the disposition for n turns; a second spell only
// extends the count.
func confuse(b *component.Behavior, n int) {
	if b == nil {
		return
	}
	if b.Disposition != component.Confused {
		b.Previous = b.Disposition
		b.Disposition = component.Confused
	}
	if n > b.Turns {
		b.Turns = n
	}
}

// --- Wait ---

// Wait does nothing but still counts as the actor's action.
type Wait struct{}

func (Wait) Execute() (round.Result, error) { return round.Result{}, nil }
