// Package ai chooses NPC actions. Each disposition is one Behavior variant;
// the actor's current disposition selects which one runs.
package ai

import (
	"math/rand"

	"github.com/l1jgo/turnloop/internal/action"
	"github.com/l1jgo/turnloop/internal/component"
	"github.com/l1jgo/turnloop/internal/core/ecs"
	"github.com/l1jgo/turnloop/internal/round"
	"github.com/l1jgo/turnloop/internal/scripting"
	"github.com/l1jgo/turnloop/internal/world"
	"go.uber.org/zap"
)

// Scripter runs the Lua actor_ai function. *scripting.Engine implements it.
type Scripter interface {
	RunActorAI(ctx scripting.AIContext) scripting.AICommand
}

// Behavior decides one action for one actor. A nil action means wait.
type Behavior interface {
	Decide(s *Source, ctx *round.Context, id ecs.EntityID, b *component.Behavior) round.Action
}

type (
	dormant  struct{}
	hostile  struct{}
	confused struct{}
	fleeing  struct{}
	scripted struct{}
)

// behaviorFor is the single dispatch point over the closed disposition set.
// It returns nil for a value outside the set.
func behaviorFor(d component.Disposition) Behavior {
	switch d {
	case component.Dormant:
		return dormant{}
	case component.Hostile:
		return hostile{}
	case component.Confused:
		return confused{}
	case component.Fleeing:
		return fleeing{}
	case component.Scripted:
		return scripted{}
	}
	return nil
}

// Source implements round.DecisionSource over the world state.
// Single-goroutine access only (game loop).
type Source struct {
	env     *action.Env
	scripts Scripter
	rng     *rand.Rand
	log     *zap.Logger

	// player position at round start; perception uses it, steering uses
	// live positions
	playerAt   component.Position
	havePlayer bool
}

func NewSource(env *action.Env, scripts Scripter, seed int64, log *zap.Logger) *Source {
	return &Source{
		env:     env,
		scripts: scripts,
		rng:     rand.New(rand.NewSource(seed)),
		log:     log,
	}
}

// Update caches the player's position once per round.
func (s *Source) Update(ctx *round.Context) {
	s.havePlayer = false
	if ctx.Player.IsZero() || !ctx.Roster.Alive(ctx.Player) {
		return
	}
	if p := s.env.World.Position(ctx.Player); p != nil {
		s.playerAt = *p
		s.havePlayer = true
	}
}

func (s *Source) Decide(ctx *round.Context, id ecs.EntityID) round.Action {
	b := s.env.World.Behavior(id)
	if b == nil {
		return nil
	}
	return s.decide(ctx, id, b)
}

// Plan decides like Decide but on a copy of the actor's behavior, so the
// world is untouched. commit writes the copy back, unless the behavior has
// changed since planning.
func (s *Source) Plan(ctx *round.Context, id ecs.EntityID) (act round.Action, commit func()) {
	b := s.env.World.Behavior(id)
	if b == nil {
		return nil, func() {}
	}
	orig, draft := *b, *b
	act = s.decide(ctx, id, &draft)
	return act, func() {
		if cur := s.env.World.Behavior(id); cur != nil && *cur == orig {
			*cur = draft
		}
	}
}

func (s *Source) decide(ctx *round.Context, id ecs.EntityID, b *component.Behavior) round.Action {
	bh := behaviorFor(b.Disposition)
	if bh == nil {
		s.log.Warn("unknown disposition; actor waits",
			zap.Uint64("actor", uint64(id)), zap.Stringer("disposition", b.Disposition))
		return nil
	}
	return bh.Decide(s, ctx, id, b)
}

// target finds who an actor is after: the player for NPCs, the nearest
// hostile for the player. dist is the live distance, perceived whether the
// target was within sight.
func (s *Source) target(id ecs.EntityID, b *component.Behavior) (tgt ecs.EntityID, dist int, perceived bool) {
	w := s.env.World
	self := w.Position(id)
	if self == nil {
		return 0, -1, false
	}
	if a := w.Actor(id); a != nil && a.Player {
		tgt, dist = w.Nearest(id, func(o ecs.EntityID) bool { return s.env.Hostile(id, o) })
		if tgt.IsZero() {
			return 0, -1, false
		}
		return tgt, dist, dist <= b.SightRange
	}
	if !s.havePlayer {
		return 0, -1, false
	}
	tgt = w.Player()
	p := w.Position(tgt)
	if p == nil || !w.Alive(tgt) {
		return 0, -1, false
	}
	dist = world.Chebyshev(self.X, self.Y, p.X, p.Y)
	perceived = world.Chebyshev(self.X, self.Y, s.playerAt.X, s.playerAt.Y) <= b.SightRange
	return tgt, dist, perceived
}

// step picks a one-tile move toward (dir=1) or away from (dir=-1) target,
// falling back to single-axis moves when the diagonal is blocked. ok is
// false when every candidate is blocked.
func (s *Source) step(id, target ecs.EntityID, dir int) (dx, dy int, ok bool) {
	w := s.env.World
	from, to := w.Position(id), w.Position(target)
	if from == nil || to == nil {
		return 0, 0, false
	}
	sx, sy := sign(to.X-from.X)*dir, sign(to.Y-from.Y)*dir
	for _, c := range [][2]int{{sx, sy}, {sx, 0}, {0, sy}} {
		if c[0] == 0 && c[1] == 0 {
			continue
		}
		if s.open(id, from.X+c[0], from.Y+c[1]) {
			return c[0], c[1], true
		}
	}
	return 0, 0, false
}

// open reports whether id may step onto (x, y): free, or held by a hostile
// it would attack.
func (s *Source) open(id ecs.EntityID, x, y int) bool {
	g := s.env.World.Grid()
	if !g.InBounds(x, y) {
		return false
	}
	occ := g.OccupantAt(x, y)
	return occ.IsZero() || s.env.Hostile(id, occ)
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
