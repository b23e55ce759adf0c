package ai

import (
	"github.com/l1jgo/turnloop/internal/component"
	"github.com/l1jgo/turnloop/internal/core/ecs"
	"github.com/l1jgo/turnloop/internal/round"
	"github.com/l1jgo/turnloop/internal/scripting"
	"go.uber.org/zap"
)

// Dormant actors wake up (and turn hostile) once they see their target.
// Waking takes the turn.
func (dormant) Decide(s *Source, _ *round.Context, id ecs.EntityID, b *component.Behavior) round.Action {
	if _, _, seen := s.target(id, b); seen {
		b.Disposition = component.Hostile
		b.Previous = component.Hostile
		s.log.Debug("actor woke up", zap.String("name", s.env.World.Name(id)))
	}
	return nil
}

func (hostile) Decide(s *Source, ctx *round.Context, id ecs.EntityID, b *component.Behavior) round.Action {
	tgt, dist, seen := s.target(id, b)
	if tgt.IsZero() || !seen {
		return nil
	}
	if lowHealth(s.env.World.Health(id)) && id != ctx.Player {
		b.Previous = component.Hostile
		b.Disposition = component.Fleeing
		return fleeing{}.Decide(s, ctx, id, b)
	}
	if dist <= 1 {
		return s.env.Melee(id, tgt)
	}
	dx, dy, ok := s.step(id, tgt, 1)
	if !ok {
		return nil
	}
	return s.env.Move(id, dx, dy)
}

// Confused actors stumble in a random direction; the spell counts down one
// turn per decision and restores the previous disposition when it ends.
func (confused) Decide(s *Source, _ *round.Context, id ecs.EntityID, b *component.Behavior) round.Action {
	b.Turns--
	if b.Turns <= 0 {
		b.Turns = 0
		b.Disposition = b.Previous
	}
	dx, dy := s.rng.Intn(3)-1, s.rng.Intn(3)-1
	if dx == 0 && dy == 0 {
		return nil
	}
	return s.env.Move(id, dx, dy)
}

// Fleeing actors run from their target until they heal past half HP.
func (fleeing) Decide(s *Source, _ *round.Context, id ecs.EntityID, b *component.Behavior) round.Action {
	if h := s.env.World.Health(id); h != nil && h.HP*2 > h.MaxHP {
		b.Disposition = b.Previous
		if b.Disposition == component.Fleeing {
			b.Disposition = component.Hostile
		}
		return nil
	}
	tgt, _, seen := s.target(id, b)
	if tgt.IsZero() || !seen {
		return nil
	}
	dx, dy, ok := s.step(id, tgt, -1)
	if !ok || !s.free(id, dx, dy) {
		return nil
	}
	return s.env.Move(id, dx, dy)
}

// Scripted actors defer to the Lua actor_ai function.
func (scripted) Decide(s *Source, ctx *round.Context, id ecs.EntityID, b *component.Behavior) round.Action {
	w := s.env.World
	pos, h := w.Position(id), w.Health(id)
	if pos == nil || h == nil {
		return nil
	}
	tgt, dist, seen := s.target(id, b)
	actx := scripting.AIContext{
		Name:       w.Name(id),
		X:          pos.X,
		Y:          pos.Y,
		HP:         h.HP,
		MaxHP:      h.MaxHP,
		Round:      ctx.Round,
		Pass:       ctx.Pass,
		TargetDist: -1,
		SightRange: b.SightRange,
	}
	if !tgt.IsZero() && seen {
		tp := w.Position(tgt)
		actx.TargetX, actx.TargetY, actx.TargetDist = tp.X, tp.Y, dist
	}

	cmd := s.scripts.RunActorAI(actx)
	switch cmd.Type {
	case "attack":
		if actx.TargetDist == 1 {
			return s.env.Melee(id, tgt)
		}
	case "move":
		if cmd.DX != 0 || cmd.DY != 0 {
			return s.env.Move(id, cmd.DX, cmd.DY)
		}
	case "flee":
		if actx.TargetDist >= 0 {
			if dx, dy, ok := s.step(id, tgt, -1); ok && s.free(id, dx, dy) {
				return s.env.Move(id, dx, dy)
			}
		}
	case "wait":
	default:
		s.log.Warn("unknown actor_ai command", zap.String("type", cmd.Type), zap.String("actor", actx.Name))
	}
	return nil
}

// free reports whether the step lands on an empty tile. Fleeing never
// attacks.
func (s *Source) free(id ecs.EntityID, dx, dy int) bool {
	p := s.env.World.Position(id)
	return p != nil && s.env.World.Grid().OccupantAt(p.X+dx, p.Y+dy).IsZero()
}

func lowHealth(h *component.Health) bool {
	return h != nil && h.MaxHP > 0 && h.HP*4 <= h.MaxHP
}
