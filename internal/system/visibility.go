package system

import (
	"github.com/l1jgo/turnloop/internal/core/ecs"
	"github.com/l1jgo/turnloop/internal/world"
	"go.uber.org/zap"
)

// Visibility tracks which actors the player can see. It is the turn
// machine's "player action resolved" hook: recomputed once per round in
// which the player moved, never on a timer.
type Visibility struct {
	world   *world.State
	known   map[ecs.EntityID]struct{}
	updates int
	log     *zap.Logger
}

func NewVisibility(ws *world.State, log *zap.Logger) *Visibility {
	return &Visibility{world: ws, known: make(map[ecs.EntityID]struct{}), log: log}
}

// Recompute rebuilds the visible set from the player's sight range and logs
// actors entering or leaving view.
func (v *Visibility) Recompute() {
	v.updates++
	player := v.world.Player()
	pp := v.world.Position(player)
	pb := v.world.Behavior(player)
	if pp == nil || pb == nil {
		return
	}

	current := make(map[ecs.EntityID]struct{}, len(v.known))
	for _, id := range v.world.Snapshot() {
		if id == player || !v.world.Alive(id) {
			continue
		}
		p := v.world.Position(id)
		if p == nil || world.Chebyshev(pp.X, pp.Y, p.X, p.Y) > pb.SightRange {
			continue
		}
		current[id] = struct{}{}
		if _, ok := v.known[id]; !ok {
			v.log.Debug("in view", zap.String("name", v.world.Name(id)))
		}
	}
	for id := range v.known {
		if _, ok := current[id]; !ok {
			v.log.Debug("out of view", zap.String("name", v.world.Name(id)))
		}
	}
	v.known = current
}

// Visible reports whether id was in view at the last recompute.
func (v *Visibility) Visible(id ecs.EntityID) bool {
	_, ok := v.known[id]
	return ok
}

// Count is the size of the visible set.
func (v *Visibility) Count() int { return len(v.known) }

// Updates counts recomputes so far.
func (v *Visibility) Updates() int { return v.updates }
