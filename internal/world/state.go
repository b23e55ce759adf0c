package world

import (
	"fmt"

	"github.com/l1jgo/turnloop/internal/component"
	"github.com/l1jgo/turnloop/internal/core/ecs"
	"github.com/l1jgo/turnloop/internal/energy"
	"go.uber.org/zap"
)

// SpawnSpec is everything needed to place one actor.
type SpawnSpec struct {
	Name        string
	Template    string
	Glyph       string
	Player      bool
	Speed       int
	HP          int
	Power       int
	Regen       int
	Sight       int
	Disposition component.Disposition
	X, Y        int
}

// State is the simulation world the turn loop acts on. It owns the actor
// arena; the scheduler only reads it through round.Roster and touches
// Energy.Accumulated.
// Single-goroutine access only (game loop).
type State struct {
	arena     *ecs.World
	actors    *ecs.Store[component.Actor]
	energy    *ecs.Store[component.Energy]
	health    *ecs.Store[component.Health]
	positions *ecs.Store[component.Position]
	behaviors *ecs.Store[component.Behavior]
	grid      *Grid
	player    ecs.EntityID
	log       *zap.Logger
}

func NewState(width, height int, log *zap.Logger) *State {
	s := &State{
		arena:     ecs.NewWorld(),
		actors:    ecs.NewStore[component.Actor](),
		energy:    ecs.NewStore[component.Energy](),
		health:    ecs.NewStore[component.Health](),
		positions: ecs.NewStore[component.Position](),
		behaviors: ecs.NewStore[component.Behavior](),
		grid:      newGrid(width, height),
		log:       log,
	}
	s.arena.Register(s.actors)
	s.arena.Register(s.energy)
	s.arena.Register(s.health)
	s.arena.Register(s.positions)
	s.arena.Register(s.behaviors)
	return s
}

// Spawn places an actor. At most one player may exist.
func (s *State) Spawn(spec SpawnSpec) (ecs.EntityID, error) {
	if spec.Player && !s.player.IsZero() {
		return 0, fmt.Errorf("spawn %s: player already spawned", spec.Name)
	}
	if !s.grid.InBounds(spec.X, spec.Y) {
		return 0, fmt.Errorf("spawn %s: (%d,%d) out of bounds", spec.Name, spec.X, spec.Y)
	}
	if occ := s.grid.OccupantAt(spec.X, spec.Y); !occ.IsZero() {
		return 0, fmt.Errorf("spawn %s: (%d,%d) occupied", spec.Name, spec.X, spec.Y)
	}
	if p := energy.ValidateSpeed(spec.Speed); p != "" {
		s.log.Warn("actor misconfigured", zap.String("name", spec.Name), zap.Int("speed", spec.Speed), zap.String("problem", string(p)))
	}

	id := s.arena.CreateEntity()
	s.actors.Set(id, &component.Actor{Name: spec.Name, Template: spec.Template, Glyph: spec.Glyph, Player: spec.Player})
	s.energy.Set(id, &component.Energy{Speed: spec.Speed})
	s.health.Set(id, &component.Health{HP: spec.HP, MaxHP: spec.HP, Power: spec.Power, Regen: spec.Regen})
	s.positions.Set(id, &component.Position{X: spec.X, Y: spec.Y})
	s.behaviors.Set(id, &component.Behavior{Disposition: spec.Disposition, Previous: spec.Disposition, SightRange: spec.Sight})
	s.grid.Occupy(spec.X, spec.Y, id)
	if spec.Player {
		s.player = id
	}
	return id, nil
}

// --- round.Roster ---

func (s *State) Snapshot() []ecs.EntityID { return s.arena.Snapshot() }

// Alive is false once an actor is killed, even before the destroy flush.
func (s *State) Alive(id ecs.EntityID) bool {
	if !s.arena.Alive(id) {
		return false
	}
	h, ok := s.health.Get(id)
	return !ok || !h.Dead
}

func (s *State) Energy(id ecs.EntityID) *component.Energy {
	e, _ := s.energy.Get(id)
	return e
}

func (s *State) Player() ecs.EntityID { return s.player }

// --- component access ---

func (s *State) Actor(id ecs.EntityID) *component.Actor {
	a, _ := s.actors.Get(id)
	return a
}

func (s *State) Health(id ecs.EntityID) *component.Health {
	h, _ := s.health.Get(id)
	return h
}

func (s *State) Position(id ecs.EntityID) *component.Position {
	p, _ := s.positions.Get(id)
	return p
}

func (s *State) Behavior(id ecs.EntityID) *component.Behavior {
	b, _ := s.behaviors.Get(id)
	return b
}

func (s *State) Grid() *Grid { return s.grid }

// Name is a log-friendly label.
func (s *State) Name(id ecs.EntityID) string {
	if a := s.Actor(id); a != nil {
		return a.Name
	}
	return fmt.Sprintf("#%d", id.Index())
}

// --- mutation ---

// MoveTo steps an actor onto a free in-bounds tile.
func (s *State) MoveTo(id ecs.EntityID, x, y int) bool {
	p := s.Position(id)
	if p == nil || !s.Alive(id) {
		return false
	}
	if !s.grid.Occupy(x, y, id) {
		return false
	}
	s.grid.Vacate(p.X, p.Y, id)
	p.X, p.Y = x, y
	return true
}

// Damage lowers HP and kills at zero. Returns true if this call killed.
func (s *State) Damage(id ecs.EntityID, amount int) bool {
	h := s.Health(id)
	if h == nil || h.Dead || amount <= 0 {
		return false
	}
	h.HP -= amount
	if h.HP > 0 {
		return false
	}
	h.HP = 0
	s.Kill(id)
	return true
}

// Kill marks an actor dead and queues it for destruction. The handle stays
// valid (Alive reports false) until Flush; the player is never destroyed so
// the final frame can still show it.
func (s *State) Kill(id ecs.EntityID) {
	h := s.Health(id)
	if h == nil || h.Dead {
		return
	}
	h.Dead = true
	if p := s.Position(id); p != nil {
		s.grid.Vacate(p.X, p.Y, id)
	}
	s.log.Debug("actor died", zap.String("name", s.Name(id)))
	if id != s.player {
		s.arena.MarkForDestruction(id)
	}
}

// Flush destroys actors killed since the last flush.
func (s *State) Flush() int { return s.arena.FlushDestroyQueue() }

// Living counts actors that are still alive.
func (s *State) Living() int {
	n := 0
	for _, id := range s.arena.Snapshot() {
		if s.Alive(id) {
			n++
		}
	}
	return n
}

// Nearest finds the closest living actor other than from that satisfies
// match, by Chebyshev distance; ties go to creation order.
func (s *State) Nearest(from ecs.EntityID, match func(ecs.EntityID) bool) (ecs.EntityID, int) {
	origin := s.Position(from)
	if origin == nil {
		return 0, 0
	}
	var best ecs.EntityID
	bestDist := -1
	for _, id := range s.arena.Snapshot() {
		if id == from || !s.Alive(id) || (match != nil && !match(id)) {
			continue
		}
		p := s.Position(id)
		if p == nil {
			continue
		}
		d := Chebyshev(origin.X, origin.Y, p.X, p.Y)
		if bestDist < 0 || d < bestDist {
			best, bestDist = id, d
		}
	}
	return best, bestDist
}
