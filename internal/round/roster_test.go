package round

import (
	"errors"

	"github.com/l1jgo/turnloop/internal/component"
	"github.com/l1jgo/turnloop/internal/core/ecs"
)

// fakeRoster is an in-memory Roster for scheduler tests.
type fakeRoster struct {
	order  []ecs.EntityID
	energy map[ecs.EntityID]*component.Energy
	dead   map[ecs.EntityID]bool
	player ecs.EntityID
}

func newFakeRoster() *fakeRoster {
	return &fakeRoster{
		energy: make(map[ecs.EntityID]*component.Energy),
		dead:   make(map[ecs.EntityID]bool),
	}
}

func (r *fakeRoster) add(speed int) ecs.EntityID {
	id := ecs.NewEntityID(uint32(len(r.order)+1), 0)
	r.order = append(r.order, id)
	r.energy[id] = &component.Energy{Speed: speed}
	return id
}

func (r *fakeRoster) Snapshot() []ecs.EntityID {
	out := make([]ecs.EntityID, len(r.order))
	copy(out, r.order)
	return out
}
func (r *fakeRoster) Alive(id ecs.EntityID) bool               { return !r.dead[id] }
func (r *fakeRoster) Energy(id ecs.EntityID) *component.Energy { return r.energy[id] }
func (r *fakeRoster) Player() ecs.EntityID                     { return r.player }

// scriptedDecider returns whatever the per-actor function yields.
type scriptedDecider struct {
	updates int
	decide  func(ctx *Context, id ecs.EntityID) Action
	queried map[ecs.EntityID]int
}

func (d *scriptedDecider) Update(*Context) { d.updates++ }

func (d *scriptedDecider) Decide(ctx *Context, id ecs.EntityID) Action {
	if d.queried == nil {
		d.queried = make(map[ecs.EntityID]int)
	}
	d.queried[id]++
	if d.decide == nil {
		return nil
	}
	return d.decide(ctx, id)
}

// countAction records executions.
type countAction struct {
	log *[]ecs.EntityID
	id  ecs.EntityID
	res Result
	run func()
}

func (a countAction) Execute() (Result, error) {
	*a.log = append(*a.log, a.id)
	if a.run != nil {
		a.run()
	}
	return a.res, nil
}

type failAction struct{}

func (failAction) Execute() (Result, error) { return Result{}, errors.New("blocked by wall") }

type panicAction struct{}

func (panicAction) Execute() (Result, error) { panic("nil target") }

type hookRecorder struct{ ids []ecs.EntityID }

func (h *hookRecorder) OnRoundEnd(id ecs.EntityID) { h.ids = append(h.ids, id) }
