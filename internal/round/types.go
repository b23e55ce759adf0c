// Package round runs one scheduling round: every living actor gets zero or
// more action opportunities, paid for out of its energy credit.
package round

import (
	"github.com/l1jgo/turnloop/internal/anim"
	"github.com/l1jgo/turnloop/internal/component"
	"github.com/l1jgo/turnloop/internal/core/ecs"
)

// Action is a resolved decision. The scheduler only learns what Execute
// reports back; what the action does is up to the implementation.
type Action interface {
	Execute() (Result, error)
}

// Result is what executing an action reports to the scheduler.
type Result struct {
	Animation anim.Animation // played after the round, nil for none
	ActorDied bool           // some actor died as a consequence
	Movement  bool           // movement-class action; triggers the visibility hook
}

// Roster is the scheduler's view of the actor arena.
type Roster interface {
	// Snapshot returns the actor handles in creation order.
	Snapshot() []ecs.EntityID
	Alive(id ecs.EntityID) bool
	// Energy returns the actor's credit, or nil if it has none.
	Energy(id ecs.EntityID) *component.Energy
	// Player returns the designated player actor, or the zero id.
	Player() ecs.EntityID
}

// Context is handed to the decision source.
type Context struct {
	Round  int
	Pass   int
	Player ecs.EntityID
	Roster Roster
}

// DecisionSource picks NPC actions. Update runs once per round before any
// actor is queried; Decide runs at most once per actor per pass and may
// return nil to wait.
type DecisionSource interface {
	Update(ctx *Context)
	Decide(ctx *Context, actor ecs.EntityID) Action
}

// RoundEndHook runs once for every living actor after a non-fatal round.
type RoundEndHook interface {
	OnRoundEnd(actor ecs.EntityID)
}

// Intent is the player's submitted decision. It is immutable: a changed
// decision is a new Intent.
type Intent struct {
	actor  ecs.EntityID
	action Action
	cost   int
	windUp anim.Animation
}

// Immediate builds an intent that resolves on the next frame.
func Immediate(actor ecs.EntityID, action Action, cost int) *Intent {
	return &Intent{actor: actor, action: action, cost: cost}
}

// WithWindUp builds an intent whose windUp animation must finish before the
// round runs. A nil windUp yields an immediate intent.
func WithWindUp(actor ecs.EntityID, action Action, cost int, windUp anim.Animation) *Intent {
	return &Intent{actor: actor, action: action, cost: cost, windUp: windUp}
}

func (i *Intent) Actor() ecs.EntityID    { return i.actor }
func (i *Intent) Action() Action         { return i.action }
func (i *Intent) WindUp() anim.Animation { return i.windUp }
func (i *Intent) IsWindUp() bool         { return i.windUp != nil }

// Cost is the price of this intent's opportunity; 0 means the shared cost.
func (i *Intent) Cost() int { return i.cost }

// Outcome summarises one round.
type Outcome struct {
	Round          int
	Passes         int
	Actions        int // non-nil actions returned, failures included
	Failures       int
	Fatal          bool // the player died; the round stopped there
	CapReached     bool
	PlayerMoved    bool
	IntentConsumed bool
	Animations     []anim.Animation
}
