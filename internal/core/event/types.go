package event

import (
	"time"

	"github.com/l1jgo/turnloop/internal/core/ecs"
)

// Event is one turn-resolution record.
type Event interface {
	EventName() string
}

// RoundStarted is emitted after regeneration, before the first pass.
type RoundStarted struct {
	Round  int
	Actors int // snapshot size
}

// ActorActed is emitted when an actor's returned action ran to completion.
type ActorActed struct {
	Round    int
	Pass     int
	Actor    ecs.EntityID
	Player   bool
	Movement bool
	Died     bool // the action reported that an actor died
}

// ActorWaited is emitted when an eligible actor returned no action. The
// opportunity is still paid for.
type ActorWaited struct {
	Round int
	Pass  int
	Actor ecs.EntityID
}

// ActionFailed is emitted when executing or deciding an action failed; the
// actor's turn counts as a no-op.
type ActionFailed struct {
	Round int
	Pass  int
	Actor ecs.EntityID
	Err   error
}

// PlayerDied is emitted when the player is found dead mid-round. No actor
// acts after it in the same round.
type PlayerDied struct {
	Round int
	Pass  int
	By    ecs.EntityID // actor whose action was running
}

// RoundEnded closes a round.
type RoundEnded struct {
	Round      int
	Passes     int
	Actions    int
	Fatal      bool
	CapReached bool
	Took       time.Duration
}

// StateChanged is emitted on every turn state transition.
type StateChanged struct {
	From string
	To   string
}

// WindUpCancelled is emitted when a pending wind-up intent is discarded.
type WindUpCancelled struct {
	Actor  ecs.EntityID
	Reason string
}

// IntentRejected is emitted when a submission is refused.
type IntentRejected struct {
	Actor ecs.EntityID
	State string
}

func (RoundStarted) EventName() string    { return "round_started" }
func (ActorActed) EventName() string      { return "actor_acted" }
func (ActorWaited) EventName() string     { return "actor_waited" }
func (ActionFailed) EventName() string    { return "action_failed" }
func (PlayerDied) EventName() string      { return "player_died" }
func (RoundEnded) EventName() string      { return "round_ended" }
func (StateChanged) EventName() string    { return "state_changed" }
func (WindUpCancelled) EventName() string { return "windup_cancelled" }
func (IntentRejected) EventName() string  { return "intent_rejected" }
