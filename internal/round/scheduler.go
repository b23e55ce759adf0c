package round

import (
	"fmt"
	"time"

	"github.com/l1jgo/turnloop/internal/config"
	"github.com/l1jgo/turnloop/internal/core/ecs"
	"github.com/l1jgo/turnloop/internal/core/event"
	"github.com/l1jgo/turnloop/internal/energy"
	"go.uber.org/zap"
)

// DefaultPassCap bounds passes per round when the config leaves it unset.
const DefaultPassCap = 50

// Scheduler runs rounds. Fairness comes only from energy credit; the snapshot
// order is the sole tie-break and actors are never re-sorted.
type Scheduler struct {
	cost    int
	passCap int
	decider DecisionSource
	hook    RoundEndHook
	log     *zap.Logger
	round   int
}

// NewScheduler builds a scheduler. hook may be nil.
func NewScheduler(cfg config.SchedulerConfig, decider DecisionSource, hook RoundEndHook, log *zap.Logger) *Scheduler {
	passCap := cfg.PassCap
	if passCap <= 0 {
		passCap = DefaultPassCap
	}
	if p := energy.ValidateCost(cfg.ActionCost); p != "" {
		log.Warn("scheduler misconfigured", zap.Int("action_cost", cfg.ActionCost), zap.String("problem", string(p)))
	}
	return &Scheduler{
		cost:    cfg.ActionCost,
		passCap: passCap,
		decider: decider,
		hook:    hook,
		log:     log,
	}
}

// Rounds returns how many rounds have run.
func (s *Scheduler) Rounds() int { return s.round }

// Run executes one full round synchronously. intent may be nil; when set it
// is the player's action for the first pass the player can afford, and is
// used at most once. Events go to sink only.
func (s *Scheduler) Run(roster Roster, intent *Intent, sink event.Sink) Outcome {
	start := time.Now()
	s.round++
	out := Outcome{Round: s.round}
	player := roster.Player()
	hasPlayer := !player.IsZero()

	snap := roster.Snapshot()
	for _, id := range snap {
		if !roster.Alive(id) {
			continue
		}
		if e := roster.Energy(id); e != nil {
			energy.Regenerate(e)
		}
	}
	sink.Emit(event.RoundStarted{Round: s.round, Actors: len(snap)})

	ctx := &Context{Round: s.round, Player: player, Roster: roster}
	if hasPlayer && !roster.Alive(player) {
		out.Fatal = true
		sink.Emit(event.PlayerDied{Round: s.round})
		s.finish(&out, sink, start)
		return out
	}
	s.decider.Update(ctx)

	pending := intent
passes:
	for pass := 1; pass <= s.passCap; pass++ {
		out.Passes = pass
		ctx.Pass = pass
		acted := false

		for _, id := range snap {
			if !roster.Alive(id) {
				continue
			}
			e := roster.Energy(id)
			if e == nil {
				continue
			}

			isPlayer := hasPlayer && id == player
			price := s.cost
			if isPlayer && pending != nil && pending.Cost() > 0 {
				price = pending.Cost()
			}
			if !energy.CanAfford(e, price) {
				continue
			}

			var act Action
			var err error
			if isPlayer {
				if pending != nil {
					act = pending.Action()
					pending = nil
					out.IntentConsumed = true
				}
			} else {
				act, err = s.decide(ctx, id)
			}
			// Paid whether or not an action came back.
			energy.Spend(e, price)

			if err != nil {
				s.fail(&out, sink, pass, id, err)
				continue
			}
			if act == nil {
				sink.Emit(event.ActorWaited{Round: s.round, Pass: pass, Actor: id})
				continue
			}

			acted = true
			out.Actions++
			res, err := execute(act)
			if err != nil {
				s.fail(&out, sink, pass, id, err)
			} else {
				if res.Animation != nil {
					out.Animations = append(out.Animations, res.Animation)
				}
				if isPlayer && res.Movement {
					out.PlayerMoved = true
				}
				sink.Emit(event.ActorActed{
					Round:    s.round,
					Pass:     pass,
					Actor:    id,
					Player:   isPlayer,
					Movement: res.Movement,
					Died:     res.ActorDied,
				})
			}

			if hasPlayer && !roster.Alive(player) {
				out.Fatal = true
				sink.Emit(event.PlayerDied{Round: s.round, Pass: pass, By: id})
				break passes
			}
		}

		if !acted {
			break
		}
		if pass == s.passCap {
			out.CapReached = true
			s.log.Warn("round hit pass cap; check action_cost and actor speeds",
				zap.Int("round", s.round),
				zap.Int("pass_cap", s.passCap),
				zap.Int("action_cost", s.cost),
			)
		}
	}

	if !out.Fatal && s.hook != nil {
		for _, id := range snap {
			if roster.Alive(id) {
				s.hook.OnRoundEnd(id)
			}
		}
	}
	if pending != nil {
		s.log.Debug("player intent not affordable this round",
			zap.Uint64("actor", uint64(pending.Actor())), zap.Int("round", s.round))
	}
	s.finish(&out, sink, start)
	return out
}

func (s *Scheduler) finish(out *Outcome, sink event.Sink, start time.Time) {
	sink.Emit(event.RoundEnded{
		Round:      out.Round,
		Passes:     out.Passes,
		Actions:    out.Actions,
		Fatal:      out.Fatal,
		CapReached: out.CapReached,
		Took:       time.Since(start),
	})
}

func (s *Scheduler) fail(out *Outcome, sink event.Sink, pass int, id ecs.EntityID, err error) {
	out.Failures++
	s.log.Error("actor action failed; treated as no-op",
		zap.Int("round", s.round),
		zap.Int("pass", pass),
		zap.Uint64("actor", uint64(id)),
		zap.Error(err),
	)
	sink.Emit(event.ActionFailed{Round: s.round, Pass: pass, Actor: id, Err: err})
}

// decide isolates a panicking decision source to the one actor.
func (s *Scheduler) decide(ctx *Context, id ecs.EntityID) (act Action, err error) {
	defer func() {
		if r := recover(); r != nil {
			act, err = nil, fmt.Errorf("decide panicked: %v", r)
		}
	}()
	return s.decider.Decide(ctx, id), nil
}

// execute isolates a failing action to the one actor.
func execute(a Action) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, fmt.Errorf("execute panicked: %v", r)
		}
	}()
	res, err = a.Execute()
	if err != nil {
		return Result{}, fmt.Errorf("execute: %w", err)
	}
	return res, nil
}
