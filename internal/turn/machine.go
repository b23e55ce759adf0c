package turn

import (
	"time"

	"github.com/l1jgo/turnloop/internal/anim"
	"github.com/l1jgo/turnloop/internal/core/event"
	"github.com/l1jgo/turnloop/internal/round"
	"go.uber.org/zap"
)

// RoundRunner runs one complete round. *round.Scheduler implements it.
type RoundRunner interface {
	Run(roster round.Roster, intent *round.Intent, sink event.Sink) round.Outcome
}

// Machine is the per-frame turn state machine. It is not safe for
// concurrent use; the game loop goroutine owns it.
type Machine struct {
	state    State
	pending  *round.Intent
	seq      *anim.Sequencer
	rounds   RoundRunner
	roster   round.Roster
	sink     event.Sink
	resolved func()
	last     round.Outcome
	log      *zap.Logger
}

func NewMachine(rounds RoundRunner, roster round.Roster, sink event.Sink, log *zap.Logger) *Machine {
	if sink == nil {
		sink = event.Discard
	}
	return &Machine{
		state:  Idle,
		seq:    anim.NewSequencer(),
		rounds: rounds,
		roster: roster,
		sink:   sink,
		log:    log,
	}
}

// OnPlayerActionResolved sets the hook run once after a non-fatal round in
// which the player made a movement-class action, just before playback.
func (m *Machine) OnPlayerActionResolved(fn func()) { m.resolved = fn }

func (m *Machine) State() State               { return m.state }
func (m *Machine) Sequencer() *anim.Sequencer { return m.seq }
func (m *Machine) LastOutcome() round.Outcome { return m.last }

// Submit admits a player intent only from Idle. A refused intent changes
// nothing.
func (m *Machine) Submit(in *round.Intent) bool {
	if in == nil {
		return false
	}
	if m.state != Idle || in.Actor() != m.roster.Player() || !m.roster.Alive(in.Actor()) {
		m.sink.Emit(event.IntentRejected{Actor: in.Actor(), State: m.state.String()})
		return false
	}
	m.pending = in
	if in.IsWindUp() {
		m.seq.Enqueue(in.WindUp())
		m.transition(AwaitingWindUp)
		return true
	}
	m.transition(ProcessingTurn)
	return true
}

// Cancel discards a pending wind-up intent and returns to Idle. It is a
// no-op outside AwaitingWindUp.
func (m *Machine) Cancel(reason string) bool {
	if m.state != AwaitingWindUp {
		return false
	}
	actor := m.pending.Actor()
	m.pending = nil
	m.seq.Clear()
	m.sink.Emit(event.WindUpCancelled{Actor: actor, Reason: reason})
	m.log.Debug("wind-up cancelled", zap.Uint64("actor", uint64(actor)), zap.String("reason", reason))
	m.transition(Idle)
	return true
}

// Step advances the machine by one frame.
func (m *Machine) Step(dt time.Duration) {
	switch m.state {
	case AwaitingWindUp:
		if !m.roster.Alive(m.pending.Actor()) {
			m.Cancel("actor disabled")
			return
		}
		m.seq.Advance(dt)
		if !m.seq.Empty() {
			return
		}
		m.transition(ProcessingTurn)
		m.processTurn()
	case ProcessingTurn:
		m.processTurn()
	case PlayingAnimations:
		m.seq.Advance(dt)
		if m.seq.Empty() {
			m.transition(Idle)
		}
	case GameOver:
		// 終局畫面仍需播完致命回合的動畫，但不再轉移狀態
		m.seq.Advance(dt)
	}
}

// MaxCatchUpRounds bounds how many rounds one turn may run while the
// player saves up for an intent it cannot yet afford.
const MaxCatchUpRounds = 256

// processTurn runs whole rounds within the current frame until the pending
// intent is consumed. A player slower than the intent's price waits out the
// extra rounds while everyone else keeps acting.
func (m *Machine) processTurn() {
	intent := m.pending
	m.pending = nil
	moved := false
	var out round.Outcome
	for n := 0; ; n++ {
		out = m.rounds.Run(m.roster, intent, m.sink)
		for _, a := range out.Animations {
			m.seq.Enqueue(a)
		}
		moved = moved || out.PlayerMoved
		if out.Fatal || intent == nil || out.IntentConsumed {
			break
		}
		if n+1 >= MaxCatchUpRounds || !m.roster.Alive(intent.Actor()) {
			m.log.Warn("player intent never became affordable; dropped",
				zap.Uint64("actor", uint64(intent.Actor())), zap.Int("rounds", n+1))
			break
		}
	}
	m.last = out
	if out.Fatal {
		m.log.Info("player died; game over", zap.Int("round", out.Round), zap.Int("pass", out.Passes))
		m.transition(GameOver)
		return
	}
	if moved && m.resolved != nil {
		m.resolved()
	}
	m.transition(PlayingAnimations)
}

func (m *Machine) transition(to State) {
	from := m.state
	if !CanTransition(from, to) {
		// Unreachable through the public API.
		m.log.Error("illegal turn transition", zap.Stringer("from", from), zap.Stringer("to", to))
		return
	}
	m.state = to
	m.sink.Emit(event.StateChanged{From: from.String(), To: to.String()})
}
