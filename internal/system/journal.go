package system

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/l1jgo/turnloop/internal/core/event"
	coresys "github.com/l1jgo/turnloop/internal/core/system"
	"github.com/l1jgo/turnloop/internal/persist"
	"go.uber.org/zap"
)

// JournalSystem records every finished round, chains its digest and flushes
// the batch to the journal store every interval frames. Phase 3 (Persist).
// A nil store keeps the digest chain but writes nothing.
type JournalSystem struct {
	store     persist.JournalStore
	chain     persist.Chain
	runID     uuid.UUID
	acts      []persist.ActRecord
	pending   []persist.RoundRecord
	rounds    int
	log       *zap.Logger
	tickCount int
	interval  int // flush every N frames
}

func NewJournalSystem(bus *event.Bus, store persist.JournalStore, intervalFrames int, log *zap.Logger) *JournalSystem {
	if intervalFrames <= 0 {
		intervalFrames = 1
	}
	s := &JournalSystem{
		store:    store,
		runID:    uuid.New(),
		log:      log,
		interval: intervalFrames,
	}
	event.Subscribe(bus, s.onActed)
	event.Subscribe(bus, s.onRoundEnded)
	return s
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalSystem) onActed(ev event.ActorActed) {
	s.acts = append(s.acts, persist.ActRecord{
		Pass:     ev.Pass,
		Actor:    uint64(ev.Actor),
		Player:   ev.Player,
		Movement: ev.Movement,
		Died:     ev.Died,
	})
}

func (s *JournalSystem) onRoundEnded(ev event.RoundEnded) {
	rec := persist.RoundRecord{
		RunID:      s.runID,
		Round:      ev.Round,
		Passes:     ev.Passes,
		Actions:    ev.Actions,
		Fatal:      ev.Fatal,
		CapReached: ev.CapReached,
		Took:       ev.Took,
		Acts:       s.acts,
		RecordedAt: time.Now(),
	}
	s.acts = nil
	s.chain.Seal(&rec)
	s.rounds++
	if s.store != nil {
		s.pending = append(s.pending, rec)
	}
}

func (s *JournalSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.Flush()
}

// Flush writes pending rounds immediately. Called for graceful shutdown.
// A failed batch stays pending and is retried on the next flush.
func (s *JournalSystem) Flush() {
	if s.store == nil || len(s.pending) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Append(ctx, s.pending); err != nil {
		s.log.Error("journal flush failed", zap.Error(err), zap.Int("rounds", len(s.pending)))
		return
	}
	s.pending = s.pending[:0]
}

func (s *JournalSystem) RunID() uuid.UUID { return s.runID }

// Rounds counts rounds recorded so far.
func (s *JournalSystem) Rounds() int { return s.rounds }

// Pending counts rounds waiting for the next flush.
func (s *JournalSystem) Pending() int { return len(s.pending) }

// Head is the digest of the last recorded round.
func (s *JournalSystem) Head() []byte { return s.chain.Head() }
