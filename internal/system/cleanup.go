package system

import (
	"time"

	coresys "github.com/l1jgo/turnloop/internal/core/system"
	"github.com/l1jgo/turnloop/internal/world"
	"go.uber.org/zap"
)

// CleanupSystem flushes the deferred actor destruction queue at frame end,
// after any round that ran this frame has finished iterating its snapshot.
// Phase 4 (Cleanup).
type CleanupSystem struct {
	world *world.State
	log   *zap.Logger
}

func NewCleanupSystem(ws *world.State, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{world: ws, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	if n := s.world.Flush(); n > 0 {
		s.log.Debug("destroyed actors", zap.Int("count", n))
	}
}
