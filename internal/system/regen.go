package system

import (
	"github.com/l1jgo/turnloop/internal/core/ecs"
	"github.com/l1jgo/turnloop/internal/scripting"
	"github.com/l1jgo/turnloop/internal/world"
	"go.uber.org/zap"
)

// Regenerator computes passive HP recovery. *scripting.Engine implements it.
type Regenerator interface {
	CalcRegen(ctx scripting.RegenContext) int
}

// RegenHook is the end-of-round hook: every actor with a Regen interval
// recovers HP once per that many rounds. Each actor keeps its own counter
// in Health.Acc.
type RegenHook struct {
	world *world.State
	lua   Regenerator
	log   *zap.Logger
}

func NewRegenHook(ws *world.State, lua Regenerator, log *zap.Logger) *RegenHook {
	return &RegenHook{world: ws, lua: lua, log: log}
}

// OnRoundEnd implements round.RoundEndHook.
func (h *RegenHook) OnRoundEnd(id ecs.EntityID) {
	hp := h.world.Health(id)
	if hp == nil || hp.Dead || hp.Regen <= 0 {
		return
	}
	hp.Acc++
	if hp.Acc < hp.Regen {
		return
	}
	hp.Acc = 0
	if hp.HP >= hp.MaxHP {
		return
	}

	gain := h.lua.CalcRegen(scripting.RegenContext{HP: hp.HP, MaxHP: hp.MaxHP})
	if gain <= 0 {
		return
	}
	hp.HP += gain
	if hp.HP > hp.MaxHP {
		hp.HP = hp.MaxHP
	}
	h.log.Debug("regen", zap.String("name", h.world.Name(id)), zap.Int("gain", gain), zap.Int("hp", hp.HP))
}
