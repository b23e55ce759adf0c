package system

import "time"

// Phase orders systems within one rendered frame.
type Phase int

const (
	PhaseInput    Phase = iota // 0: admit at most one player intent
	PhaseDispatch              // 1: deliver last frame's turn events
	PhaseUpdate                // 2: drive the turn state machine
	PhasePersist               // 3: flush the round journal
	PhaseCleanup               // 4: destroy actors that died this frame
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseDispatch:
		return "dispatch"
	case PhaseUpdate:
		return "update"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// System is anything stepped once per frame.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
