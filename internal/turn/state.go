// Package turn coordinates the frame-stepped turn loop: admission of the
// player's intent, the optional wind-up, the synchronous round, and the
// animation playback that must finish before the next intent is accepted.
//
// Transitions form one path plus two exits:
//
//	Idle -> [AwaitingWindUp ->] ProcessingTurn -> PlayingAnimations -> Idle
//	AwaitingWindUp -> Idle        (wind-up cancelled)
//	ProcessingTurn -> GameOver    (player died; terminal)
package turn

// State is the turn loop's current phase.
type State int

const (
	Idle State = iota
	AwaitingWindUp
	ProcessingTurn
	PlayingAnimations
	GameOver
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingWindUp:
		return "awaiting_windup"
	case ProcessingTurn:
		return "processing_turn"
	case PlayingAnimations:
		return "playing_animations"
	case GameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to State) bool {
	switch from {
	case Idle:
		return to == AwaitingWindUp || to == ProcessingTurn
	case AwaitingWindUp:
		return to == ProcessingTurn || to == Idle
	case ProcessingTurn:
		return to == PlayingAnimations || to == GameOver
	case PlayingAnimations:
		return to == Idle
	}
	return false
}
