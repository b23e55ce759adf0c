package component

// Disposition selects which AI behaviour drives an NPC this round.
type Disposition int

const (
	Dormant  Disposition = iota // never acts
	Hostile                     // approach and attack the player
	Confused                    // stumble randomly for a few turns
	Fleeing                     // move away from the player
	Scripted                    // decisions come from the Lua actor_ai function
)

func (d Disposition) String() string {
	switch d {
	case Dormant:
		return "dormant"
	case Hostile:
		return "hostile"
	case Confused:
		return "confused"
	case Fleeing:
		return "fleeing"
	case Scripted:
		return "scripted"
	default:
		return "unknown"
	}
}

// ParseDisposition maps a roster string to a Disposition.
func ParseDisposition(s string) (Disposition, bool) {
	switch s {
	case "dormant", "":
		return Dormant, true
	case "hostile":
		return Hostile, true
	case "confused":
		return Confused, true
	case "fleeing":
		return Fleeing, true
	case "scripted":
		return Scripted, true
	}
	return Dormant, false
}

// Behavior holds per-actor AI state.
type Behavior struct {
	Disposition Disposition
	Previous    Disposition // restored when a Confused spell wears off
	Turns       int         // remaining Confused turns
	SightRange  int
}
