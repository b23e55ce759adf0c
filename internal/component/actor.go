package component

// Actor identifies an entity taking part in rounds.
// Pure data, zero methods; mutations happen in world and system code.
type Actor struct {
	Name     string
	Template string
	Glyph    string
	Player   bool
}

// Energy is the actor's action credit. Accumulated is unbounded above and
// only ever lowered by a full action cost after an affordability check.
type Energy struct {
	Speed       int // credit granted per regeneration
	Accumulated int
}

// Health tracks vitality. Dead is set by the simulation, never by the
// scheduler; the actor stays in the arena until the next cleanup flush.
type Health struct {
	HP    int
	MaxHP int
	Power int // base melee damage fed to the combat script
	Regen int // rounds between passive regeneration ticks (0 = never)
	Acc   int // rounds since last regeneration
	Dead  bool
}

// Position is a grid tile.
type Position struct {
	X int
	Y int
}
