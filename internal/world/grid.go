package world

import "github.com/l1jgo/turnloop/internal/core/ecs"

// Grid is a tile occupancy map for O(1) collision checks. One occupant per
// tile; corpses vacate their tile when killed.
type Grid struct {
	width, height int
	tiles         map[tile]ecs.EntityID
}

type tile struct{ X, Y int }

func newGrid(width, height int) *Grid {
	return &Grid{width: width, height: height, tiles: make(map[tile]ecs.EntityID)}
}

func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

// Occupy claims a tile; false if taken or out of bounds.
func (g *Grid) Occupy(x, y int, id ecs.EntityID) bool {
	if !g.InBounds(x, y) {
		return false
	}
	k := tile{x, y}
	if cur, ok := g.tiles[k]; ok && cur != id {
		return false
	}
	g.tiles[k] = id
	return true
}

// Vacate frees a tile if id holds it.
func (g *Grid) Vacate(x, y int, id ecs.EntityID) {
	k := tile{x, y}
	if g.tiles[k] == id {
		delete(g.tiles, k)
	}
}

// OccupantAt returns the actor on the tile, or the zero id.
func (g *Grid) OccupantAt(x, y int) ecs.EntityID {
	return g.tiles[tile{x, y}]
}

// Chebyshev is the king-move distance between two tiles.
func Chebyshev(ax, ay, bx, by int) int {
	dx := ax - bx
	if dx < 0 {
		dx = -dx
	}
	dy := ay - by
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}
