// Package geom provides integer voxel geometry: block coordinates, the
// Morton interleavings used as chunk store keys, and the small numeric
// helpers shared by world generation and the redstone engine.
package geom

import (
	"fmt"
	"sort"
)

// Coord identifies a single voxel in the world.
type Coord struct {
	X, Y, Z int32
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Offset returns the coordinate shifted by the given deltas.
func (c Coord) Offset(dx, dy, dz int32) Coord {
	return Coord{c.X + dx, c.Y + dy, c.Z + dz}
}

// HorizontalNeighbors returns the four horizontally adjacent coordinates in
// a fixed order.
func (c Coord) HorizontalNeighbors() [4]Coord {
	return [4]Coord{
		{c.X - 1, c.Y, c.Z},
		{c.X + 1, c.Y, c.Z},
		{c.X, c.Y, c.Z - 1},
		{c.X, c.Y, c.Z + 1},
	}
}

// FaceNeighbors returns all six face-adjacent coordinates in a fixed order.
func (c Coord) FaceNeighbors() [6]Coord {
	return [6]Coord{
		{c.X - 1, c.Y, c.Z},
		{c.X + 1, c.Y, c.Z},
		{c.X, c.Y - 1, c.Z},
		{c.X, c.Y + 1, c.Z},
		{c.X, c.Y, c.Z - 1},
		{c.X, c.Y, c.Z + 1},
	}
}

// Less orders coordinates lexicographically by (X, Y, Z).
func (c Coord) Less(o Coord) bool {
	if c.X != o.X {
		return c.X < o.X
	}
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.Z < o.Z
}

// SortCoords sorts a coordinate slice lexicographically in place.
func SortCoords(cs []Coord) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Less(cs[j]) })
}
