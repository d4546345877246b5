package redstone

import (
	"fmt"

	"github.com/obsidiand/obsidiand/internal/geom"
	"github.com/obsidiand/obsidiand/pkg/alpha"
)

// Asic is the circuit graph for one world: the coordinate-keyed owner of
// every live circuit. Not safe for concurrent mutation; callers serialise
// block edits and propagation passes.
//
// The name comes from the acronym "ASIC", an application-specific
// integrated circuit.
type Asic struct {
	cat      Catalog
	circuits map[geom.Coord]*Circuit
}

// NewAsic creates an empty circuit graph backed by the given catalog.
func NewAsic(cat Catalog) *Asic {
	return &Asic{
		cat:      cat,
		circuits: make(map[geom.Coord]*Circuit),
	}
}

// Catalog returns the injected block catalog.
func (a *Asic) Catalog() Catalog { return a.cat }

// Len returns the number of attached circuits.
func (a *Asic) Len() int { return len(a.circuits) }

// At returns the circuit attached at the coordinate, if any.
func (a *Asic) At(p geom.Coord) (*Circuit, bool) {
	c, ok := a.circuits[p]
	return c, ok
}

// Circuits returns a snapshot of all attached circuits, sorted by
// coordinate. Ordering is fixed only so that callers iterating the graph
// (status API, rebuild audits) see a reproducible sequence.
func (a *Asic) Circuits() []*Circuit {
	coords := make([]geom.Coord, 0, len(a.circuits))
	for p := range a.circuits {
		coords = append(coords, p)
	}
	geom.SortCoords(coords)
	out := make([]*Circuit, len(coords))
	for i, p := range coords {
		out[i] = a.circuits[p]
	}
	return out
}

// Attach inserts the circuit into the graph and traces edges to its face
// neighbors. Fails with ErrOccupied, leaving the graph unchanged, if the
// slot already holds a different circuit. Re-attaching the same circuit is
// idempotent.
func (a *Asic) Attach(c *Circuit) error {
	if cur, ok := a.circuits[c.coords]; ok && cur != c {
		return fmt.Errorf("%w: %s", ErrOccupied, c.coords)
	}
	a.circuits[c.coords] = c

	for _, p := range c.coords.FaceNeighbors() {
		n, ok := a.circuits[p]
		if !ok {
			continue
		}
		if a.edgeAllowed(n, c) {
			n.outputs[c.coords] = struct{}{}
			c.inputs[p] = struct{}{}
		}
		if a.edgeAllowed(c, n) {
			c.outputs[p] = struct{}{}
			n.inputs[c.coords] = struct{}{}
		}
	}
	return nil
}

// Detach removes the circuit from the graph, releasing every inbound and
// outbound edge before erasing the map entry so no dangling references
// survive. Fails with ErrNotAttached if the coordinate is empty, or
// ErrMismatch if the slot holds a different circuit.
func (a *Asic) Detach(c *Circuit) error {
	cur, ok := a.circuits[c.coords]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotAttached, c.coords)
	}
	if cur != c {
		return fmt.Errorf("%w: %s", ErrMismatch, c.coords)
	}

	for p := range c.inputs {
		if n, ok := a.circuits[p]; ok {
			delete(n.outputs, c.coords)
		}
	}
	for p := range c.outputs {
		if n, ok := a.circuits[p]; ok {
			delete(n.inputs, c.coords)
		}
	}
	c.inputs = make(map[geom.Coord]struct{})
	c.outputs = make(map[geom.Coord]struct{})

	delete(a.circuits, c.coords)
	return nil
}

// Materialize builds the circuit for a block/metadata pair and attaches
// it. Construction failures (ErrBadOrientation, non-circuit block) leave
// the graph unchanged.
func (a *Asic) Materialize(p geom.Coord, block alpha.BlockID, meta byte) (*Circuit, error) {
	c, err := NewCircuit(a.cat, p, block, meta)
	if err != nil {
		return nil, err
	}
	if err := a.Attach(c); err != nil {
		return nil, err
	}
	return c, nil
}

// edgeAllowed reports whether signal may flow src → dst. The kind matrix
// decides which pairs can ever connect; an oriented endpoint pins the
// edge to its own connectivity scan, and edges between unoriented gates
// require plain horizontal adjacency.
func (a *Asic) edgeAllowed(src, dst *Circuit) bool {
	if !Traceable(src.kind, dst.kind) {
		return false
	}
	if src.kind.Oriented() && !containsCoord(src.OutputCoords(), dst.coords) {
		return false
	}
	if dst.kind.Oriented() && !containsCoord(dst.InputCoords(), src.coords) {
		return false
	}
	if !src.kind.Oriented() && !dst.kind.Oriented() {
		return horizontallyAdjacent(src.coords, dst.coords)
	}
	return true
}

func containsCoord(cs []geom.Coord, p geom.Coord) bool {
	for _, c := range cs {
		if c == p {
			return true
		}
	}
	return false
}

func horizontallyAdjacent(p, q geom.Coord) bool {
	if p.Y != q.Y {
		return false
	}
	dx, dz := p.X-q.X, p.Z-q.Z
	return dx*dx+dz*dz == 1
}

// WireGroup returns the maximal connected component of wires reachable
// from the coordinate through horizontal wire-wire adjacency, sorted by
// coordinate. Returns nil if the coordinate is absent or not a wire.
//
// The walk is breadth-first over geometric neighbors rather than traced
// edges: wires are bidirectional on their own kind even though no
// wire→wire edges exist in the graph.
func (a *Asic) WireGroup(p geom.Coord) []*Circuit {
	root, ok := a.circuits[p]
	if !ok || root.kind != KindWire {
		return nil
	}

	queue := []*Circuit{root}
	seen := map[geom.Coord]struct{}{p: {}}
	var group []*Circuit

	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]
		group = append(group, w)

		for _, q := range w.coords.HorizontalNeighbors() {
			if _, ok := seen[q]; ok {
				continue
			}
			n, ok := a.circuits[q]
			if !ok || n.kind != KindWire {
				continue
			}
			seen[q] = struct{}{}
			queue = append(queue, n)
		}
	}

	sortCircuits(group)
	return group
}

func sortCircuits(cs []*Circuit) {
	coords := make([]geom.Coord, len(cs))
	byCoord := make(map[geom.Coord]*Circuit, len(cs))
	for i, c := range cs {
		coords[i] = c.coords
		byCoord[c.coords] = c
	}
	geom.SortCoords(coords)
	for i, p := range coords {
		cs[i] = byCoord[p]
	}
}
