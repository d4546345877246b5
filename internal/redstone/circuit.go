package redstone

import (
	"fmt"

	"github.com/obsidiand/obsidiand/internal/geom"
	"github.com/obsidiand/obsidiand/pkg/alpha"
)

// Circuit is a single gate materialised at one coordinate. The Asic is the
// sole owner of every live Circuit; edges are stored as coordinate sets and
// dereferenced through the Asic's map, never as owning references.
type Circuit struct {
	coords      geom.Coord
	kind        Kind
	orientation alpha.Face
	status      bool
	block       alpha.BlockID
	meta        byte

	inputs  map[geom.Coord]struct{}
	outputs map[geom.Coord]struct{}
}

// NewCircuit builds the gate for a block/metadata pair. The catalog decides
// the kind and, for torches and levers, the mounting face; metadata that
// does not decode to a face fails with ErrBadOrientation.
func NewCircuit(cat Catalog, coords geom.Coord, block alpha.BlockID, meta byte) (*Circuit, error) {
	kind, ok := cat.KindOf(block)
	if !ok {
		return nil, fmt.Errorf("block %d at %s is not a circuit", block, coords)
	}

	c := &Circuit{
		coords:  coords,
		kind:    kind,
		status:  alpha.Bool(block, meta),
		block:   block,
		meta:    meta,
		inputs:  make(map[geom.Coord]struct{}),
		outputs: make(map[geom.Coord]struct{}),
	}

	if kind.Oriented() {
		face, ok := cat.FaceOf(block, meta)
		if !ok {
			return nil, fmt.Errorf("%w: block %d metadata %#x at %s", ErrBadOrientation, block, meta, coords)
		}
		c.orientation = face
	}

	return c, nil
}

// Coords returns the coordinate the circuit occupies.
func (c *Circuit) Coords() geom.Coord { return c.coords }

// Kind returns the gate kind.
func (c *Circuit) Kind() Kind { return c.kind }

// Orientation returns the mounting face of an oriented gate, or FaceNone.
func (c *Circuit) Orientation() alpha.Face { return c.orientation }

// Status returns the gate's current boolean state.
func (c *Circuit) Status() bool { return c.status }

// Block returns the block identity the circuit was last folded into.
func (c *Circuit) Block() (alpha.BlockID, byte) { return c.block, c.meta }

// SetStatus overwrites the gate's state and block identity from a fresh
// block reading. Used for exogenous changes: lever toggles and in-place
// block metadata edits. Graph-driven changes go through the Propagator.
func (c *Circuit) SetStatus(block alpha.BlockID, meta byte) {
	c.block = block
	c.meta = meta
	c.status = alpha.Bool(block, meta)
}

// MountCoord returns the coordinate of the block an oriented gate is
// mounted on: one step along the opposite of its orientation.
func (c *Circuit) MountCoord() geom.Coord {
	dx, dy, dz := c.orientation.Offset()
	return c.coords.Offset(-dx, -dy, -dz)
}

// InputCoords returns the coordinates the gate accepts signal from. Wires
// and blocks scan their four horizontal neighbors; a torch listens only to
// its mounting block; a lever listens to nothing.
func (c *Circuit) InputCoords() []geom.Coord {
	switch c.kind {
	case KindWire, KindPlain:
		n := c.coords.HorizontalNeighbors()
		return n[:]
	case KindTorch:
		return []geom.Coord{c.MountCoord()}
	default:
		return nil
	}
}

// OutputCoords returns the coordinates the gate may drive. Wires and
// blocks drive their four horizontal neighbors; a torch drives every
// horizontal neighbor that is not its mounting block; a lever drives only
// its mounting block.
func (c *Circuit) OutputCoords() []geom.Coord {
	switch c.kind {
	case KindWire, KindPlain:
		n := c.coords.HorizontalNeighbors()
		return n[:]
	case KindTorch:
		mount := c.MountCoord()
		out := make([]geom.Coord, 0, 4)
		for _, n := range c.coords.HorizontalNeighbors() {
			if n != mount {
				out = append(out, n)
			}
		}
		return out
	case KindLever:
		return []geom.Coord{c.MountCoord()}
	default:
		return nil
	}
}

// InputCoordSet returns a snapshot of the attached upstream coordinates,
// sorted lexicographically.
func (c *Circuit) InputCoordSet() []geom.Coord {
	return sortedCoordSet(c.inputs)
}

// OutputCoordSet returns a snapshot of the attached downstream
// coordinates, sorted lexicographically.
func (c *Circuit) OutputCoordSet() []geom.Coord {
	return sortedCoordSet(c.outputs)
}

func sortedCoordSet(set map[geom.Coord]struct{}) []geom.Coord {
	out := make([]geom.Coord, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	geom.SortCoords(out)
	return out
}

// evaluate computes the gate's next state from its attached inputs. Both
// operators are commutative in input order, so map iteration order is
// irrelevant. A lever with inputs, or a torch with more than one, is a
// contract breach.
func (c *Circuit) evaluate(a *Asic) (bool, error) {
	switch c.kind {
	case KindLever:
		if len(c.inputs) != 0 {
			return false, fmt.Errorf("%w: lever at %s has %d inputs", ErrInvariantViolated, c.coords, len(c.inputs))
		}
		return c.status, nil
	case KindTorch:
		if len(c.inputs) > 1 {
			return false, fmt.Errorf("%w: torch at %s has %d inputs", ErrInvariantViolated, c.coords, len(c.inputs))
		}
		for p := range c.inputs {
			in, ok := a.At(p)
			if !ok {
				return false, fmt.Errorf("%w: torch at %s has dangling input %s", ErrInvariantViolated, c.coords, p)
			}
			return !in.status, nil
		}
		return c.status, nil
	default: // wire, plain: OR across drivers
		on := false
		for p := range c.inputs {
			in, ok := a.At(p)
			if !ok {
				return false, fmt.Errorf("%w: %s at %s has dangling input %s", ErrInvariantViolated, c.kind, c.coords, p)
			}
			if in.status {
				on = true
			}
		}
		return on, nil
	}
}

func (c *Circuit) String() string {
	return fmt.Sprintf("<%s%s(%v)>", c.kind, c.coords, c.status)
}
