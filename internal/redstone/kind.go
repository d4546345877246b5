// Package redstone implements the circuit simulation core: a directed
// graph of gates embedded in the voxel grid, incrementally mutated as
// blocks are placed and broken, and a bounded propagator that converts
// signal changes into world writes.
package redstone

import (
	"github.com/obsidiand/obsidiand/pkg/alpha"
)

// Kind is one of the four primitive gate types.
type Kind byte

const (
	// KindWire is redstone wire, the conductor fabric. It ORs its drivers.
	KindWire Kind = iota
	// KindPlain is a solid conducting block, energized by its drivers.
	KindPlain
	// KindTorch is a redstone torch: dark when its mounting block is
	// energized, lit otherwise.
	KindTorch
	// KindLever is a user-latched source. It never takes inputs.
	KindLever

	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindWire:
		return "wire"
	case KindPlain:
		return "plain"
	case KindTorch:
		return "torch"
	case KindLever:
		return "lever"
	default:
		return "unknown"
	}
}

// Oriented reports whether the kind carries a mounting face.
func (k Kind) Oriented() bool {
	return k == KindTorch || k == KindLever
}

// traceable[from][to] records which kind pairs may carry signal across a
// block boundary: torches and energized blocks drive wire, wire and levers
// drive blocks, and a block drives the torch mounted on it. Orientation
// constraints on top of this matrix are enforced by Asic.edgeAllowed.
var traceable = [kindCount][kindCount]bool{
	KindPlain: {KindWire: true, KindTorch: true},
	KindTorch: {KindWire: true},
	KindWire:  {KindPlain: true},
	KindLever: {KindPlain: true},
}

// Traceable reports whether a `from` gate may act as an upstream neighbor
// of a `to` gate.
func Traceable(from, to Kind) bool {
	return traceable[from][to]
}

// Catalog is the block metadata table the engine consults. It is injected
// at construction; the engine owns no globals.
type Catalog interface {
	// KindOf maps a block slot to its gate kind. The second return is
	// false for blocks that never participate in circuits.
	KindOf(block alpha.BlockID) (Kind, bool)
	// FaceOf decodes the mounting face of an oriented block. Returns
	// false for invalid block/metadata combinations.
	FaceOf(block alpha.BlockID, meta byte) (alpha.Face, bool)
}
