// Package block provides the block catalog: the metadata table mapping
// alpha block slots to gate kinds and decoding the orientation byte of
// mounted components. The catalog is injected into the engine rather than
// living as process-wide state.
package block

import (
	"github.com/obsidiand/obsidiand/internal/redstone"
	"github.com/obsidiand/obsidiand/pkg/alpha"
)

// conducting lists the alpha-era solid blocks that carry current when
// energized. Transparent and non-solid blocks (glass, torches, fluids,
// saplings) never conduct.
var conducting = map[alpha.BlockID]struct{}{
	alpha.BlockStone:        {},
	alpha.BlockGrass:        {},
	alpha.BlockDirt:         {},
	alpha.BlockCobblestone:  {},
	alpha.BlockPlanks:       {},
	alpha.BlockBedrock:      {},
	alpha.BlockSand:         {},
	alpha.BlockGravel:       {},
	alpha.BlockGoldOre:      {},
	alpha.BlockIronOre:      {},
	alpha.BlockCoalOre:      {},
	alpha.BlockLog:          {},
	alpha.BlockWool:         {},
	alpha.BlockGoldBlock:    {},
	alpha.BlockIronBlock:    {},
	alpha.BlockDoubleSlab:   {},
	alpha.BlockBrick:        {},
	alpha.BlockMossStone:    {},
	alpha.BlockObsidian:     {},
	alpha.BlockDiamondOre:   {},
	alpha.BlockDiamondBlock: {},
	alpha.BlockWorkbench:    {},
	alpha.BlockFurnace:      {},
	alpha.BlockRedstoneOre:  {},
	alpha.BlockSnowBlock:    {},
	alpha.BlockClay:         {},
	alpha.BlockNetherrack:   {},
}

// Catalog is the standard alpha block table. It satisfies
// redstone.Catalog.
type Catalog struct{}

// NewCatalog returns the standard catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// KindOf maps a block slot to its gate kind. Solid conducting blocks are
// plain gates; everything the table does not know returns false.
func (c *Catalog) KindOf(block alpha.BlockID) (redstone.Kind, bool) {
	switch block {
	case alpha.BlockRedstoneWire:
		return redstone.KindWire, true
	case alpha.BlockRedstoneTorch, alpha.BlockRedstoneTorchOff:
		return redstone.KindTorch, true
	case alpha.BlockLever:
		return redstone.KindLever, true
	}
	if _, ok := conducting[block]; ok {
		return redstone.KindPlain, true
	}
	return 0, false
}

// FaceOf decodes the mounting face of a torch or lever metadata byte.
// Returns false for non-oriented blocks and for orientation bits the
// client never emits.
func (c *Catalog) FaceOf(block alpha.BlockID, meta byte) (alpha.Face, bool) {
	switch block {
	case alpha.BlockRedstoneTorch, alpha.BlockRedstoneTorchOff, alpha.BlockTorch, alpha.BlockLever:
		return alpha.DecodeFace(meta)
	}
	return alpha.FaceNone, false
}

// Conducts reports whether the block is a solid conductor.
func (c *Catalog) Conducts(block alpha.BlockID) bool {
	_, ok := conducting[block]
	return ok
}
