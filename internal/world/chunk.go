// Package world provides the chunk column store and the block edit
// pipeline that keeps the redstone circuit graph consistent with world
// contents.
package world

import (
	"fmt"

	"github.com/obsidiand/obsidiand/internal/geom"
	"github.com/obsidiand/obsidiand/pkg/alpha"
)

// Alpha chunk column dimensions.
const (
	ChunkSizeX  = 16
	ChunkSizeZ  = 16
	ChunkHeight = 128

	blockArrayLen = ChunkSizeX * ChunkSizeZ * ChunkHeight
	dataArrayLen  = blockArrayLen / 2

	chunkBlobLen = blockArrayLen + dataArrayLen
)

// ChunkPos identifies a chunk column.
type ChunkPos struct {
	X, Z int32
}

func (p ChunkPos) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Z)
}

// chunkPosOf returns the chunk column containing a block coordinate.
func chunkPosOf(c geom.Coord) ChunkPos {
	return ChunkPos{c.X >> 4, c.Z >> 4}
}

// Chunk is one realized 16×128×16 column: a block byte array and a packed
// metadata nibble array, laid out as the alpha format stores them
// (column-major, Y fastest).
type Chunk struct {
	Pos    ChunkPos
	Blocks [blockArrayLen]byte
	Data   [dataArrayLen]byte

	dirty bool
}

// NewChunk returns an empty (all-air) chunk column.
func NewChunk(pos ChunkPos) *Chunk {
	return &Chunk{Pos: pos}
}

func blockIndex(lx, ly, lz int32) int {
	return int((lx*ChunkSizeZ+lz)*ChunkHeight + ly)
}

// Block returns the block and metadata at chunk-local coordinates.
func (c *Chunk) Block(lx, ly, lz int32) (alpha.BlockID, byte) {
	i := blockIndex(lx, ly, lz)
	return alpha.BlockID(c.Blocks[i]), alpha.NibbleAt(c.Data[:], i)
}

// SetBlock writes the block and metadata at chunk-local coordinates and
// marks the chunk dirty.
func (c *Chunk) SetBlock(lx, ly, lz int32, block alpha.BlockID, meta byte) {
	i := blockIndex(lx, ly, lz)
	c.Blocks[i] = byte(block)
	alpha.SetNibble(c.Data[:], i, meta)
	c.dirty = true
}

// Serialize flattens the column into the stored blob: block array followed
// by the metadata nibble array.
func (c *Chunk) Serialize() []byte {
	out := make([]byte, chunkBlobLen)
	copy(out, c.Blocks[:])
	copy(out[blockArrayLen:], c.Data[:])
	return out
}

// deserializeChunk rebuilds a column from a stored blob.
func deserializeChunk(pos ChunkPos, blob []byte) (*Chunk, error) {
	if len(blob) != chunkBlobLen {
		return nil, fmt.Errorf("chunk %s: blob length %d, want %d", pos, len(blob), chunkBlobLen)
	}
	c := &Chunk{Pos: pos}
	copy(c.Blocks[:], blob[:blockArrayLen])
	copy(c.Data[:], blob[blockArrayLen:])
	return c, nil
}
