package world

import (
	"path/filepath"
	"testing"

	"github.com/obsidiand/obsidiand/pkg/alpha"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "world.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestChunkBlockRoundTrip(t *testing.T) {
	c := NewChunk(ChunkPos{0, 0})

	c.SetBlock(3, 64, 11, alpha.BlockRedstoneWire, 0x0F)
	c.SetBlock(3, 65, 11, alpha.BlockLever, 5|alpha.MetaLeverOn)
	c.SetBlock(0, 0, 0, alpha.BlockBedrock, 0)

	if b, m := c.Block(3, 64, 11); b != alpha.BlockRedstoneWire || m != 0x0F {
		t.Errorf("Block(3,64,11) = (%d, %#x)", b, m)
	}
	if b, m := c.Block(3, 65, 11); b != alpha.BlockLever || m != 5|alpha.MetaLeverOn {
		t.Errorf("Block(3,65,11) = (%d, %#x)", b, m)
	}
	if b, _ := c.Block(1, 0, 0); b != alpha.BlockAir {
		t.Errorf("untouched cell = %d, want air", b)
	}
}

func TestChunkSerializeRoundTrip(t *testing.T) {
	c := NewChunk(ChunkPos{-2, 7})
	c.SetBlock(15, 127, 15, alpha.BlockObsidian, 0)
	c.SetBlock(8, 60, 2, alpha.BlockRedstoneTorch, 5)

	blob := c.Serialize()
	if len(blob) != chunkBlobLen {
		t.Fatalf("blob length = %d, want %d", len(blob), chunkBlobLen)
	}

	back, err := deserializeChunk(c.Pos, blob)
	if err != nil {
		t.Fatalf("deserializeChunk: %v", err)
	}
	if back.Blocks != c.Blocks || back.Data != c.Data {
		t.Error("serialize/deserialize round trip altered the column")
	}

	if _, err := deserializeChunk(c.Pos, blob[:100]); err == nil {
		t.Error("short blob must not deserialize")
	}
}

func TestStorePersistence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "world.db")

	s, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}

	pos := ChunkPos{3, -4}
	c, err := s.Chunk(pos)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	c.SetBlock(5, 70, 5, alpha.BlockRedstoneWire, 0x0C)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := OpenStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	c2, err := s2.Chunk(pos)
	if err != nil {
		t.Fatalf("Chunk after reopen: %v", err)
	}
	if b, m := c2.Block(5, 70, 5); b != alpha.BlockRedstoneWire || m != 0x0C {
		t.Errorf("persisted block = (%d, %#x), want (wire, 0xC)", b, m)
	}

	n, err := s2.StoredChunkCount()
	if err != nil {
		t.Fatalf("StoredChunkCount: %v", err)
	}
	if n != 1 {
		t.Errorf("stored chunk count = %d, want 1", n)
	}
}

func TestFlushSkipsCleanChunks(t *testing.T) {
	s := testStore(t)

	if _, err := s.Chunk(ChunkPos{0, 0}); err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// A never-written chunk is not persisted.
	n, err := s.StoredChunkCount()
	if err != nil {
		t.Fatalf("StoredChunkCount: %v", err)
	}
	if n != 0 {
		t.Errorf("clean chunk was persisted: count = %d", n)
	}
}

func TestForEachStoredChunk(t *testing.T) {
	s := testStore(t)

	positions := []ChunkPos{{0, 0}, {-1, 2}, {5, -3}}
	for _, pos := range positions {
		c, err := s.Chunk(pos)
		if err != nil {
			t.Fatalf("Chunk(%s): %v", pos, err)
		}
		c.SetBlock(0, 1, 0, alpha.BlockStone, 0)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	seen := make(map[ChunkPos]bool)
	err := s.ForEachStoredChunk(func(c *Chunk) error {
		seen[c.Pos] = true
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachStoredChunk: %v", err)
	}
	for _, pos := range positions {
		if !seen[pos] {
			t.Errorf("stored chunk %s not visited", pos)
		}
	}
	if len(seen) != len(positions) {
		t.Errorf("visited %d chunks, want %d", len(seen), len(positions))
	}
}

func TestUnmortonChunkKey(t *testing.T) {
	positions := []ChunkPos{{0, 0}, {1, 0}, {0, 1}, {-1, -1}, {100, -250}, {-32768, 32767}}
	for _, pos := range positions {
		got := unmortonChunkKey(geomMorton(pos))
		if got != pos {
			t.Errorf("unmorton(morton(%s)) = %s", pos, got)
		}
	}
}

func geomMorton(pos ChunkPos) uint32 {
	key := chunkKey(pos)
	return uint32(key[0])<<24 | uint32(key[1])<<16 | uint32(key[2])<<8 | uint32(key[3])
}
