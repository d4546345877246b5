package world

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/obsidiand/obsidiand/internal/geom"
	"github.com/obsidiand/obsidiand/internal/metrics"
)

// BoltDB bucket names.
var (
	bucketChunks = []byte("chunks")
	bucketMeta   = []byte("world_meta")
)

// Store persists chunk columns in BoltDB with an in-memory cache of
// realized columns. Columns are keyed by the Morton interleaving of their
// chunk coordinates.
type Store struct {
	db     *bolt.DB
	mu     sync.Mutex
	chunks map[ChunkPos]*Chunk
}

// OpenStore opens or creates a world database and initializes buckets.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening world database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketChunks, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("creating bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing world buckets: %w", err)
	}

	return &Store{
		db:     db,
		chunks: make(map[ChunkPos]*Chunk),
	}, nil
}

// Close flushes dirty columns and closes the database.
func (s *Store) Close() error {
	if err := s.Flush(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

// DB exposes the underlying database for sibling stores.
func (s *Store) DB() *bolt.DB { return s.db }

func chunkKey(pos ChunkPos) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, geom.Morton2(pos.X, pos.Z))
	return key
}

// Chunk returns the column at the given chunk coordinates, loading it from
// the database or creating an empty one.
func (s *Store) Chunk(pos ChunkPos) (*Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunkLocked(pos)
}

func (s *Store) chunkLocked(pos ChunkPos) (*Chunk, error) {
	if c, ok := s.chunks[pos]; ok {
		return c, nil
	}

	var blob []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketChunks).Get(chunkKey(pos)); v != nil {
			blob = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading chunk %s: %w", pos, err)
	}

	var c *Chunk
	if blob == nil {
		c = NewChunk(pos)
	} else {
		c, err = deserializeChunk(pos, blob)
		if err != nil {
			return nil, err
		}
	}

	s.chunks[pos] = c
	metrics.ChunksLoaded.Set(float64(len(s.chunks)))
	return c, nil
}

// Flush writes every dirty column back to the database in one
// transaction.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	var dirty []*Chunk
	for _, c := range s.chunks {
		if c.dirty {
			dirty = append(dirty, c)
		}
	}
	if len(dirty) == 0 {
		return nil
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketChunks)
		for _, c := range dirty {
			if err := b.Put(chunkKey(c.Pos), c.Serialize()); err != nil {
				return fmt.Errorf("writing chunk %s: %w", c.Pos, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("flushing %d chunks: %w", len(dirty), err)
	}

	for _, c := range dirty {
		c.dirty = false
	}
	metrics.ChunkWrites.Add(float64(len(dirty)))
	metrics.FlushDuration.Observe(time.Since(start).Seconds())
	return nil
}

// StoredChunkCount returns the number of columns persisted in the
// database.
func (s *Store) StoredChunkCount() (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketChunks).Stats().KeyN
		return nil
	})
	return n, err
}

// ForEachStoredChunk loads every persisted column in turn and calls fn.
// Used for the circuit rebuild on startup.
func (s *Store) ForEachStoredChunk(fn func(*Chunk) error) error {
	var positions []ChunkPos
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChunks).ForEach(func(k, v []byte) error {
			positions = append(positions, unmortonChunkKey(binary.BigEndian.Uint32(k)))
			return nil
		})
	})
	if err != nil {
		return err
	}

	for _, pos := range positions {
		c, err := s.Chunk(pos)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// unmortonChunkKey inverts the Morton interleaving of a chunk key back to
// sign-extended chunk coordinates.
func unmortonChunkKey(m uint32) ChunkPos {
	var x, z uint32
	for i := uint(0); i < 16; i++ {
		x |= (m >> (2 * i) & 1) << i
		z |= (m >> (2*i + 1) & 1) << i
	}
	return ChunkPos{signExtend16(x), signExtend16(z)}
}

func signExtend16(v uint32) int32 {
	return int32(int16(uint16(v)))
}
