package world

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/obsidiand/obsidiand/internal/events"
	"github.com/obsidiand/obsidiand/internal/geom"
	"github.com/obsidiand/obsidiand/internal/metrics"
	"github.com/obsidiand/obsidiand/internal/redstone"
	"github.com/obsidiand/obsidiand/pkg/alpha"
)

// ErrOutOfRange is returned for Y coordinates outside the alpha column.
var ErrOutOfRange = errors.New("coordinate outside world bounds")

// ErrNotALever is returned by ToggleLever when the coordinate does not
// hold a lever.
var ErrNotALever = errors.New("no lever at coordinate")

// World owns one world's chunk columns and its circuit graph, and applies
// block edits through the engine so the two stay consistent. All entry
// points serialise on one mutex: the engine itself is single-threaded by
// contract.
type World struct {
	name   string
	store  *Store
	cat    redstone.Catalog
	asic   *redstone.Asic
	prop   *redstone.Propagator
	bus    *events.Bus
	logger *slog.Logger

	mu sync.Mutex
}

// New creates a world over an open store. Call Rebuild afterwards to
// re-materialise circuits from stored blocks.
func New(name string, store *Store, cat redstone.Catalog, bus *events.Bus, logger *slog.Logger) *World {
	asic := redstone.NewAsic(cat)
	return &World{
		name:   name,
		store:  store,
		cat:    cat,
		asic:   asic,
		prop:   redstone.NewPropagator(asic, logger),
		bus:    bus,
		logger: logger,
	}
}

// Name returns the world name.
func (w *World) Name() string { return w.name }

// BlockAt returns the block and metadata at a coordinate.
func (w *World) BlockAt(c geom.Coord) (alpha.BlockID, byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.blockAtLocked(c)
}

func (w *World) blockAtLocked(c geom.Coord) (alpha.BlockID, byte, error) {
	if c.Y < 0 || c.Y >= ChunkHeight {
		return 0, 0, fmt.Errorf("%w: %s", ErrOutOfRange, c)
	}
	ch, err := w.store.Chunk(chunkPosOf(c))
	if err != nil {
		return 0, 0, err
	}
	b, m := ch.Block(c.X&0x0F, c.Y, c.Z&0x0F)
	return b, m, nil
}

func (w *World) setBlockLocked(c geom.Coord, block alpha.BlockID, meta byte) error {
	if c.Y < 0 || c.Y >= ChunkHeight {
		return fmt.Errorf("%w: %s", ErrOutOfRange, c)
	}
	ch, err := w.store.Chunk(chunkPosOf(c))
	if err != nil {
		return err
	}
	ch.SetBlock(c.X&0x0F, c.Y, c.Z&0x0F, block, meta)
	return nil
}

// ApplyEdit places, replaces, or breaks the block at a coordinate,
// materialises or releases circuits, propagates the induced change front,
// and folds the emitted writes back into the chunk store. A refused edit
// (bad orientation, out of range) leaves world and graph unchanged.
func (w *World) ApplyEdit(c geom.Coord, block alpha.BlockID, meta byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	oldBlock, oldMeta, err := w.blockAtLocked(c)
	if err != nil {
		metrics.BlockEditsRefused.WithLabelValues("out_of_range").Inc()
		return err
	}
	if oldBlock == block && oldMeta == meta {
		return nil
	}

	existing, _ := w.asic.At(c)
	newKind, isCircuit := w.cat.KindOf(block)

	var seeds []geom.Coord

	switch {
	case existing != nil && !isCircuit:
		// Break or replace with a non-circuit block: downstream gates
		// lose a driver and must recheck.
		seeds = existing.OutputCoordSet()
		if err := w.asic.Detach(existing); err != nil {
			metrics.BlockEditsRefused.WithLabelValues("detach").Inc()
			return fmt.Errorf("releasing circuit at %s: %w", c, err)
		}
		w.noteDetach(existing)

	case existing != nil && isCircuit:
		if existing.Kind() == newKind && !newKind.Oriented() {
			// In-place metadata or block change on an unoriented gate:
			// refresh its reading, the graph shape is unaffected.
			existing.SetStatus(block, meta)
			seeds = []geom.Coord{c}
		} else {
			// Kind or orientation may change: rebuild the gate. The new
			// circuit is constructed first so a bad orientation refuses
			// the edit with the old gate still attached.
			next, err := redstone.NewCircuit(w.cat, c, block, meta)
			if err != nil {
				metrics.BlockEditsRefused.WithLabelValues("bad_orientation").Inc()
				return err
			}
			if err := w.asic.Detach(existing); err != nil {
				metrics.BlockEditsRefused.WithLabelValues("detach").Inc()
				return fmt.Errorf("releasing circuit at %s: %w", c, err)
			}
			w.noteDetach(existing)
			w.materializeConductors(c)
			if err := w.asic.Attach(next); err != nil {
				return fmt.Errorf("attaching circuit at %s: %w", c, err)
			}
			w.noteAttach(next)
			seeds = []geom.Coord{c}
		}

	case existing == nil && isCircuit:
		next, err := redstone.NewCircuit(w.cat, c, block, meta)
		if err != nil {
			metrics.BlockEditsRefused.WithLabelValues("bad_orientation").Inc()
			return err
		}
		if newKind == redstone.KindPlain && !w.hasCircuitNeighbor(c) {
			// A solid block away from any wiring stays out of the graph;
			// it will be materialised lazily if a gate lands next to it.
			break
		}
		w.materializeConductors(c)
		if err := w.asic.Attach(next); err != nil {
			return fmt.Errorf("attaching circuit at %s: %w", c, err)
		}
		w.noteAttach(next)
		seeds = []geom.Coord{c}
	}

	if err := w.setBlockLocked(c, block, meta); err != nil {
		return err
	}
	if isCircuit {
		metrics.BlockEdits.WithLabelValues(newKind.String()).Inc()
	} else {
		metrics.BlockEdits.WithLabelValues("none").Inc()
	}

	w.publishBlockChanged(c, block, meta)

	if len(seeds) > 0 {
		if err := w.propagateLocked(seeds); err != nil {
			return err
		}
	}
	return nil
}

// ToggleLever flips the lever at a coordinate and propagates the change.
// Returns the new lever state.
func (w *World) ToggleLever(c geom.Coord) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	circuit, ok := w.asic.At(c)
	if !ok || circuit.Kind() != redstone.KindLever {
		return false, fmt.Errorf("%w: %s", ErrNotALever, c)
	}

	block, meta, err := w.blockAtLocked(c)
	if err != nil {
		return false, err
	}
	meta ^= alpha.MetaLeverOn

	circuit.SetStatus(block, meta)
	if err := w.setBlockLocked(c, block, meta); err != nil {
		return false, err
	}

	metrics.LeverToggles.Inc()
	w.bus.Publish(events.Event{
		Type:  events.EventLeverToggled,
		World: w.name,
		Block: &events.BlockData{X: c.X, Y: c.Y, Z: c.Z, Block: byte(block), Meta: meta},
		Circuit: &events.CircuitData{
			X: c.X, Y: c.Y, Z: c.Z,
			Kind:   circuit.Kind().String(),
			Status: circuit.Status(),
		},
	})

	if err := w.propagateLocked([]geom.Coord{c}); err != nil {
		return circuit.Status(), err
	}
	return circuit.Status(), nil
}

// propagateLocked runs one propagation pass and applies the emitted
// writes to the chunk store.
func (w *World) propagateLocked(seeds []geom.Coord) error {
	start := time.Now()
	pass, err := w.prop.Propagate(seeds)

	metrics.GateEvaluations.Add(float64(pass.Evaluations))
	if err != nil {
		metrics.PropagationErrors.Inc()
		return fmt.Errorf("propagating from %d seeds: %w", len(seeds), err)
	}
	metrics.PropagationPasses.Inc()
	metrics.PropagationWrites.Add(float64(len(pass.Writes)))
	metrics.PropagationDuration.Observe(time.Since(start).Seconds())

	for _, wr := range pass.Writes {
		if err := w.setBlockLocked(wr.Coords, wr.Block, wr.Meta); err != nil {
			return err
		}
		w.publishBlockChanged(wr.Coords, wr.Block, wr.Meta)
	}

	for _, p := range pass.Oscillations {
		metrics.OscillationsDetected.Inc()
		w.bus.Publish(events.Event{
			Type:   events.EventOscillation,
			World:  w.name,
			Block:  &events.BlockData{X: p.X, Y: p.Y, Z: p.Z},
			Reason: "non-converging feedback loop frozen for this pass",
		})
	}

	w.bus.Publish(events.Event{
		Type:  events.EventPropagationComplete,
		World: w.name,
		Propagation: &events.PropagationData{
			Seeds:        len(seeds),
			Evaluations:  pass.Evaluations,
			Writes:       len(pass.Writes),
			Oscillations: len(pass.Oscillations),
			DurationUS:   time.Since(start).Microseconds(),
		},
	})
	return nil
}

// materializeConductors attaches plain circuits for solid blocks adjacent
// to c so a freshly placed gate can trace edges to them.
func (w *World) materializeConductors(c geom.Coord) {
	for _, p := range c.FaceNeighbors() {
		if p.Y < 0 || p.Y >= ChunkHeight {
			continue
		}
		if _, ok := w.asic.At(p); ok {
			continue
		}
		b, m, err := w.blockAtLocked(p)
		if err != nil {
			continue
		}
		kind, ok := w.cat.KindOf(b)
		if !ok || kind != redstone.KindPlain {
			continue
		}
		if circuit, err := w.asic.Materialize(p, b, m); err == nil {
			w.noteAttach(circuit)
		}
	}
}

func (w *World) hasCircuitNeighbor(c geom.Coord) bool {
	for _, p := range c.FaceNeighbors() {
		if _, ok := w.asic.At(p); ok {
			return true
		}
	}
	return false
}

func (w *World) noteAttach(c *redstone.Circuit) {
	metrics.CircuitAttaches.WithLabelValues(c.Kind().String()).Inc()
	metrics.CircuitsLive.WithLabelValues(c.Kind().String()).Inc()
	w.bus.Publish(events.Event{
		Type:  events.EventCircuitAttached,
		World: w.name,
		Circuit: &events.CircuitData{
			X: c.Coords().X, Y: c.Coords().Y, Z: c.Coords().Z,
			Kind:   c.Kind().String(),
			Status: c.Status(),
		},
	})
}

func (w *World) noteDetach(c *redstone.Circuit) {
	metrics.CircuitDetaches.WithLabelValues(c.Kind().String()).Inc()
	metrics.CircuitsLive.WithLabelValues(c.Kind().String()).Dec()
	w.bus.Publish(events.Event{
		Type:  events.EventCircuitDetached,
		World: w.name,
		Circuit: &events.CircuitData{
			X: c.Coords().X, Y: c.Coords().Y, Z: c.Coords().Z,
			Kind:   c.Kind().String(),
			Status: c.Status(),
		},
	})
}

func (w *World) publishBlockChanged(c geom.Coord, block alpha.BlockID, meta byte) {
	w.bus.Publish(events.Event{
		Type:  events.EventBlockChanged,
		World: w.name,
		Block: &events.BlockData{X: c.X, Y: c.Y, Z: c.Z, Block: byte(block), Meta: meta},
	})
}

// WireGroup returns the connected wire component at a coordinate.
func (w *World) WireGroup(c geom.Coord) []*redstone.Circuit {
	w.mu.Lock()
	defer w.mu.Unlock()
	metrics.WireGroupQueries.Inc()
	return w.asic.WireGroup(c)
}

// Circuits returns a snapshot of the circuit graph.
func (w *World) Circuits() []*redstone.Circuit {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.asic.Circuits()
}

// CircuitAt returns the circuit at a coordinate, if any.
func (w *World) CircuitAt(c geom.Coord) (*redstone.Circuit, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.asic.At(c)
}

// CircuitCounts returns the number of attached circuits by kind name.
func (w *World) CircuitCounts() map[string]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	counts := make(map[string]int)
	for _, c := range w.asic.Circuits() {
		counts[c.Kind().String()]++
	}
	return counts
}

// Flush persists dirty chunks.
func (w *World) Flush() error {
	return w.store.Flush()
}

// Rebuild walks every stored chunk and re-materialises the circuit graph
// from world blocks: redstone components first attach their adjacent
// conductors, then themselves. Statuses come from the persisted block
// readings; no settling pass runs.
func (w *World) Rebuild() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var gates []geom.Coord
	err := w.store.ForEachStoredChunk(func(ch *Chunk) error {
		baseX := ch.Pos.X * ChunkSizeX
		baseZ := ch.Pos.Z * ChunkSizeZ
		for lx := int32(0); lx < ChunkSizeX; lx++ {
			for lz := int32(0); lz < ChunkSizeZ; lz++ {
				for ly := int32(0); ly < ChunkHeight; ly++ {
					b, _ := ch.Block(lx, ly, lz)
					kind, ok := w.cat.KindOf(b)
					if !ok || kind == redstone.KindPlain {
						continue
					}
					gates = append(gates, geom.Coord{X: baseX + lx, Y: ly, Z: baseZ + lz})
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning chunks for circuits: %w", err)
	}

	for _, c := range gates {
		b, m, err := w.blockAtLocked(c)
		if err != nil {
			return err
		}
		w.materializeConductors(c)
		if _, ok := w.asic.At(c); ok {
			continue
		}
		circuit, err := w.asic.Materialize(c, b, m)
		if err != nil {
			w.logger.Warn("skipping unrebuildable circuit",
				"coords", c.String(),
				"block", b,
				"error", err)
			continue
		}
		w.noteAttach(circuit)
	}

	w.logger.Info("circuit graph rebuilt",
		"world", w.name,
		"gates", len(gates),
		"circuits", w.asic.Len())
	return nil
}
