package redstone

import (
	"log/slog"

	"github.com/obsidiand/obsidiand/internal/geom"
	"github.com/obsidiand/obsidiand/pkg/alpha"
)

// Write is one world block update emitted by a propagation pass.
type Write struct {
	Coords geom.Coord
	Block  alpha.BlockID
	Meta   byte
}

// Pass summarises one completed propagation: the ordered block writes plus
// the bookkeeping the daemon exports as metrics.
type Pass struct {
	Writes       []Write
	Evaluations  int
	Oscillations []geom.Coord
}

// Propagator drives the update protocol over an Asic. A pass runs to
// completion with no suspension points; callers serialise passes with
// graph mutations.
type Propagator struct {
	asic   *Asic
	logger *slog.Logger
}

// NewPropagator creates a propagator for the given graph.
func NewPropagator(a *Asic, logger *slog.Logger) *Propagator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Propagator{asic: a, logger: logger}
}

// maxEvals caps evaluations per circuit per pass: once when first
// encountered, once more when re-enqueued by a changed predecessor. The
// cap is the termination guarantee — a feedback loop that still wants to
// flip past it is frozen for the pass and reported as an oscillation.
const maxEvals = 2

// Propagate walks the change front induced by the seed coordinates and
// returns the block writes the world must apply. Seeds are circuits whose
// status may have changed exogenously: a fresh attach, a lever toggle, a
// neighbor placement that created a new edge. Absent seeds are skipped
// silently.
//
// The emitted write sequence is a pure function of graph shape and initial
// statuses: seeds and output sets are visited in coordinate order and the
// queue is FIFO.
func (pr *Propagator) Propagate(seeds []geom.Coord) (Pass, error) {
	var pass Pass

	sorted := make([]geom.Coord, len(seeds))
	copy(sorted, seeds)
	geom.SortCoords(sorted)

	var queue []*Circuit
	inQueue := make(map[geom.Coord]bool)
	evals := make(map[geom.Coord]int)
	seedSet := make(map[geom.Coord]bool, len(sorted))

	for _, p := range sorted {
		c, ok := pr.asic.At(p)
		if !ok || inQueue[p] {
			continue
		}
		queue = append(queue, c)
		inQueue[p] = true
		seedSet[p] = true
	}

	oscReported := make(map[geom.Coord]bool)

	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		delete(inQueue, c.coords)

		firstVisit := evals[c.coords] == 0
		evals[c.coords]++
		pass.Evaluations++

		changed := false
		if len(c.inputs) > 0 || c.kind == KindLever {
			next, err := c.evaluate(pr.asic)
			if err != nil {
				return pass, err
			}
			if next != c.status {
				c.status = next
				changed = true

				block, meta := alpha.Truthify(next, c.block, c.meta)
				if block != c.block || meta != c.meta {
					c.block = block
					c.meta = meta
					pass.Writes = append(pass.Writes, Write{Coords: c.coords, Block: block, Meta: meta})
				}
			}
		}

		// A seed's consumers are stale even when its own evaluation is a
		// no-op: the status change happened before the pass.
		if !changed && !(seedSet[c.coords] && firstVisit) {
			continue
		}

		for _, p := range c.OutputCoordSet() {
			if inQueue[p] {
				continue
			}
			n, ok := pr.asic.At(p)
			if !ok {
				continue
			}
			if evals[p] >= maxEvals {
				if changed && !oscReported[p] {
					oscReported[p] = true
					pass.Oscillations = append(pass.Oscillations, p)
					pr.logger.Warn("redstone oscillation detected, freezing circuit for this pass",
						"coords", p.String(),
						"kind", n.kind.String())
				}
				continue
			}
			queue = append(queue, n)
			inQueue[p] = true
		}
	}

	return pass, nil
}
