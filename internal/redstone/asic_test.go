package redstone_test

import (
	"errors"
	"testing"

	"github.com/obsidiand/obsidiand/internal/block"
	"github.com/obsidiand/obsidiand/internal/geom"
	"github.com/obsidiand/obsidiand/internal/redstone"
	"github.com/obsidiand/obsidiand/pkg/alpha"
)

func mustCircuit(t *testing.T, cat redstone.Catalog, c geom.Coord, b alpha.BlockID, meta byte) *redstone.Circuit {
	t.Helper()
	circuit, err := redstone.NewCircuit(cat, c, b, meta)
	if err != nil {
		t.Fatalf("NewCircuit(%s, %d, %#x): %v", c, b, meta, err)
	}
	return circuit
}

func mustAttach(t *testing.T, a *redstone.Asic, c *redstone.Circuit) *redstone.Circuit {
	t.Helper()
	if err := a.Attach(c); err != nil {
		t.Fatalf("Attach(%s): %v", c.Coords(), err)
	}
	return c
}

// attachAll builds and attaches a set of blocks in order.
func attachAll(t *testing.T, a *redstone.Asic, cat redstone.Catalog, blocks []struct {
	c    geom.Coord
	b    alpha.BlockID
	meta byte
}) {
	t.Helper()
	for _, bl := range blocks {
		mustAttach(t, a, mustCircuit(t, cat, bl.c, bl.b, bl.meta))
	}
}

// checkEdgeSymmetry asserts a ∈ b.inputs ⇔ b ∈ a.outputs over the whole
// graph.
func checkEdgeSymmetry(t *testing.T, a *redstone.Asic) {
	t.Helper()
	for _, c := range a.Circuits() {
		for _, p := range c.InputCoordSet() {
			n, ok := a.At(p)
			if !ok {
				t.Fatalf("%s has input %s with no circuit attached", c.Coords(), p)
			}
			if !containsCoord(n.OutputCoordSet(), c.Coords()) {
				t.Errorf("asymmetric edge: %s ∈ inputs(%s) but %s ∉ outputs(%s)", p, c.Coords(), c.Coords(), p)
			}
		}
		for _, p := range c.OutputCoordSet() {
			n, ok := a.At(p)
			if !ok {
				t.Fatalf("%s has output %s with no circuit attached", c.Coords(), p)
			}
			if !containsCoord(n.InputCoordSet(), c.Coords()) {
				t.Errorf("asymmetric edge: %s ∈ outputs(%s) but %s ∉ inputs(%s)", p, c.Coords(), c.Coords(), p)
			}
		}
	}
}

func containsCoord(cs []geom.Coord, p geom.Coord) bool {
	for _, c := range cs {
		if c == p {
			return true
		}
	}
	return false
}

func TestAttachOccupied(t *testing.T) {
	cat := block.NewCatalog()
	a := redstone.NewAsic(cat)

	p := geom.Coord{X: 0, Y: 64, Z: 0}
	first := mustAttach(t, a, mustCircuit(t, cat, p, alpha.BlockRedstoneWire, 0))

	second := mustCircuit(t, cat, p, alpha.BlockStone, 0)
	if err := a.Attach(second); !errors.Is(err, redstone.ErrOccupied) {
		t.Fatalf("Attach over occupied slot: err = %v, want ErrOccupied", err)
	}

	// The failed attach must not have disturbed the original.
	if got, _ := a.At(p); got != first {
		t.Fatal("occupied slot was replaced by the failed attach")
	}

	// Re-attaching the same circuit is idempotent.
	if err := a.Attach(first); err != nil {
		t.Fatalf("re-attach of same circuit: %v", err)
	}
}

func TestDetachErrors(t *testing.T) {
	cat := block.NewCatalog()
	a := redstone.NewAsic(cat)

	loose := mustCircuit(t, cat, geom.Coord{X: 5, Y: 5, Z: 5}, alpha.BlockRedstoneWire, 0)
	if err := a.Detach(loose); !errors.Is(err, redstone.ErrNotAttached) {
		t.Fatalf("Detach of absent circuit: err = %v, want ErrNotAttached", err)
	}

	p := geom.Coord{X: 5, Y: 5, Z: 5}
	mustAttach(t, a, mustCircuit(t, cat, p, alpha.BlockRedstoneWire, 0))

	impostor := mustCircuit(t, cat, p, alpha.BlockRedstoneWire, 0)
	if err := a.Detach(impostor); !errors.Is(err, redstone.ErrMismatch) {
		t.Fatalf("Detach of wrong circuit: err = %v, want ErrMismatch", err)
	}
}

func TestEdgeTracing(t *testing.T) {
	cat := block.NewCatalog()
	a := redstone.NewAsic(cat)

	// Lever on top of a stone block, wire beside the block.
	attachAll(t, a, cat, []struct {
		c    geom.Coord
		b    alpha.BlockID
		meta byte
	}{
		{geom.Coord{X: 0, Y: 1, Z: 0}, alpha.BlockLever, 5},
		{geom.Coord{X: 0, Y: 0, Z: 0}, alpha.BlockStone, 0},
		{geom.Coord{X: 1, Y: 0, Z: 0}, alpha.BlockRedstoneWire, 0},
	})

	lever, _ := a.At(geom.Coord{X: 0, Y: 1, Z: 0})
	plain, _ := a.At(geom.Coord{X: 0, Y: 0, Z: 0})
	wire, _ := a.At(geom.Coord{X: 1, Y: 0, Z: 0})

	// Lever drives its mounting block even though the block attached
	// second: the block's attach scan found the oriented neighbor above.
	if !containsCoord(plain.InputCoordSet(), lever.Coords()) {
		t.Error("lever is not an input of its mounting block")
	}
	if len(lever.InputCoordSet()) != 0 {
		t.Errorf("lever has inputs: %v", lever.InputCoordSet())
	}

	// Wire and block drive each other on the horizontal adjacency.
	if !containsCoord(wire.InputCoordSet(), plain.Coords()) {
		t.Error("block does not drive adjacent wire")
	}
	if !containsCoord(plain.InputCoordSet(), wire.Coords()) {
		t.Error("wire does not drive adjacent block")
	}

	checkEdgeSymmetry(t, a)
}

func TestTorchEdges(t *testing.T) {
	cat := block.NewCatalog()
	a := redstone.NewAsic(cat)

	// Torch on top of stone, wires on two sides of the torch, a second
	// stone block horizontally beside the torch.
	attachAll(t, a, cat, []struct {
		c    geom.Coord
		b    alpha.BlockID
		meta byte
	}{
		{geom.Coord{X: 0, Y: 0, Z: 0}, alpha.BlockStone, 0},
		{geom.Coord{X: 0, Y: 1, Z: 0}, alpha.BlockRedstoneTorchOff, 5},
		{geom.Coord{X: 1, Y: 1, Z: 0}, alpha.BlockRedstoneWire, 0},
		{geom.Coord{X: 0, Y: 1, Z: 1}, alpha.BlockRedstoneWire, 0},
		{geom.Coord{X: -1, Y: 1, Z: 0}, alpha.BlockStone, 0},
	})

	torch, _ := a.At(geom.Coord{X: 0, Y: 1, Z: 0})

	// Exactly one input: the mounting block below.
	inputs := torch.InputCoordSet()
	if len(inputs) != 1 || inputs[0] != (geom.Coord{X: 0, Y: 0, Z: 0}) {
		t.Fatalf("torch inputs = %v, want only the mounting block", inputs)
	}

	// Every horizontal wire is an output; the horizontal stone block is
	// not (torches drive wire, not blocks).
	outputs := torch.OutputCoordSet()
	if !containsCoord(outputs, geom.Coord{X: 1, Y: 1, Z: 0}) ||
		!containsCoord(outputs, geom.Coord{X: 0, Y: 1, Z: 1}) {
		t.Errorf("torch outputs = %v, want both horizontal wires", outputs)
	}
	if containsCoord(outputs, geom.Coord{X: -1, Y: 1, Z: 0}) {
		t.Errorf("torch drives a horizontal solid block: %v", outputs)
	}

	checkEdgeSymmetry(t, a)
}

func TestSideMountedTorchKeepsSingleInput(t *testing.T) {
	cat := block.NewCatalog()
	a := redstone.NewAsic(cat)

	// Torch on the side of a stone block, with a second stone block on
	// the torch's other horizontal side. Only the mounting block may feed
	// the torch.
	attachAll(t, a, cat, []struct {
		c    geom.Coord
		b    alpha.BlockID
		meta byte
	}{
		{geom.Coord{X: 0, Y: 0, Z: 0}, alpha.BlockStone, 0},
		{geom.Coord{X: 1, Y: 0, Z: 0}, alpha.BlockRedstoneTorchOff, 1}, // +x: mounted on the stone at the -x side
		{geom.Coord{X: 2, Y: 0, Z: 0}, alpha.BlockStone, 0},
	})

	torch, _ := a.At(geom.Coord{X: 1, Y: 0, Z: 0})
	inputs := torch.InputCoordSet()
	if len(inputs) != 1 || inputs[0] != (geom.Coord{X: 0, Y: 0, Z: 0}) {
		t.Fatalf("side-mounted torch inputs = %v, want only the mounting block", inputs)
	}

	checkEdgeSymmetry(t, a)
}

func TestDetachCleansEdges(t *testing.T) {
	cat := block.NewCatalog()
	a := redstone.NewAsic(cat)

	// Two adjacent wires trace no edges to each other; a wire beside a
	// block traces both directions. Detach must scrub every reference.
	attachAll(t, a, cat, []struct {
		c    geom.Coord
		b    alpha.BlockID
		meta byte
	}{
		{geom.Coord{X: 0, Y: 0, Z: 0}, alpha.BlockRedstoneWire, 0},
		{geom.Coord{X: 1, Y: 0, Z: 0}, alpha.BlockRedstoneWire, 0},
		{geom.Coord{X: 0, Y: 0, Z: 1}, alpha.BlockStone, 0},
	})

	wireA, _ := a.At(geom.Coord{X: 0, Y: 0, Z: 0})
	wireB, _ := a.At(geom.Coord{X: 1, Y: 0, Z: 0})
	plain, _ := a.At(geom.Coord{X: 0, Y: 0, Z: 1})

	if err := a.Detach(wireA); err != nil {
		t.Fatalf("Detach: %v", err)
	}

	if containsCoord(wireB.InputCoordSet(), wireA.Coords()) || containsCoord(wireB.OutputCoordSet(), wireA.Coords()) {
		t.Error("neighbor wire still references the detached wire")
	}
	if containsCoord(plain.InputCoordSet(), wireA.Coords()) || containsCoord(plain.OutputCoordSet(), wireA.Coords()) {
		t.Error("neighbor block still references the detached wire")
	}
	if len(wireA.InputCoordSet()) != 0 || len(wireA.OutputCoordSet()) != 0 {
		t.Error("detached wire kept its own edge sets")
	}
	if _, ok := a.At(geom.Coord{X: 0, Y: 0, Z: 0}); ok {
		t.Error("detached wire still attached")
	}

	checkEdgeSymmetry(t, a)
}

// Detach-then-attach of the same block is identity on the graph shape.
func TestDetachAttachIdentity(t *testing.T) {
	cat := block.NewCatalog()
	a := redstone.NewAsic(cat)

	attachAll(t, a, cat, []struct {
		c    geom.Coord
		b    alpha.BlockID
		meta byte
	}{
		{geom.Coord{X: 0, Y: 0, Z: 0}, alpha.BlockStone, 0},
		{geom.Coord{X: 0, Y: 1, Z: 0}, alpha.BlockRedstoneTorchOff, 5},
		{geom.Coord{X: 1, Y: 1, Z: 0}, alpha.BlockRedstoneWire, 0},
		{geom.Coord{X: 2, Y: 1, Z: 0}, alpha.BlockStone, 0},
		{geom.Coord{X: 2, Y: 2, Z: 0}, alpha.BlockLever, 5},
	})

	type shape struct {
		inputs, outputs []geom.Coord
	}
	snapshot := func() map[geom.Coord]shape {
		m := make(map[geom.Coord]shape)
		for _, c := range a.Circuits() {
			m[c.Coords()] = shape{c.InputCoordSet(), c.OutputCoordSet()}
		}
		return m
	}

	before := snapshot()

	wire, _ := a.At(geom.Coord{X: 1, Y: 1, Z: 0})
	if err := a.Detach(wire); err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if err := a.Attach(wire); err != nil {
		t.Fatalf("re-Attach: %v", err)
	}

	after := snapshot()
	if len(before) != len(after) {
		t.Fatalf("circuit count changed: %d → %d", len(before), len(after))
	}
	for p, b := range before {
		aft, ok := after[p]
		if !ok {
			t.Fatalf("circuit at %s vanished", p)
		}
		if !coordSlicesEqual(b.inputs, aft.inputs) || !coordSlicesEqual(b.outputs, aft.outputs) {
			t.Errorf("graph shape changed at %s: %v/%v → %v/%v", p, b.inputs, b.outputs, aft.inputs, aft.outputs)
		}
	}

	checkEdgeSymmetry(t, a)
}

func coordSlicesEqual(a, b []geom.Coord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestWireGroup(t *testing.T) {
	cat := block.NewCatalog()
	a := redstone.NewAsic(cat)

	// A straight line of four wires, an isolated wire, and a stone block.
	line := []geom.Coord{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 2, Y: 0, Z: 0},
		{X: 3, Y: 0, Z: 0},
	}
	for _, p := range line {
		mustAttach(t, a, mustCircuit(t, cat, p, alpha.BlockRedstoneWire, 0))
	}
	isolated := geom.Coord{X: 10, Y: 0, Z: 10}
	mustAttach(t, a, mustCircuit(t, cat, isolated, alpha.BlockRedstoneWire, 0))
	stone := geom.Coord{X: 0, Y: 0, Z: 5}
	mustAttach(t, a, mustCircuit(t, cat, stone, alpha.BlockStone, 0))

	for _, seed := range line {
		group := a.WireGroup(seed)
		if len(group) != len(line) {
			t.Fatalf("WireGroup(%s) has %d wires, want %d", seed, len(group), len(line))
		}
		found := make(map[geom.Coord]bool)
		for _, w := range group {
			found[w.Coords()] = true
		}
		for _, p := range line {
			if !found[p] {
				t.Errorf("WireGroup(%s) missing %s", seed, p)
			}
		}
	}

	if group := a.WireGroup(isolated); len(group) != 1 || group[0].Coords() != isolated {
		t.Errorf("isolated wire group = %v, want singleton", group)
	}
	if group := a.WireGroup(stone); group != nil {
		t.Errorf("WireGroup of a non-wire = %v, want nil", group)
	}
	if group := a.WireGroup(geom.Coord{X: 99, Y: 99, Z: 99}); group != nil {
		t.Errorf("WireGroup of empty coordinate = %v, want nil", group)
	}
}

// Wire groups are closed under horizontal wire-wire adjacency.
func TestWireGroupClosure(t *testing.T) {
	cat := block.NewCatalog()
	a := redstone.NewAsic(cat)

	// An L-shaped run with a separate run one level up: vertical offsets
	// never join a group.
	coords := []geom.Coord{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 2},
		{X: 0, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 2},
	}
	for _, p := range coords {
		mustAttach(t, a, mustCircuit(t, cat, p, alpha.BlockRedstoneWire, 0))
	}

	group := a.WireGroup(geom.Coord{X: 0, Y: 0, Z: 0})
	if len(group) != 4 {
		t.Fatalf("L-shaped group has %d wires, want 4", len(group))
	}
	inGroup := make(map[geom.Coord]bool)
	for _, w := range group {
		inGroup[w.Coords()] = true
	}
	// Closure: every horizontal wire neighbor of a member is a member.
	for _, w := range group {
		for _, n := range w.Coords().HorizontalNeighbors() {
			if c, ok := a.At(n); ok && c.Kind() == redstone.KindWire && !inGroup[n] {
				t.Errorf("group not closed: %s adjacent to member %s but absent", n, w.Coords())
			}
		}
	}
	if inGroup[geom.Coord{X: 0, Y: 1, Z: 1}] {
		t.Error("group crossed a vertical offset")
	}
}

func TestBadOrientation(t *testing.T) {
	cat := block.NewCatalog()

	_, err := redstone.NewCircuit(cat, geom.Coord{}, alpha.BlockRedstoneTorch, 0)
	if !errors.Is(err, redstone.ErrBadOrientation) {
		t.Fatalf("torch with orientation 0: err = %v, want ErrBadOrientation", err)
	}
	_, err = redstone.NewCircuit(cat, geom.Coord{}, alpha.BlockLever, 7)
	if !errors.Is(err, redstone.ErrBadOrientation) {
		t.Fatalf("lever with orientation 7: err = %v, want ErrBadOrientation", err)
	}
}
