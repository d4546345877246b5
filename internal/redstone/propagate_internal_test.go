package redstone

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/obsidiand/obsidiand/internal/geom"
	"github.com/obsidiand/obsidiand/pkg/alpha"
)

// stubCatalog is the minimal table the constructor needs; edges in these
// tests are linked by hand to shape graphs attach would refuse.
type stubCatalog struct{}

func (stubCatalog) KindOf(b alpha.BlockID) (Kind, bool) {
	switch b {
	case alpha.BlockRedstoneWire:
		return KindWire, true
	case alpha.BlockRedstoneTorch, alpha.BlockRedstoneTorchOff:
		return KindTorch, true
	case alpha.BlockLever:
		return KindLever, true
	case alpha.BlockStone:
		return KindPlain, true
	}
	return 0, false
}

func (stubCatalog) FaceOf(b alpha.BlockID, meta byte) (alpha.Face, bool) {
	return alpha.DecodeFace(meta)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// link wires src → dst directly, bypassing attach's legality checks.
func link(src, dst *Circuit) {
	src.outputs[dst.coords] = struct{}{}
	dst.inputs[src.coords] = struct{}{}
}

func place(t *testing.T, a *Asic, p geom.Coord, b alpha.BlockID, meta byte) *Circuit {
	t.Helper()
	c, err := NewCircuit(a.cat, p, b, meta)
	if err != nil {
		t.Fatalf("NewCircuit: %v", err)
	}
	a.circuits[p] = c
	return c
}

func TestLeverWithInputsIsInvariantViolation(t *testing.T) {
	a := NewAsic(stubCatalog{})

	lever := place(t, a, geom.Coord{X: 0, Y: 0, Z: 0}, alpha.BlockLever, 5)
	plain := place(t, a, geom.Coord{X: 1, Y: 0, Z: 0}, alpha.BlockStone, 0)
	link(plain, lever)

	_, err := NewPropagator(a, testLogger()).Propagate([]geom.Coord{lever.coords})
	if !errors.Is(err, ErrInvariantViolated) {
		t.Fatalf("lever with inputs: err = %v, want ErrInvariantViolated", err)
	}
}

func TestTorchWithTwoInputsIsInvariantViolation(t *testing.T) {
	a := NewAsic(stubCatalog{})

	torch := place(t, a, geom.Coord{X: 0, Y: 1, Z: 0}, alpha.BlockRedstoneTorchOff, 5)
	p1 := place(t, a, geom.Coord{X: 0, Y: 0, Z: 0}, alpha.BlockStone, 0)
	p2 := place(t, a, geom.Coord{X: 1, Y: 1, Z: 0}, alpha.BlockStone, 0)
	link(p1, torch)
	link(p2, torch)

	_, err := NewPropagator(a, testLogger()).Propagate([]geom.Coord{torch.coords})
	if !errors.Is(err, ErrInvariantViolated) {
		t.Fatalf("torch with two inputs: err = %v, want ErrInvariantViolated", err)
	}
}

// A ring with an odd number of inversions never settles; the pass must
// freeze the first circuit that exceeds its evaluation cap and report it
// exactly once.
func TestOscillationStub(t *testing.T) {
	a := NewAsic(stubCatalog{})

	torch := place(t, a, geom.Coord{X: 0, Y: 0, Z: 0}, alpha.BlockRedstoneTorchOff, 5)
	wire := place(t, a, geom.Coord{X: 1, Y: 0, Z: 0}, alpha.BlockRedstoneWire, 0)
	plain := place(t, a, geom.Coord{X: 2, Y: 0, Z: 0}, alpha.BlockStone, 0)
	link(torch, wire)
	link(wire, plain)
	link(plain, torch)

	pass, err := NewPropagator(a, testLogger()).Propagate([]geom.Coord{torch.coords})
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}

	if len(pass.Oscillations) == 0 {
		t.Fatal("odd inverter ring did not report an oscillation")
	}
	if len(pass.Oscillations) != 1 {
		t.Errorf("oscillation reported %d times, want once", len(pass.Oscillations))
	}
	if max := 2 * a.Len(); pass.Evaluations > max {
		t.Errorf("pass used %d evaluations, bound is %d", pass.Evaluations, max)
	}
}

func TestEvaluateDanglingInput(t *testing.T) {
	a := NewAsic(stubCatalog{})

	wire := place(t, a, geom.Coord{X: 0, Y: 0, Z: 0}, alpha.BlockRedstoneWire, 0)
	wire.inputs[geom.Coord{X: 9, Y: 9, Z: 9}] = struct{}{}

	_, err := NewPropagator(a, testLogger()).Propagate([]geom.Coord{wire.coords})
	if !errors.Is(err, ErrInvariantViolated) {
		t.Fatalf("dangling input: err = %v, want ErrInvariantViolated", err)
	}
}
