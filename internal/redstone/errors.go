package redstone

import "errors"

// Graph operations that would violate an invariant fail with one of these
// sentinels, wrapped with coordinate context at the failure site. A failed
// operation leaves the Asic unchanged.
var (
	// ErrOccupied is returned by Attach when the coordinate already holds
	// a different circuit.
	ErrOccupied = errors.New("circuit slot already occupied")

	// ErrNotAttached is returned by Detach when no circuit is attached at
	// the coordinate.
	ErrNotAttached = errors.New("circuit not attached")

	// ErrMismatch is returned by Detach when the slot holds a different
	// circuit than the one being detached.
	ErrMismatch = errors.New("circuit attached at coordinate is a different circuit")

	// ErrBadOrientation is returned when an oriented circuit is built from
	// metadata that does not decode to a mounting face.
	ErrBadOrientation = errors.New("metadata does not decode to a mounting face")

	// ErrInvariantViolated reports an internal contract breach, such as a
	// lever evaluated with inputs. It indicates a graph built incorrectly.
	ErrInvariantViolated = errors.New("circuit graph invariant violated")
)
