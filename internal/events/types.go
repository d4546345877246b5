// Package events provides the event bus and hook dispatcher for
// obsidiand.
package events

import (
	"time"
)

// EventType represents a world or engine lifecycle event.
type EventType string

const (
	EventBlockChanged        EventType = "block.changed"
	EventCircuitAttached     EventType = "circuit.attached"
	EventCircuitDetached     EventType = "circuit.detached"
	EventLeverToggled        EventType = "lever.toggled"
	EventPropagationComplete EventType = "redstone.propagated"
	EventOscillation         EventType = "redstone.oscillation"
)

// Event is the core event payload passed through the event bus.
type Event struct {
	Type        EventType        `json:"type"`
	Timestamp   time.Time        `json:"timestamp"`
	World       string           `json:"world,omitempty"`
	Block       *BlockData       `json:"block,omitempty"`
	Circuit     *CircuitData     `json:"circuit,omitempty"`
	Propagation *PropagationData `json:"propagation,omitempty"`
	Reason      string           `json:"reason,omitempty"`
}

// BlockData carries one block position and identity in events.
type BlockData struct {
	X     int32 `json:"x"`
	Y     int32 `json:"y"`
	Z     int32 `json:"z"`
	Block byte  `json:"block"`
	Meta  byte  `json:"meta"`
}

// CircuitData carries gate information in events.
type CircuitData struct {
	X      int32  `json:"x"`
	Y      int32  `json:"y"`
	Z      int32  `json:"z"`
	Kind   string `json:"kind"`
	Status bool   `json:"status"`
}

// PropagationData summarises a completed propagation pass.
type PropagationData struct {
	Seeds        int   `json:"seeds"`
	Evaluations  int   `json:"evaluations"`
	Writes       int   `json:"writes"`
	Oscillations int   `json:"oscillations"`
	DurationUS   int64 `json:"duration_us"`
}
