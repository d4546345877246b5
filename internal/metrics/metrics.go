// Package metrics defines all Prometheus metrics for obsidiand.
// All metrics use the "obsidiand_" prefix.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "obsidiand"

// --- World Edit Metrics ---

var (
	// BlockEdits counts applied block edits by block kind.
	BlockEdits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "block_edits_total",
		Help:      "Total block edits applied to the world, by gate kind.",
	}, []string{"kind"})

	// BlockEditsRefused counts refused block edits by reason.
	BlockEditsRefused = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "block_edits_refused_total",
		Help:      "Total block edits refused with the world left unchanged, by reason.",
	}, []string{"reason"})

	// LeverToggles counts user lever toggles.
	LeverToggles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lever_toggles_total",
		Help:      "Total lever toggles applied.",
	})
)

// --- Circuit Graph Metrics ---

var (
	// CircuitsLive is a gauge of attached circuits by kind.
	CircuitsLive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuits_live",
		Help:      "Number of circuits currently attached to the graph, by kind.",
	}, []string{"kind"})

	// CircuitAttaches counts circuit attach operations.
	CircuitAttaches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_attaches_total",
		Help:      "Total circuits attached to the graph, by kind.",
	}, []string{"kind"})

	// CircuitDetaches counts circuit detach operations.
	CircuitDetaches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_detaches_total",
		Help:      "Total circuits detached from the graph, by kind.",
	}, []string{"kind"})

	// WireGroupQueries counts wire group lookups.
	WireGroupQueries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wire_group_queries_total",
		Help:      "Total wire group queries answered.",
	})
)

// --- Propagation Metrics ---

var (
	// PropagationPasses counts completed propagation passes.
	PropagationPasses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "propagation_passes_total",
		Help:      "Total propagation passes run to completion.",
	})

	// PropagationErrors counts passes surfacing an invariant violation.
	PropagationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "propagation_errors_total",
		Help:      "Total propagation passes aborted by an invariant violation.",
	})

	// GateEvaluations counts individual gate evaluations.
	GateEvaluations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_evaluations_total",
		Help:      "Total gate evaluations across all propagation passes.",
	})

	// PropagationWrites counts block writes emitted by propagation.
	PropagationWrites = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "propagation_writes_total",
		Help:      "Total world block writes emitted by propagation passes.",
	})

	// OscillationsDetected counts circuits frozen as non-converging.
	OscillationsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oscillations_detected_total",
		Help:      "Total circuits frozen mid-pass as non-converging feedback loops.",
	})

	// PropagationDuration tracks propagation pass latency.
	PropagationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "propagation_duration_seconds",
		Help:      "Propagation pass duration in seconds.",
		Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})
)

// --- World Store Metrics ---

var (
	// ChunksLoaded is a gauge of chunk columns resident in memory.
	ChunksLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "chunks_loaded",
		Help:      "Number of chunk columns currently resident in memory.",
	})

	// ChunkWrites counts chunk columns persisted to the store.
	ChunkWrites = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunk_writes_total",
		Help:      "Total chunk columns written to the backing store.",
	})

	// FlushDuration tracks the duration of world store flushes.
	FlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "flush_duration_seconds",
		Help:      "World store flush duration in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
	})
)

// --- Event Bus Metrics ---

var (
	// EventsPublished counts events published to the bus by type.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total events published to the bus, by type.",
	}, []string{"event_type"})

	// EventBufferDrops counts events dropped because the buffer was full.
	EventBufferDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_buffer_drops_total",
		Help:      "Total events dropped due to a full bus buffer.",
	})

	// HookExecutions counts hook executions by type and result.
	HookExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hook_executions_total",
		Help:      "Total hook executions, by hook type and result.",
	}, []string{"hook_type", "result"})
)

// --- API Metrics ---

var (
	// APIRequests counts HTTP API requests by method, path, and status.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Total API requests, by method, path, and status code.",
	}, []string{"method", "path", "status"})

	// SSEConnections is a gauge of connected event stream clients.
	SSEConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sse_connections",
		Help:      "Number of connected SSE event stream clients.",
	})
)

// --- Server Metrics ---

var (
	// ServerStartTime records the daemon start time as a unix timestamp.
	ServerStartTime = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "server_start_time_seconds",
		Help:      "Unix timestamp of daemon start.",
	})

	// ServerInfo carries the version label.
	ServerInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "server_info",
		Help:      "Constant gauge labelled with build information.",
	}, []string{"version"})
)
