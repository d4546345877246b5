package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/obsidiand/obsidiand/internal/events"
	"github.com/obsidiand/obsidiand/internal/metrics"
)

// sseClient is a connected SSE client with a buffered send channel.
type sseClient struct {
	send chan []byte
}

// SSEHub manages Server-Sent Event connections for live event streaming.
type SSEHub struct {
	bus     *events.Bus
	logger  *slog.Logger
	clients map[*sseClient]struct{}
	mu      sync.Mutex
	done    chan struct{}
}

// NewSSEHub creates a new SSE hub.
func NewSSEHub(bus *events.Bus, logger *slog.Logger) *SSEHub {
	return &SSEHub{
		bus:     bus,
		logger:  logger,
		clients: make(map[*sseClient]struct{}),
		done:    make(chan struct{}),
	}
}

// Run subscribes to the event bus and broadcasts to connected clients.
// Call in a goroutine.
func (h *SSEHub) Run() {
	ch := h.bus.Subscribe(500)

	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			h.broadcast(data)
		case <-h.done:
			h.bus.Unsubscribe(ch)
			return
		}
	}
}

// Stop disconnects all clients and stops the broadcast loop.
func (h *SSEHub) Stop() {
	close(h.done)
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	metrics.SSEConnections.Set(0)
}

func (h *SSEHub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow client: drop the event rather than block the hub.
		}
	}
}

// ServeHTTP streams events to one client until it disconnects.
func (h *SSEHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := &sseClient{send: make(chan []byte, 64)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	metrics.SSEConnections.Set(float64(len(h.clients)))
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			close(client.send)
		}
		metrics.SSEConnections.Set(float64(len(h.clients)))
		h.mu.Unlock()
	}()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case data, ok := <-client.send:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
