package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/obsidiand/obsidiand/internal/geom"
	"github.com/obsidiand/obsidiand/pkg/alpha"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusResponse is the daemon status page payload.
type statusResponse struct {
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	World         string         `json:"world"`
	Circuits      map[string]int `json:"circuits"`
	EventDrops    uint64         `json:"event_drops"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		World:         s.world.Name(),
		Circuits:      s.world.CircuitCounts(),
		EventDrops:    s.bus.Drops(),
	})
}

// coordFromQuery parses x/y/z query parameters.
func coordFromQuery(r *http.Request) (geom.Coord, bool) {
	var c geom.Coord
	for _, q := range []struct {
		name string
		dst  *int32
	}{
		{"x", &c.X}, {"y", &c.Y}, {"z", &c.Z},
	} {
		v, err := strconv.ParseInt(r.URL.Query().Get(q.name), 10, 32)
		if err != nil {
			return geom.Coord{}, false
		}
		*q.dst = int32(v)
	}
	return c, true
}

// blockResponse describes one block position.
type blockResponse struct {
	X     int32 `json:"x"`
	Y     int32 `json:"y"`
	Z     int32 `json:"z"`
	Block byte  `json:"block"`
	Meta  byte  `json:"meta"`
}

func (s *Server) handleBlockGet(w http.ResponseWriter, r *http.Request) {
	c, ok := coordFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "x, y, z query parameters required")
		return
	}
	b, m, err := s.world.BlockAt(c)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, blockResponse{c.X, c.Y, c.Z, byte(b), m})
}

// blockEditRequest is the PUT /api/v1/block body.
type blockEditRequest struct {
	X     int32 `json:"x"`
	Y     int32 `json:"y"`
	Z     int32 `json:"z"`
	Block byte  `json:"block"`
	Meta  byte  `json:"meta"`
}

func (s *Server) handleBlockPut(w http.ResponseWriter, r *http.Request) {
	var req blockEditRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c := geom.Coord{X: req.X, Y: req.Y, Z: req.Z}
	if err := s.world.ApplyEdit(c, alpha.BlockID(req.Block), req.Meta); err != nil {
		// Refused edits leave the world unchanged; report them as client
		// errors rather than server faults.
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	b, m, err := s.world.BlockAt(c)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, blockResponse{c.X, c.Y, c.Z, byte(b), m})
}

// circuitResponse describes one attached gate.
type circuitResponse struct {
	X           int32        `json:"x"`
	Y           int32        `json:"y"`
	Z           int32        `json:"z"`
	Kind        string       `json:"kind"`
	Status      bool         `json:"status"`
	Orientation string       `json:"orientation,omitempty"`
	Inputs      []coordEntry `json:"inputs"`
	Outputs     []coordEntry `json:"outputs"`
}

type coordEntry struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	Z int32 `json:"z"`
}

func coordEntries(cs []geom.Coord) []coordEntry {
	out := make([]coordEntry, len(cs))
	for i, c := range cs {
		out[i] = coordEntry{c.X, c.Y, c.Z}
	}
	return out
}

func (s *Server) handleCircuit(w http.ResponseWriter, r *http.Request) {
	c, ok := coordFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "x, y, z query parameters required")
		return
	}
	circuit, ok := s.world.CircuitAt(c)
	if !ok {
		writeError(w, http.StatusNotFound, "no circuit at coordinate")
		return
	}

	resp := circuitResponse{
		X: c.X, Y: c.Y, Z: c.Z,
		Kind:    circuit.Kind().String(),
		Status:  circuit.Status(),
		Inputs:  coordEntries(circuit.InputCoordSet()),
		Outputs: coordEntries(circuit.OutputCoordSet()),
	}
	if circuit.Kind().Oriented() {
		resp.Orientation = circuit.Orientation().String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCircuits(w http.ResponseWriter, r *http.Request) {
	circuits := s.world.Circuits()
	out := make([]circuitResponse, 0, len(circuits))
	for _, c := range circuits {
		p := c.Coords()
		resp := circuitResponse{
			X: p.X, Y: p.Y, Z: p.Z,
			Kind:    c.Kind().String(),
			Status:  c.Status(),
			Inputs:  coordEntries(c.InputCoordSet()),
			Outputs: coordEntries(c.OutputCoordSet()),
		}
		if c.Kind().Oriented() {
			resp.Orientation = c.Orientation().String()
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "circuits": out})
}

func (s *Server) handleWireGroup(w http.ResponseWriter, r *http.Request) {
	c, ok := coordFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "x, y, z query parameters required")
		return
	}
	group := s.world.WireGroup(c)
	wires := make([]coordEntry, 0, len(group))
	for _, wc := range group {
		p := wc.Coords()
		wires = append(wires, coordEntry{p.X, p.Y, p.Z})
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(wires), "wires": wires})
}

// leverToggleRequest is the POST /api/v1/lever/toggle body.
type leverToggleRequest struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	Z int32 `json:"z"`
}

func (s *Server) handleLeverToggle(w http.ResponseWriter, r *http.Request) {
	var req leverToggleRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	on, err := s.world.ToggleLever(geom.Coord{X: req.X, Y: req.Y, Z: req.Z})
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"on": on})
}
