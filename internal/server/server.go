// Package server exposes the gateway's HTTP API: the latest raw readings,
// the projected pieces-per-minute listing, a one-shot device probe, and a
// WebSocket stream of live readings.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/LLC-Polipak/OwenPulseCounterAPI/bus"
	"github.com/LLC-Polipak/OwenPulseCounterAPI/models"
	"github.com/LLC-Polipak/OwenPulseCounterAPI/poller"
)

// Server routes HTTP requests onto the registry and its own projector
// consumer. The uplink runs a separate projector so queries here never
// disturb what gets pushed upstream.
type Server struct {
	mux  *http.ServeMux
	reg  *poller.Registry
	proj *poller.Projector
	hub  *WSHub

	// dial opens the transient bus used by the probe endpoint. Swapped out
	// in tests.
	dial func() (probeLine, error)
}

// New wires the routes. serialSet may describe an unopenable port; the
// probe endpoint surfaces that as a 500 instead of failing startup.
func New(reg *poller.Registry, serialSet *models.Serial) *Server {
	s := &Server{
		mux:  http.NewServeMux(),
		reg:  reg,
		proj: poller.NewProjector(reg),
		hub:  NewWSHub(),
		dial: func() (probeLine, error) { return bus.Open(serialSet) },
	}
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/sensors/", s.handleSensors)
	s.mux.HandleFunc("/test_sensor/", s.handleProbe)
	s.mux.HandleFunc("/ws/readings", s.handleWSReadings)
	return s
}

// Handler returns the root handler for http.Serve.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, 200, RootResponse{Message: "Owen Pulse Counter API"})
}

// handleSensors serves both the projected listing (/sensors/?work_centers=)
// and single-sensor raw readings (/sensors/{name}).
func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/sensors/")
	if name == "" {
		s.handleSensorList(w, r)
		return
	}
	s.handleSensorByName(w, r, name)
}

func (s *Server) handleSensorList(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("work_centers")
	if raw == "" {
		s.writeJSON(w, 400, APIError{Error: "work_centers query parameter is required"})
		return
	}
	names := strings.Split(raw, ",")
	s.writeJSON(w, 200, s.proj.List(names))
}

func (s *Server) handleSensorByName(w http.ResponseWriter, r *http.Request, name string) {
	sensor, err := s.reg.Lookup(name)
	if err != nil {
		var nf *poller.NotFoundError
		if errors.As(err, &nf) {
			s.writeJSON(w, 404, APIError{Error: nf.Error()})
			return
		}
		s.writeJSON(w, 500, APIError{Error: err.Error()})
		return
	}
	s.writeJSON(w, 200, sensorReadingRow(sensor))
}

// handleProbe performs an honest one-shot read of an arbitrary address over
// a freshly opened bus, bypassing the registry.
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rawAddr := strings.TrimPrefix(r.URL.Path, "/test_sensor/")
	addr, err := strconv.Atoi(rawAddr)
	if err != nil {
		s.writeJSON(w, 400, APIError{Error: "address must be an integer"})
		return
	}
	result, err := s.probe(addr)
	if err != nil {
		log.Printf("ERROR: probe addr %d: %v", addr, err)
		s.writeJSON(w, 500, APIError{Error: err.Error()})
		return
	}
	s.writeJSON(w, 200, result)
}
