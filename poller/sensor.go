// Package poller holds the configured sensor set, the round-robin loop that
// refreshes their readings over the shared bus, and the projector that turns
// counter deltas into pieces-per-minute rates.
package poller

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/LLC-Polipak/OwenPulseCounterAPI/dummy"
	"github.com/LLC-Polipak/OwenPulseCounterAPI/models"
	"github.com/LLC-Polipak/OwenPulseCounterAPI/owen"
)

// Driver reads one parameter from a device over the shared line.
// owen.Device is the real implementation; dummy.Counter the scripted one.
type Driver interface {
	ReadParameter(line owen.Transactor, pid owen.Parameter) (owen.Value, error)
}

// Reading is the latest sample of one sensor. A nil Value means the sensor
// is offline or has never answered.
type Reading struct {
	Value owen.Value
	Time  time.Time
}

// Sensor binds a logical name to a device, a parameter, and the bus. Its
// reading is written only by the polling loop and published as one
// (value, time) pair.
type Sensor struct {
	Name string

	driver Driver
	pid    owen.Parameter
	line   owen.Transactor

	mu      sync.Mutex
	reading Reading
}

// Reading returns the latest published sample.
func (s *Sensor) Reading() Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reading
}

func (s *Sensor) setReading(r Reading) {
	s.mu.Lock()
	s.reading = r
	s.mu.Unlock()
}

// update performs one read transaction. A timeout or decode failure is
// logged and the previous reading stays in place.
func (s *Sensor) update() {
	value, err := s.driver.ReadParameter(s.line, s.pid)
	switch {
	case err == nil:
		s.setReading(Reading{Value: value, Time: time.Now()})
	case errors.Is(err, owen.ErrTimeout):
		log.Printf("ERROR: sensor %s did not answer", s.Name)
	default:
		log.Printf("ERROR: sensor %s: %v", s.Name, err)
	}
}

// NotFoundError reports a lookup of a sensor name that is not configured.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("device %q not found", e.Name)
}

// Registry is the ordered set of configured sensors sharing one bus.
type Registry struct {
	order  []*Sensor
	byName map[string]*Sensor
}

// NewRegistry instantiates one driver per configured sensor and attaches
// the shared line. Configuration errors abort startup.
func NewRegistry(line owen.Transactor, cfgs []*models.Sensor) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Sensor, len(cfgs))}
	for _, cfg := range cfgs {
		pid, ok := owen.ParameterByName(cfg.Parameter)
		if !ok {
			return nil, fmt.Errorf("sensor %q: unknown parameter %q", cfg.Name, cfg.Parameter)
		}
		var driver Driver
		switch cfg.Driver {
		case models.DriverDummy:
			driver = dummy.New(cfg.Addr, cfg.AddrLen)
		default:
			dev, err := owen.New(cfg.Addr, cfg.AddrLen)
			if err != nil {
				return nil, fmt.Errorf("sensor %q: %w", cfg.Name, err)
			}
			driver = dev
		}
		s := &Sensor{Name: cfg.Name, driver: driver, pid: pid, line: line}
		if _, dup := r.byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate sensor name %q", s.Name)
		}
		r.order = append(r.order, s)
		r.byName[s.Name] = s
	}
	return r, nil
}

// Sensors returns the sensors in configuration order.
func (r *Registry) Sensors() []*Sensor { return r.order }

// Lookup finds a sensor by name.
func (r *Registry) Lookup(name string) (*Sensor, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return s, nil
}
