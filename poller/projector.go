package poller

import (
	"sync"
	"time"

	"github.com/LLC-Polipak/OwenPulseCounterAPI/owen"
)

// Status classifies a projected sample.
type Status string

const (
	StatusOK       Status = "OK"
	StatusOffline  Status = "OFFLINE"
	StatusNotFound Status = "NOT FOUND"
	StatusTimeout  Status = "TIMEOUT"
)

// Sample is one projector output row: the pieces-per-minute rate of a
// sensor, or its status when no rate can be derived yet.
type Sample struct {
	Sensor     string    `json:"sensor"`
	Value      *float64  `json:"value"`
	MeasuredAt time.Time `json:"measured_at"`
	Status     Status    `json:"status"`
}

// Projector derives pieces-per-minute from successive counter readings.
//
// Each consumer (the HTTP listing, the uplink) owns its own Projector so
// their delta references do not interfere: the
// reference for a sensor only advances when this instance emits a sample
// for it.
type Projector struct {
	reg *Registry

	mu   sync.Mutex
	prev map[string]Reading
}

// NewProjector builds a projector over the registry with an empty
// reference state.
func NewProjector(reg *Registry) *Projector {
	return &Projector{reg: reg, prev: make(map[string]Reading)}
}

// counts extracts the pulse count from a reading value. Timer readings
// carry no count and re-base the reference like a first sample.
func counts(v owen.Value) (int64, bool) {
	c, ok := v.(owen.Count)
	return int64(c), ok
}

// project computes one sensor's sample against this projector's reference.
// The returned flag is false when the sensor must be skipped entirely
// (a non-positive time delta).
func (p *Projector) project(s *Sensor, measuredAt time.Time) (Sample, bool) {
	sample := Sample{Sensor: s.Name, MeasuredAt: measuredAt, Status: StatusOK}
	cur := s.Reading()
	if cur.Value == nil {
		sample.Status = StatusOffline
		return sample, true
	}
	prev, seen := p.prev[s.Name]
	if !seen || prev.Value == nil {
		p.prev[s.Name] = cur
		return sample, true
	}
	curCount, curOK := counts(cur.Value)
	prevCount, prevOK := counts(prev.Value)
	if !curOK || !prevOK {
		p.prev[s.Name] = cur
		return sample, true
	}
	dt := cur.Time.Sub(prev.Time)
	if dt <= 0 {
		return Sample{}, false
	}
	// Deltas may be negative after a counter reset; emitted as-is.
	rate := float64(curCount-prevCount) / dt.Seconds() * 60
	sample.Value = &rate
	p.prev[s.Name] = cur
	return sample, true
}

// List projects the named sensors in request order, per the HTTP listing
// contract: unknown names yield NOT FOUND rows, sensors with a non-positive
// time delta are omitted.
func (p *Projector) List(names []string) []Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	measuredAt := time.Now()
	out := make([]Sample, 0, len(names))
	for _, name := range names {
		s, err := p.reg.Lookup(name)
		if err != nil {
			out = append(out, Sample{Sensor: name, MeasuredAt: measuredAt, Status: StatusNotFound})
			continue
		}
		if sample, ok := p.project(s, measuredAt); ok {
			out = append(out, sample)
		}
	}
	return out
}

// Batch projects every registered sensor and keeps only the rows that
// carry a rate. This is the payload shape the uplink posts upstream.
func (p *Projector) Batch() []Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	measuredAt := time.Now()
	out := make([]Sample, 0, len(p.reg.Sensors()))
	for _, s := range p.reg.Sensors() {
		sample, ok := p.project(s, measuredAt)
		if !ok || sample.Value == nil {
			continue
		}
		out = append(out, sample)
	}
	return out
}
