package server

import (
	"errors"
	"time"

	"github.com/LLC-Polipak/OwenPulseCounterAPI/owen"
	"github.com/LLC-Polipak/OwenPulseCounterAPI/poller"
)

// The probe always speaks to the device the way the counters are usually
// installed: 8-bit addressing, current count. Other widths go through the
// configured registry instead.
const probeAddrBits = 8

// probeLine is the transient bus the probe opens and closes per request.
type probeLine interface {
	owen.Transactor
	Close() error
}

// probe opens a fresh bus, reads DCNT once from addr, and classifies the
// outcome. Errors other than a device timeout bubble up to a 500.
func (s *Server) probe(addr int) (ProbeResult, error) {
	line, err := s.dial()
	if err != nil {
		return ProbeResult{}, err
	}
	defer line.Close()

	device, err := owen.New(addr, probeAddrBits)
	if err != nil {
		return ProbeResult{}, err
	}

	result := ProbeResult{Addr: addr, Status: poller.StatusOK}
	value, err := device.ReadParameter(line, owen.DCNT)
	if err != nil {
		if errors.Is(err, owen.ErrTimeout) {
			result.Status = poller.StatusTimeout
			return result, nil
		}
		return ProbeResult{}, err
	}
	result.Value = value
	now := time.Now()
	result.MeasuredAt = &now
	if value == nil {
		result.Status = poller.StatusOffline
	}
	return result, nil
}
