package poller

import (
	"context"
	"time"
)

// Poller refreshes every registered sensor's reading at a fixed cadence.
type Poller struct {
	reg   *Registry
	delay time.Duration
}

// New builds a poller over the registry with the given inter-round delay.
func New(reg *Registry, delay time.Duration) *Poller {
	return &Poller{reg: reg, delay: delay}
}

// Run polls sensors in configuration order until the context is canceled.
// Per-sensor failures never stop the round; a sensor that stops answering
// keeps presenting its last reading.
func (p *Poller) Run(ctx context.Context) {
	for {
		for _, s := range p.reg.Sensors() {
			select {
			case <-ctx.Done():
				return
			default:
			}
			s.update()
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.delay):
		}
	}
}
