// Package dummy provides a scripted fake pulse counter for bench setups
// where no real СИ8 is attached. It satisfies the same driver contract as
// an owen.Device but never touches the bus.
package dummy

import (
	"math/rand"

	"github.com/LLC-Polipak/OwenPulseCounterAPI/owen"
)

// Counter replays a prebuilt cyclic script of per-poll pulse deltas and
// offline gaps, accumulating the deltas into a monotonic total so the rate
// projector sees a realistic production curve: offline, standstill, partial
// load, full load.
type Counter struct {
	total  int64
	values []*int64
	index  int
}

// New builds a counter with a freshly randomized script. The addr arguments
// exist to match the real driver's construction and are ignored.
func New(addr, addrBits int) *Counter {
	work := segment(2*randBetween(9, 10), 150, 200)
	partWork := segment(2*randBetween(5, 7), 10, 100)
	pause := segment(2*randBetween(2, 9), 0, 9)
	stop := segment(2*randBetween(11, 20), 0, 9)
	offline := make([]*int64, 2*randBetween(9, 12))

	var values []*int64
	for _, seg := range [][]*int64{
		offline, stop, partWork, pause, stop, work, pause, partWork, work, stop, work, stop, offline,
	} {
		values = append(values, seg...)
	}
	return &Counter{values: values}
}

func randBetween(lo, hi int) int {
	return lo + rand.Intn(hi-lo+1)
}

func segment(n int, lo, hi int64) []*int64 {
	out := make([]*int64, n)
	for i := range out {
		v := lo + rand.Int63n(hi-lo+1)
		out[i] = &v
	}
	return out
}

// ReadParameter advances the script by one step and returns the cumulative
// count, or nil during an offline stretch. The line and parameter are
// ignored; the script wraps at its end.
func (c *Counter) ReadParameter(line owen.Transactor, pid owen.Parameter) (owen.Value, error) {
	v := c.values[c.index]
	c.index++
	if c.index >= len(c.values) {
		c.index = 0
	}
	if v == nil {
		return nil, nil
	}
	c.total += *v
	return owen.Count(c.total), nil
}
