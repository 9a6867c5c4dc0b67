// Package bus owns one RS-485/RS-232 serial line shared by every counter
// attached to it. All device traffic goes through Transact, which serializes
// transactions so that two requests can never interleave on the wire.
package bus

import (
	"fmt"
	"io"
	"sync"
	"time"

	goserial "github.com/tarm/serial"

	"github.com/LLC-Polipak/OwenPulseCounterAPI/models"
)

// port is the slice of *goserial.Port the bus relies on; tests substitute a
// scripted implementation.
type port interface {
	io.ReadWriteCloser
	Flush() error
}

// Bus is a single serial endpoint with exclusive, timeout-bounded
// request/response transactions.
type Bus struct {
	mu          sync.Mutex
	cfg         *goserial.Config
	port        port
	readTimeout time.Duration
}

// Open opens the configured serial endpoint.
func Open(set *models.Serial) (*Bus, error) {
	cfg, err := portConfig(set)
	if err != nil {
		return nil, err
	}
	p, err := goserial.OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	return &Bus{cfg: cfg, port: p, readTimeout: cfg.ReadTimeout}, nil
}

// portConfig maps the settings record onto the serial driver's config.
func portConfig(set *models.Serial) (*goserial.Config, error) {
	if set == nil || set.Port == "" {
		return nil, fmt.Errorf("serial settings not configured")
	}
	cfg := &goserial.Config{
		Name: set.Port,
		Baud: set.Baudrate,
		Size: byte(set.Bytesize),
	}
	switch set.Parity {
	case "", "N":
		cfg.Parity = goserial.ParityNone
	case "E":
		cfg.Parity = goserial.ParityEven
	case "O":
		cfg.Parity = goserial.ParityOdd
	default:
		return nil, fmt.Errorf("unknown parity %q", set.Parity)
	}
	switch set.Stopbits {
	case 0, 1:
		cfg.StopBits = goserial.Stop1
	case 2:
		cfg.StopBits = goserial.Stop2
	default:
		return nil, fmt.Errorf("unknown stop bits %d", set.Stopbits)
	}
	timeout := set.Timeout
	if timeout <= 0 {
		timeout = 0.2
	}
	cfg.ReadTimeout = time.Duration(timeout * float64(time.Second))
	return cfg, nil
}

// Transact writes one request and reads up to expect response bytes. The
// port is held exclusively for the whole exchange and its input buffer is
// dropped first so a stale answer cannot be matched to a fresh request.
// It returns whatever arrived before the read deadline, possibly nothing.
func (b *Bus) Transact(request []byte, expect int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port == nil {
		return nil, fmt.Errorf("bus is closed")
	}
	if err := b.port.Flush(); err != nil {
		return nil, err
	}
	if _, err := b.port.Write(request); err != nil {
		return nil, err
	}
	deadline := time.Now().Add(b.readTimeout)
	buf := make([]byte, 0, expect)
	tmp := make([]byte, expect)
	for len(buf) < expect {
		n, err := b.port.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			continue
		}
		// The driver read deadline expired with nothing buffered, or the
		// port reported EOF. Bail out once our own deadline is also spent so
		// a chatty-but-slow device still gets the full window.
		if err != nil && err != io.EOF {
			return buf, err
		}
		if !time.Now().Before(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(buf) > expect {
		buf = buf[:expect]
	}
	return buf, nil
}

// Reopen closes and reopens the endpoint. Called once at startup to drop any
// OS-level state a previous crash may have left behind.
func (b *Bus) Reopen() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port != nil {
		_ = b.port.Close()
		b.port = nil
	}
	p, err := goserial.OpenPort(b.cfg)
	if err != nil {
		return err
	}
	b.port = p
	return nil
}

// Close releases the endpoint.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port == nil {
		return nil
	}
	err := b.port.Close()
	b.port = nil
	return err
}
