package bus

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	goserial "github.com/tarm/serial"

	"github.com/LLC-Polipak/OwenPulseCounterAPI/models"
)

// scriptedPort feeds a canned response after recording the request. Reads
// after the script is exhausted behave like a driver timeout.
type scriptedPort struct {
	mu       sync.Mutex
	flushed  int
	written  []byte
	pending  []byte
	chunk    int // max bytes per Read, 0 = all at once
	busy     bool
	overlaps int
}

func (p *scriptedPort) enter() func() {
	p.mu.Lock()
	if p.busy {
		p.overlaps++
	}
	p.busy = true
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.busy = false
		p.mu.Unlock()
	}
}

func (p *scriptedPort) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushed++
	return nil
}

func (p *scriptedPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 {
		return 0, io.EOF
	}
	n := len(p.pending)
	if p.chunk > 0 && n > p.chunk {
		n = p.chunk
	}
	if n > len(b) {
		n = len(b)
	}
	copy(b, p.pending[:n])
	p.pending = p.pending[n:]
	return n, nil
}

func (p *scriptedPort) Close() error { return nil }

func newTestBus(p port) *Bus {
	return &Bus{port: p, readTimeout: 50 * time.Millisecond}
}

func TestTransact(t *testing.T) {
	p := &scriptedPort{pending: []byte("#GLHGSHNJKJUG\r"), chunk: 5}
	b := newTestBus(p)
	got, err := b.Transact([]byte("#request\r"), 14)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("#GLHGSHNJKJUG\r")) {
		t.Errorf("response = %q", got)
	}
	if !bytes.Equal(p.written, []byte("#request\r")) {
		t.Errorf("written = %q", p.written)
	}
	if p.flushed != 1 {
		t.Errorf("flushed %d times, want 1", p.flushed)
	}
}

func TestTransactEmptyRead(t *testing.T) {
	b := newTestBus(&scriptedPort{})
	got, err := b.Transact([]byte("#request\r"), 22)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("response = %q, want empty", got)
	}
}

func TestTransactShortRead(t *testing.T) {
	b := newTestBus(&scriptedPort{pending: []byte("#GL")})
	got, err := b.Transact([]byte("#request\r"), 22)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("#GL")) {
		t.Errorf("response = %q, want the partial frame", got)
	}
}

func TestTransactTruncatesOverrun(t *testing.T) {
	b := newTestBus(&scriptedPort{pending: []byte("#GLHGSHNJKJUG\rnoise")})
	got, err := b.Transact([]byte("#request\r"), 14)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 14 {
		t.Errorf("response length = %d, want 14", len(got))
	}
}

// mutexPort counts transactions that overlap on the wire.
type mutexPort struct {
	scriptedPort
}

func (p *mutexPort) Write(b []byte) (int, error) {
	done := p.enter()
	defer done()
	time.Sleep(time.Millisecond)
	return p.scriptedPort.Write(b)
}

func TestTransactSerialized(t *testing.T) {
	p := &mutexPort{}
	b := &Bus{port: p, readTimeout: time.Millisecond}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := b.Transact([]byte("x"), 1); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if p.overlaps != 0 {
		t.Errorf("%d overlapping transactions observed", p.overlaps)
	}
}

func TestTransactClosed(t *testing.T) {
	b := newTestBus(&scriptedPort{})
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Transact([]byte("x"), 1); err == nil {
		t.Error("expected an error on a closed bus")
	}
}

func TestPortConfig(t *testing.T) {
	cfg, err := portConfig(&models.Serial{
		Port:     "/dev/ttyUSB0",
		Baudrate: 9600,
		Bytesize: 8,
		Parity:   "N",
		Stopbits: 1,
		Timeout:  0.2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "/dev/ttyUSB0" || cfg.Baud != 9600 || cfg.Size != 8 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Parity != goserial.ParityNone || cfg.StopBits != goserial.Stop1 {
		t.Errorf("framing = %v %v", cfg.Parity, cfg.StopBits)
	}
	if cfg.ReadTimeout != 200*time.Millisecond {
		t.Errorf("read timeout = %v", cfg.ReadTimeout)
	}
}

func TestPortConfigErrors(t *testing.T) {
	if _, err := portConfig(nil); err == nil {
		t.Error("nil settings accepted")
	}
	if _, err := portConfig(&models.Serial{}); err == nil {
		t.Error("missing port accepted")
	}
	if _, err := portConfig(&models.Serial{Port: "x", Parity: "M"}); err == nil {
		t.Error("bad parity accepted")
	}
	if _, err := portConfig(&models.Serial{Port: "x", Stopbits: 3}); err == nil {
		t.Error("bad stop bits accepted")
	}
}
