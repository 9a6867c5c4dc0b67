// Command `owen-gateway` polls СИ8 pulse counters on a shared serial bus
// and serves their readings over HTTP.
//
// It runs three cooperating loops: the bus poller refreshing every sensor's
// latest reading, the uplink pushing pieces-per-minute rates upstream every
// 30 s (when poller_active is set), and a WebSocket broadcast of live
// readings. The HTTP API exposes raw readings, the projected rate listing,
// and a one-shot probe of an arbitrary device address.
//
// Flags:
//
//	-addr:   TCP address to listen on (default 127.0.0.1:8000)
//	-config: path to the settings JSON (default ./settings.json)
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/LLC-Polipak/OwenPulseCounterAPI/bus"
	"github.com/LLC-Polipak/OwenPulseCounterAPI/internal/server"
	"github.com/LLC-Polipak/OwenPulseCounterAPI/models"
	"github.com/LLC-Polipak/OwenPulseCounterAPI/owen"
	"github.com/LLC-Polipak/OwenPulseCounterAPI/poller"
	"github.com/LLC-Polipak/OwenPulseCounterAPI/uplink"
)

func main() {
	var (
		addr   = flag.String("addr", "127.0.0.1:8000", "http listen address")
		config = flag.String("config", "./settings.json", "path to settings JSON")
	)
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	set, err := models.Load(*config)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	if set.Debug {
		log.Printf("Settings: %d sensors, poll delay %.1fs, poller_active=%v",
			len(set.Sensors), set.PollDelay, set.PollerActive)
	}

	var line owen.Transactor
	if set.Serial != nil {
		b, err := bus.Open(set.Serial)
		if err != nil {
			log.Printf("ERROR: open %s: %v", set.Serial.Port, err)
			log.Fatalf("Available ports: %v", bus.ListPorts())
		}
		// Cycle the port once so stale driver state from a previous run
		// cannot poison the first transactions.
		if err := b.Reopen(); err != nil {
			log.Fatalf("Failed to reopen %s: %v", set.Serial.Port, err)
		}
		defer b.Close()
		line = b
		log.Printf("Serial line %s @ %d baud", set.Serial.Port, set.Serial.Baudrate)
	}

	reg, err := poller.NewRegistry(line, set.Sensors)
	if err != nil {
		log.Fatalf("Failed to build sensor registry: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go poller.New(reg, time.Duration(set.PollDelay*float64(time.Second))).Run(ctx)

	if set.PollerActive {
		log.Printf("Starting active poller, receiver %s", set.ReceiverURL)
		go uplink.New(set, poller.NewProjector(reg)).Run(ctx)
	}

	s := server.New(reg, set.Serial)
	go s.Watch(ctx, time.Second)

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", *addr, err)
	}
	log.Printf("Serving on http://%s", *addr)

	srv := &http.Server{Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("HTTP server: %v", err)
	}
	log.Printf("Shut down")
}
