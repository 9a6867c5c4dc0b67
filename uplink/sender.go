// Package uplink periodically pushes projected pieces-per-minute rates to
// the upstream receiver. Delivery is fire-and-forget: failures are logged
// and the next cycle sends fresh data.
package uplink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/LLC-Polipak/OwenPulseCounterAPI/models"
	"github.com/LLC-Polipak/OwenPulseCounterAPI/poller"
)

// DispatchInterval is the pause between uplink cycles.
const DispatchInterval = 30 * time.Second

// reading is the upstream payload row.
type reading struct {
	Sensor string  `json:"sensor"`
	Value  float64 `json:"value"`
}

// Sender owns one projector consumer and the HTTP client used to reach the
// receiver.
type Sender struct {
	url      string
	token    string
	proj     *poller.Projector
	client   *http.Client
	interval time.Duration
}

// New builds a sender from the settings. The connection timeout bounds the
// whole POST, including dialing.
func New(set *models.Settings, proj *poller.Projector) *Sender {
	return &Sender{
		url:   set.ReceiverURL,
		token: set.ReceiverToken,
		proj:  proj,
		client: &http.Client{
			Timeout: time.Duration(set.PollerConnectionTimeout * float64(time.Second)),
		},
		interval: DispatchInterval,
	}
}

// Run dispatches batches until the context is canceled.
func (s *Sender) Run(ctx context.Context) {
	for {
		if batch := s.proj.Batch(); len(batch) > 0 {
			if err := s.send(batch); err != nil {
				log.Printf("ERROR: uplink: %v", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}
	}
}

// send posts one batch of rates to the receiver.
func (s *Sender) send(batch []poller.Sample) error {
	rows := make([]reading, 0, len(batch))
	for _, sample := range batch {
		if sample.Value == nil {
			continue
		}
		rows = append(rows, reading{Sensor: sample.Sensor, Value: *sample.Value})
	}
	body, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	answer, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read receiver answer: %w", err)
	}
	log.Printf("uplink: sent %d readings, receiver answered %d: %s", len(rows), resp.StatusCode, bytes.TrimSpace(answer))
	return nil
}
