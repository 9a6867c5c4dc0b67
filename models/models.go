// Package models defines the JSON-serialized configuration consumed by the
// gateway at startup: the upstream receiver, the serial line, and the list
// of polled sensors.
package models

import (
	"encoding/json"
	"fmt"
	"os"
)

// Driver names accepted in a sensor record.
const (
	DriverOwenCI8 = "OWEN-CI8"
	DriverDummy   = "Dummy"
)

// Settings is the top-level configuration model.
type Settings struct {
	ReceiverURL   string `json:"receiver_url"`
	ReceiverToken string `json:"receiver_token"`
	PollerActive  bool   `json:"poller_active"`
	Debug         bool   `json:"debug"`

	// PollerConnectionTimeout bounds uplink POSTs, in seconds.
	PollerConnectionTimeout float64 `json:"poller_connection_timeout"`

	// PollDelay is the pause between poll rounds, in seconds.
	PollDelay float64 `json:"poll_delay"`

	Serial  *Serial   `json:"serial_settings"`
	Sensors []*Sensor `json:"sensors_settings"`
}

// Serial contains the serial-line connection settings shared by all sensors.
type Serial struct {
	Port     string  `json:"port"`
	Baudrate int     `json:"baudrate"`
	Bytesize int     `json:"bytesize"`
	Parity   string  `json:"parity"`
	Stopbits int     `json:"stopbits"`
	Timeout  float64 `json:"timeout"` // per-read deadline, seconds
}

// Sensor binds a logical work-center name to one addressed device and the
// parameter polled from it.
type Sensor struct {
	Name      string `json:"name"`
	Driver    string `json:"driver"`
	Addr      int    `json:"addr"`
	AddrLen   int    `json:"addr_len"`
	Parameter string `json:"parameter"`
}

// Load reads, validates, and defaults a settings file.
func Load(path string) (*Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	set, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Decode parses raw settings JSON, applies defaults, and validates.
func Decode(raw []byte) (*Settings, error) {
	set := &Settings{
		PollerConnectionTimeout: 1.5,
		PollDelay:               0.5,
	}
	if err := json.Unmarshal(raw, set); err != nil {
		return nil, err
	}
	if set.PollDelay < 0 {
		return nil, fmt.Errorf("poll_delay must be non-negative")
	}
	if set.PollerActive && set.ReceiverURL == "" {
		return nil, fmt.Errorf("poller_active requires receiver_url")
	}
	if set.Serial != nil {
		if set.Serial.Port == "" {
			return nil, fmt.Errorf("serial_settings.port is required")
		}
		if set.Serial.Baudrate == 0 {
			set.Serial.Baudrate = 9600
		}
		if set.Serial.Bytesize == 0 {
			set.Serial.Bytesize = 8
		}
		if set.Serial.Parity == "" {
			set.Serial.Parity = "N"
		}
		if set.Serial.Stopbits == 0 {
			set.Serial.Stopbits = 1
		}
		if set.Serial.Timeout == 0 {
			set.Serial.Timeout = 0.2
		}
	}
	names := make(map[string]struct{}, len(set.Sensors))
	for _, s := range set.Sensors {
		if s.Name == "" {
			return nil, fmt.Errorf("sensor without a name")
		}
		if _, dup := names[s.Name]; dup {
			return nil, fmt.Errorf("duplicate sensor name %q", s.Name)
		}
		names[s.Name] = struct{}{}
		if s.Driver == "" {
			s.Driver = DriverOwenCI8
		}
		if s.Driver != DriverOwenCI8 && s.Driver != DriverDummy {
			return nil, fmt.Errorf("sensor %q: unknown driver %q", s.Name, s.Driver)
		}
		if s.AddrLen == 0 {
			s.AddrLen = 8
		}
		if s.Parameter == "" {
			s.Parameter = "DCNT"
		}
		if s.Driver == DriverOwenCI8 && set.Serial == nil {
			return nil, fmt.Errorf("sensor %q needs serial_settings", s.Name)
		}
	}
	return set, nil
}
