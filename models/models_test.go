package models

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleSettings = `{
  "receiver_url": "http://phyhub.local/api/rates",
  "receiver_token": "sekret",
  "poller_active": true,
  "serial_settings": {"port": "/dev/ttyUSB0", "baudrate": 9600},
  "sensors_settings": [
    {"name": "s10", "addr": 2},
    {"name": "bench", "driver": "Dummy", "parameter": "DCNT"}
  ]
}`

func TestDecodeDefaults(t *testing.T) {
	set, err := Decode([]byte(sampleSettings))
	if err != nil {
		t.Fatal(err)
	}
	if set.PollerConnectionTimeout != 1.5 {
		t.Errorf("poller_connection_timeout = %v", set.PollerConnectionTimeout)
	}
	if set.PollDelay != 0.5 {
		t.Errorf("poll_delay = %v", set.PollDelay)
	}
	ser := set.Serial
	if ser.Bytesize != 8 || ser.Parity != "N" || ser.Stopbits != 1 || ser.Timeout != 0.2 {
		t.Errorf("serial defaults = %+v", ser)
	}
	s10 := set.Sensors[0]
	if s10.Driver != DriverOwenCI8 || s10.AddrLen != 8 || s10.Parameter != "DCNT" {
		t.Errorf("sensor defaults = %+v", s10)
	}
	if set.Sensors[1].Driver != DriverDummy {
		t.Errorf("driver = %q", set.Sensors[1].Driver)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"invalid json", `{`},
		{"negative poll delay", `{"poll_delay": -1}`},
		{"active without receiver", `{"poller_active": true}`},
		{"serial without port", `{"serial_settings": {"baudrate": 9600}}`},
		{"nameless sensor", `{"sensors_settings": [{"addr": 2}]}`},
		{"duplicate names", `{"sensors_settings": [{"name": "a"}, {"name": "a"}]}`},
		{"unknown driver", `{"sensors_settings": [{"name": "a", "driver": "Modbus"}]}`},
		{"owen sensor without serial", `{"sensors_settings": [{"name": "a", "driver": "OWEN-CI8"}]}`},
	}
	for _, tt := range tests {
		if _, err := Decode([]byte(tt.raw)); err == nil {
			t.Errorf("%s: accepted", tt.name)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(sampleSettings), 0o644); err != nil {
		t.Fatal(err)
	}
	set, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if set.ReceiverURL != "http://phyhub.local/api/rates" {
		t.Errorf("receiver_url = %q", set.ReceiverURL)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file accepted")
	}
}
