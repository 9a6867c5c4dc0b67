package server

import (
	"time"

	"github.com/LLC-Polipak/OwenPulseCounterAPI/owen"
	"github.com/LLC-Polipak/OwenPulseCounterAPI/poller"
)

// APIError is the error envelope returned by JSON endpoints.
type APIError struct {
	Error string `json:"detail"`
}

// RootResponse answers the service banner endpoint.
type RootResponse struct {
	Message string `json:"message"`
}

// SensorReading is the raw latest sample of one sensor. Reading is null
// while the sensor is offline; ReadingTime is null until the first
// successful sample.
type SensorReading struct {
	Name        string     `json:"name"`
	Reading     owen.Value `json:"reading"`
	ReadingTime *time.Time `json:"reading_time"`
}

func sensorReadingRow(s *poller.Sensor) SensorReading {
	r := s.Reading()
	row := SensorReading{Name: s.Name, Reading: r.Value}
	if !r.Time.IsZero() {
		t := r.Time
		row.ReadingTime = &t
	}
	return row
}

// ProbeResult answers the one-shot probe endpoint.
type ProbeResult struct {
	Addr       int           `json:"addr"`
	Value      owen.Value    `json:"value"`
	MeasuredAt *time.Time    `json:"measured_at"`
	Status     poller.Status `json:"status"`
}
