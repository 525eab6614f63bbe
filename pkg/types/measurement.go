package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Measurement is one decoded register value of a meter.
type Measurement struct {
	Type      MeasurementType `json:"type"`
	Value     float64         `json:"value"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
}

func (m Measurement) String() string {
	return fmt.Sprintf("%s - %s - %s: %g %s",
		m.Source, m.Timestamp.Format(time.RFC3339), m.Type.Name, m.Value, m.Type.Unit)
}

func (m Measurement) ToJsonBytes() []byte {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return jsonBytes
}

// MeasurementFromJsonBytes returns nil when the payload is not a measurement.
func MeasurementFromJsonBytes(jsonBytes []byte) *Measurement {
	var m Measurement
	if err := json.Unmarshal(jsonBytes, &m); err != nil {
		return nil
	}
	if m.Type.Identifier == "" {
		return nil
	}
	return &m
}
