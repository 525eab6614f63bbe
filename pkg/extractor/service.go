// Package extractor turns decoded register objects into measurements.
package extractor

import (
	"math"
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/cosem"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/dlms"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	"github.com/rs/zerolog"
)

type Extractor struct {
	catalog *cosem.Catalog
	log     zerolog.Logger
}

func New(catalog *cosem.Catalog, log zerolog.Logger) *Extractor {
	return &Extractor{catalog: catalog, log: log}
}

// Extract returns one measurement per mapped register holding a finite numeric value.
// Unmapped registers and invalid values are skipped.
func (e *Extractor) Extract(objects *dlms.Objects, source string, timestamp time.Time) []types.Measurement {
	if objects == nil {
		return nil
	}

	var measurements []types.Measurement
	for _, obj := range objects.All() {
		if obj.Kind != dlms.KindRegister {
			continue
		}
		mapping, ok := e.catalog.Register(obj.Code)
		if !ok {
			continue
		}
		if obj.Value == nil || obj.Value.Type == dlms.TypeNull {
			e.log.Debug().Str("obis", obj.Code.String()).Msg("No value received for register")
			continue
		}

		raw, err := obj.Value.Float64()
		if err != nil {
			e.log.Debug().Err(err).Str("obis", obj.Code.String()).Msg("Skipping register")
			continue
		}
		value := raw * mapping.Scaling
		if obj.HasScaler {
			value *= math.Pow10(int(obj.Scaler))
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			e.log.Debug().Str("obis", obj.Code.String()).Float64("raw", raw).Msg("Register value out of range")
			continue
		}

		measurements = append(measurements, types.Measurement{
			Type:      mapping.Type,
			Value:     value,
			Source:    source,
			Timestamp: timestamp,
		})
	}
	return measurements
}
