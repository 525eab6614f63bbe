package cosem

import (
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/obis"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	"github.com/rs/zerolog"
)

const DefaultDetectionAttempts = 3

// RegisterMapping translates a register code to a measurement type.
// The raw value is multiplied by Scaling.
type RegisterMapping struct {
	Code    obis.Code
	Type    types.MeasurementType
	Scaling float64
	// Exact mappings match the full six field code only.
	Exact bool
}

// Catalog holds the register mappings and the identity state of one meter.
// It is not safe for concurrent use, every driver owns its own catalog.
type Catalog struct {
	byKey map[obis.Key]RegisterMapping
	exact map[obis.Code]RegisterMapping

	idCodes   []obis.Code
	clockCode obis.Code

	fallbackID   string
	attemptsLeft int
	id           string
	pinned       bool

	log zerolog.Logger
}

type Option func(*catalogOptions)

type catalogOptions struct {
	extensions []RegisterMapping
	idCodes    []obis.Code
	clockCode  obis.Code
	fallbackID string
	attempts   int
	log        zerolog.Logger
}
