// Package iec62056 parses the character protocol of IEC 62056-21 meters and
// DSMR P1 telegrams.
package iec62056

import (
	"github.com/rs/zerolog"
)

// Value is one bracketed value of a data set, "0.386*kW" splits into Raw and Unit.
type Value struct {
	Raw  string
	Unit string
}

// DataSet is one line "address(value)(value)...".
type DataSet struct {
	Address string
	Values  []Value
}

// TelegramBuffer cuts DSMR P1 telegrams out of a byte stream.
// A telegram starts with '/' and ends with "!" followed by its CRC.
type TelegramBuffer struct {
	buf []byte
	log zerolog.Logger
}
