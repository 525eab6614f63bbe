package obis

import "fmt"

var ErrFormat = fmt.Errorf("invalid OBIS code")

// Code is a six field OBIS identifier A-B:C.D.E*F.
//
// Go equality (==) compares all six fields. Lookups that must tolerate
// meters varying the channel (B) or storage (F) fields use Key.
type Code struct {
	A, B, C, D, E, F uint8
}

// Key is the subset of a Code that identifies the kind of quantity.
type Key struct {
	A, C, D, E uint8
}

// Well known object locations.
var (
	Clock             = Code{0, 0, 1, 0, 0, 255}
	LogicalDeviceName = Code{0, 0, 42, 0, 0, 255}
	DeviceID1         = Code{0, 0, 96, 1, 0, 255}
	DeviceID2         = Code{0, 0, 96, 1, 1, 255}
)
