package obis

import (
	"fmt"
	"regexp"
	"strconv"
)

// Dotted "1.0.1.7.0.255" and IEC "1-0:1.7.0*255" forms. F may be omitted.
var codePattern = regexp.MustCompile(`^(\d{1,3})\W(\d{1,3})\W(\d{1,3})\W(\d{1,3})\W(\d{1,3})(?:\W(\d{1,3}))?$`)

// Reduced IEC 62056-21 addresses "C.D" and "C.D.E" as sent by character mode meters.
var shortPattern = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})(?:\.(\d{1,3}))?$`)

// Parse reads a code in dotted or IEC notation.
func Parse(text string) (Code, error) {
	match := codePattern.FindStringSubmatch(text)
	if match == nil {
		return Code{}, fmt.Errorf("%w: %q does not match A.B.C.D.E.F", ErrFormat, text)
	}
	if match[6] == "" {
		match[6] = "255"
	}

	var fields [6]uint8
	for i := range fields {
		v, err := field(match[i+1])
		if err != nil {
			return Code{}, fmt.Errorf("%w: %q: %v", ErrFormat, text, err)
		}
		fields[i] = v
	}
	return Code{fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]}, nil
}

// MustParse is Parse for static tables.
func MustParse(text string) Code {
	code, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return code
}

// ParseShort reads a reduced address "C.D" or "C.D.E" as electricity code 1-0:C.D.E*255.
func ParseShort(text string) (Code, error) {
	match := shortPattern.FindStringSubmatch(text)
	if match == nil {
		return Code{}, fmt.Errorf("%w: %q does not match C.D.E", ErrFormat, text)
	}
	if match[3] == "" {
		match[3] = "0"
	}

	code := Code{A: 1, B: 0, F: 255}
	for i, dst := range []*uint8{&code.C, &code.D, &code.E} {
		v, err := field(match[i+1])
		if err != nil {
			return Code{}, fmt.Errorf("%w: %q: %v", ErrFormat, text, err)
		}
		*dst = v
	}
	return code, nil
}

func field(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("field %s out of range", s)
	}
	return uint8(v), nil
}

// FromBytes builds a code from a six byte logical name.
func FromBytes(b []byte) (Code, error) {
	if !IsPlausible(b) {
		return Code{}, fmt.Errorf("%w: % X is not a plausible logical name", ErrFormat, b)
	}
	return Code{b[0], b[1], b[2], b[3], b[4], b[5]}, nil
}

// IsPlausible tells an OBIS shaped octet string apart from a raw six byte value.
func IsPlausible(b []byte) bool {
	return len(b) == 6 && b[0] < 10 && b[1] <= 64 && b[3] < 128
}

func (c Code) Key() Key {
	return Key{c.A, c.C, c.D, c.E}
}

// Equal compares two codes on their Key fields.
func (c Code) Equal(other Code) bool {
	return c.Key() == other.Key()
}

func (c Code) Bytes() []byte {
	return []byte{c.A, c.B, c.C, c.D, c.E, c.F}
}

// String returns the IEC display form "1-0:1.7.0*255".
func (c Code) String() string {
	return fmt.Sprintf("%d-%d:%d.%d.%d*%d", c.A, c.B, c.C, c.D, c.E, c.F)
}

func (c Code) Dotted() string {
	return fmt.Sprintf("%d.%d.%d.%d.%d.%d", c.A, c.B, c.C, c.D, c.E, c.F)
}
