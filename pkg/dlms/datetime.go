package dlms

import (
	"encoding/binary"
	"time"
)

const deviationUnspecified = -0x8000

// ParseDateTime decodes the 12 byte COSEM date-time.
//
// Layout: year(2) month day weekday hour minute second hundredths deviation(2) status.
// Deviation is the offset of local time to UTC in minutes, negated.
// Unspecified wildcard fields other than hundredths make the value invalid.
func ParseDateTime(b []byte) (time.Time, bool) {
	if len(b) != 12 {
		return time.Time{}, false
	}

	year := int(binary.BigEndian.Uint16(b[0:2]))
	month, day := int(b[2]), int(b[3])
	hour, minute, second := int(b[5]), int(b[6]), int(b[7])
	hundredths := int(b[8])
	deviation := int(int16(binary.BigEndian.Uint16(b[9:11])))

	if year == 0xFFFF || month < 1 || month > 12 || day < 1 || day > 31 ||
		hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}
	if hundredths > 99 {
		hundredths = 0
	}

	loc := time.UTC
	if deviation != deviationUnspecified && deviation != 0 {
		loc = time.FixedZone("", -deviation*60)
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, hundredths*int(10*time.Millisecond), loc)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// EncodeDateTime encodes t as a COSEM date-time carrying its UTC offset.
func EncodeDateTime(t time.Time) []byte {
	_, offset := t.Zone()
	b := make([]byte, 12)
	binary.BigEndian.PutUint16(b[0:2], uint16(t.Year()))
	b[2] = byte(t.Month())
	b[3] = byte(t.Day())
	// Monday is 1, Sunday 7.
	b[4] = byte((int(t.Weekday())+6)%7 + 1)
	b[5] = byte(t.Hour())
	b[6] = byte(t.Minute())
	b[7] = byte(t.Second())
	b[8] = byte(t.Nanosecond() / int(10*time.Millisecond))
	binary.BigEndian.PutUint16(b[9:11], uint16(int16(-offset/60)))
	return b
}
