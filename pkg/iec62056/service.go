package iec62056

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/obis"
	"github.com/rs/zerolog"
	"github.com/sigurn/crc16"
)

// MaxTelegramSize bounds the bytes buffered while waiting for a telegram end.
const MaxTelegramSize = 8192

// Full "1-0:1.8.1" or reduced "1.8.1" address followed by bracketed values.
var dataSetPattern = regexp.MustCompile(`(\d{1,3}-\d{1,3}:)?(\d{1,3}\.\d{1,3}(?:\.\d{1,3})?)((?:\([^()\r\n]*\))+)`)

// DSMR telegram end: '!' and four hex digits.
var telegramEndPattern = regexp.MustCompile(`!([0-9A-Fa-f]{4})\r?\n`)

var crcTable = crc16.MakeTable(crc16.CRC16_ARC)

// ParseDataSet finds the data set in line. Control characters around it are ignored.
func ParseDataSet(line string) (DataSet, bool) {
	match := dataSetPattern.FindStringSubmatch(line)
	if match == nil {
		return DataSet{}, false
	}

	ds := DataSet{Address: match[1] + match[2]}
	raw := strings.TrimSuffix(strings.TrimPrefix(match[3], "("), ")")
	for _, part := range strings.Split(raw, ")(") {
		value, unit, _ := strings.Cut(part, "*")
		ds.Values = append(ds.Values, Value{Raw: value, Unit: unit})
	}
	return ds, true
}

// ParseLines returns the data sets of a response, skipping lines without one.
func ParseLines(text string) []DataSet {
	var sets []DataSet
	for _, line := range strings.Split(text, "\n") {
		if ds, ok := ParseDataSet(line); ok {
			sets = append(sets, ds)
		}
	}
	return sets
}

// Code returns the OBIS code of the address. Reduced addresses are electricity codes.
func (d DataSet) Code() (obis.Code, error) {
	if strings.Contains(d.Address, ":") {
		return obis.Parse(d.Address)
	}
	return obis.ParseShort(d.Address)
}

// Last returns the last value. DSMR gas readings carry the capture time first.
func (d DataSet) Last() Value {
	if len(d.Values) == 0 {
		return Value{}
	}
	return d.Values[len(d.Values)-1]
}

// ParseTimestamp reads the DSMR "YYMMDDhhmmssX" form. X is W for winter (UTC+1)
// and S for summer time (UTC+2).
func ParseTimestamp(s string) (time.Time, error) {
	if len(s) != 13 {
		return time.Time{}, fmt.Errorf("timestamp %q has %d characters", s, len(s))
	}
	var loc *time.Location
	switch s[12] {
	case 'W', 'w':
		loc = time.FixedZone("CET", 3600)
	case 'S', 's':
		loc = time.FixedZone("CEST", 7200)
	default:
		return time.Time{}, fmt.Errorf("timestamp %q has unknown season flag", s)
	}
	return time.ParseInLocation("060102150405", s[:12], loc)
}

func NewTelegramBuffer(log zerolog.Logger) *TelegramBuffer {
	return &TelegramBuffer{log: log}
}

func (b *TelegramBuffer) Append(data []byte) {
	if len(b.buf) > MaxTelegramSize {
		b.log.Warn().Int("size", len(b.buf)).Msg("Telegram buffer overflow, dropping buffered data")
		b.buf = b.buf[:0]
	}
	b.buf = append(b.buf, data...)
}

// Next returns the next telegram with a valid CRC. Telegrams with a bad CRC
// are dropped with a warning.
func (b *TelegramBuffer) Next() (string, bool) {
	for {
		start := bytes.IndexByte(b.buf, '/')
		if start < 0 {
			b.buf = b.buf[:0]
			return "", false
		}
		if start > 0 {
			b.buf = append(b.buf[:0], b.buf[start:]...)
		}

		loc := telegramEndPattern.FindSubmatchIndex(b.buf)
		if loc == nil {
			return "", false
		}
		// A new start before the end means the previous telegram was cut off.
		if next := bytes.IndexByte(b.buf[1:loc[0]], '/'); next >= 0 {
			b.log.Warn().Msg("Incomplete P1 telegram, dropping it")
			b.buf = append(b.buf[:0], b.buf[next+1:]...)
			continue
		}

		telegram := string(b.buf[:loc[1]])
		b.buf = append(b.buf[:0], b.buf[loc[1]:]...)
		if !ValidateCRC(telegram) {
			b.log.Warn().Msg("Invalid CRC, skipping telegram")
			continue
		}
		return telegram, true
	}
}

// ValidateCRC checks the CRC-16/ARC over '/' through '!' against the
// four hex digits that follow.
func ValidateCRC(telegram string) bool {
	end := strings.LastIndexByte(telegram, '!')
	if end < 0 || len(telegram) < end+5 {
		return false
	}
	given := telegram[end+1 : end+5]
	calculated := fmt.Sprintf("%04X", crc16.Checksum([]byte(telegram[:end+1]), crcTable))
	return strings.ToUpper(given) == calculated
}
