package dlms

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type DataType byte

const (
	TypeNull          DataType = 0x00
	TypeArray         DataType = 0x01
	TypeStructure     DataType = 0x02
	TypeBoolean       DataType = 0x03
	TypeBitString     DataType = 0x04
	TypeInt32         DataType = 0x05
	TypeUint32        DataType = 0x06
	TypeOctetString   DataType = 0x09
	TypeVisibleString DataType = 0x0A
	TypeUTF8String    DataType = 0x0C
	TypeBCD           DataType = 0x0D
	TypeInt8          DataType = 0x0F
	TypeInt16         DataType = 0x10
	TypeUint8         DataType = 0x11
	TypeUint16        DataType = 0x12
	TypeInt64         DataType = 0x14
	TypeUint64        DataType = 0x15
	TypeEnum          DataType = 0x16
	TypeFloat32       DataType = 0x17
	TypeFloat64       DataType = 0x18
	TypeDateTime      DataType = 0x19
	TypeDate          DataType = 0x1A
	TypeTime          DataType = 0x1B
)

const maxNesting = 16

// Data is one A-XDR encoded value.
//
// Value holds nil, bool, int64, uint64, float64, string, []byte or []Data
// depending on Type. Date-time, date and time keep their raw octets.
type Data struct {
	Type  DataType
	Value any
}

// DecodeData decodes one tagged value and returns the number of bytes read.
func DecodeData(b []byte) (Data, int, error) {
	return decodeData(b, 0)
}

func decodeData(b []byte, depth int) (Data, int, error) {
	if len(b) == 0 {
		return Data{}, 0, fmt.Errorf("%w: missing data tag", ErrTruncated)
	}
	if depth > maxNesting {
		return Data{}, 0, fmt.Errorf("%w: nesting deeper than %d", ErrUnsupportedTag, maxNesting)
	}

	t := DataType(b[0])
	pos := 1

	fixed := func(n int) ([]byte, error) {
		if len(b) < pos+n {
			return nil, fmt.Errorf("%w: type 0x%02X needs %d bytes", ErrTruncated, byte(t), n)
		}
		v := b[pos : pos+n]
		pos += n
		return v, nil
	}

	switch t {
	case TypeNull:
		return Data{Type: t}, pos, nil

	case TypeArray, TypeStructure:
		count, n, err := DecodeLength(b[pos:])
		if err != nil {
			return Data{}, 0, err
		}
		pos += n
		// Every element needs at least its tag byte.
		if count > len(b)-pos {
			return Data{}, 0, fmt.Errorf("%w: %d elements announced, %d bytes left", ErrTruncated, count, len(b)-pos)
		}
		elements := make([]Data, 0, count)
		for i := 0; i < count; i++ {
			element, n, err := decodeData(b[pos:], depth+1)
			if err != nil {
				return Data{}, 0, fmt.Errorf("element %d: %w", i, err)
			}
			pos += n
			elements = append(elements, element)
		}
		return Data{Type: t, Value: elements}, pos, nil

	case TypeOctetString, TypeVisibleString, TypeUTF8String:
		length, n, err := DecodeLength(b[pos:])
		if err != nil {
			return Data{}, 0, err
		}
		pos += n
		raw, err := fixed(length)
		if err != nil {
			return Data{}, 0, err
		}
		if t == TypeOctetString {
			return Data{Type: t, Value: append([]byte(nil), raw...)}, pos, nil
		}
		return Data{Type: t, Value: string(raw)}, pos, nil

	case TypeBitString:
		bits, n, err := DecodeLength(b[pos:])
		if err != nil {
			return Data{}, 0, err
		}
		pos += n
		raw, err := fixed((bits + 7) / 8)
		if err != nil {
			return Data{}, 0, err
		}
		return Data{Type: t, Value: append([]byte(nil), raw...)}, pos, nil

	case TypeBoolean:
		raw, err := fixed(1)
		if err != nil {
			return Data{}, 0, err
		}
		return Data{Type: t, Value: raw[0] != 0}, pos, nil

	case TypeInt8:
		raw, err := fixed(1)
		if err != nil {
			return Data{}, 0, err
		}
		return Data{Type: t, Value: int64(int8(raw[0]))}, pos, nil

	case TypeUint8, TypeEnum, TypeBCD:
		raw, err := fixed(1)
		if err != nil {
			return Data{}, 0, err
		}
		return Data{Type: t, Value: uint64(raw[0])}, pos, nil

	case TypeInt16:
		raw, err := fixed(2)
		if err != nil {
			return Data{}, 0, err
		}
		return Data{Type: t, Value: int64(int16(binary.BigEndian.Uint16(raw)))}, pos, nil

	case TypeUint16:
		raw, err := fixed(2)
		if err != nil {
			return Data{}, 0, err
		}
		return Data{Type: t, Value: uint64(binary.BigEndian.Uint16(raw))}, pos, nil

	case TypeInt32:
		raw, err := fixed(4)
		if err != nil {
			return Data{}, 0, err
		}
		return Data{Type: t, Value: int64(int32(binary.BigEndian.Uint32(raw)))}, pos, nil

	case TypeUint32:
		raw, err := fixed(4)
		if err != nil {
			return Data{}, 0, err
		}
		return Data{Type: t, Value: uint64(binary.BigEndian.Uint32(raw))}, pos, nil

	case TypeInt64:
		raw, err := fixed(8)
		if err != nil {
			return Data{}, 0, err
		}
		return Data{Type: t, Value: int64(binary.BigEndian.Uint64(raw))}, pos, nil

	case TypeUint64:
		raw, err := fixed(8)
		if err != nil {
			return Data{}, 0, err
		}
		return Data{Type: t, Value: binary.BigEndian.Uint64(raw)}, pos, nil

	case TypeFloat32:
		raw, err := fixed(4)
		if err != nil {
			return Data{}, 0, err
		}
		return Data{Type: t, Value: float64(math.Float32frombits(binary.BigEndian.Uint32(raw)))}, pos, nil

	case TypeFloat64:
		raw, err := fixed(8)
		if err != nil {
			return Data{}, 0, err
		}
		return Data{Type: t, Value: math.Float64frombits(binary.BigEndian.Uint64(raw))}, pos, nil

	case TypeDateTime, TypeDate, TypeTime:
		size := map[DataType]int{TypeDateTime: 12, TypeDate: 5, TypeTime: 4}[t]
		raw, err := fixed(size)
		if err != nil {
			return Data{}, 0, err
		}
		return Data{Type: t, Value: append([]byte(nil), raw...)}, pos, nil
	}

	return Data{}, 0, fmt.Errorf("%w: 0x%02X", ErrUnsupportedTag, byte(t))
}

// DecodeLength reads an A-XDR length: one byte below 0x80, or 0x8N followed by N bytes.
func DecodeLength(b []byte) (int, int, error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("%w: missing length", ErrTruncated)
	}
	if b[0] < 0x80 {
		return int(b[0]), 1, nil
	}
	n := int(b[0] & 0x7F)
	if n == 0 || n > 3 {
		return 0, 0, fmt.Errorf("%w: length of %d bytes", ErrUnsupportedTag, n)
	}
	if len(b) < 1+n {
		return 0, 0, fmt.Errorf("%w: length needs %d bytes", ErrTruncated, n)
	}
	length := 0
	for _, v := range b[1 : 1+n] {
		length = length<<8 | int(v)
	}
	return length, 1 + n, nil
}

// Elements returns the members of an array or structure.
func (d Data) Elements() ([]Data, bool) {
	if d.Type != TypeArray && d.Type != TypeStructure {
		return nil, false
	}
	elements, _ := d.Value.([]Data)
	return elements, true
}

func (d Data) Bytes() ([]byte, bool) {
	b, ok := d.Value.([]byte)
	return b, ok
}

func (d Data) IsNumeric() bool {
	switch d.Value.(type) {
	case int64, uint64, float64:
		return true
	}
	return false
}

// Float64 coerces the value to a finite float.
// Numeric strings are accepted as some meters push registers as visible strings.
func (d Data) Float64() (float64, error) {
	var f float64
	switch v := d.Value.(type) {
	case int64:
		f = float64(v)
	case uint64:
		f = float64(v)
	case float64:
		f = v
	case bool:
		if v {
			f = 1
		}
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotNumeric, v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: type 0x%02X", ErrNotNumeric, byte(d.Type))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v is not finite", ErrNotNumeric, f)
	}
	return f, nil
}

// Text returns the value as a trimmed string if it is printable text.
// Octet strings qualify when all their bytes are printable.
func (d Data) Text() (string, bool) {
	var s string
	switch v := d.Value.(type) {
	case string:
		s = v
	case []byte:
		if d.Type != TypeOctetString {
			return "", false
		}
		s = string(v)
	default:
		return "", false
	}
	if !utf8.ValidString(s) {
		return "", false
	}
	s = strings.TrimFunc(s, func(r rune) bool { return r == 0 || unicode.IsSpace(r) })
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return "", false
		}
	}
	return s, true
}

// Time decodes a COSEM date-time carried as a date-time or a 12 byte octet string.
func (d Data) Time() (time.Time, bool) {
	if d.Type != TypeDateTime && d.Type != TypeOctetString {
		return time.Time{}, false
	}
	b, ok := d.Value.([]byte)
	if !ok {
		return time.Time{}, false
	}
	return ParseDateTime(b)
}

func (d Data) String() string {
	switch v := d.Value.(type) {
	case []byte:
		return fmt.Sprintf("%X", v)
	case []Data:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case nil:
		return "null"
	}
	return fmt.Sprint(d.Value)
}
