package dlms

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeData(t *testing.T) {
	cases := []struct {
		name  string
		in    []byte
		want  Data
		count int
	}{
		{"null", []byte{0x00}, Data{Type: TypeNull}, 1},
		{"boolean", []byte{0x03, 0x01}, Data{Type: TypeBoolean, Value: true}, 2},
		{"int8", []byte{0x0F, 0xFD}, Data{Type: TypeInt8, Value: int64(-3)}, 2},
		{"uint8", []byte{0x11, 0xFD}, Data{Type: TypeUint8, Value: uint64(253)}, 2},
		{"int16", []byte{0x10, 0xFF, 0xFE}, Data{Type: TypeInt16, Value: int64(-2)}, 3},
		{"uint16", []byte{0x12, 0x01, 0x00}, Data{Type: TypeUint16, Value: uint64(256)}, 3},
		{"int32", []byte{0x05, 0xFF, 0xFF, 0xFF, 0xFF}, Data{Type: TypeInt32, Value: int64(-1)}, 5},
		{"uint32", []byte{0x06, 0x00, 0x0D, 0x88, 0xC1}, Data{Type: TypeUint32, Value: uint64(886977)}, 5},
		{"uint64", []byte{0x15, 0, 0, 0, 0, 0, 0, 0x01, 0x00}, Data{Type: TypeUint64, Value: uint64(256)}, 9},
		{"enum", []byte{0x16, 0x1E}, Data{Type: TypeEnum, Value: uint64(30)}, 2},
		{"float32", []byte{0x17, 0x3F, 0xC0, 0x00, 0x00}, Data{Type: TypeFloat32, Value: 1.5}, 5},
		{"octet string", []byte{0x09, 0x02, 0xAB, 0xCD}, Data{Type: TypeOctetString, Value: []byte{0xAB, 0xCD}}, 4},
		{"visible string", []byte{0x0A, 0x03, 'a', 'b', 'c'}, Data{Type: TypeVisibleString, Value: "abc"}, 5},
		{"bit string", []byte{0x04, 0x0A, 0xFF, 0xC0}, Data{Type: TypeBitString, Value: []byte{0xFF, 0xC0}}, 4},
		{
			"structure",
			[]byte{0x02, 0x02, 0x11, 0x01, 0x0A, 0x01, 'x'},
			Data{Type: TypeStructure, Value: []Data{{Type: TypeUint8, Value: uint64(1)}, {Type: TypeVisibleString, Value: "x"}}},
			7,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Trailing bytes belong to the next value.
			got, n, err := DecodeData(append(tc.in, 0x00))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.count, n)
		})
	}
}

func TestDecodeDataLongLength(t *testing.T) {
	payload := bytes.Repeat([]byte{'A'}, 300)
	in := append([]byte{0x0A, 0x82, 0x01, 0x2C}, payload...)

	got, n, err := DecodeData(in)
	require.NoError(t, err)
	assert.Equal(t, len(in), n)
	assert.Equal(t, string(payload), got.Value)
}

func TestDecodeDataErrors(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		err  error
	}{
		{"empty", nil, ErrTruncated},
		{"short uint32", []byte{0x06, 0x00, 0x01}, ErrTruncated},
		{"short string", []byte{0x09, 0x05, 0x01}, ErrTruncated},
		{"array larger than input", []byte{0x01, 0x05, 0x11}, ErrTruncated},
		{"truncated element", []byte{0x02, 0x02, 0x11, 0x01, 0x12, 0x00}, ErrTruncated},
		{"unknown tag", []byte{0x13, 0x00}, ErrUnsupportedTag},
		{"oversized length", []byte{0x09, 0x85, 0, 0, 0, 0, 1}, ErrUnsupportedTag},
		{"too deep", append(bytes.Repeat([]byte{0x02, 0x01}, maxNesting+2), 0x00), ErrUnsupportedTag},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := DecodeData(tc.in)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestFloat64(t *testing.T) {
	cases := []struct {
		data Data
		want float64
		err  bool
	}{
		{Data{Type: TypeInt16, Value: int64(-5)}, -5, false},
		{Data{Type: TypeUint32, Value: uint64(941)}, 941, false},
		{Data{Type: TypeFloat64, Value: 2.25}, 2.25, false},
		{Data{Type: TypeBoolean, Value: true}, 1, false},
		{Data{Type: TypeVisibleString, Value: " 231.4 "}, 231.4, false},
		{Data{Type: TypeVisibleString, Value: "LGZ1"}, 0, true},
		{Data{Type: TypeVisibleString, Value: "NaN"}, 0, true},
		{Data{Type: TypeOctetString, Value: []byte{0x01}}, 0, true},
		{Data{Type: TypeNull}, 0, true},
	}

	for _, tc := range cases {
		got, err := tc.data.Float64()
		if tc.err {
			assert.ErrorIs(t, err, ErrNotNumeric, tc.data.String())
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestText(t *testing.T) {
	text, ok := Data{Type: TypeOctetString, Value: []byte("LGZ1030655933512")}.Text()
	assert.True(t, ok)
	assert.Equal(t, "LGZ1030655933512", text)

	text, ok = Data{Type: TypeVisibleString, Value: "44337811\x00\x00 "}.Text()
	assert.True(t, ok)
	assert.Equal(t, "44337811", text)

	text, ok = Data{Type: TypeOctetString, Value: []byte{0x00}}.Text()
	assert.True(t, ok)
	assert.Empty(t, text)

	_, ok = Data{Type: TypeOctetString, Value: []byte{0x07, 0xE5, 0x07}}.Text()
	assert.False(t, ok)

	_, ok = Data{Type: TypeOctetString, Value: []byte{0xFF, 0xFE}}.Text()
	assert.False(t, ok)

	_, ok = Data{Type: TypeUint32, Value: uint64(1)}.Text()
	assert.False(t, ok)
}

func TestDataTime(t *testing.T) {
	raw := []byte{0x07, 0xE5, 0x07, 0x06, 0x02, 0x0E, 0x3A, 0x12, 0xFF, 0x80, 0x00, 0x81}
	want := time.Date(2021, 7, 6, 14, 58, 18, 0, time.UTC)

	got, ok := Data{Type: TypeOctetString, Value: raw}.Time()
	require.True(t, ok)
	assert.True(t, want.Equal(got))

	got, ok = Data{Type: TypeDateTime, Value: raw}.Time()
	require.True(t, ok)
	assert.True(t, want.Equal(got))

	_, ok = Data{Type: TypeVisibleString, Value: "2021"}.Time()
	assert.False(t, ok)
}

func TestDataString(t *testing.T) {
	d := Data{Type: TypeStructure, Value: []Data{
		{Type: TypeOctetString, Value: []byte{0x01, 0xAB}},
		{Type: TypeUint8, Value: uint64(7)},
		{Type: TypeNull},
	}}
	assert.Equal(t, "[01AB, 7, null]", d.String())
}
