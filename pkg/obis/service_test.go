package obis_test

import (
	"testing"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/obis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormats(t *testing.T) {
	want := obis.Code{1, 0, 1, 8, 0, 255}

	for _, text := range []string{"1.0.1.8.0.255", "1-0:1.8.0*255", "1-0:1.8.0", "1.0.1.8.0"} {
		t.Run(text, func(t *testing.T) {
			got, err := obis.Parse(text)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, text := range []string{"", "1.0.1.8", "a.b.c.d.e.f", "1.0.1.8.0.256", "1.0.1.8.0.255.1", "1234.0.1.8.0.255"} {
		t.Run(text, func(t *testing.T) {
			_, err := obis.Parse(text)
			assert.ErrorIs(t, err, obis.ErrFormat)
		})
	}
}

func TestParseShort(t *testing.T) {
	code, err := obis.ParseShort("81.7.4")
	require.NoError(t, err)
	assert.Equal(t, obis.Code{1, 0, 81, 7, 4, 255}, code)

	code, err = obis.ParseShort("14.7")
	require.NoError(t, err)
	assert.Equal(t, obis.Code{1, 0, 14, 7, 0, 255}, code)

	_, err = obis.ParseShort("1-0:1.8.0")
	assert.ErrorIs(t, err, obis.ErrFormat)
}

func TestFromBytes(t *testing.T) {
	code, err := obis.FromBytes([]byte{0, 0, 42, 0, 0, 255})
	require.NoError(t, err)
	assert.Equal(t, obis.LogicalDeviceName, code)

	for _, b := range [][]byte{
		nil,
		{1, 0, 1, 8, 0},
		{1, 0, 1, 8, 0, 255, 0},
		{10, 0, 1, 8, 0, 255},
		{1, 65, 1, 8, 0, 255},
		{1, 0, 1, 128, 0, 255},
	} {
		assert.False(t, obis.IsPlausible(b), "% X", b)
		_, err := obis.FromBytes(b)
		assert.ErrorIs(t, err, obis.ErrFormat)
	}
}

func TestEqualIgnoresChannelAndStorage(t *testing.T) {
	a := obis.MustParse("1-0:1.8.0*255")
	b := obis.MustParse("1-1:1.8.0*0")
	c := obis.MustParse("1-0:1.8.1*255")

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a, b)
	assert.False(t, a.Equal(c))
}

func TestFormatting(t *testing.T) {
	code := obis.Code{1, 0, 32, 7, 0, 255}
	assert.Equal(t, "1-0:32.7.0*255", code.String())
	assert.Equal(t, "1.0.32.7.0.255", code.Dotted())
	assert.Equal(t, []byte{1, 0, 32, 7, 0, 255}, code.Bytes())
}
