package sink

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/config"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/meterdb"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	for _, tc := range []struct {
		cfg  config.SinkConfig
		want any
	}{
		{config.SinkConfig{Type: "logger"}, &LoggerSink{}},
		{config.SinkConfig{Type: "mqtt", Host: "localhost"}, &MqttSink{}},
		{config.SinkConfig{Type: "csv", Directory: t.TempDir()}, &CsvSink{}},
		{config.SinkConfig{Type: "sqlite", DatabasePath: filepath.Join(t.TempDir(), "x.db")}, &SqliteSink{}},
		{config.SinkConfig{Type: "websocket"}, &WebsocketSink{}},
	} {
		s, err := Build(tc.cfg, zerolog.Nop())
		require.NoError(t, err, tc.cfg.Type)
		assert.IsType(t, tc.want, s)
		assert.Equal(t, tc.cfg.Type, s.Name())
	}

	s, err := Build(config.SinkConfig{Type: "logger", Name: "DataLogger"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "DataLogger", s.Name())

	_, err = Build(config.SinkConfig{Type: "kafka"}, zerolog.Nop())
	assert.True(t, errors.Is(err, ErrUnknownType))

	s, err = Build(config.SinkConfig{Type: "mqtt"}, zerolog.Nop())
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestLoggerSink(t *testing.T) {
	var buf bytes.Buffer
	// Info is logged even when the component is set to warnings only.
	s := NewLoggerSink("DataLogger", zerolog.New(&buf).Level(zerolog.WarnLevel))
	m := types.Measurement{Type: types.ActivePowerP, Value: 28, Source: "meter", Timestamp: time.Date(2021, 7, 6, 14, 58, 18, 0, time.UTC)}

	require.NoError(t, s.Start(t.Context()))
	require.NoError(t, s.Send(m))
	require.NoError(t, s.Stop(t.Context()))
	assert.Contains(t, buf.String(), "meter - 2021-07-06T14:58:18Z - Active Power +: 28 W")
}

func TestSqliteSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartmeter.db")
	s := NewSqliteSink(path, "sqlite", zerolog.Nop())
	ts := time.Date(2024, 3, 21, 20, 10, 29, 0, time.UTC)
	m := types.Measurement{Type: types.ActivePowerP, Value: 386, Source: "110002267", Timestamp: ts}

	assert.Error(t, s.Send(m), "not started")
	require.NoError(t, s.Start(t.Context()))
	require.NoError(t, s.Send(m))
	require.NoError(t, s.Stop(t.Context()))

	db, err := meterdb.Open(path)
	require.NoError(t, err)
	defer db.Close()
	rows, err := meterdb.GetMeasurements(db, ts.Unix(), ts.Unix()+1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, meterdb.FromMeasurement(m), rows[0])
}
