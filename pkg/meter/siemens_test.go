package meter

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/internal/testfixtures"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/config"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/port_reader"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModeC answers every ReadResponse with the next scripted response.
type fakeModeC struct {
	mu        sync.Mutex
	responses [][]byte
	writes    [][]byte
	baudRates []int
	closed    bool
}

func (f *fakeModeC) SetBaudRate(baudRate int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.baudRates = append(f.baudRates, baudRate)
	return nil
}

func (f *fakeModeC) Write(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, append([]byte(nil), data...))
	return nil
}

func (f *fakeModeC) ReadResponse(ctx context.Context, silence, timeout time.Duration) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.responses) == 0 {
		return nil, port_reader.ErrTimeout
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next, nil
}

func (f *fakeModeC) Close() error {
	f.closed = true
	return nil
}

func newSiemens(port ModeCTransport) *SiemensTD3511 {
	m := NewSiemensTD3511(config.ReaderConfig{Type: "siemens_td3511", Port: "/dev/ttyUSB0"}, port, zerolog.Nop())
	m.location = time.UTC
	return m
}

func TestSiemensDataReceived(t *testing.T) {
	m := newSiemens(&fakeModeC{})
	rec := &recorder{}
	m.Register(rec)

	m.DataReceived([]byte(testfixtures.SiemensDataset))

	require.Len(t, rec.batches, 1)
	batch := rec.batches[0]
	require.Len(t, batch, 22)
	ts := time.Date(2024, 3, 21, 21, 10, 29, 0, time.UTC)
	for _, meas := range batch {
		assert.Equal(t, "110002267", meas.Source)
		assert.True(t, ts.Equal(meas.Timestamp), meas.Timestamp)
	}

	v := values(batch)
	assert.InDelta(t, 386.0, v[types.ActivePowerP], 1e-6)
	assert.InDelta(t, 727.0, v[types.ReactivePowerN], 1e-6)
	assert.InDelta(t, 31550191.0, v[types.ActiveEnergyP], 1e-3)
	assert.InDelta(t, 12853433.0, v[types.ActiveEnergyPT1], 1e-3)
	assert.InDelta(t, 5592541.0, v[types.ActiveEnergyNT2], 1e-3)
	assert.InDelta(t, 68340.0, v[types.ReactiveEnergyP], 1e-3)
	assert.InDelta(t, 49.96, v[types.NetFrequency], 1e-9)
	assert.InDelta(t, 238.3, v[types.VoltageL1], 1e-9)
	assert.InDelta(t, 0.77, v[types.CurrentL3], 1e-9)
	assert.InDelta(t, -80.7*math.Pi/180, v[types.AngleUIL1], 1e-9)
	assert.InDelta(t, -74.5*math.Pi/180, v[types.AngleUIL3], 1e-9)
}

func TestSiemensLocalTime(t *testing.T) {
	m := newSiemens(&fakeModeC{})
	m.location = time.FixedZone("CET", 3600)
	rec := &recorder{}
	m.Register(rec)

	m.DataReceived([]byte(testfixtures.SiemensDataset))

	require.Len(t, rec.batches, 1)
	assert.True(t, time.Date(2024, 3, 21, 20, 10, 29, 0, time.UTC).Equal(rec.batches[0][0].Timestamp))
}

func TestSiemensUnmappedReadoutIsNotPublished(t *testing.T) {
	m := newSiemens(&fakeModeC{})
	rec := &recorder{}
	m.Register(rec)

	m.DataReceived([]byte(testfixtures.SiemensUnmapped))
	assert.Zero(t, rec.count())
}

func TestSiemensPolling(t *testing.T) {
	siemensWakeDelay, siemensSwitchWait = 0, 0
	defer func() { siemensWakeDelay, siemensSwitchWait = 5*time.Second, 200*time.Millisecond }()

	port := &fakeModeC{responses: [][]byte{
		[]byte("/SIE5TD3511\r\n"),
		[]byte(testfixtures.SiemensDataset),
		[]byte(testfixtures.SiemensDataset),
	}}
	m := newSiemens(port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{}
	rec.onBatch = func() {
		if rec.count() == 2 {
			cancel()
		}
	}
	m.Register(rec)

	done := make(chan error)
	go func() { done <- m.Start(ctx) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}

	port.mu.Lock()
	defer port.mu.Unlock()
	require.GreaterOrEqual(t, len(port.writes), 4)
	assert.Equal(t, siemensSignOn, port.writes[0])
	assert.Equal(t, siemensAck, port.writes[1])
	assert.Equal(t, siemensRequests[0], port.writes[2])
	assert.Equal(t, siemensRequests[1], port.writes[3])
	assert.Equal(t, []int{300, 19200}, port.baudRates[:2])
}

func TestSiemensRestartsHandshakeAfterTimeout(t *testing.T) {
	siemensWakeDelay, siemensSwitchWait = 0, 0
	defer func() { siemensWakeDelay, siemensSwitchWait = 5*time.Second, 200*time.Millisecond }()

	// The first data request times out, the second session delivers.
	port := &fakeModeC{}
	m := newSiemens(port)
	port.responses = [][]byte{[]byte("/SIE5TD3511\r\n")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{}
	rec.onBatch = cancel
	m.Register(rec)

	done := make(chan error)
	go func() { done <- m.Start(ctx) }()

	// Wait for the first session to give up, then script the second one.
	require.Eventually(t, func() bool {
		port.mu.Lock()
		defer port.mu.Unlock()
		return len(port.baudRates) >= 3
	}, 5*time.Second, time.Millisecond)
	port.mu.Lock()
	port.responses = [][]byte{[]byte("/SIE5TD3511\r\n"), []byte(testfixtures.SiemensDataset)}
	port.mu.Unlock()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not recover")
	}
	assert.Equal(t, 1, rec.count())
}

func TestSiemensClose(t *testing.T) {
	port := &fakeModeC{}
	m := newSiemens(port)
	assert.Equal(t, "siemens_td3511@/dev/ttyUSB0", m.Name())
	require.NoError(t, m.Close())
	assert.True(t, port.closed)
}
