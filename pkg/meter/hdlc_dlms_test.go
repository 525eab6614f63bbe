package meter

import (
	"context"
	"encoding/hex"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/internal/testfixtures"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/config"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader hands its chunks to the driver and returns.
type fakeReader struct {
	chunks [][]byte
	closed bool
}

func (f *fakeReader) Listen(ctx context.Context, handle func([]byte)) error {
	for _, chunk := range f.chunks {
		handle(chunk)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

type recorder struct {
	mu      sync.Mutex
	batches [][]types.Measurement
	onBatch func()
}

func (r *recorder) Notify(measurements []types.Measurement) {
	r.mu.Lock()
	r.batches = append(r.batches, measurements)
	r.mu.Unlock()
	if r.onBatch != nil {
		r.onBatch()
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func values(batch []types.Measurement) map[types.MeasurementType]float64 {
	out := make(map[types.MeasurementType]float64, len(batch))
	for _, m := range batch {
		out[m.Type] = m.Value
	}
	return out
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		panic(err)
	}
	return b
}

func startHdlc(t *testing.T, cfg config.ReaderConfig, chunks [][]byte) *recorder {
	t.Helper()
	m, err := NewHdlcDlmsMeter(cfg, &fakeReader{chunks: chunks}, zerolog.Nop())
	require.NoError(t, err)
	rec := &recorder{}
	m.Register(rec)
	require.NoError(t, m.Start(context.Background()))
	return rec
}

func TestLGE450Meter(t *testing.T) {
	rec := startHdlc(t, config.ReaderConfig{Type: "lge450", Port: "/dev/ttyUSB0"}, testfixtures.LGE450)

	require.Len(t, rec.batches, 1)
	batch := rec.batches[0]
	require.Len(t, batch, 11)
	// Message header time, the clock register says 14:58:18
	sent := time.Date(2021, 7, 6, 14, 58, 16, 0, time.UTC)
	for _, m := range batch {
		assert.Equal(t, "LGZ1030655933512", m.Source)
		assert.True(t, sent.Equal(m.Timestamp), m.Timestamp)
	}
	v := values(batch)
	assert.Equal(t, 28.0, v[types.ActivePowerP])
	assert.Equal(t, 886977.0, v[types.ActiveEnergyP])
	assert.InDelta(t, 0.941, v[types.PowerFactor], 1e-9)
}

func TestLGE450MeterByteWise(t *testing.T) {
	var chunks [][]byte
	for _, b := range testfixtures.Join(testfixtures.LGE450) {
		chunks = append(chunks, []byte{b})
	}
	rec := startHdlc(t, config.ReaderConfig{Type: "lge450", Port: "/dev/ttyUSB0"}, chunks)
	require.Len(t, rec.batches, 1)
	assert.Len(t, rec.batches[0], 11)
}

func TestMessageTimeWithoutClock(t *testing.T) {
	rec := startHdlc(t, config.ReaderConfig{Type: "lge450", Port: "/dev/ttyUSB0"}, testfixtures.LGE450NoClock)

	require.Len(t, rec.batches, 1)
	batch := rec.batches[0]
	require.Len(t, batch, 8)
	for _, m := range batch {
		assert.Equal(t, "44337811", m.Source)
		assert.True(t, time.Date(2022, 11, 22, 16, 37, 30, 0, time.UTC).Equal(m.Timestamp))
	}
	assert.Equal(t, 15745368.0, values(batch)[types.ReactiveEnergyQ4])
}

func TestIskraAM550Meter(t *testing.T) {
	rec := startHdlc(t, config.ReaderConfig{Type: "iskraam550", Port: "/dev/ttyUSB0"}, testfixtures.IskraAM550)

	require.Len(t, rec.batches, 1)
	batch := rec.batches[0]
	require.Len(t, batch, 15)
	assert.Equal(t, "ISK1030775213859", batch[0].Source)
	assert.True(t, time.Date(2020, 8, 15, 4, 19, 45, 0, time.UTC).Equal(batch[0].Timestamp))

	v := values(batch)
	assert.Equal(t, 6229669.0, v[types.ActiveEnergyP])
	assert.Equal(t, 3097647.0, v[types.ActiveEnergyPT1])
	assert.Equal(t, 3132022.0, v[types.ActiveEnergyPT2])
	assert.Equal(t, 345980.0, v[types.ReactiveEnergyQ1])
}

func TestLGE570MeterDecrypts(t *testing.T) {
	rec := startHdlc(t, config.ReaderConfig{
		Type: "lge570",
		Port: "/dev/ttyUSB0",
		Key:  testfixtures.LGE570Key,
	}, testfixtures.LGE570Encrypted)

	require.Len(t, rec.batches, 1)
	batch := rec.batches[0]
	require.Len(t, batch, 14)
	assert.Equal(t, "LGZ1030769231253", batch[0].Source)
	assert.True(t, time.Date(2024, 3, 13, 9, 2, 45, 0, time.UTC).Equal(batch[0].Timestamp))

	v := values(batch)
	assert.Equal(t, 862055.0, v[types.ActiveEnergyP])
	assert.Equal(t, 78751.0, v[types.ReactiveEnergyQ4])
	assert.InDelta(t, 1.0, v[types.PowerFactor], 1e-9)
}

func TestCipheredTelegramWithoutKeyIsDropped(t *testing.T) {
	rec := startHdlc(t, config.ReaderConfig{Type: "lge570", Port: "/dev/ttyUSB0"}, testfixtures.LGE570Encrypted)
	assert.Zero(t, rec.count())
}

func TestOutOfSequenceCaptureIsDropped(t *testing.T) {
	rec := startHdlc(t, config.ReaderConfig{Type: "lge450", Port: "/dev/ttyUSB0"}, testfixtures.LGE450OutOfSequence)
	assert.Zero(t, rec.count())
}

func TestUseSystemTime(t *testing.T) {
	m, err := NewHdlcDlmsMeter(config.ReaderConfig{Type: "lge450", Port: "/dev/ttyUSB0", UseSystemTime: true},
		&fakeReader{chunks: testfixtures.LGE450}, zerolog.Nop())
	require.NoError(t, err)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m.pipe.now = func() time.Time { return now }

	rec := &recorder{}
	m.Register(rec)
	require.NoError(t, m.Start(context.Background()))
	require.Len(t, rec.batches, 1)
	for _, meas := range rec.batches[0] {
		assert.True(t, now.Equal(meas.Timestamp))
	}
}

// pairsTelegram is an obis/value pair telegram with an optional clock, an
// optional device id and one active power register.
func pairsTelegram(withClock bool, id string, power byte) []byte {
	pairs := 1
	body := ""
	if withClock {
		pairs++
		body += "0906 0000010000FF 090C" + hex.EncodeToString(testfixtures.DateTime(2023, 5, 4, 10, 20, 30))
	}
	if id != "" {
		pairs++
		body += "0906 0000600100FF 0A" + hex.EncodeToString([]byte{byte(len(id))}) + hex.EncodeToString([]byte(id))
	}
	body += "0906 0100010700FF 06000000" + hex.EncodeToString([]byte{power})
	count := hex.EncodeToString([]byte{0x02, byte(2 * pairs)})
	return testfixtures.Frame(testfixtures.Notification(nil, mustHex(count+body)), false)
}

func TestMissingTimestampSwitchesToSystemTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	m, err := NewHdlcDlmsMeter(config.ReaderConfig{Type: "lge360", Port: "/dev/ttyUSB0", Layout: "obis_pairs"},
		&fakeReader{chunks: [][]byte{
			pairsTelegram(false, "12345678", 10),
			pairsTelegram(true, "12345678", 20),
		}}, zerolog.Nop())
	require.NoError(t, err)
	m.pipe.now = func() time.Time { return now }

	rec := &recorder{}
	m.Register(rec)
	require.NoError(t, m.Start(context.Background()))

	require.Len(t, rec.batches, 2)
	assert.Equal(t, 10.0, rec.batches[0][0].Value)
	assert.True(t, now.Equal(rec.batches[0][0].Timestamp))
	// The clock of later telegrams is ignored.
	assert.Equal(t, 20.0, rec.batches[1][0].Value)
	assert.True(t, now.Equal(rec.batches[1][0].Timestamp))
	assert.Equal(t, "12345678", rec.batches[1][0].Source)
}

func TestFallbackIdentity(t *testing.T) {
	var chunks [][]byte
	for i := 0; i < 4; i++ {
		chunks = append(chunks, pairsTelegram(true, "", byte(i)))
	}
	chunks = append(chunks, pairsTelegram(true, "late-id", 9))

	rec := startHdlc(t, config.ReaderConfig{
		Type:                "lge360",
		Port:                "/dev/ttyUSB0",
		Layout:              "obis_pairs",
		FallbackID:          "kitchen",
		IDDetectionAttempts: 2,
	}, chunks)

	require.Len(t, rec.batches, 5)
	for _, batch := range rec.batches {
		require.Len(t, batch, 1)
		assert.Equal(t, "kitchen", batch[0].Source)
	}
}

func TestNewHdlcDlmsMeterErrors(t *testing.T) {
	_, err := NewHdlcDlmsMeter(config.ReaderConfig{Type: "dsmr"}, &fakeReader{}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = NewHdlcDlmsMeter(config.ReaderConfig{Type: "lge570", Key: "0011"}, &fakeReader{}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrSetup)

	_, err = NewHdlcDlmsMeter(config.ReaderConfig{Type: "lge450", Layout: "columns"}, &fakeReader{}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrSetup)
}

func TestHdlcDlmsMeterNameAndClose(t *testing.T) {
	reader := &fakeReader{}
	m, err := NewHdlcDlmsMeter(config.ReaderConfig{Type: "lge450", Port: "/dev/ttyAMA0"}, reader, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "lge450@/dev/ttyAMA0", m.Name())
	require.NoError(t, m.Close())
	assert.True(t, reader.closed)
}

// fixedTelegram is an E360 fixed order telegram whose clock element is
// 2023-01-02 03:04:05.
func fixedTelegram(messageTime []byte) []byte {
	values := []string{"00000064", "00000000", "00000005", "00000006", "000F4240", "00000010", "00000001", "00000002", "00000003", "00000004"}
	body := "020B 090C" + hex.EncodeToString(testfixtures.DateTime(2023, 1, 2, 3, 4, 5))
	for _, v := range values {
		body += "06" + v
	}
	return testfixtures.Frame(testfixtures.Notification(messageTime, mustHex(body)), false)
}

func TestMessageTimeWinsOverClock(t *testing.T) {
	frame := fixedTelegram(testfixtures.DateTime(2024, 5, 6, 7, 8, 9))

	rec := startHdlc(t, config.ReaderConfig{Type: "lge360", Port: "/dev/ttyUSB0", Layout: "fixed", FallbackID: "e360"}, [][]byte{frame})
	require.Len(t, rec.batches, 1)
	require.Len(t, rec.batches[0], 10)
	for _, m := range rec.batches[0] {
		assert.True(t, time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC).Equal(m.Timestamp), m.Timestamp)
	}
}

func TestFixedLayout(t *testing.T) {
	frame := fixedTelegram(nil)

	rec := startHdlc(t, config.ReaderConfig{Type: "lge360", Port: "/dev/ttyUSB0", Layout: "fixed", FallbackID: "e360"}, [][]byte{frame})
	require.Len(t, rec.batches, 1)
	batch := rec.batches[0]
	require.Len(t, batch, 10)
	assert.Equal(t, "e360", batch[0].Source)
	assert.True(t, time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC).Equal(batch[0].Timestamp))
	v := map[types.MeasurementType]float64{}
	for _, m := range batch {
		v[m.Type] = m.Value
	}
	assert.Equal(t, 100.0, v[types.ActivePowerP])
	assert.Equal(t, 1000000.0, v[types.ActiveEnergyP])
	assert.Equal(t, 4.0, v[types.ReactiveEnergyQ4])
}
