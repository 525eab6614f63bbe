package meter

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/config"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/cosem"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/dlms"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/iec62056"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/obis"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/port_reader"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	"github.com/rs/zerolog"
)

const (
	siemensDataBaudRate    = 19200
	siemensResponseSilence = 200 * time.Millisecond
	siemensResponseTimeout = 5 * time.Second
	siemensIdentityAddress = "0.0.0"
	siemensTimeAddress     = "0.9.1"
	siemensDateAddress     = "0.9.2"
	siemensDateTimeLayout  = "06-01-02 15:04:05"
	degreesToRadians       = math.Pi / 180
	kiloScaling            = 1000
)

var (
	siemensSignOn = []byte("/?!\r\n")
	// ACK, protocol mode C, 19200 baud, data readout
	siemensAck      = []byte{0x06, 0x30, 0x36, 0x31, 0x0D, 0x0A}
	siemensRequests = [][]byte{
		{0x01, 0x52, 0x32, 0x02, 0x46, 0x30, 0x30, 0x31, 0x03, 0x16, 0x0D, 0x0A}, // R2 F001
		{0x01, 0x52, 0x32, 0x02, 0x46, 0x30, 0x30, 0x39, 0x03, 0x1E, 0x0D, 0x0A}, // R2 F009
	}

	// The meter falls back to 300 baud after a few seconds of silence.
	siemensWakeDelay  = 5 * time.Second
	siemensSwitchWait = 200 * time.Millisecond

	siemensIdentityCode = obis.Code{A: 1, F: 255}
)

func short(address string, t types.MeasurementType, scaling float64) cosem.RegisterMapping {
	code, err := obis.ParseShort(address)
	if err != nil {
		panic(err)
	}
	return cosem.RegisterMapping{Code: code, Type: t, Scaling: scaling}
}

var siemensExtensions = []cosem.RegisterMapping{
	short("1.7.0", types.ActivePowerP, kiloScaling),
	short("2.7.0", types.ActivePowerN, kiloScaling),
	short("3.7.0", types.ReactivePowerP, kiloScaling),
	short("4.7.0", types.ReactivePowerN, kiloScaling),

	short("81.7.4", types.AngleUIL1, degreesToRadians),
	short("81.7.15", types.AngleUIL2, degreesToRadians),
	short("81.7.26", types.AngleUIL3, degreesToRadians),

	short("1.8.0", types.ActiveEnergyP, kiloScaling),
	short("1.8.1", types.ActiveEnergyPT1, kiloScaling),
	short("1.8.2", types.ActiveEnergyPT2, kiloScaling),
	short("2.8.0", types.ActiveEnergyN, kiloScaling),
	short("2.8.1", types.ActiveEnergyNT1, kiloScaling),
	short("2.8.2", types.ActiveEnergyNT2, kiloScaling),
	short("3.8.1", types.ReactiveEnergyP, kiloScaling),
	short("4.8.1", types.ReactiveEnergyN, kiloScaling),
}

// NewSiemensTD3511 builds the driver on an open mode C port.
func NewSiemensTD3511(cfg config.ReaderConfig, port ModeCTransport, log zerolog.Logger) *SiemensTD3511 {
	return &SiemensTD3511{
		name:     fmt.Sprintf("%s@%s", cfg.Type, cfg.Port),
		port:     port,
		pipe:     newPipeline(cfg, siemensExtensions, []obis.Code{siemensIdentityCode}, log),
		location: time.Local,
		log:      log,
	}
}

func (m *SiemensTD3511) Name() string {
	return m.name
}

func (m *SiemensTD3511) Register(observer Observer) {
	m.pipe.register(observer)
}

// Start enters programming mode and polls the data sets until ctx is done.
// A meter that stops answering is woken up again with a new handshake.
func (m *SiemensTD3511) Start(ctx context.Context) error {
	for {
		err := m.poll(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.log.Warn().Err(err).Str("meter", m.name).Msg("Meter data set not received, restarting handshake")
	}
}

func (m *SiemensTD3511) Close() error {
	return m.port.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *SiemensTD3511) enterProgrammingMode(ctx context.Context) error {
	m.log.Info().Str("meter", m.name).Msg("Setting meter into programming mode")
	if err := m.port.SetBaudRate(port_reader.ModeCInitialBaudRate); err != nil {
		return err
	}
	if err := sleep(ctx, siemensWakeDelay); err != nil {
		return err
	}
	if err := m.port.Write(siemensSignOn); err != nil {
		return err
	}
	identification, err := m.port.ReadResponse(ctx, siemensResponseSilence, siemensResponseTimeout)
	if err != nil {
		return err
	}
	m.log.Debug().Str("identification", strings.TrimSpace(string(identification))).Msg("Meter answered sign on")

	if err := sleep(ctx, siemensSwitchWait); err != nil {
		return err
	}
	if err := m.port.Write(siemensAck); err != nil {
		return err
	}
	if err := sleep(ctx, siemensSwitchWait); err != nil {
		return err
	}
	return m.port.SetBaudRate(siemensDataBaudRate)
}

func (m *SiemensTD3511) poll(ctx context.Context) error {
	if err := m.enterProgrammingMode(ctx); err != nil {
		return err
	}
	for i := 0; ; i++ {
		if err := m.port.Write(siemensRequests[i%len(siemensRequests)]); err != nil {
			return err
		}
		response, err := m.port.ReadResponse(ctx, siemensResponseSilence, siemensResponseTimeout)
		if err != nil {
			return err
		}
		m.DataReceived(response)
	}
}

// DataReceived publishes the measurements of one data set readout.
func (m *SiemensTD3511) DataReceived(response []byte) {
	objects := dlms.NewObjects()
	var clockTime, clockDate string
	for _, ds := range iec62056.ParseLines(string(response)) {
		value := ds.Last()
		switch ds.Address {
		case siemensIdentityAddress:
			objects.Add(siemensIdentityCode, dlms.KindData, dlms.Data{Type: dlms.TypeVisibleString, Value: value.Raw})
			continue
		case siemensTimeAddress:
			clockTime = value.Raw
			continue
		case siemensDateAddress:
			clockDate = value.Raw
			continue
		}

		code, err := ds.Code()
		if err != nil {
			m.log.Debug().Str("address", ds.Address).Msg("Skipping data set with unknown address")
			continue
		}
		objects.Add(code, dlms.KindRegister, dlms.Data{Type: dlms.TypeVisibleString, Value: value.Raw})
	}

	if clockTime != "" && clockDate != "" {
		ts, err := time.ParseInLocation(siemensDateTimeLayout, clockDate+" "+clockTime, m.location)
		if err != nil {
			m.log.Warn().Str("date", clockDate).Str("time", clockTime).Msg("Invalid meter time received")
		} else {
			objects.Add(obis.Clock, dlms.KindClock, dlms.Data{Type: dlms.TypeDateTime, Value: dlms.EncodeDateTime(ts)})
		}
	}

	m.pipe.publish(objects, time.Time{})
}
