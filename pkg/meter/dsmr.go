package meter

import (
	"context"
	"encoding/hex"
	"fmt"
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

var dsmrSerial = port_reader.SerialConfig{BaudRate: 115200, Parity: port_reader.ParityNone}

var (
	dsmrClockCode     = obis.MustParse("0.0.1.0.0.255")
	dsmrEquipmentCode = obis.MustParse("0.0.96.1.1.255")
	dsmrGasCode       = obis.MustParse("0.1.24.2.3.255")
)

func kilo(code string, t types.MeasurementType) cosem.RegisterMapping {
	return cosem.RegisterMapping{Code: obis.MustParse(code), Type: t, Scaling: kiloScaling}
}

var dsmrExtensions = []cosem.RegisterMapping{
	kilo("1.0.1.7.0.255", types.ActivePowerP),
	kilo("1.0.2.7.0.255", types.ActivePowerN),
	kilo("1.0.21.7.0.255", types.ActivePowerPL1),
	kilo("1.0.41.7.0.255", types.ActivePowerPL2),
	kilo("1.0.61.7.0.255", types.ActivePowerPL3),
	kilo("1.0.22.7.0.255", types.ActivePowerNL1),
	kilo("1.0.42.7.0.255", types.ActivePowerNL2),
	kilo("1.0.62.7.0.255", types.ActivePowerNL3),

	kilo("1.0.1.8.1.255", types.ActiveEnergyPT1),
	kilo("1.0.1.8.2.255", types.ActiveEnergyPT2),
	kilo("1.0.2.8.1.255", types.ActiveEnergyNT1),
	kilo("1.0.2.8.2.255", types.ActiveEnergyNT2),

	{Code: dsmrGasCode, Type: types.GasVolume, Scaling: 1, Exact: true},
}

// NewDsmrMeter builds the driver of a DSMR P1 port.
func NewDsmrMeter(cfg config.ReaderConfig, reader port_reader.Reader, log zerolog.Logger) *DsmrMeter {
	return &DsmrMeter{
		name:   fmt.Sprintf("%s@%s", cfg.Type, cfg.Port),
		reader: reader,
		buffer: iec62056.NewTelegramBuffer(log),
		pipe:   newPipeline(cfg, dsmrExtensions, []obis.Code{dsmrEquipmentCode}, log),
		log:    log,
	}
}

func (m *DsmrMeter) Name() string {
	return m.name
}

func (m *DsmrMeter) Register(observer Observer) {
	m.pipe.register(observer)
}

func (m *DsmrMeter) Start(ctx context.Context) error {
	m.log.Info().Str("meter", m.name).Msg("Listening for P1 telegrams")
	return m.reader.Listen(ctx, m.DataReceived)
}

func (m *DsmrMeter) Close() error {
	return m.reader.Close()
}

func (m *DsmrMeter) DataReceived(data []byte) {
	m.buffer.Append(data)
	for {
		telegram, ok := m.buffer.Next()
		if !ok {
			return
		}
		m.publish(telegram)
	}
}

func (m *DsmrMeter) publish(telegram string) {
	objects := dlms.NewObjects()
	for _, ds := range iec62056.ParseLines(telegram) {
		code, err := ds.Code()
		if err != nil {
			continue
		}
		value := ds.Last()

		switch code {
		case dsmrClockCode:
			ts, err := iec62056.ParseTimestamp(value.Raw)
			if err != nil {
				m.log.Warn().Err(err).Msg("Invalid telegram timestamp")
				continue
			}
			objects.Add(obis.Clock, dlms.KindClock, dlms.Data{Type: dlms.TypeDateTime, Value: dlms.EncodeDateTime(ts)})
		case dsmrEquipmentCode:
			id, err := hex.DecodeString(value.Raw)
			if err != nil {
				// Some meters send the id in plain text.
				id = []byte(value.Raw)
			}
			objects.Add(code, dlms.KindData, dlms.Data{Type: dlms.TypeOctetString, Value: id})
		default:
			objects.Add(code, dlms.KindRegister, dlms.Data{Type: dlms.TypeVisibleString, Value: value.Raw})
		}
	}
	m.pipe.publish(objects, time.Time{})
}
