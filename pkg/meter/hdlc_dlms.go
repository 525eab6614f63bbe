package meter

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/config"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/cosem"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/dlms"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/hdlc"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/obis"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/port_reader"
	"github.com/rs/zerolog"
)

// hdlcProfile holds the line settings and decoding defaults of a push meter model.
type hdlcProfile struct {
	serial     port_reader.SerialConfig
	layout     dlms.Layout
	extensions []cosem.RegisterMapping
}

// LGE360FixedOrder is the register order of an L+G E360 pushing values without
// logical names. The clock precedes them.
var LGE360FixedOrder = []obis.Code{
	obis.MustParse("1.0.1.7.0.255"),
	obis.MustParse("1.0.2.7.0.255"),
	obis.MustParse("1.0.3.7.0.255"),
	obis.MustParse("1.0.4.7.0.255"),
	obis.MustParse("1.1.1.8.0.255"),
	obis.MustParse("1.1.2.8.0.255"),
	obis.MustParse("1.1.5.8.0.255"),
	obis.MustParse("1.1.6.8.0.255"),
	obis.MustParse("1.1.7.8.0.255"),
	obis.MustParse("1.1.8.8.0.255"),
}

var hdlcProfiles = map[string]hdlcProfile{
	"lge360": {
		serial: port_reader.SerialConfig{BaudRate: 9600, Parity: port_reader.ParityNone},
		layout: dlms.PushList(),
	},
	"lge450": {
		serial: port_reader.SerialConfig{BaudRate: 2400, Parity: port_reader.ParityEven},
		layout: dlms.PushList(),
	},
	"lge570": {
		serial: port_reader.SerialConfig{BaudRate: 2400, Parity: port_reader.ParityEven},
		layout: dlms.PushList(),
	},
	"iskraam550": {
		serial: port_reader.SerialConfig{BaudRate: 115200, Parity: port_reader.ParityNone},
		layout: dlms.PushList(),
	},
}

func layoutByName(name string, fallback dlms.Layout) (dlms.Layout, error) {
	switch name {
	case "":
		return fallback, nil
	case "push_list":
		return dlms.PushList(), nil
	case "obis_pairs":
		return dlms.ObisValuePairs(), nil
	case "fixed":
		return dlms.FixedOrder(LGE360FixedOrder...), nil
	}
	return dlms.Layout{}, fmt.Errorf("%w: unknown layout %q", ErrSetup, name)
}

// NewHdlcDlmsMeter builds the driver of a push meter reading from reader.
func NewHdlcDlmsMeter(cfg config.ReaderConfig, reader port_reader.Reader, log zerolog.Logger) (*HdlcDlmsMeter, error) {
	profile, ok := hdlcProfiles[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
	layout, err := layoutByName(cfg.Layout, profile.layout)
	if err != nil {
		return nil, err
	}

	decoderOpts := []dlms.Option{dlms.WithLogger(log)}
	if cfg.Key != "" {
		key, err := hex.DecodeString(cfg.Key)
		if err != nil || len(key) != 16 {
			return nil, fmt.Errorf("%w: decryption key must be 32 hex characters", ErrSetup)
		}
		decoderOpts = append(decoderOpts, dlms.WithKey(key))
	}

	return &HdlcDlmsMeter{
		name:        fmt.Sprintf("%s@%s", cfg.Type, cfg.Port),
		reader:      reader,
		reassembler: hdlc.NewReassembler(log),
		decoder:     dlms.NewDecoder(layout, decoderOpts...),
		pipe:        newPipeline(cfg, profile.extensions, nil, log),
		log:         log,
	}, nil
}

func (m *HdlcDlmsMeter) Name() string {
	return m.name
}

func (m *HdlcDlmsMeter) Register(observer Observer) {
	m.pipe.register(observer)
}

func (m *HdlcDlmsMeter) Start(ctx context.Context) error {
	m.log.Info().Str("meter", m.name).Str("layout", m.decoder.Layout().Kind.String()).Msg("Listening for telegrams")
	return m.reader.Listen(ctx, m.DataReceived)
}

func (m *HdlcDlmsMeter) Close() error {
	return m.reader.Close()
}

// DataReceived feeds a chunk from the port and publishes every completed telegram.
func (m *HdlcDlmsMeter) DataReceived(data []byte) {
	m.reassembler.Append(data)
	for m.reassembler.TryExtract() {
		telegram, err := m.decoder.Decode(m.reassembler.APDU())
		if err != nil {
			m.log.Warn().Err(err).Str("meter", m.name).Msg("Failed to decode telegram")
			continue
		}
		m.pipe.publish(telegram.Objects, telegram.Time)
	}
}
