package meter

import (
	"fmt"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/config"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/port_reader"
	"github.com/rs/zerolog"
)

// Build opens the port of a configured reader and returns its driver.
// Port failures are wrapped in ErrSetup.
func Build(cfg config.ReaderConfig, log zerolog.Logger) (Meter, error) {
	log = log.With().Str("meter_type", cfg.Type).Logger()

	if profile, ok := hdlcProfiles[cfg.Type]; ok {
		if _, err := layoutByName(cfg.Layout, profile.layout); err != nil {
			return nil, err
		}
		reader, err := openSerial(cfg, profile.serial, log)
		if err != nil {
			return nil, err
		}
		m, err := NewHdlcDlmsMeter(cfg, reader, log)
		if err != nil {
			reader.Close()
			return nil, err
		}
		return m, nil
	}

	switch cfg.Type {
	case "siemens_td3511":
		port, err := port_reader.OpenModeC(cfg.Port, log)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSetup, err)
		}
		return NewSiemensTD3511(cfg, port, log), nil
	case "dsmr":
		reader, err := openSerial(cfg, dsmrSerial, log)
		if err != nil {
			return nil, err
		}
		return NewDsmrMeter(cfg, reader, log), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
}

func openSerial(cfg config.ReaderConfig, line port_reader.SerialConfig, log zerolog.Logger) (*port_reader.SerialReader, error) {
	line.Port = cfg.Port
	if cfg.Baudrate != 0 {
		line.BaudRate = cfg.Baudrate
	}
	reader, err := port_reader.NewSerialReader(line, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	return reader, nil
}
