package sink

import (
	"fmt"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/config"
	"github.com/rs/zerolog"
)

// Build creates the sink described by cfg. It does not connect yet.
func Build(cfg config.SinkConfig, log zerolog.Logger) (Sink, error) {
	name := cfg.Name
	if name == "" {
		name = cfg.Type
	}
	log = log.With().Str("sink", name).Logger()

	switch cfg.Type {
	case "logger":
		return NewLoggerSink(name, log), nil
	case "mqtt":
		s, err := NewMqttSink(cfg, name, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "csv":
		return NewCsvSink(cfg.Directory, name, log), nil
	case "sqlite":
		return NewSqliteSink(cfg.DatabasePath, name, log), nil
	case "websocket":
		return NewWebsocketSink(cfg.Host, cfg.Port, name, log), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
}
