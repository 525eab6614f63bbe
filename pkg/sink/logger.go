package sink

import (
	"context"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	"github.com/rs/zerolog"
)

func NewLoggerSink(name string, log zerolog.Logger) *LoggerSink {
	// Always shows the data, regardless of the component level
	return &LoggerSink{name: name, log: log.Level(zerolog.InfoLevel)}
}

func (s *LoggerSink) Name() string { return s.name }

func (s *LoggerSink) Start(ctx context.Context) error { return nil }

func (s *LoggerSink) Stop(ctx context.Context) error { return nil }

func (s *LoggerSink) Send(m types.Measurement) error {
	s.log.Info().Msg(m.String())
	return nil
}
