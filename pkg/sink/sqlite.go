package sink

import (
	"context"
	"fmt"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/meterdb"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/pathing"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	"github.com/rs/zerolog"
)

func NewSqliteSink(path, name string, log zerolog.Logger) *SqliteSink {
	if path == "" {
		path = pathing.GetMeterDbPath()
	}
	return &SqliteSink{name: name, path: path, log: log}
}

func (s *SqliteSink) Name() string { return s.name }

func (s *SqliteSink) Start(ctx context.Context) error {
	db, err := meterdb.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open meter database %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
	s.log.Info().Str("path", s.path).Msg("Opened meter database")
	return nil
}

func (s *SqliteSink) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SqliteSink) Send(m types.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("sqlite sink %s not started", s.name)
	}
	row := meterdb.FromMeasurement(m)
	return meterdb.InsertMeasurement(s.db, &row)
}
