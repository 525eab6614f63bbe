package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/pathing"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	"github.com/rs/zerolog"
)

const (
	csvFlushInterval = time.Second
	csvRetention     = 365 * 24 * time.Hour
	csvFilePrefix    = "smartmeter_data_"
)

func NewCsvSink(directory, name string, log zerolog.Logger) *CsvSink {
	if directory == "" {
		directory = "."
	}
	return &CsvSink{
		name:          name,
		directory:     directory,
		flushInterval: csvFlushInterval,
		now:           time.Now,
		pending:       make(map[csvRowKey]map[string]float64),
		log:           log,
	}
}

func (s *CsvSink) Name() string { return s.name }

func (s *CsvSink) Start(ctx context.Context) error {
	if err := pathing.EnsureDir(s.directory); err != nil {
		return fmt.Errorf("failed to create csv directory: %w", err)
	}
	s.cleanup()

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.flushLoop(loopCtx)
	return nil
}

func (s *CsvSink) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.flush()
}

func (s *CsvSink) Send(m types.Measurement) error {
	key := csvRowKey{source: m.Source, timestamp: m.Timestamp.Unix()}

	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.pending[key]
	if !ok {
		row = make(map[string]float64)
		s.pending[key] = row
		s.order = append(s.order, key)
	}
	row[m.Type.Identifier] = m.Value
	return nil
}

func (s *CsvSink) flushLoop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.flush(); err != nil {
				s.log.Error().Err(err).Msg("Failed to write csv rows")
			}
		}
	}
}

func (s *CsvSink) fileName(day time.Time) string {
	return filepath.Join(s.directory, csvFilePrefix+day.Format("2006-01-02")+".csv")
}

func csvHeader() []string {
	header := []string{"timestamp", "source"}
	for _, t := range types.AllMeasurementTypes {
		header = append(header, t.Identifier)
	}
	return header
}

// flush appends all pending rows to the file of the current day.
func (s *CsvSink) flush() error {
	s.mu.Lock()
	pending, order := s.pending, s.order
	s.pending = make(map[csvRowKey]map[string]float64)
	s.order = nil
	s.mu.Unlock()

	if len(order) == 0 {
		return nil
	}

	path := s.fileName(s.now())
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if isNew {
		if err := w.Write(csvHeader()); err != nil {
			return err
		}
		s.log.Info().Str("file", path).Msg("Started new csv file")
	}

	sort.SliceStable(order, func(i, j int) bool { return order[i].timestamp < order[j].timestamp })
	for _, key := range order {
		values := pending[key]
		line := []string{time.Unix(key.timestamp, 0).UTC().Format(time.RFC3339), key.source}
		for _, t := range types.AllMeasurementTypes {
			if v, ok := values[t.Identifier]; ok {
				line = append(line, strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				line = append(line, "")
			}
		}
		if err := w.Write(line); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	if isNew {
		s.cleanup()
	}
	return nil
}

// cleanup deletes csv files not modified for a year.
func (s *CsvSink) cleanup() {
	entries, err := os.ReadDir(s.directory)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list csv directory")
		return
	}
	cutoff := s.now().Add(-csvRetention)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.directory, entry.Name())
		if err := os.Remove(path); err != nil {
			s.log.Error().Err(err).Str("file", path).Msg("Failed to delete old csv file")
			continue
		}
		s.log.Info().Str("file", path).Msg("Deleted old csv file")
	}
}
