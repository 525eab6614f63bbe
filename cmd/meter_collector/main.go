// Responsible for storing the measurements broadcast by a datacollector.
// Depends on the datacollector live API being enabled.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/aggregator"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/config"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/interpreter"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/logger"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/meterdb"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/pathing"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
)

func main() {
	configPath := flag.StringP("config", "c", config.DefaultMeterCollectorPath(), "Path to the configuration file")
	dev := flag.BoolP("dev", "d", false, "Development mode, enables debug logging")
	flag.Parse()

	cfg, err := config.LoadMeterCollectorConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dev {
		cfg.Logging.Default = "debug"
		cfg.Logging.Levels = nil
	}
	if err := logger.Init(cfg.Logging.Default, cfg.Logging.Levels); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure logging: %v\n", err)
		os.Exit(1)
	}
	log := logger.For("storage")

	// Initialize database
	dbPath := cfg.DatabasePath
	if dbPath == "" {
		dbPath = pathing.GetMeterDbPath()
	}
	db, err := meterdb.Open(dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dbPath).Msg("Failed to open meter database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runAggregation(ctx, db, time.Duration(cfg.AggregateInterval)*time.Minute, log)

	// Subscribe to websocket with revive
	url := interpreter.ListenerURL(cfg.DataCollectorHost, cfg.TLSEnabled)
	err = interpreter.StartListener(ctx, url, func(m *types.Measurement) {
		handleMeasurement(db, m, log)
	}, logger.For("api"))
	if err != nil {
		log.Error().Err(err).Msg("Meter collector stopped")
		stop()
		db.Close()
		os.Exit(1)
	}
}

// Store one broadcast measurement
func handleMeasurement(db *sql.DB, m *types.Measurement, log zerolog.Logger) {
	row := meterdb.FromMeasurement(*m)
	if err := meterdb.InsertMeasurement(db, &row); err != nil {
		log.Error().Err(err).Str("source", m.Source).Msg("Failed to store measurement")
		return
	}
	log.Debug().Str("source", m.Source).Str("type", m.Type.Identifier).Float64("value", m.Value).Msg("Stored measurement")
}

func runAggregation(ctx context.Context, db *sql.DB, interval time.Duration, log zerolog.Logger) {
	aggregate := func() {
		result, err := aggregator.AggregateHourly(db, time.Now())
		if err != nil {
			log.Error().Err(err).Msg("Hourly aggregation failed")
			return
		}
		log.Info().
			Int64("aggregates", result.AggregatesWritten).
			Int64("deleted", result.RawDeleted).
			Msg("Hourly aggregation done")
	}

	aggregate()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			aggregate()
		}
	}
}
