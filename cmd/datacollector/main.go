// Datacollector reads the configured smart meters and forwards their
// measurements to the configured sinks.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/collector"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/config"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/logger"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/meter"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/sink"
	flag "github.com/spf13/pflag"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.StringP("config", "c", config.DefaultPath(), "Path to the configuration file")
	saveConfig := flag.BoolP("saveconfig", "s", false, "Write the default configuration to --config and exit")
	dev := flag.BoolP("dev", "d", false, "Development mode, enables debug logging")
	flag.Parse()

	if *saveConfig {
		if err := config.WriteDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write default config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.Load(*configPath)
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

	log := logger.For("smartmeter")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("Datacollector stopped")
	}
	log.Info().Msg("Datacollector stopped")
}

// withAPI adds the live websocket sink the [api] section asks for.
func withAPI(cfg *config.Config) []config.SinkConfig {
	sinks := cfg.Sinks
	if cfg.API.Enabled {
		sinks = append(sinks, config.SinkConfig{
			Type: "websocket",
			Host: cfg.API.ListenAddress,
			Port: cfg.API.ListenPort,
			Name: "api",
		})
	}
	return sinks
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.For("smartmeter")

	coll := collector.New(logger.For("collector"))
	for _, sinkCfg := range withAPI(cfg) {
		componentLog := logger.For("sink")
		if sinkCfg.Name == "api" {
			componentLog = logger.For("api")
		}
		s, err := sink.Build(sinkCfg, componentLog)
		if err != nil {
			log.Error().Err(err).Str("type", sinkCfg.Type).Msg("Skipping sink")
			continue
		}
		coll.AddSink(s)
	}
	if err := coll.StartSinks(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		coll.StopSinks(stopCtx)
	}()

	var meters []meter.Meter
	for _, readerCfg := range cfg.Readers {
		m, err := meter.Build(readerCfg, log)
		if err != nil {
			log.Error().Err(err).Str("type", readerCfg.Type).Str("port", readerCfg.Port).Msg("Skipping meter")
			continue
		}
		m.Register(coll)
		meters = append(meters, m)
	}
	if len(meters) == 0 {
		return errors.New("no meter could be set up")
	}

	ctx, cancel := context.WithCancel(ctx)
	go coll.ProcessQueue(ctx)
	// Runs before StopSinks, no Send may be in flight when a sink closes
	defer func() {
		cancel()
		<-coll.Done()
	}()

	var wg sync.WaitGroup
	for _, m := range meters {
		wg.Add(1)
		go func(m meter.Meter) {
			defer wg.Done()
			defer m.Close()
			log.Info().Str("meter", m.Name()).Msg("Reading meter")
			if err := m.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("meter", m.Name()).Msg("Meter stopped")
			}
		}(m)
	}
	wg.Wait()
	return nil
}
