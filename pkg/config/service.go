package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/logger"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/pathing"
)

var ErrInvalid = fmt.Errorf("invalid configuration")

var (
	ReaderTypes = []string{"lge360", "lge450", "lge570", "iskraam550", "siemens_td3511", "dsmr"}
	SinkTypes   = []string{"logger", "mqtt", "csv", "sqlite", "websocket"}
	Layouts     = []string{"", "push_list", "obis_pairs", "fixed"}
)

func DefaultPath() string {
	return filepath.Join(pathing.GetConfigDir(), "datacollector.toml")
}

func DefaultMeterCollectorPath() string {
	return filepath.Join(pathing.GetConfigDir(), "meter_collector.toml")
}

// Default is one lge450 on /dev/ttyUSB0 printing to the log.
func Default() *Config {
	return &Config{
		Readers: []ReaderConfig{{
			Type: "lge450",
			Port: "/dev/ttyUSB0",
		}},
		Sinks: []SinkConfig{{
			Type: "logger",
			Name: "DataLogger",
		}},
		Logging: LoggingConfig{
			Default: "warning",
		},
		API: APIConfig{
			Enabled:       false,
			ListenAddress: "0.0.0.0",
			ListenPort:    9039,
		},
	}
}

// Load reads and validates the config at path. A missing file yields the
// default configuration.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log := logger.For("smartmeter")
		log.Warn().Str("path", path).Msg("Config file not found, using default configuration")
		return Default(), nil
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}
	if cfg.Logging.Default == "" {
		cfg.Logging.Default = "warning"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteDefault writes the default configuration to path, creating the directory.
func WriteDefault(path string) error {
	if err := pathing.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(Default())
}

func (c *Config) Validate() error {
	for i, r := range c.Readers {
		if !slices.Contains(ReaderTypes, r.Type) {
			return fmt.Errorf("%w: reader %d has unknown type %q", ErrInvalid, i, r.Type)
		}
		if r.Port == "" {
			return fmt.Errorf("%w: reader %d (%s) has no port", ErrInvalid, i, r.Type)
		}
		if r.Key != "" {
			key, err := hex.DecodeString(r.Key)
			if err != nil || len(key) != 16 {
				return fmt.Errorf("%w: reader %d key must be 32 hex characters", ErrInvalid, i)
			}
		}
		if !slices.Contains(Layouts, r.Layout) {
			return fmt.Errorf("%w: reader %d has unknown layout %q", ErrInvalid, i, r.Layout)
		}
		if r.Layout == "fixed" && r.Type != "lge360" {
			return fmt.Errorf("%w: reader %d: fixed layout is only known for lge360", ErrInvalid, i)
		}
	}

	for i, s := range c.Sinks {
		if !slices.Contains(SinkTypes, s.Type) {
			return fmt.Errorf("%w: sink %d has unknown type %q", ErrInvalid, i, s.Type)
		}
		if s.Type == "mqtt" && s.Host == "" {
			return fmt.Errorf("%w: mqtt sink %d has no host", ErrInvalid, i)
		}
	}

	if _, err := logger.ParseLevel(c.Logging.Default); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	for component, level := range c.Logging.Levels {
		if _, err := logger.ParseLevel(level); err != nil {
			return fmt.Errorf("%w: logging level for %s: %w", ErrInvalid, component, err)
		}
	}
	return nil
}

// LoadMeterCollectorConfig reads the meter collector config, writing the
// defaults first when the file does not exist yet.
func LoadMeterCollectorConfig(path string) (*MeterCollectorConfig, error) {
	// Create default if not exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := &MeterCollectorConfig{
			DataCollectorHost: "localhost:9039",
			TLSEnabled:        false,
			DatabasePath:      pathing.GetMeterDbPath(),
			AggregateInterval: 15,
			Logging:           LoggingConfig{Default: "info"},
		}
		if err := pathing.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, err
		}
		cfgFile, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		defer cfgFile.Close()
		if err := toml.NewEncoder(cfgFile).Encode(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	// Load existing config
	var cfg MeterCollectorConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}
	if cfg.AggregateInterval <= 0 {
		cfg.AggregateInterval = 15
	}
	if cfg.Logging.Default == "" {
		cfg.Logging.Default = "info"
	}
	return &cfg, nil
}
