package config

// Config is the content of datacollector.toml.
type Config struct {
	Readers []ReaderConfig `toml:"reader"`
	Sinks   []SinkConfig   `toml:"sink"`
	Logging LoggingConfig  `toml:"logging"`
	API     APIConfig      `toml:"api"`
}

type ReaderConfig struct {
	Type     string `toml:"type"`
	Port     string `toml:"port"`
	Baudrate uint   `toml:"baudrate,omitempty"`
	// Hex encoded AES-128 key for ciphered telegrams
	Key                 string `toml:"key,omitempty"`
	UseSystemTime       bool   `toml:"use_system_time"`
	FallbackID          string `toml:"fallback_id,omitempty"`
	Layout              string `toml:"layout,omitempty"`
	IDDetectionAttempts int    `toml:"id_detection_attempts,omitempty"`
}

type SinkConfig struct {
	Type string `toml:"type"`

	// mqtt
	Host           string `toml:"host,omitempty"`
	Port           int    `toml:"port,omitempty"`
	TLS            bool   `toml:"tls,omitempty"`
	CAFilePath     string `toml:"ca_file_path,omitempty"`
	CheckHostname  bool   `toml:"check_hostname,omitempty"`
	Username       string `toml:"username,omitempty"`
	Password       string `toml:"password,omitempty"`
	ClientCertPath string `toml:"client_cert_path,omitempty"`
	ClientKeyPath  string `toml:"client_key_path,omitempty"`

	// csv
	Directory string `toml:"directory,omitempty"`

	// sqlite
	DatabasePath string `toml:"database_path,omitempty"`

	// Optional display name, defaults to the type
	Name string `toml:"name,omitempty"`
}

type LoggingConfig struct {
	Default string            `toml:"default"`
	Levels  map[string]string `toml:"levels,omitempty"`
}

// APIConfig controls the live HTTP/websocket endpoint.
type APIConfig struct {
	Enabled       bool   `toml:"enabled"`
	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`
}

// MeterCollectorConfig is the content of meter_collector.toml.
type MeterCollectorConfig struct {
	DataCollectorHost string `toml:"datacollector_host"`
	TLSEnabled        bool   `toml:"tls_enabled"`
	DatabasePath      string `toml:"database_path"`
	// Minutes between aggregation runs
	AggregateInterval int           `toml:"aggregate_interval"`
	Logging           LoggingConfig `toml:"logging"`
}
