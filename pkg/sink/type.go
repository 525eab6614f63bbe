// Package sink holds the destinations collected measurements are written to.
package sink

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var ErrUnknownType = fmt.Errorf("unknown sink type")

type Sink interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// Send is called from the collector's goroutine only.
	Send(m types.Measurement) error
}

// LoggerSink writes every measurement as an info log line.
type LoggerSink struct {
	name string
	log  zerolog.Logger
}

// MqttSink publishes every measurement to smartmeter/<source>/<type>.
type MqttSink struct {
	name     string
	broker   string
	clientID string
	username string
	password string
	tlsOpts  *tlsSettings
	client   mqtt.Client
	log      zerolog.Logger
}

type tlsSettings struct {
	caFilePath     string
	checkHostname  bool
	clientCertPath string
	clientKeyPath  string
}

type mqttPayload struct {
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
}

// CsvSink collects measurements into one row per source and timestamp and
// appends the rows to a daily CSV file.
type CsvSink struct {
	name          string
	directory     string
	flushInterval time.Duration
	now           func() time.Time

	mu      sync.Mutex
	pending map[csvRowKey]map[string]float64
	order   []csvRowKey

	cancel context.CancelFunc
	done   chan struct{}
	log    zerolog.Logger
}

type csvRowKey struct {
	source    string
	timestamp int64
}

// SqliteSink stores raw measurements in the meter database.
type SqliteSink struct {
	name string
	path string
	log  zerolog.Logger

	mu sync.Mutex
	db *sql.DB
}

// WebsocketSink serves the live measurements over HTTP and websocket.
type WebsocketSink struct {
	name    string
	address string
	server  *http.Server

	latestMu sync.RWMutex
	latest   map[latestKey]types.Measurement

	// Guards clients and every write to them
	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool

	log zerolog.Logger
}

type latestKey struct {
	source     string
	identifier string
}
