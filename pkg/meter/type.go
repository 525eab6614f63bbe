// Package meter contains the drivers that turn a meter's serial output into
// measurements.
package meter

import (
	"context"
	"fmt"
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/cosem"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/dlms"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/extractor"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/hdlc"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/iec62056"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/port_reader"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	"github.com/rs/zerolog"
)

var (
	ErrSetup       = fmt.Errorf("meter setup failed")
	ErrUnknownType = fmt.Errorf("unknown meter type")
)

// Observer receives the measurements of every decoded telegram.
// Notify is called from the driver's goroutine and must not block for long.
type Observer interface {
	Notify(measurements []types.Measurement)
}

type Meter interface {
	Name() string
	// Register adds an observer. Observers must be registered before Start.
	Register(observer Observer)
	// Start reads the meter until ctx is done or the port fails.
	Start(ctx context.Context) error
	Close() error
}

// pipeline resolves identity and time of decoded objects, extracts the
// measurements and hands them to the observers.
type pipeline struct {
	catalog       *cosem.Catalog
	extractor     *extractor.Extractor
	observers     []Observer
	useSystemTime bool
	now           func() time.Time
	log           zerolog.Logger
}

// HdlcDlmsMeter reads meters pushing DLMS data-notifications in HDLC frames.
type HdlcDlmsMeter struct {
	name        string
	reader      port_reader.Reader
	reassembler *hdlc.Reassembler
	decoder     *dlms.Decoder
	pipe        *pipeline
	log         zerolog.Logger
}

// ModeCTransport is the port a mode C meter is polled over.
type ModeCTransport interface {
	SetBaudRate(baudRate int) error
	Write(data []byte) error
	ReadResponse(ctx context.Context, silence, timeout time.Duration) ([]byte, error)
	Close() error
}

// SiemensTD3511 polls a Siemens TD3511 in IEC 62056-21 programming mode.
type SiemensTD3511 struct {
	name     string
	port     ModeCTransport
	pipe     *pipeline
	location *time.Location
	log      zerolog.Logger
}

// DsmrMeter reads DSMR P1 telegrams.
type DsmrMeter struct {
	name   string
	reader port_reader.Reader
	buffer *iec62056.TelegramBuffer
	pipe   *pipeline
	log    zerolog.Logger
}
