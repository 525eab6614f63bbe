package port_reader

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"
	bugst "go.bug.st/serial"
)

type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// SerialConfig describes the line settings of a push meter port.
type SerialConfig struct {
	Port     string
	BaudRate uint
	DataBits uint
	Parity   Parity
	StopBits uint
}

// Reader delivers the raw chunks a meter sends.
type Reader interface {
	// Listen calls handle for every chunk until ctx is done or the port fails
	// permanently. The chunk is only valid during the call.
	Listen(ctx context.Context, handle func([]byte)) error
	Close() error
}

// SerialReader reads a port with fixed line settings.
type SerialReader struct {
	name       string
	serialPort io.ReadWriteCloser
	log        zerolog.Logger
	closeOnce  sync.Once
	closeErr   error
}

// ModeCPort is an IEC 62056-21 optical port. Mode C starts at 300 baud and
// switches to the negotiated rate on the open port.
type ModeCPort struct {
	name string
	port bugst.Port
	log  zerolog.Logger
}
