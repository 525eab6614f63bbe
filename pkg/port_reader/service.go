package port_reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/rs/zerolog"
)

const (
	maxConsecutiveErrors = 10
	readBufferSize       = 1024
)

var errorBackoff = time.Second

// NewSerialReader opens the port. Failing to open it is returned immediately.
func NewSerialReader(config SerialConfig, log zerolog.Logger) (*SerialReader, error) {
	options := serial.OpenOptions{
		PortName:        config.Port,
		BaudRate:        config.BaudRate,
		DataBits:        config.DataBits,
		StopBits:        config.StopBits,
		ParityMode:      parityMode(config.Parity),
		MinimumReadSize: 1,
	}
	if options.DataBits == 0 {
		options.DataBits = 8
	}
	if options.StopBits == 0 {
		options.StopBits = 1
	}

	port, err := serial.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", config.Port, err)
	}
	log.Info().Str("port", config.Port).Uint("baudrate", config.BaudRate).Msg("Opened serial port")
	return newStreamReader(config.Port, port, log), nil
}

func newStreamReader(name string, port io.ReadWriteCloser, log zerolog.Logger) *SerialReader {
	return &SerialReader{name: name, serialPort: port, log: log}
}

func parityMode(p Parity) serial.ParityMode {
	switch p {
	case ParityOdd:
		return serial.PARITY_ODD
	case ParityEven:
		return serial.PARITY_EVEN
	}
	return serial.PARITY_NONE
}

// Listen reads until ctx is done. Read errors are retried after a pause.
// After maxConsecutiveErrors failed reads in a row the last error is returned.
func (r *SerialReader) Listen(ctx context.Context, handle func([]byte)) error {
	stop := context.AfterFunc(ctx, func() {
		r.Close()
	})
	defer stop()

	buf := make([]byte, readBufferSize)
	consecutiveErrors := 0
	for {
		n, err := r.serialPort.Read(buf)
		if n > 0 {
			consecutiveErrors = 0
			handle(buf[:n])
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, io.EOF) && n > 0 {
			continue
		}

		consecutiveErrors++
		r.log.Warn().Err(err).Str("port", r.name).
			Msgf("Error reading serial port (%d/%d)", consecutiveErrors, maxConsecutiveErrors)
		if consecutiveErrors >= maxConsecutiveErrors {
			return fmt.Errorf("too many consecutive read errors on %s: %w", r.name, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(errorBackoff):
		}
	}
}

func (r *SerialReader) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.serialPort.Close()
		r.log.Debug().Str("port", r.name).Msg("Closed serial port")
	})
	return r.closeErr
}
