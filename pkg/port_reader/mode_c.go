package port_reader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	bugst "go.bug.st/serial"
)

// ModeCInitialBaudRate is the rate every mode C exchange starts with.
const ModeCInitialBaudRate = 300

var ErrTimeout = errors.New("no response from meter")

func modeCMode(baudRate int) *bugst.Mode {
	return &bugst.Mode{
		BaudRate: baudRate,
		DataBits: 7,
		Parity:   bugst.EvenParity,
		StopBits: bugst.OneStopBit,
	}
}

// OpenModeC opens the port at 300 baud 7E1.
func OpenModeC(name string, log zerolog.Logger) (*ModeCPort, error) {
	port, err := bugst.Open(name, modeCMode(ModeCInitialBaudRate))
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	log.Info().Str("port", name).Msg("Opened IEC 62056-21 port")
	return &ModeCPort{name: name, port: port, log: log}, nil
}

// SetBaudRate switches the open port to another rate, keeping 7E1.
func (p *ModeCPort) SetBaudRate(baudRate int) error {
	if err := p.port.SetMode(modeCMode(baudRate)); err != nil {
		return fmt.Errorf("failed to set %d baud on %s: %w", baudRate, p.name, err)
	}
	p.log.Debug().Int("baudrate", baudRate).Msg("Switched baud rate")
	return nil
}

func (p *ModeCPort) Write(data []byte) error {
	if _, err := p.port.Write(data); err != nil {
		return fmt.Errorf("failed to write to %s: %w", p.name, err)
	}
	return p.port.Drain()
}

// ReadResponse collects bytes until the line stays silent for the silence
// period. It returns ErrTimeout if nothing arrives within timeout.
func (p *ModeCPort) ReadResponse(ctx context.Context, silence, timeout time.Duration) ([]byte, error) {
	if err := p.port.SetReadTimeout(silence); err != nil {
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", p.name, err)
	}

	var response bytes.Buffer
	buf := make([]byte, 256)
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := p.port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("failed to read from %s: %w", p.name, err)
		}
		if n > 0 {
			response.Write(buf[:n])
			continue
		}
		// Read timed out.
		if response.Len() > 0 {
			return response.Bytes(), nil
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}
	}
}

func (p *ModeCPort) Close() error {
	return p.port.Close()
}
