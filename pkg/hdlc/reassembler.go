package hdlc

import (
	"bytes"
	"encoding/binary"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/dlms"
	"github.com/rs/zerolog"
)

// MaxBufferSize bounds the bytes held while waiting for a complete frame.
// The buffer never exceeds it after Append returns.
const MaxBufferSize = 5000

var llcHeaders = [][]byte{{0xE6, 0xE7, 0x00}, {0xE6, 0xE6, 0x00}}

// Reassembler collects serial chunks into DLMS APDUs.
//
// It handles HDLC segmentation (S bit) and DLMS general block transfer, both
// of which spread one APDU over several frames.
type Reassembler struct {
	log zerolog.Logger

	buf      []byte
	segments []byte

	inBlockTransfer bool
	nextBlock       uint16
	blocks          []byte

	apdu []byte
}

func NewReassembler(log zerolog.Logger) *Reassembler {
	return &Reassembler{log: log}
}

// Append adds received bytes. When the buffer then exceeds MaxBufferSize it
// is dropped together with any partial APDU.
func (r *Reassembler) Append(data []byte) {
	r.buf = append(r.buf, data...)
	if len(r.buf) > MaxBufferSize {
		r.log.Warn().Int("size", len(r.buf)).Msg("HDLC buffer overflow, dropping buffered data")
		r.buf = r.buf[:0]
		r.resetAPDU()
	}
}

// TryExtract consumes frames from the buffer until an APDU is complete.
// It returns false when more data is needed. Damaged frames are dropped with
// a warning, together with the partial APDU they belonged to.
func (r *Reassembler) TryExtract() bool {
	for {
		frame, ok := r.nextFrame()
		if !ok {
			return false
		}

		r.segments = append(r.segments, frame.Info...)
		if frame.Segmented {
			continue
		}
		payload := stripLLC(r.segments)
		r.segments = nil
		if len(payload) == 0 {
			continue
		}

		if apdu, ok := r.assemble(payload); ok {
			r.apdu = apdu
			return true
		}
	}
}

// APDU returns the APDU completed by the last successful TryExtract.
func (r *Reassembler) APDU() []byte {
	return r.apdu
}

// Buffered returns the number of bytes waiting for a complete frame.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// Reset drops all buffered and partially assembled data.
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
	r.resetAPDU()
	r.apdu = nil
}

func (r *Reassembler) resetAPDU() {
	r.segments = nil
	r.inBlockTransfer = false
	r.blocks = nil
}

func (r *Reassembler) discard(n int) {
	r.buf = append(r.buf[:0], r.buf[n:]...)
}

// nextFrame returns the next valid frame, resynchronising on the flag byte.
func (r *Reassembler) nextFrame() (Frame, bool) {
	for {
		start := bytes.IndexByte(r.buf, Flag)
		if start < 0 {
			if len(r.buf) > 0 {
				r.log.Debug().Int("bytes", len(r.buf)).Msg("Discarding bytes outside of HDLC frames")
			}
			r.buf = r.buf[:0]
			return Frame{}, false
		}
		for start+1 < len(r.buf) && r.buf[start+1] == Flag {
			start++
		}
		if start > 0 {
			r.discard(start)
		}

		frame, consumed, status := decodeFrame(r.buf)
		switch status {
		case frameIncomplete:
			return Frame{}, false
		case frameNoise:
			r.discard(consumed)
		case frameCorrupt:
			r.log.Warn().Int("bytes", consumed).Msg("Dropping damaged HDLC frame")
			r.discard(consumed)
			r.resetAPDU()
		case frameComplete:
			r.discard(consumed)
			return frame, true
		}
	}
}

func stripLLC(payload []byte) []byte {
	for _, llc := range llcHeaders {
		if bytes.HasPrefix(payload, llc) {
			return payload[len(llc):]
		}
	}
	return payload
}

// assemble collects general block transfer blocks. Other APDUs pass through.
func (r *Reassembler) assemble(payload []byte) ([]byte, bool) {
	if payload[0] != dlms.TagGeneralBlockTransfer {
		if r.inBlockTransfer {
			r.log.Warn().Uint16("expected_block", r.nextBlock).Msg("Block transfer interrupted, dropping partial APDU")
			r.resetAPDU()
		}
		return payload, true
	}

	if len(payload) < 6 {
		r.log.Warn().Msg("Truncated block transfer header")
		r.resetAPDU()
		return nil, false
	}
	last := payload[1]&0x80 != 0
	number := binary.BigEndian.Uint16(payload[2:4])
	length, n, err := dlms.DecodeLength(payload[6:])
	if err != nil || len(payload) < 6+n+length {
		r.log.Warn().Uint16("block", number).Msg("Truncated block transfer data")
		r.resetAPDU()
		return nil, false
	}
	data := payload[6+n : 6+n+length]

	switch {
	case number == 1:
		if r.inBlockTransfer {
			r.log.Debug().Msg("Block transfer restarted")
		}
		r.blocks = r.blocks[:0]
		r.inBlockTransfer = true
	case !r.inBlockTransfer:
		r.log.Debug().Uint16("block", number).Msg("Ignoring block without its predecessors")
		return nil, false
	case number != r.nextBlock:
		r.log.Warn().Uint16("block", number).Uint16("expected_block", r.nextBlock).
			Msg("Block out of sequence, dropping partial APDU")
		r.resetAPDU()
		return nil, false
	}

	r.blocks = append(r.blocks, data...)
	r.nextBlock = number + 1
	if !last {
		return nil, false
	}

	apdu := r.blocks
	r.blocks = nil
	r.inBlockTransfer = false
	return apdu, true
}
