package hdlc

import (
	"encoding/binary"

	"github.com/sigurn/crc16"
)

const (
	Flag = 0x7E

	formatType       = 0xA000
	formatTypeMask   = 0xF000
	formatSegmented  = 0x0800
	formatLengthMask = 0x07FF

	maxAddressLength = 4
)

var crcTable = crc16.MakeTable(crc16.CRC16_X_25)

// Frame is one checked HDLC frame.
type Frame struct {
	Segmented bool
	Control   byte
	Info      []byte
}

type frameStatus int

const (
	// More bytes are needed to decide.
	frameIncomplete frameStatus = iota
	// The bytes at the flag do not start a frame, skip the flag.
	frameNoise
	// A frame header was found but the frame is damaged.
	frameCorrupt
	frameComplete
)

// addressLength returns the length of the address at b, 0 if it is not
// terminated yet and -1 if it is longer than allowed.
func addressLength(b []byte) int {
	for i := 0; i < len(b) && i < maxAddressLength; i++ {
		if b[i]&0x01 == 1 {
			return i + 1
		}
	}
	if len(b) >= maxAddressLength {
		return -1
	}
	return 0
}

// decodeFrame inspects buf, which starts at an opening flag.
// consumed is the number of bytes to drop for every status but frameIncomplete.
func decodeFrame(buf []byte) (frame Frame, consumed int, status frameStatus) {
	if len(buf) < 3 {
		return Frame{}, 0, frameIncomplete
	}
	format := binary.BigEndian.Uint16(buf[1:3])
	if format&formatTypeMask != formatType {
		return Frame{}, 1, frameNoise
	}
	length := int(format & formatLengthMask)

	pos := 3
	for i := 0; i < 2; i++ {
		n := addressLength(buf[pos:])
		if n == 0 {
			return Frame{}, 0, frameIncomplete
		}
		if n < 0 {
			return Frame{}, 1, frameNoise
		}
		pos += n
	}
	if len(buf) <= pos {
		return Frame{}, 0, frameIncomplete
	}
	control := buf[pos]
	pos++

	// Bytes from format through control.
	header := pos - 1
	withInfo := length > header+2
	if length < header+2 || (withInfo && length < header+4) {
		return Frame{}, 1, frameNoise
	}

	if withInfo {
		if len(buf) < pos+2 {
			return Frame{}, 0, frameIncomplete
		}
		if binary.LittleEndian.Uint16(buf[pos:pos+2]) != crc16.Checksum(buf[1:pos], crcTable) {
			return Frame{}, 1, frameNoise
		}
	}

	// Opening flag, length bytes, closing flag.
	if len(buf) < length+2 {
		return Frame{}, 0, frameIncomplete
	}
	if buf[length+1] != Flag {
		return Frame{}, 1, frameCorrupt
	}
	if binary.LittleEndian.Uint16(buf[length-1:length+1]) != crc16.Checksum(buf[1:length-1], crcTable) {
		// Keep the closing flag, it may open the next frame.
		return Frame{}, length + 1, frameCorrupt
	}

	frame = Frame{
		Segmented: format&formatSegmented != 0,
		Control:   control,
	}
	if withInfo {
		frame.Info = append([]byte(nil), buf[pos+2:length-1]...)
	}
	return frame, length + 1, frameComplete
}
