package dlms

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Notification is a parsed data-notification APDU.
type Notification struct {
	InvokeID uint32
	Time     time.Time
	Body     Data
}

// ParseNotification decodes tag 0x0F: long-invoke-id-and-priority, optional
// date-time octet string and the notification body.
func ParseNotification(apdu []byte) (Notification, error) {
	if len(apdu) == 0 || apdu[0] != TagDataNotification {
		if len(apdu) == 0 {
			return Notification{}, fmt.Errorf("%w: empty APDU", ErrNotNotification)
		}
		return Notification{}, fmt.Errorf("%w: tag 0x%02X", ErrNotNotification, apdu[0])
	}
	if len(apdu) < 6 {
		return Notification{}, fmt.Errorf("%w: data-notification header", ErrTruncated)
	}

	n := Notification{InvokeID: binary.BigEndian.Uint32(apdu[1:5])}
	pos := 5

	switch apdu[pos] {
	case 0x00:
		pos++
	case byte(TypeOctetString):
		// Some meters tag the date-time like a regular octet string.
		pos++
		fallthrough
	default:
		length, l, err := DecodeLength(apdu[pos:])
		if err != nil {
			return Notification{}, err
		}
		pos += l
		if len(apdu) < pos+length {
			return Notification{}, fmt.Errorf("%w: notification date-time", ErrTruncated)
		}
		if t, ok := ParseDateTime(apdu[pos : pos+length]); ok {
			n.Time = t
		}
		pos += length
	}

	body, _, err := DecodeData(apdu[pos:])
	if err != nil {
		return Notification{}, fmt.Errorf("notification body: %w", err)
	}
	n.Body = body
	return n, nil
}

// CipheredAPDU is a general-glo or general-ded ciphering APDU.
type CipheredAPDU struct {
	Tag             byte
	SystemTitle     []byte
	SecurityControl byte
	FrameCounter    uint32
	// Ciphertext includes the authentication tag when SecurityControl has it.
	Ciphertext []byte
}

func IsCiphered(apdu []byte) bool {
	return len(apdu) > 0 && (apdu[0] == TagGeneralGloCiphering || apdu[0] == TagGeneralDedCiphering)
}

func (c CipheredAPDU) Authenticated() bool {
	return c.SecurityControl&securityControlAuthFlag != 0
}

func (c CipheredAPDU) Encrypted() bool {
	return c.SecurityControl&securityControlEncrypted != 0
}

func ParseCiphered(apdu []byte) (CipheredAPDU, error) {
	if !IsCiphered(apdu) {
		return CipheredAPDU{}, fmt.Errorf("%w: not a ciphered APDU", ErrUnsupportedTag)
	}
	c := CipheredAPDU{Tag: apdu[0]}
	pos := 1

	titleLength, n, err := DecodeLength(apdu[pos:])
	if err != nil {
		return CipheredAPDU{}, err
	}
	pos += n
	if len(apdu) < pos+titleLength {
		return CipheredAPDU{}, fmt.Errorf("%w: system title", ErrTruncated)
	}
	c.SystemTitle = apdu[pos : pos+titleLength]
	pos += titleLength

	length, n, err := DecodeLength(apdu[pos:])
	if err != nil {
		return CipheredAPDU{}, err
	}
	pos += n
	if length < 5 || len(apdu) < pos+length {
		return CipheredAPDU{}, fmt.Errorf("%w: ciphered content of %d bytes", ErrTruncated, length)
	}
	content := apdu[pos : pos+length]

	c.SecurityControl = content[0]
	c.FrameCounter = binary.BigEndian.Uint32(content[1:5])
	c.Ciphertext = content[5:]
	return c, nil
}
