package dlms

import (
	"fmt"
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/obis"
)

var (
	ErrTruncated        = fmt.Errorf("truncated APDU")
	ErrUnsupportedTag   = fmt.Errorf("unsupported tag")
	ErrNotNumeric       = fmt.Errorf("value is not numeric")
	ErrNotNotification  = fmt.Errorf("APDU is not a data-notification")
	ErrNoKey            = fmt.Errorf("ciphered APDU received but no decryption key is configured")
	ErrLayoutMismatch   = fmt.Errorf("telegram body does not match the configured layout")
	ErrDecryptionFailed = fmt.Errorf("decryption failed")
)

// APDU tags
const (
	TagDataNotification      byte = 0x0F
	TagGeneralGloCiphering   byte = 0xDB
	TagGeneralDedCiphering   byte = 0xDF
	TagGeneralBlockTransfer  byte = 0xE0
	securityControlAuthFlag  byte = 0x10
	securityControlEncrypted byte = 0x20
)

type ObjectKind int

const (
	KindOther ObjectKind = iota
	KindRegister
	KindClock
	KindData
)

func (k ObjectKind) String() string {
	switch k {
	case KindRegister:
		return "register"
	case KindClock:
		return "clock"
	case KindData:
		return "data"
	}
	return "other"
}

// COSEM interface classes
const (
	ClassData             uint16 = 1
	ClassRegister         uint16 = 3
	ClassExtendedRegister uint16 = 4
	ClassDemandRegister   uint16 = 5
	ClassClock            uint16 = 8
	ClassPushSetup        uint16 = 40
)

func kindOfClass(classID uint16) ObjectKind {
	switch classID {
	case ClassData:
		return KindData
	case ClassRegister, ClassExtendedRegister, ClassDemandRegister:
		return KindRegister
	case ClassClock:
		return KindClock
	}
	return KindOther
}

// Object is a decoded COSEM object of a telegram.
type Object struct {
	Code    obis.Code
	ClassID uint16
	Kind    ObjectKind
	Value   *Data

	// Scaler is the register scaler_unit exponent when the telegram carried it.
	Scaler    int8
	HasScaler bool
}

// Telegram is the decoded content of one data-notification.
type Telegram struct {
	InvokeID uint32
	// Time is the message level date-time. Zero when the meter did not send one.
	Time    time.Time
	Objects *Objects
}

func (t Telegram) HasTime() bool {
	return !t.Time.IsZero()
}
