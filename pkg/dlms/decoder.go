package dlms

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Decoder turns reassembled APDUs into telegrams of one meter.
type Decoder struct {
	layout Layout
	cipher Cipher
	key    []byte
	log    zerolog.Logger
}

type Option func(*Decoder)

// WithKey enables decryption of ciphered APDUs with an AES-128 key.
func WithKey(key []byte) Option {
	return func(d *Decoder) {
		d.key = append([]byte(nil), key...)
	}
}

// WithCipher replaces the AES-CTR cipher.
func WithCipher(c Cipher) Option {
	return func(d *Decoder) {
		d.cipher = c
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(d *Decoder) {
		d.log = log
	}
}

func NewDecoder(layout Layout, opts ...Option) *Decoder {
	d := &Decoder{
		layout: layout,
		cipher: AESCTR{},
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Decoder) Layout() Layout {
	return d.layout
}

// Decode decrypts the APDU if needed and decodes its body with the configured layout.
// On error the returned telegram holds an empty object set.
func (d *Decoder) Decode(apdu []byte) (Telegram, error) {
	empty := Telegram{Objects: NewObjects()}

	if IsCiphered(apdu) {
		plain, err := d.decrypt(apdu)
		if err != nil {
			return empty, err
		}
		apdu = plain
	}

	n, err := ParseNotification(apdu)
	if err != nil {
		return empty, err
	}

	objects, err := d.layout.decode(n.Body, d.log)
	if err != nil {
		return empty, err
	}
	d.log.Debug().Int("objects", objects.Len()).Str("layout", d.layout.Kind.String()).Msg("Decoded telegram")

	return Telegram{InvokeID: n.InvokeID, Time: n.Time, Objects: objects}, nil
}

func (d *Decoder) decrypt(apdu []byte) ([]byte, error) {
	if len(d.key) == 0 {
		return nil, ErrNoKey
	}
	ciphered, err := ParseCiphered(apdu)
	if err != nil {
		return nil, err
	}
	plain, err := d.cipher.Decrypt(ciphered, d.key)
	if err != nil {
		return nil, err
	}
	if len(plain) == 0 || plain[0] != TagDataNotification {
		return nil, fmt.Errorf("%w: decrypted APDU does not start with a data-notification, check the key", ErrDecryptionFailed)
	}
	return plain, nil
}
