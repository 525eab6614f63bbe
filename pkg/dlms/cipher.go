package dlms

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
)

const authTagLength = 12

// Cipher turns a ciphered APDU into the plain APDU it protects.
type Cipher interface {
	Decrypt(apdu CipheredAPDU, key []byte) ([]byte, error)
}

// AESCTR decrypts DLMS security suite 0 payloads.
//
// The GCM counter block is system title || frame counter || 00000002, so the
// payload is plain AES-CTR from that block. The authentication tag is not checked.
type AESCTR struct{}

func (AESCTR) Decrypt(apdu CipheredAPDU, key []byte) ([]byte, error) {
	payload := apdu.Ciphertext
	if apdu.Authenticated() {
		if len(payload) < authTagLength {
			return nil, fmt.Errorf("%w: payload shorter than its authentication tag", ErrDecryptionFailed)
		}
		payload = payload[:len(payload)-authTagLength]
	}
	if !apdu.Encrypted() {
		return append([]byte(nil), payload...), nil
	}
	if len(apdu.SystemTitle) != 8 {
		return nil, fmt.Errorf("%w: system title of %d bytes", ErrDecryptionFailed, len(apdu.SystemTitle))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	iv := make([]byte, aes.BlockSize)
	copy(iv, apdu.SystemTitle)
	binary.BigEndian.PutUint32(iv[8:12], apdu.FrameCounter)
	iv[15] = 2

	plain := make([]byte, len(payload))
	cipher.NewCTR(block, iv).XORKeyStream(plain, payload)
	return plain, nil
}
