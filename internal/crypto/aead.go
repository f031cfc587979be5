package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"
)

// GCMNonceSize is the IV length used for every AES-GCM seal.
const GCMNonceSize = 12

var (
	// ErrInvalidKey is returned when the key cannot key AES.
	ErrInvalidKey = errors.New("crypto: invalid AES key")
	// ErrOpen is returned when the IV, tag or ciphertext fail to authenticate.
	ErrOpen = errors.New("crypto: message authentication failed")
)

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return cipher.NewGCM(block)
}

// SealGCM encrypts plaintext under key with a fresh IV read from r.
func SealGCM(r io.Reader, key, plaintext []byte) (iv, ciphertext []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	iv = make([]byte, GCMNonceSize)
	if _, err := io.ReadFull(r, iv); err != nil {
		return nil, nil, err
	}
	return iv, aead.Seal(nil, iv, plaintext, nil), nil
}

// OpenGCM authenticates and decrypts ciphertext.
func OpenGCM(key, iv, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != GCMNonceSize {
		return nil, ErrOpen
	}
	pt, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, ErrOpen
	}
	return pt, nil
}
