package kdf

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"

	"picoauth/internal/domain"
	"picoauth/internal/util/memzero"
)

const (
	blockSize = sha256.Size
	maxBlocks = 255

	// MacKeyBits is the length of both MAC keys.
	MacKeyBits = 256
	// EncKeyBits is the length of both encryption keys and the shared key.
	EncKeyBits = 128
)

var (
	// ErrExhausted is returned when more than 255 blocks are requested.
	ErrExhausted = errors.New("kdf: keystream exhausted")
	// ErrDestroyed is returned by any call after Destroy.
	ErrDestroyed = errors.New("kdf: key deriver destroyed")
	// ErrKeyLength is returned for key sizes that are not whole bytes.
	ErrKeyLength = errors.New("kdf: key length must be a positive multiple of 8 bits")
	ErrNilNonce  = errors.New("kdf: nil nonce")
	ErrNilSecret = errors.New("kdf: empty shared secret")
)

// KeyDeriver expands one ECDH secret into an ordered keystream.
// It is not safe for concurrent use.
type KeyDeriver struct {
	kdk    []byte
	nonces []byte // nonceA || nonceB
	block  []byte
	index  int // index of the current block, 0 before the first
	offset int // bytes of block already consumed

	destroyed bool
}

// New runs the extraction step over secret and the two nonces.
// The secret and nonces are not retained.
func New(secret []byte, nonceA, nonceB *domain.Nonce) (*KeyDeriver, error) {
	if len(secret) == 0 {
		return nil, ErrNilSecret
	}
	if nonceA == nil || nonceB == nil {
		return nil, ErrNilNonce
	}
	a, err := nonceA.Bytes()
	if err != nil {
		return nil, err
	}
	b, err := nonceB.Bytes()
	if err != nil {
		memzero.Zero(a)
		return nil, err
	}
	nonces := memzero.Concat(a, b)
	memzero.ZeroAll(a, b)

	return &KeyDeriver{
		kdk:    hmacSum(nonces, secret),
		nonces: nonces,
	}, nil
}

// NextKey returns the next bits/8 bytes of keystream as a key for alg.
func (d *KeyDeriver) NextKey(alg domain.Algorithm, bits int) (*domain.SecretKey, error) {
	if d.destroyed {
		return nil, ErrDestroyed
	}
	if bits <= 0 || bits%8 != 0 {
		return nil, ErrKeyLength
	}
	out := make([]byte, bits/8)
	defer memzero.Zero(out)

	for filled := 0; filled < len(out); {
		if d.block == nil || d.offset == len(d.block) {
			if err := d.nextBlock(); err != nil {
				return nil, err
			}
		}
		n := copy(out[filled:], d.block[d.offset:])
		d.offset += n
		filled += n
	}
	return domain.NewSecretKey(alg, out), nil
}

func (d *KeyDeriver) nextBlock() error {
	if d.index >= maxBlocks {
		return ErrExhausted
	}
	d.index++

	h := hmac.New(sha256.New, d.kdk)
	if d.block != nil {
		h.Write(d.block)
	}
	h.Write(d.nonces)
	h.Write([]byte{byte(d.index)})
	next := h.Sum(nil)

	memzero.Zero(d.block)
	d.block = next
	d.offset = 0
	return nil
}

// Destroy zeroes all internal state. Further calls fail with ErrDestroyed.
func (d *KeyDeriver) Destroy() {
	memzero.ZeroAll(d.kdk, d.nonces, d.block)
	d.block = nil
	d.destroyed = true
}

// DeriveKeyMaterial derives the five handshake keys in their fixed order and
// destroys the deriver. proverNonce is always nonceA.
func DeriveKeyMaterial(secret []byte, proverNonce, verifierNonce *domain.Nonce) (*domain.KeyMaterial, error) {
	d, err := New(secret, proverNonce, verifierNonce)
	if err != nil {
		return nil, err
	}
	defer d.Destroy()

	km := &domain.KeyMaterial{}
	steps := []struct {
		dst  **domain.SecretKey
		alg  domain.Algorithm
		bits int
	}{
		{&km.ProverMacKey, domain.AlgorithmHMACSHA256, MacKeyBits},
		{&km.ProverEncKey, domain.AlgorithmAES, EncKeyBits},
		{&km.VerifierMacKey, domain.AlgorithmHMACSHA256, MacKeyBits},
		{&km.VerifierEncKey, domain.AlgorithmAES, EncKeyBits},
		{&km.SharedKey, domain.AlgorithmAES, EncKeyBits},
	}
	for _, s := range steps {
		k, err := d.NextKey(s.alg, s.bits)
		if err != nil {
			km.Destroy()
			return nil, fmt.Errorf("derive %s key: %w", s.alg, err)
		}
		*s.dst = k
	}
	return km, nil
}

func hmacSum(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}
