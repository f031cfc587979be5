package types

import (
	"crypto/subtle"

	"picoauth/internal/util/memzero"
)

// Algorithm tags the primitive a SecretKey is meant for.
type Algorithm uint8

const (
	// AlgorithmHMACSHA256 keys are only valid for HMAC-SHA256.
	AlgorithmHMACSHA256 Algorithm = iota + 1
	// AlgorithmAES keys are only valid for AES-GCM.
	AlgorithmAES
)

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmHMACSHA256:
		return "HmacSHA256"
	case AlgorithmAES:
		return "AES"
	default:
		return "unknown"
	}
}

// SecretKey is an opaque symmetric key handle. Its bytes are only handed to
// the cipher and MAC primitives and are zeroed by Destroy.
type SecretKey struct {
	alg       Algorithm
	b         []byte
	destroyed bool
}

// NewSecretKey copies b into a key for alg.
func NewSecretKey(alg Algorithm, b []byte) *SecretKey {
	return &SecretKey{alg: alg, b: append([]byte(nil), b...)}
}

// Algorithm returns the key's algorithm tag.
func (k *SecretKey) Algorithm() Algorithm { return k.alg }

// Len returns the key length in bytes.
func (k *SecretKey) Len() int { return len(k.b) }

// Material exposes the raw key for a primitive call. Callers must not retain
// or modify the returned slice.
func (k *SecretKey) Material() ([]byte, error) {
	if k == nil || k.destroyed {
		return nil, ErrDestroyed
	}
	return k.b, nil
}

// Equal compares two keys in constant time. Destroyed keys are never equal.
func (k *SecretKey) Equal(o *SecretKey) bool {
	if k == nil || o == nil || k.destroyed || o.destroyed || k.alg != o.alg {
		return false
	}
	return subtle.ConstantTimeCompare(k.b, o.b) == 1
}

// Destroy zeroes the key. It is safe to call more than once and on nil.
func (k *SecretKey) Destroy() {
	if k == nil {
		return
	}
	memzero.Zero(k.b)
	k.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (k *SecretKey) Destroyed() bool { return k == nil || k.destroyed }

// KeyMaterial is the five-key set derived for one handshake.
type KeyMaterial struct {
	ProverMacKey   *SecretKey
	ProverEncKey   *SecretKey
	VerifierMacKey *SecretKey
	VerifierEncKey *SecretKey
	SharedKey      *SecretKey
}

// DestroyHandshakeKeys zeroes the four keys that only serve the handshake.
// The shared key survives for continuous authentication.
func (km *KeyMaterial) DestroyHandshakeKeys() {
	km.ProverMacKey.Destroy()
	km.ProverEncKey.Destroy()
	km.VerifierMacKey.Destroy()
	km.VerifierEncKey.Destroy()
}

// Destroy zeroes all five keys.
func (km *KeyMaterial) Destroy() {
	km.DestroyHandshakeKeys()
	km.SharedKey.Destroy()
}
