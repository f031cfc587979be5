package crypto

import (
	"crypto/ecdh"
	"errors"
	"io"
)

// ErrCurveMismatch is returned when an ECDH peer key is not on P-256.
var ErrCurveMismatch = errors.New("crypto: peer key is not a P-256 key")

// GenerateECDH returns a fresh ephemeral P-256 key pair drawn from r.
func GenerateECDH(r io.Reader) (*ecdh.PrivateKey, error) {
	return ecdh.P256().GenerateKey(r)
}

// ECDH computes the shared secret between priv and peer.
// The result is the 32-byte x-coordinate; the caller must zero it.
func ECDH(priv *ecdh.PrivateKey, peer *ecdh.PublicKey) ([]byte, error) {
	if peer == nil || peer.Curve() != ecdh.P256() {
		return nil, ErrCurveMismatch
	}
	return priv.ECDH(peer)
}
