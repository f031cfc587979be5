package types

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"

	"picoauth/internal/util/memzero"
)

// NonceSize is the length of every handshake nonce.
const NonceSize = 8

// Nonce is a single-use random value bound into handshake signatures and the
// key derivation. It must be destroyed once the handshake that drew it ends.
type Nonce struct {
	b         []byte
	destroyed bool
}

// NewNonce reads NonceSize bytes from r.
func NewNonce(r io.Reader) (*Nonce, error) {
	b := make([]byte, NonceSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return &Nonce{b: b}, nil
}

// NonceFromBytes copies b into a Nonce. b must be exactly NonceSize bytes.
func NonceFromBytes(b []byte) (*Nonce, error) {
	if len(b) != NonceSize {
		return nil, fmt.Errorf("nonce: want %d bytes, got %d", NonceSize, len(b))
	}
	return &Nonce{b: append([]byte(nil), b...)}, nil
}

// Bytes returns a copy of the nonce value.
func (n *Nonce) Bytes() ([]byte, error) {
	if n.destroyed {
		return nil, ErrDestroyed
	}
	return append([]byte(nil), n.b...), nil
}

// Equal compares two nonces by content. Comparing a destroyed nonce fails.
func (n *Nonce) Equal(o *Nonce) (bool, error) {
	if n.destroyed || o.destroyed {
		return false, ErrDestroyed
	}
	return subtle.ConstantTimeCompare(n.b, o.b) == 1, nil
}

// Destroy zero-fills the nonce. It is safe to call more than once.
func (n *Nonce) Destroy() {
	memzero.Zero(n.b)
	n.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (n *Nonce) Destroyed() bool { return n.destroyed }

// MarshalJSON encodes the nonce as base64.
func (n *Nonce) MarshalJSON() ([]byte, error) {
	if n.destroyed {
		return nil, ErrDestroyed
	}
	return json.Marshal(n.b)
}

// UnmarshalJSON decodes a base64 nonce of exactly NonceSize bytes.
func (n *Nonce) UnmarshalJSON(data []byte) error {
	var b []byte
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	parsed, err := NonceFromBytes(b)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}
