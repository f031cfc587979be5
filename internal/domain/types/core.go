package types

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrDestroyed is returned when a wiped value is used.
var ErrDestroyed = errors.New("value has been destroyed")

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// CommitmentSize is the length of a public-key commitment.
const CommitmentSize = 32

// Commitment pins a long-term public key: SHA-256 over its encoding.
type Commitment [CommitmentSize]byte

// String returns the hex form of the commitment.
func (c Commitment) String() string { return hex.EncodeToString(c[:]) }

// IsZero reports whether c is unset.
func (c Commitment) IsZero() bool { return c == Commitment{} }

// MarshalText encodes the commitment as hex.
func (c Commitment) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText decodes a hex commitment.
func (c *Commitment) UnmarshalText(b []byte) error {
	parsed, err := ParseCommitment(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCommitment decodes a 64-character hex commitment.
func ParseCommitment(s string) (Commitment, error) {
	var c Commitment
	b, err := hex.DecodeString(s)
	if err != nil {
		return c, fmt.Errorf("commitment: %w", err)
	}
	if len(b) != CommitmentSize {
		return c, fmt.Errorf("commitment: want %d bytes, got %d", CommitmentSize, len(b))
	}
	copy(c[:], b)
	return c, nil
}
