package types

import (
	"crypto/subtle"
	"fmt"
	"io"

	"picoauth/internal/util/memzero"
)

// SequenceNumberSize is the length of a continuous-auth sequence number.
const SequenceNumberSize = 32

// SequenceNumber is an opaque counter exchanged during continuous
// authentication. The only valid reply to n is n.Next().
type SequenceNumber [SequenceNumberSize]byte

// RandomSequenceNumber draws an unguessable starting value from r.
func RandomSequenceNumber(r io.Reader) (SequenceNumber, error) {
	var s SequenceNumber
	if _, err := io.ReadFull(r, s[:]); err != nil {
		return s, err
	}
	return s, nil
}

// SequenceNumberFromBytes copies b into a SequenceNumber.
func SequenceNumberFromBytes(b []byte) (SequenceNumber, error) {
	var s SequenceNumber
	if len(b) != SequenceNumberSize {
		return s, fmt.Errorf("sequence number: want %d bytes, got %d", SequenceNumberSize, len(b))
	}
	copy(s[:], b)
	return s, nil
}

// Next returns the response value for s: s+1 modulo 2^256, big-endian.
func (s SequenceNumber) Next() SequenceNumber {
	for i := len(s) - 1; i >= 0; i-- {
		s[i]++
		if s[i] != 0 {
			break
		}
	}
	return s
}

// Equal compares in constant time.
func (s SequenceNumber) Equal(o SequenceNumber) bool {
	return subtle.ConstantTimeCompare(s[:], o[:]) == 1
}

// IsResponseTo reports whether s is the unique valid reply to prev.
func (s SequenceNumber) IsResponseTo(prev SequenceNumber) bool {
	return s.Equal(prev.Next())
}

// Bytes returns the sequence number as a slice.
func (s SequenceNumber) Bytes() []byte { return append([]byte(nil), s[:]...) }

// Destroy zero-fills the sequence number.
func (s *SequenceNumber) Destroy() { memzero.Zero(s[:]) }
