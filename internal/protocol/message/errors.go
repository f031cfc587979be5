package message

import "errors"

var (
	// ErrMissingField reports an absent required message or field.
	ErrMissingField = errors.New("message: missing field")
	// ErrFieldDeserialization reports a truncated or malformed payload.
	ErrFieldDeserialization = errors.New("message: field deserialization failed")
	// ErrDecryption reports a ciphertext that failed authentication.
	ErrDecryption = errors.New("message: decryption failed")
	// ErrConfigFault reports a key that cannot be used with AES-GCM.
	ErrConfigFault = errors.New("message: key unusable for AES-GCM")
)
