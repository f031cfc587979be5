package message

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"picoauth/internal/crypto"
	"picoauth/internal/domain"
	"picoauth/internal/util/memzero"
)

// ivSource supplies AES-GCM IVs.
var ivSource io.Reader = rand.Reader

// Envelope is the part shared by every encrypted message: the session id in
// the clear, the IV and the AES-GCM ciphertext of the hidden fields.
type Envelope struct {
	SessionID     int32
	IV            []byte
	EncryptedData []byte
}

type envelopeWire struct {
	SessionID     *int32 `json:"sessionId"`
	IV            []byte `json:"iv"`
	EncryptedData []byte `json:"encryptedData"`
}

func (w envelopeWire) envelope() (Envelope, error) {
	switch {
	case w.SessionID == nil:
		return Envelope{}, fmt.Errorf("%w: sessionId", ErrMissingField)
	case len(w.IV) == 0:
		return Envelope{}, fmt.Errorf("%w: iv", ErrMissingField)
	case len(w.EncryptedData) == 0:
		return Envelope{}, fmt.Errorf("%w: encryptedData", ErrMissingField)
	}
	return Envelope{SessionID: *w.SessionID, IV: w.IV, EncryptedData: w.EncryptedData}, nil
}

func (e Envelope) wire() envelopeWire {
	id := e.SessionID
	return envelopeWire{SessionID: &id, IV: e.IV, EncryptedData: e.EncryptedData}
}

// MarshalJSON encodes the envelope.
func (e Envelope) MarshalJSON() ([]byte, error) { return json.Marshal(e.wire()) }

// UnmarshalJSON decodes the envelope, rejecting missing fields.
func (e *Envelope) UnmarshalJSON(b []byte) error {
	var w envelopeWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrFieldDeserialization, err)
	}
	env, err := w.envelope()
	if err != nil {
		return err
	}
	*e = env
	return nil
}

// aesKey unwraps key for AES-GCM or reports a configuration fault.
func aesKey(key *domain.SecretKey) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil key", ErrConfigFault)
	}
	if key.Algorithm() != domain.AlgorithmAES {
		return nil, fmt.Errorf("%w: %s key", ErrConfigFault, key.Algorithm())
	}
	material, err := key.Material()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigFault, err)
	}
	switch len(material) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-byte AES key", ErrConfigFault, len(material))
	}
	return material, nil
}

// seal encrypts the written fields under key and zeroes the field buffer.
func seal(key *domain.SecretKey, sessionID int32, w *fieldWriter) (Envelope, error) {
	plaintext := w.bytes()
	defer memzero.Zero(plaintext)

	material, err := aesKey(key)
	if err != nil {
		return Envelope{}, err
	}
	iv, ct, err := crypto.SealGCM(ivSource, material, plaintext)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{SessionID: sessionID, IV: iv, EncryptedData: ct}, nil
}

// open decrypts e under key and parses the hidden fields.
func open(key *domain.SecretKey, e Envelope, parse func(r *fieldReader)) error {
	material, err := aesKey(key)
	if err != nil {
		return err
	}
	plaintext, err := crypto.OpenGCM(material, e.IV, e.EncryptedData)
	if err != nil {
		if errors.Is(err, crypto.ErrInvalidKey) {
			return fmt.Errorf("%w: %v", ErrConfigFault, err)
		}
		return fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return parseFields(plaintext, parse)
}
