package message

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"picoauth/internal/crypto"
	"picoauth/internal/domain"
)

// ProtocolVersion is the handshake version this package speaks.
const ProtocolVersion = 2

// StartMessage opens a handshake: prover to verifier, in the clear.
type StartMessage struct {
	Version            int
	EphemeralPublicKey *ecdh.PublicKey
	Nonce              *domain.Nonce
}

type startWire struct {
	Version            *int   `json:"version"`
	EphemeralPublicKey []byte `json:"ephemeralPublicKey"`
	Nonce              []byte `json:"nonce"`
}

// Validate checks that every field is present.
func (m *StartMessage) Validate() error {
	switch {
	case m == nil:
		return fmt.Errorf("%w: start message", ErrMissingField)
	case m.EphemeralPublicKey == nil:
		return fmt.Errorf("%w: ephemeralPublicKey", ErrMissingField)
	case m.Nonce == nil:
		return fmt.Errorf("%w: nonce", ErrMissingField)
	}
	return nil
}

// MarshalJSON encodes the message.
func (m StartMessage) MarshalJSON() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	key, err := crypto.EncodePublicKey(m.EphemeralPublicKey)
	if err != nil {
		return nil, err
	}
	nonce, err := m.Nonce.Bytes()
	if err != nil {
		return nil, err
	}
	v := m.Version
	return json.Marshal(startWire{Version: &v, EphemeralPublicKey: key, Nonce: nonce})
}

// UnmarshalJSON decodes the message, rejecting missing or malformed fields.
func (m *StartMessage) UnmarshalJSON(b []byte) error {
	var w startWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrFieldDeserialization, err)
	}
	if w.Version == nil {
		return fmt.Errorf("%w: version", ErrMissingField)
	}
	key, nonce, err := parseEphemeral(w.EphemeralPublicKey, w.Nonce)
	if err != nil {
		return err
	}
	*m = StartMessage{Version: *w.Version, EphemeralPublicKey: key, Nonce: nonce}
	return nil
}

func parseEphemeral(keyDER, nonceBytes []byte) (*ecdh.PublicKey, *domain.Nonce, error) {
	if len(keyDER) == 0 {
		return nil, nil, fmt.Errorf("%w: ephemeralPublicKey", ErrMissingField)
	}
	if len(nonceBytes) == 0 {
		return nil, nil, fmt.Errorf("%w: nonce", ErrMissingField)
	}
	key, err := crypto.ParseECDHPublicKey(keyDER)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: ephemeralPublicKey: %v", ErrFieldDeserialization, err)
	}
	nonce, err := domain.NonceFromBytes(nonceBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFieldDeserialization, err)
	}
	return key, nonce, nil
}

// ServiceAuthMessage authenticates the verifier to the prover. The ephemeral
// key and nonce travel in the clear; the long-term key, signature and MAC are
// encrypted under the verifier encryption key.
type ServiceAuthMessage struct {
	SessionID          int32
	EphemeralPublicKey *ecdh.PublicKey
	Nonce              *domain.Nonce
	PublicKey          *ecdsa.PublicKey
	Signature          []byte
	MAC                []byte
}

// Encrypt seals the message under key.
func (m *ServiceAuthMessage) Encrypt(key *domain.SecretKey) (*EncServiceAuthMessage, error) {
	if m.EphemeralPublicKey == nil || m.Nonce == nil || m.PublicKey == nil {
		return nil, fmt.Errorf("%w: service auth message", ErrMissingField)
	}
	der, err := crypto.EncodePublicKey(m.PublicKey)
	if err != nil {
		return nil, err
	}
	var w fieldWriter
	w.writeBytes(der)
	w.writeBytes(m.Signature)
	w.writeBytes(m.MAC)
	env, err := seal(key, m.SessionID, &w)
	if err != nil {
		return nil, err
	}
	return &EncServiceAuthMessage{
		Envelope:           env,
		EphemeralPublicKey: m.EphemeralPublicKey,
		Nonce:              m.Nonce,
	}, nil
}

// EncServiceAuthMessage is the wire form of ServiceAuthMessage.
type EncServiceAuthMessage struct {
	Envelope
	EphemeralPublicKey *ecdh.PublicKey
	Nonce              *domain.Nonce
}

type encServiceAuthWire struct {
	envelopeWire
	EphemeralPublicKey []byte `json:"ephemeralPublicKey"`
	Nonce              []byte `json:"nonce"`
}

// Validate checks that the cleartext fields are present.
func (e *EncServiceAuthMessage) Validate() error {
	switch {
	case e == nil:
		return fmt.Errorf("%w: service auth message", ErrMissingField)
	case e.EphemeralPublicKey == nil:
		return fmt.Errorf("%w: ephemeralPublicKey", ErrMissingField)
	case e.Nonce == nil:
		return fmt.Errorf("%w: nonce", ErrMissingField)
	case len(e.IV) == 0 || len(e.EncryptedData) == 0:
		return fmt.Errorf("%w: encrypted payload", ErrMissingField)
	}
	return nil
}

// Decrypt opens the message under key.
func (e *EncServiceAuthMessage) Decrypt(key *domain.SecretKey) (*ServiceAuthMessage, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	m := &ServiceAuthMessage{
		SessionID:          e.SessionID,
		EphemeralPublicKey: e.EphemeralPublicKey,
		Nonce:              e.Nonce,
	}
	err := open(key, e.Envelope, func(r *fieldReader) {
		der := r.readBytes("publicKey")
		m.Signature = r.readBytes("signature")
		m.MAC = r.readBytes("mac")
		if r.err != nil {
			return
		}
		pub, err := crypto.ParseSigningPublicKey(der)
		if err != nil {
			r.fail("publicKey: %v", err)
			return
		}
		m.PublicKey = pub
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalJSON encodes the message.
func (e EncServiceAuthMessage) MarshalJSON() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	key, err := crypto.EncodePublicKey(e.EphemeralPublicKey)
	if err != nil {
		return nil, err
	}
	nonce, err := e.Nonce.Bytes()
	if err != nil {
		return nil, err
	}
	return json.Marshal(encServiceAuthWire{
		envelopeWire:       e.Envelope.wire(),
		EphemeralPublicKey: key,
		Nonce:              nonce,
	})
}

// UnmarshalJSON decodes the message, rejecting missing or malformed fields.
func (e *EncServiceAuthMessage) UnmarshalJSON(b []byte) error {
	var w encServiceAuthWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrFieldDeserialization, err)
	}
	env, err := w.envelopeWire.envelope()
	if err != nil {
		return err
	}
	key, nonce, err := parseEphemeral(w.EphemeralPublicKey, w.Nonce)
	if err != nil {
		return err
	}
	*e = EncServiceAuthMessage{Envelope: env, EphemeralPublicKey: key, Nonce: nonce}
	return nil
}

// PicoAuthMessage authenticates the prover to the verifier. Every field but
// the session id is encrypted under the prover encryption key.
type PicoAuthMessage struct {
	SessionID int32
	PublicKey *ecdsa.PublicKey
	Signature []byte
	MAC       []byte
	ExtraData []byte
}

// Encrypt seals the message under key.
func (m *PicoAuthMessage) Encrypt(key *domain.SecretKey) (*EncPicoAuthMessage, error) {
	if m.PublicKey == nil {
		return nil, fmt.Errorf("%w: publicKey", ErrMissingField)
	}
	der, err := crypto.EncodePublicKey(m.PublicKey)
	if err != nil {
		return nil, err
	}
	var w fieldWriter
	w.writeBytes(der)
	w.writeBytes(m.Signature)
	w.writeBytes(m.MAC)
	w.writeBytes(m.ExtraData)
	env, err := seal(key, m.SessionID, &w)
	if err != nil {
		return nil, err
	}
	return &EncPicoAuthMessage{Envelope: env}, nil
}

// EncPicoAuthMessage is the wire form of PicoAuthMessage.
type EncPicoAuthMessage struct {
	Envelope
}

// Decrypt opens the message under key.
func (e *EncPicoAuthMessage) Decrypt(key *domain.SecretKey) (*PicoAuthMessage, error) {
	m := &PicoAuthMessage{SessionID: e.SessionID}
	err := open(key, e.Envelope, func(r *fieldReader) {
		der := r.readBytes("publicKey")
		m.Signature = r.readBytes("signature")
		m.MAC = r.readBytes("mac")
		m.ExtraData = r.readBytes("extraData")
		if r.err != nil {
			return
		}
		pub, err := crypto.ParseSigningPublicKey(der)
		if err != nil {
			r.fail("publicKey: %v", err)
			return
		}
		m.PublicKey = pub
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// StatusMessage ends the handshake with the verifier's verdict.
type StatusMessage struct {
	SessionID int32
	Status    Status
	ExtraData []byte
}

// Encrypt seals the message under key.
func (m *StatusMessage) Encrypt(key *domain.SecretKey) (*EncStatusMessage, error) {
	var w fieldWriter
	w.writeByte(byte(m.Status))
	w.writeBytes(m.ExtraData)
	env, err := seal(key, m.SessionID, &w)
	if err != nil {
		return nil, err
	}
	return &EncStatusMessage{Envelope: env}, nil
}

// EncStatusMessage is the wire form of StatusMessage.
type EncStatusMessage struct {
	Envelope
}

// Decrypt opens the message under key.
func (e *EncStatusMessage) Decrypt(key *domain.SecretKey) (*StatusMessage, error) {
	m := &StatusMessage{SessionID: e.SessionID}
	err := open(key, e.Envelope, func(r *fieldReader) {
		m.Status = Status(r.readByte("status"))
		m.ExtraData = r.readBytes("extraData")
		if r.err == nil && !m.Status.valid() {
			r.fail("status: unknown value %d", m.Status)
		}
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
