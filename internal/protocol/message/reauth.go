package message

import (
	"fmt"
	"math"
	"time"

	"picoauth/internal/domain"
)

// PicoReauthMessage is the prover's periodic liveness message.
type PicoReauthMessage struct {
	SessionID int32
	State     ReauthState
	Sequence  domain.SequenceNumber
	ExtraData []byte
}

// Encrypt seals the message under the shared key.
func (m *PicoReauthMessage) Encrypt(key *domain.SecretKey) (*EncPicoReauthMessage, error) {
	var w fieldWriter
	w.writeByte(byte(m.State))
	w.writeBytes(m.Sequence[:])
	w.writeBytes(m.ExtraData)
	env, err := seal(key, m.SessionID, &w)
	if err != nil {
		return nil, err
	}
	return &EncPicoReauthMessage{Envelope: env}, nil
}

// EncPicoReauthMessage is the wire form of PicoReauthMessage.
type EncPicoReauthMessage struct {
	Envelope
}

// Decrypt opens the message under the shared key.
func (e *EncPicoReauthMessage) Decrypt(key *domain.SecretKey) (*PicoReauthMessage, error) {
	m := &PicoReauthMessage{SessionID: e.SessionID}
	err := open(key, e.Envelope, func(r *fieldReader) {
		m.State = readState(r)
		m.Sequence = readSequence(r)
		m.ExtraData = r.readBytes("extraData")
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ServiceReauthMessage is the verifier's reply to a reauth, carrying the
// state it settled on and how long it will wait for the next one.
type ServiceReauthMessage struct {
	SessionID int32
	State     ReauthState
	Timeout   time.Duration
	Sequence  domain.SequenceNumber
	ExtraData []byte
}

// Encrypt seals the message under the shared key.
func (m *ServiceReauthMessage) Encrypt(key *domain.SecretKey) (*EncServiceReauthMessage, error) {
	ms := m.Timeout.Milliseconds()
	if ms < 0 || ms > math.MaxInt32 {
		return nil, fmt.Errorf("message: timeout %v out of range", m.Timeout)
	}
	var w fieldWriter
	w.writeByte(byte(m.State))
	w.writeInt32(int32(ms))
	w.writeBytes(m.Sequence[:])
	w.writeBytes(m.ExtraData)
	env, err := seal(key, m.SessionID, &w)
	if err != nil {
		return nil, err
	}
	return &EncServiceReauthMessage{Envelope: env}, nil
}

// EncServiceReauthMessage is the wire form of ServiceReauthMessage.
type EncServiceReauthMessage struct {
	Envelope
}

// Decrypt opens the message under the shared key.
func (e *EncServiceReauthMessage) Decrypt(key *domain.SecretKey) (*ServiceReauthMessage, error) {
	m := &ServiceReauthMessage{SessionID: e.SessionID}
	err := open(key, e.Envelope, func(r *fieldReader) {
		m.State = readState(r)
		ms := r.readInt32("timeout")
		if r.err == nil && ms < 0 {
			r.fail("timeout: negative value %d", ms)
		}
		m.Timeout = time.Duration(ms) * time.Millisecond
		m.Sequence = readSequence(r)
		m.ExtraData = r.readBytes("extraData")
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func readState(r *fieldReader) ReauthState {
	s := ReauthState(r.readByte("state"))
	if r.err == nil && !s.valid() {
		r.fail("state: unknown value %d", s)
	}
	return s
}

func readSequence(r *fieldReader) domain.SequenceNumber {
	b := r.readBytes("sequenceNumber")
	if r.err != nil {
		return domain.SequenceNumber{}
	}
	s, err := domain.SequenceNumberFromBytes(b)
	if err != nil {
		r.fail("%v", err)
	}
	return s
}
