package message

import (
	"fmt"
	"math"
	"time"

	"picoauth/internal/domain"
)

// AuthExtra is the prover's extra data inside PicoAuthMessage: an opaque
// token for the relying service and, when continuous authentication is
// wanted, the opening reauth state, the prover's initial sequence number and
// the timeout it would like.
type AuthExtra struct {
	Token      []byte
	Continuous bool
	State      ReauthState
	Sequence   domain.SequenceNumber
	Timeout    time.Duration
}

// Marshal encodes a with the hidden-field framing.
func (a AuthExtra) Marshal() ([]byte, error) {
	ms := a.Timeout.Milliseconds()
	if ms < 0 || ms > math.MaxInt32 {
		return nil, fmt.Errorf("message: timeout %v out of range", a.Timeout)
	}
	var cont byte
	if a.Continuous {
		cont = 1
	}
	var w fieldWriter
	w.writeBytes(a.Token)
	w.writeByte(cont)
	w.writeByte(byte(a.State))
	w.writeBytes(a.Sequence[:])
	w.writeInt32(int32(ms))
	return append([]byte(nil), w.bytes()...), nil
}

// ParseAuthExtra decodes extra data written by Marshal. Empty input yields
// the zero AuthExtra.
func ParseAuthExtra(b []byte) (AuthExtra, error) {
	var a AuthExtra
	if len(b) == 0 {
		return a, nil
	}
	r := &fieldReader{buf: b}
	a.Token = r.readBytes("token")
	switch cont := r.readByte("continuous"); {
	case r.err != nil:
	case cont > 1:
		r.fail("continuous: unknown value %d", cont)
	default:
		a.Continuous = cont == 1
	}
	a.State = readState(r)
	a.Sequence = readSequence(r)
	ms := r.readInt32("timeout")
	if r.err == nil && ms < 0 {
		r.fail("timeout: negative value %d", ms)
	}
	a.Timeout = time.Duration(ms) * time.Millisecond
	if err := r.done(); err != nil {
		return AuthExtra{}, err
	}
	return a, nil
}
