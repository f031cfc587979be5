package sigma

import (
	"context"
	"crypto/ecdh"
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"sync"

	"picoauth/internal/crypto"
	"picoauth/internal/domain"
	"picoauth/internal/protocol/message"
	"picoauth/internal/util/memzero"
)

// Decision is a Client's verdict on an authenticated prover.
type Decision struct {
	Accept bool
	// Continue asks the prover to start continuous authentication. It is
	// ignored unless Accept is set.
	Continue  bool
	ExtraData []byte
}

// Accept returns an accepting decision.
func Accept(continuous bool, extraData []byte) Decision {
	return Decision{Accept: true, Continue: continuous, ExtraData: extraData}
}

// Reject returns a rejecting decision.
func Reject(extraData []byte) Decision {
	return Decision{ExtraData: extraData}
}

// Client decides whether an authenticated prover is let in. It must not
// block for long: the prover is waiting on the status reply.
type Client interface {
	Authorize(ctx context.Context, prover *ecdsa.PublicKey, extraData []byte) Decision
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, prover *ecdsa.PublicKey, extraData []byte) Decision

// Authorize calls f.
func (f ClientFunc) Authorize(ctx context.Context, prover *ecdsa.PublicKey, extraData []byte) Decision {
	return f(ctx, prover, extraData)
}

// VerifierResult describes the prover a Verifier accepted.
type VerifierResult struct {
	SessionID       int32
	ProverPublicKey *ecdsa.PublicKey
	ExtraData       []byte
	Continue        bool
	// SharedKey keys continuous authentication. The caller owns it.
	SharedKey *domain.SecretKey
}

// Verifier runs the verifier side of one handshake.
type Verifier struct {
	mu    sync.Mutex
	state VerifierState

	identity domain.Identity
	client   Client
	opts     options

	own         ephemeral
	sessionID   int32
	proverEph   *ecdh.PublicKey
	proverNonce *domain.Nonce
	keys        *domain.KeyMaterial
	result      *VerifierResult
}

var _ RemoteVerifier = (*Verifier)(nil)

// NewVerifier generates the ephemeral key pair and nonce, leaving the
// verifier in KEYGENERATED.
func NewVerifier(identity domain.Identity, client Client, opts ...Option) (*Verifier, error) {
	if identity.PrivateKey == nil {
		return nil, configFault("new verifier", errors.New("nil identity key"))
	}
	if client == nil {
		return nil, configFault("new verifier", errors.New("nil client"))
	}
	v := &Verifier{identity: identity, client: client, opts: buildOptions(opts)}
	own, err := newEphemeral(v.opts.rand)
	if err != nil {
		return nil, configFault("ephemeral key", err)
	}
	v.own = own
	v.state = VerifierKeyGenerated
	return v, nil
}

// State returns the current handshake state.
func (v *Verifier) State() VerifierState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// SessionID returns the session id chosen by Start, or zero before it.
func (v *Verifier) SessionID() int32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sessionID
}

// Start answers the prover's StartMessage.
func (v *Verifier) Start(_ context.Context, msg *message.StartMessage) (*message.EncServiceAuthMessage, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != VerifierKeyGenerated {
		return nil, ErrInvalidState
	}
	enc, err := v.start(msg)
	if err != nil {
		v.fail()
		return nil, err
	}
	v.state = VerifierStarted
	return enc, nil
}

func (v *Verifier) start(msg *message.StartMessage) (*message.EncServiceAuthMessage, error) {
	if err := msg.Validate(); err != nil {
		return nil, codecErr("start", err)
	}
	if msg.Version != message.ProtocolVersion {
		return nil, violation("start: unsupported version %d", msg.Version)
	}

	id, err := randomSessionID(v.opts)
	if err != nil {
		return nil, configFault("session id", err)
	}
	nb, err := msg.Nonce.Bytes()
	if err != nil {
		return nil, codecErr("start", err)
	}
	defer memzero.Zero(nb)
	nonce, err := domain.NonceFromBytes(nb)
	if err != nil {
		return nil, codecErr("start", err)
	}
	v.sessionID = id
	v.proverEph = msg.EphemeralPublicKey
	v.proverNonce = nonce

	keys, err := deriveKeys(v.own.key, msg.EphemeralPublicKey, nonce, v.own.nonce)
	if err != nil {
		return nil, err
	}
	v.keys = keys

	data, err := signedData(nonce, id, v.own.key.PublicKey())
	if err != nil {
		return nil, configFault("signed data", err)
	}
	defer memzero.Zero(data)
	sig, err := crypto.Sign(v.opts.rand, v.identity.PrivateKey, data)
	if err != nil {
		return nil, configFault("sign", err)
	}
	mac, err := identityMAC(keys.VerifierMacKey, v.identity.PublicKey())
	if err != nil {
		return nil, err
	}

	sa := &message.ServiceAuthMessage{
		SessionID:          id,
		EphemeralPublicKey: v.own.key.PublicKey(),
		Nonce:              v.own.nonce,
		PublicKey:          v.identity.PublicKey(),
		Signature:          sig,
		MAC:                mac,
	}
	enc, err := sa.Encrypt(keys.VerifierEncKey)
	if err != nil {
		return nil, codecErr("service auth", err)
	}
	return enc, nil
}

// Authenticate checks the prover and asks the Client for a decision. A
// rejecting decision is not an error: the REJECTED status is returned for
// delivery and the verifier ends in FAIL. Authentication failures return an
// error; RejectStatus then builds the reply the prover should see.
func (v *Verifier) Authenticate(ctx context.Context, msg *message.EncPicoAuthMessage) (*message.EncStatusMessage, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != VerifierStarted {
		return nil, ErrInvalidState
	}
	enc, accepted, err := v.authenticate(ctx, msg)
	if err != nil || !accepted {
		v.fail()
		return enc, err
	}
	v.state = VerifierAuthenticated
	v.keys.DestroyHandshakeKeys()
	v.own.destroy()
	v.proverNonce.Destroy()
	return enc, nil
}

func (v *Verifier) authenticate(ctx context.Context, msg *message.EncPicoAuthMessage) (*message.EncStatusMessage, bool, error) {
	if msg == nil {
		return nil, false, violation("pico auth: missing message")
	}
	if msg.SessionID != v.sessionID {
		return nil, false, violation("pico auth: session id %d, want %d", msg.SessionID, v.sessionID)
	}
	pa, err := msg.Decrypt(v.keys.ProverEncKey)
	if err != nil {
		return nil, false, codecErr("pico auth", err)
	}

	data, err := signedData(v.own.nonce, v.sessionID, v.proverEph)
	if err != nil {
		return nil, false, configFault("signed data", err)
	}
	defer memzero.Zero(data)
	if !crypto.Verify(pa.PublicKey, data, pa.Signature) {
		return nil, false, ErrProverAuthFailed
	}
	ok, err := checkIdentityMAC(v.keys.ProverMacKey, pa.PublicKey, pa.MAC)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, ErrProverAuthFailed
	}

	d := v.client.Authorize(ctx, pa.PublicKey, pa.ExtraData)
	status := message.StatusRejected
	switch {
	case d.Accept && d.Continue:
		status = message.StatusOKContinue
	case d.Accept:
		status = message.StatusOKDone
	}
	enc, err := (&message.StatusMessage{
		SessionID: v.sessionID,
		Status:    status,
		ExtraData: d.ExtraData,
	}).Encrypt(v.keys.VerifierEncKey)
	if err != nil {
		return nil, false, codecErr("status", err)
	}
	if !d.Accept {
		return enc, false, nil
	}
	v.result = &VerifierResult{
		SessionID:       v.sessionID,
		ProverPublicKey: pa.PublicKey,
		ExtraData:       pa.ExtraData,
		Continue:        d.Continue,
		SharedKey:       v.keys.SharedKey,
	}
	return enc, true, nil
}

// RejectStatus builds an encrypted REJECTED status for a handshake that
// failed after keys were derived. It returns nil when there is no key to
// encrypt under, in which case the caller should just drop the connection.
func (v *Verifier) RejectStatus() *message.EncStatusMessage {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.keys == nil || v.keys.VerifierEncKey == nil || v.keys.VerifierEncKey.Destroyed() {
		return nil
	}
	enc, err := (&message.StatusMessage{
		SessionID: v.sessionID,
		Status:    message.StatusRejected,
	}).Encrypt(v.keys.VerifierEncKey)
	if err != nil {
		return nil
	}
	return enc
}

// Result returns the accepted prover, or ErrInvalidState before
// AUTHENTICATED.
func (v *Verifier) Result() (*VerifierResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != VerifierAuthenticated || v.result == nil {
		return nil, ErrInvalidState
	}
	return v.result, nil
}

// Destroy wipes the remaining key material. The shared key handed out by
// Result is left alone.
func (v *Verifier) Destroy() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.wipe(v.state != VerifierAuthenticated)
}

// fail moves to FAIL and wipes everything except the encryption key
// RejectStatus needs.
func (v *Verifier) fail() {
	v.state = VerifierFailed
	v.own.destroy()
	if v.proverNonce != nil {
		v.proverNonce.Destroy()
	}
	if v.keys != nil {
		v.keys.ProverMacKey.Destroy()
		v.keys.ProverEncKey.Destroy()
		v.keys.VerifierMacKey.Destroy()
		v.keys.SharedKey.Destroy()
	}
}

func (v *Verifier) wipe(shared bool) {
	v.own.destroy()
	if v.proverNonce != nil {
		v.proverNonce.Destroy()
	}
	if v.keys == nil {
		return
	}
	v.keys.DestroyHandshakeKeys()
	if shared {
		v.keys.SharedKey.Destroy()
	}
}

func randomSessionID(o options) (int32, error) {
	var b [4]byte
	if _, err := o.rand.Read(b[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b[:]) & 0x7fffffff), nil
}
