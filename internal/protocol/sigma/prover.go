package sigma

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"sync"

	"picoauth/internal/crypto"
	"picoauth/internal/domain"
	"picoauth/internal/protocol/message"
	"picoauth/internal/util/memzero"
)

// ProverResult is what a successful Prove hands back.
type ProverResult struct {
	SessionID         int32
	Status            message.Status
	ExtraData         []byte
	VerifierPublicKey *ecdsa.PublicKey
	// SharedKey keys continuous authentication. The caller owns it.
	SharedKey *domain.SecretKey
}

// Continue reports whether the verifier asked for continuous authentication.
func (r *ProverResult) Continue() bool { return r.Status == message.StatusOKContinue }

// Prover runs the prover side of one handshake.
type Prover struct {
	mu    sync.Mutex
	state ProverState

	identity   domain.Identity
	commitment domain.Commitment
	extraData  []byte
	opts       options
}

// NewProver prepares a handshake that authenticates identity to the verifier
// whose long-term key commits to verifierCommitment. extraData travels
// encrypted in the PicoAuthMessage.
func NewProver(identity domain.Identity, verifierCommitment domain.Commitment, extraData []byte, opts ...Option) (*Prover, error) {
	if identity.PrivateKey == nil {
		return nil, configFault("new prover", errors.New("nil identity key"))
	}
	if verifierCommitment.IsZero() {
		return nil, configFault("new prover", errors.New("empty verifier commitment"))
	}
	return &Prover{
		identity:   identity,
		commitment: verifierCommitment,
		extraData:  append([]byte(nil), extraData...),
		opts:       buildOptions(opts),
	}, nil
}

// State returns the current handshake state.
func (p *Prover) State() ProverState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Prove runs the whole handshake against remote. It may be called once.
// A REJECTED status yields ErrRejected.
func (p *Prover) Prove(ctx context.Context, remote RemoteVerifier) (*ProverResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != ProverInitial {
		return nil, ErrInvalidState
	}
	res, err := p.prove(ctx, remote)
	if err != nil {
		p.state = ProverFailed
		return nil, err
	}
	p.state = ProverOK
	return res, nil
}

func (p *Prover) prove(ctx context.Context, remote RemoteVerifier) (*ProverResult, error) {
	own, err := newEphemeral(p.opts.rand)
	if err != nil {
		return nil, configFault("ephemeral key", err)
	}
	defer own.destroy()

	// Round trip 1.
	encSA, err := remote.Start(ctx, &message.StartMessage{
		Version:            message.ProtocolVersion,
		EphemeralPublicKey: own.key.PublicKey(),
		Nonce:              own.nonce,
	})
	if err != nil {
		return nil, transportErr("start", err)
	}
	if err := encSA.Validate(); err != nil {
		return nil, codecErr("service auth", err)
	}
	defer encSA.Nonce.Destroy()

	keys, err := deriveKeys(own.key, encSA.EphemeralPublicKey, own.nonce, encSA.Nonce)
	if err != nil {
		return nil, err
	}
	defer keys.DestroyHandshakeKeys()

	sa, err := encSA.Decrypt(keys.VerifierEncKey)
	if err != nil {
		keys.SharedKey.Destroy()
		return nil, codecErr("service auth", err)
	}
	if err := p.verifyService(sa, own, keys); err != nil {
		keys.SharedKey.Destroy()
		return nil, err
	}

	// Round trip 2.
	encPA, err := p.picoAuth(sa, own, encSA, keys)
	if err != nil {
		keys.SharedKey.Destroy()
		return nil, err
	}
	encStatus, err := remote.Authenticate(ctx, encPA)
	if err != nil {
		keys.SharedKey.Destroy()
		return nil, transportErr("authenticate", err)
	}
	if encStatus == nil {
		keys.SharedKey.Destroy()
		return nil, violation("status: missing message")
	}
	status, err := encStatus.Decrypt(keys.VerifierEncKey)
	if err != nil {
		keys.SharedKey.Destroy()
		return nil, codecErr("status", err)
	}
	if status.SessionID != sa.SessionID {
		keys.SharedKey.Destroy()
		return nil, violation("status: session id %d, want %d", status.SessionID, sa.SessionID)
	}
	if status.Status == message.StatusRejected {
		keys.SharedKey.Destroy()
		return nil, ErrRejected
	}

	return &ProverResult{
		SessionID:         sa.SessionID,
		Status:            status.Status,
		ExtraData:         status.ExtraData,
		VerifierPublicKey: sa.PublicKey,
		SharedKey:         keys.SharedKey,
	}, nil
}

// verifyService runs the three checks on the verifier: commitment, signature
// and MAC. Any mismatch is ErrVerifierAuthFailed.
func (p *Prover) verifyService(sa *message.ServiceAuthMessage, own ephemeral, keys *domain.KeyMaterial) error {
	c, err := crypto.Commit(sa.PublicKey)
	if err != nil || c != p.commitment {
		return ErrVerifierAuthFailed
	}

	data, err := signedData(own.nonce, sa.SessionID, sa.EphemeralPublicKey)
	if err != nil {
		return configFault("signed data", err)
	}
	defer memzero.Zero(data)
	if !crypto.Verify(sa.PublicKey, data, sa.Signature) {
		return ErrVerifierAuthFailed
	}

	ok, err := checkIdentityMAC(keys.VerifierMacKey, sa.PublicKey, sa.MAC)
	if err != nil {
		return err
	}
	if !ok {
		return ErrVerifierAuthFailed
	}
	return nil
}

func (p *Prover) picoAuth(sa *message.ServiceAuthMessage, own ephemeral, encSA *message.EncServiceAuthMessage, keys *domain.KeyMaterial) (*message.EncPicoAuthMessage, error) {
	data, err := signedData(encSA.Nonce, sa.SessionID, own.key.PublicKey())
	if err != nil {
		return nil, configFault("signed data", err)
	}
	defer memzero.Zero(data)

	sig, err := crypto.Sign(p.opts.rand, p.identity.PrivateKey, data)
	if err != nil {
		return nil, configFault("sign", err)
	}
	mac, err := identityMAC(keys.ProverMacKey, p.identity.PublicKey())
	if err != nil {
		return nil, err
	}
	pa := &message.PicoAuthMessage{
		SessionID: sa.SessionID,
		PublicKey: p.identity.PublicKey(),
		Signature: sig,
		MAC:       mac,
		ExtraData: p.extraData,
	}
	enc, err := pa.Encrypt(keys.ProverEncKey)
	if err != nil {
		return nil, codecErr("pico auth", err)
	}
	return enc, nil
}
