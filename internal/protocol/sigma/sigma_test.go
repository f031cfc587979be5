package sigma_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"testing"

	"picoauth/internal/crypto"
	"picoauth/internal/domain"
	"picoauth/internal/protocol/message"
	"picoauth/internal/protocol/sigma"
)

func identity(t *testing.T) domain.Identity {
	t.Helper()
	k, err := crypto.GenerateSigningKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	return domain.Identity{PrivateKey: k}
}

func commit(t *testing.T, id domain.Identity) domain.Commitment {
	t.Helper()
	c, err := crypto.Commit(id.PublicKey())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return c
}

func accept(continuous bool, reply []byte) sigma.Client {
	return sigma.ClientFunc(func(context.Context, *ecdsa.PublicKey, []byte) sigma.Decision {
		return sigma.Accept(continuous, reply)
	})
}

// hookRemote forwards to a Verifier and lets a test tamper in between.
type hookRemote struct {
	v         *sigma.Verifier
	onStart   func(*message.EncServiceAuthMessage)
	onAuth    func(*message.EncPicoAuthMessage)
	authCalls int
}

func (h *hookRemote) Start(ctx context.Context, m *message.StartMessage) (*message.EncServiceAuthMessage, error) {
	enc, err := h.v.Start(ctx, m)
	if err == nil && h.onStart != nil {
		h.onStart(enc)
	}
	return enc, err
}

func (h *hookRemote) Authenticate(ctx context.Context, m *message.EncPicoAuthMessage) (*message.EncStatusMessage, error) {
	h.authCalls++
	if h.onAuth != nil {
		h.onAuth(m)
	}
	return h.v.Authenticate(ctx, m)
}

type pair struct {
	proverID   domain.Identity
	verifierID domain.Identity
	prover     *sigma.Prover
	verifier   *sigma.Verifier
}

func newPair(t *testing.T, client sigma.Client, extra []byte) pair {
	t.Helper()
	p := pair{proverID: identity(t), verifierID: identity(t)}
	var err error
	p.verifier, err = sigma.NewVerifier(p.verifierID, client)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	p.prover, err = sigma.NewProver(p.proverID, commit(t, p.verifierID), extra)
	if err != nil {
		t.Fatalf("NewProver: %v", err)
	}
	return p
}

func TestHandshake_Success(t *testing.T) {
	var gotExtra []byte
	var gotProver *ecdsa.PublicKey
	client := sigma.ClientFunc(func(_ context.Context, prover *ecdsa.PublicKey, extra []byte) sigma.Decision {
		gotProver, gotExtra = prover, extra
		return sigma.Accept(true, []byte("welcome"))
	})
	p := newPair(t, client, []byte("token"))

	if got := p.verifier.State(); got != sigma.VerifierKeyGenerated {
		t.Fatalf("verifier state = %v, want KEYGENERATED", got)
	}
	res, err := p.prover.Prove(context.Background(), p.verifier)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if p.prover.State() != sigma.ProverOK || p.verifier.State() != sigma.VerifierAuthenticated {
		t.Fatalf("states = %v/%v", p.prover.State(), p.verifier.State())
	}
	if !res.Continue() || res.Status != message.StatusOKContinue {
		t.Fatalf("status = %v, want OK_CONTINUE", res.Status)
	}
	if !bytes.Equal(res.ExtraData, []byte("welcome")) {
		t.Fatalf("reply extra = %q", res.ExtraData)
	}
	if !res.VerifierPublicKey.Equal(p.verifierID.PublicKey()) {
		t.Fatal("prover saw the wrong verifier key")
	}
	if !gotProver.Equal(p.proverID.PublicKey()) || !bytes.Equal(gotExtra, []byte("token")) {
		t.Fatal("client saw the wrong prover or extra data")
	}

	vr, err := p.verifier.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if vr.SessionID != res.SessionID || vr.SessionID < 0 || !vr.Continue {
		t.Fatalf("verifier result = %+v", vr)
	}
	pk, err := res.SharedKey.Material()
	if err != nil {
		t.Fatalf("prover shared key: %v", err)
	}
	vk, err := vr.SharedKey.Material()
	if err != nil {
		t.Fatalf("verifier shared key: %v", err)
	}
	if len(pk) != 16 || !bytes.Equal(pk, vk) {
		t.Fatal("shared keys differ")
	}
	if res.SharedKey.Algorithm() != domain.AlgorithmAES {
		t.Fatalf("shared key algorithm = %v", res.SharedKey.Algorithm())
	}
}

func TestHandshake_Done(t *testing.T) {
	p := newPair(t, accept(false, nil), nil)
	res, err := p.prover.Prove(context.Background(), p.verifier)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if res.Continue() || res.Status != message.StatusOKDone {
		t.Fatalf("status = %v, want OK_DONE", res.Status)
	}
}

func TestHandshake_CommitmentMismatch(t *testing.T) {
	verifierID := identity(t)
	v, err := sigma.NewVerifier(verifierID, accept(false, nil))
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	prover, err := sigma.NewProver(identity(t), commit(t, identity(t)), nil)
	if err != nil {
		t.Fatalf("NewProver: %v", err)
	}
	remote := &hookRemote{v: v}

	_, err = prover.Prove(context.Background(), remote)
	if !errors.Is(err, sigma.ErrVerifierAuthFailed) {
		t.Fatalf("err = %v, want ErrVerifierAuthFailed", err)
	}
	if sigma.KindOf(err) != sigma.KindAuthFailed {
		t.Fatalf("kind = %v", sigma.KindOf(err))
	}
	if remote.authCalls != 0 {
		t.Fatal("prover revealed itself to an unpinned verifier")
	}
	if prover.State() != sigma.ProverFailed {
		t.Fatalf("state = %v, want FAIL", prover.State())
	}
}

func TestHandshake_Rejected(t *testing.T) {
	p := newPair(t, sigma.ClientFunc(func(context.Context, *ecdsa.PublicKey, []byte) sigma.Decision {
		return sigma.Reject([]byte("go away"))
	}), nil)

	_, err := p.prover.Prove(context.Background(), p.verifier)
	if !errors.Is(err, sigma.ErrRejected) || sigma.KindOf(err) != sigma.KindRejected {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if errors.Is(err, sigma.ErrAuthFailed) {
		t.Fatal("rejection must not look like an authentication failure")
	}
	if p.verifier.State() != sigma.VerifierFailed {
		t.Fatalf("verifier state = %v, want FAIL", p.verifier.State())
	}
	if _, err := p.verifier.Result(); !errors.Is(err, sigma.ErrInvalidState) {
		t.Fatalf("Result err = %v", err)
	}
}

func TestProver_SingleUse(t *testing.T) {
	p := newPair(t, accept(false, nil), nil)
	if _, err := p.prover.Prove(context.Background(), p.verifier); err != nil {
		t.Fatalf("Prove: %v", err)
	}
	_, err := p.prover.Prove(context.Background(), p.verifier)
	if !errors.Is(err, sigma.ErrInvalidState) {
		t.Fatalf("second Prove err = %v", err)
	}
}

func TestVerifier_OutOfOrder(t *testing.T) {
	v, err := sigma.NewVerifier(identity(t), accept(false, nil))
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	_, err = v.Authenticate(context.Background(), &message.EncPicoAuthMessage{})
	if !errors.Is(err, sigma.ErrInvalidState) {
		t.Fatalf("Authenticate before Start err = %v", err)
	}
	if v.RejectStatus() != nil {
		t.Fatal("RejectStatus before keys exist should be nil")
	}
}

func TestVerifier_BadVersion(t *testing.T) {
	v, err := sigma.NewVerifier(identity(t), accept(false, nil))
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	eph, err := crypto.GenerateECDH(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateECDH: %v", err)
	}
	n, err := domain.NewNonce(rand.Reader)
	if err != nil {
		t.Fatalf("NewNonce: %v", err)
	}
	_, err = v.Start(context.Background(), &message.StartMessage{
		Version:            1,
		EphemeralPublicKey: eph.PublicKey(),
		Nonce:              n,
	})
	if sigma.KindOf(err) != sigma.KindProtocolViolation {
		t.Fatalf("err = %v, want protocol violation", err)
	}
	if v.State() != sigma.VerifierFailed {
		t.Fatalf("state = %v, want FAIL", v.State())
	}
	_, err = v.Start(context.Background(), &message.StartMessage{})
	if !errors.Is(err, sigma.ErrInvalidState) {
		t.Fatalf("restart err = %v", err)
	}
}

func TestHandshake_Tampering(t *testing.T) {
	tests := []struct {
		name       string
		onStart    func(*message.EncServiceAuthMessage)
		onAuth     func(*message.EncPicoAuthMessage)
		proverKind sigma.Kind
		authCalled bool
	}{
		{
			name:       "service auth ciphertext",
			onStart:    func(m *message.EncServiceAuthMessage) { m.EncryptedData[0] ^= 0x01 },
			proverKind: sigma.KindProtocolViolation,
		},
		{
			name:       "service auth iv",
			onStart:    func(m *message.EncServiceAuthMessage) { m.IV[0] ^= 0x01 },
			proverKind: sigma.KindProtocolViolation,
		},
		{
			name: "service auth ephemeral key",
			onStart: func(m *message.EncServiceAuthMessage) {
				other, _ := crypto.GenerateECDH(rand.Reader)
				m.EphemeralPublicKey = other.PublicKey()
			},
			proverKind: sigma.KindProtocolViolation,
		},
		{
			name:       "pico auth ciphertext",
			onAuth:     func(m *message.EncPicoAuthMessage) { m.EncryptedData[0] ^= 0x01 },
			proverKind: sigma.KindTransport,
			authCalled: true,
		},
		{
			name:       "pico auth session id",
			onAuth:     func(m *message.EncPicoAuthMessage) { m.SessionID++ },
			proverKind: sigma.KindTransport,
			authCalled: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := newPair(t, accept(false, nil), nil)
			remote := &hookRemote{v: p.verifier, onStart: tc.onStart, onAuth: tc.onAuth}

			_, err := p.prover.Prove(context.Background(), remote)
			if got := sigma.KindOf(err); got != tc.proverKind {
				t.Fatalf("kind = %v (%v), want %v", got, err, tc.proverKind)
			}
			if (remote.authCalls > 0) != tc.authCalled {
				t.Fatalf("authCalls = %d", remote.authCalls)
			}
			if tc.authCalled {
				if p.verifier.State() != sigma.VerifierFailed {
					t.Fatalf("verifier state = %v, want FAIL", p.verifier.State())
				}
				if !errors.Is(err, sigma.ErrProtocolViolation) {
					t.Fatalf("verifier cause lost: %v", err)
				}
				rs := p.verifier.RejectStatus()
				if rs == nil || rs.SessionID != p.verifier.SessionID() {
					t.Fatal("expected an encrypted REJECTED status")
				}
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want sigma.Kind
	}{
		{nil, sigma.KindNone},
		{sigma.ErrTransport, sigma.KindTransport},
		{sigma.ErrProverAuthFailed, sigma.KindAuthFailed},
		{sigma.ErrVerifierAuthFailed, sigma.KindAuthFailed},
		{sigma.ErrRejected, sigma.KindRejected},
		{sigma.ErrConfigFault, sigma.KindConfigFault},
		{sigma.ErrInvalidState, sigma.KindInvalidState},
		{errors.New("other"), sigma.KindUnknown},
	}
	for _, tc := range tests {
		if got := sigma.KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestNewProver_ConfigFault(t *testing.T) {
	_, err := sigma.NewProver(domain.Identity{}, domain.Commitment{1}, nil)
	if sigma.KindOf(err) != sigma.KindConfigFault {
		t.Fatalf("err = %v, want config fault", err)
	}
	_, err = sigma.NewProver(identity(t), domain.Commitment{}, nil)
	if sigma.KindOf(err) != sigma.KindConfigFault {
		t.Fatalf("err = %v, want config fault", err)
	}
}
