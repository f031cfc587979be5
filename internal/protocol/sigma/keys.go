package sigma

import (
	"context"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"picoauth/internal/crypto"
	"picoauth/internal/domain"
	"picoauth/internal/protocol/kdf"
	"picoauth/internal/protocol/message"
	"picoauth/internal/util/memzero"
)

// RemoteVerifier carries the prover's two round trips to a verifier.
// Implementations may connect lazily on the first call. *Verifier satisfies
// it directly for in-process use.
type RemoteVerifier interface {
	Start(ctx context.Context, msg *message.StartMessage) (*message.EncServiceAuthMessage, error)
	Authenticate(ctx context.Context, msg *message.EncPicoAuthMessage) (*message.EncStatusMessage, error)
}

// Option configures a Prover or Verifier.
type Option func(*options)

type options struct {
	rand io.Reader
}

// WithRandom replaces crypto/rand as the source for ephemeral keys, nonces,
// session ids and signatures.
func WithRandom(r io.Reader) Option {
	return func(o *options) { o.rand = r }
}

func buildOptions(opts []Option) options {
	o := options{rand: rand.Reader}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ephemeral is the per-handshake key pair and nonce.
type ephemeral struct {
	key   *ecdh.PrivateKey
	nonce *domain.Nonce
}

func newEphemeral(r io.Reader) (ephemeral, error) {
	key, err := crypto.GenerateECDH(r)
	if err != nil {
		return ephemeral{}, err
	}
	nonce, err := domain.NewNonce(r)
	if err != nil {
		return ephemeral{}, err
	}
	return ephemeral{key: key, nonce: nonce}, nil
}

func (e *ephemeral) destroy() {
	if e.nonce != nil {
		e.nonce.Destroy()
	}
	e.key = nil
}

// signedData builds nonce || sessionId || ephemeralKey.
func signedData(nonce *domain.Nonce, sessionID int32, eph *ecdh.PublicKey) ([]byte, error) {
	n, err := nonce.Bytes()
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(n)
	der, err := crypto.EncodePublicKey(eph)
	if err != nil {
		return nil, err
	}
	var id [4]byte
	binary.BigEndian.PutUint32(id[:], uint32(sessionID))
	return memzero.Concat(n, id[:], der), nil
}

func macKey(key *domain.SecretKey) ([]byte, error) {
	if key == nil || key.Algorithm() != domain.AlgorithmHMACSHA256 {
		return nil, fmt.Errorf("key is not an HMAC-SHA256 key")
	}
	return key.Material()
}

// identityMAC computes HMAC(key, encoded long-term public key).
func identityMAC(key *domain.SecretKey, pub *ecdsa.PublicKey) ([]byte, error) {
	material, err := macKey(key)
	if err != nil {
		return nil, configFault("mac", err)
	}
	der, err := crypto.EncodePublicKey(pub)
	if err != nil {
		return nil, configFault("mac", err)
	}
	return crypto.MAC(material, der), nil
}

// checkIdentityMAC reports whether mac matches pub under key.
func checkIdentityMAC(key *domain.SecretKey, pub *ecdsa.PublicKey, mac []byte) (bool, error) {
	material, err := macKey(key)
	if err != nil {
		return false, configFault("mac", err)
	}
	der, err := crypto.EncodePublicKey(pub)
	if err != nil {
		return false, nil
	}
	return crypto.VerifyMAC(material, der, mac), nil
}

// deriveKeys runs ECDH and the key derivation; the secret is zeroed here.
func deriveKeys(own *ecdh.PrivateKey, peer *ecdh.PublicKey, proverNonce, verifierNonce *domain.Nonce) (*domain.KeyMaterial, error) {
	secret, err := crypto.ECDH(own, peer)
	if err != nil {
		return nil, violation("ecdh: %v", err)
	}
	defer memzero.Zero(secret)
	km, err := kdf.DeriveKeyMaterial(secret, proverNonce, verifierNonce)
	if err != nil {
		return nil, codecErr("derive keys", err)
	}
	return km, nil
}
