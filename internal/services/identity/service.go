package identity

import (
	"crypto/rand"
	"errors"
	"fmt"
	"unicode"

	"picoauth/internal/crypto"
	"picoauth/internal/domain"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)
	// ErrIdentityExists is returned by GenerateIdentity when one is already stored.
	ErrIdentityExists = errors.New("identity already exists")
)

// Service manages identity key creation and access using a backing store.
//
// The identity is a single P-256 key pair. It signs the handshake on both
// the prover and the verifier side.
type Service struct {
	store domain.IdentityStore
}

// New returns an identity service backed by the given store.
func New(s domain.IdentityStore) *Service { return &Service{store: s} }

// GenerateIdentity creates a new identity, saves it encrypted with the passphrase,
// and returns the identity plus a short fingerprint of its commitment.
func (s *Service) GenerateIdentity(
	passphrase string,
) (domain.Identity, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return domain.Identity{}, "", ErrWeakPassphrase
	}
	exists, err := s.store.HasIdentity()
	if err != nil {
		return domain.Identity{}, "", err
	}
	if exists {
		return domain.Identity{}, "", ErrIdentityExists
	}

	priv, err := crypto.GenerateSigningKey(rand.Reader)
	if err != nil {
		return domain.Identity{}, "", err
	}
	id := domain.Identity{PrivateKey: priv}
	c, err := crypto.Commit(id.PublicKey())
	if err != nil {
		return domain.Identity{}, "", err
	}
	if err := s.store.SaveIdentity(passphrase, id); err != nil {
		return domain.Identity{}, "", err
	}
	return id, crypto.Fingerprint(c), nil
}

// LoadIdentity decrypts and returns the local identity.
func (s *Service) LoadIdentity(passphrase string) (domain.Identity, error) {
	return s.store.LoadIdentity(passphrase)
}

// Commitment returns the commitment peers pin the local identity by.
func (s *Service) Commitment(passphrase string) (domain.Commitment, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return domain.Commitment{}, err
	}
	return crypto.Commit(id.PublicKey())
}

// FingerprintIdentity returns a short fingerprint of the local commitment.
func (s *Service) FingerprintIdentity(passphrase string) (domain.Fingerprint, error) {
	c, err := s.Commitment(passphrase)
	if err != nil {
		return "", err
	}
	return crypto.Fingerprint(c), nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
