package types

import "crypto/ecdsa"

// Identity is the local long-term P-256 signing key pair. Provers and
// verifiers both authenticate with one.
type Identity struct {
	PrivateKey *ecdsa.PrivateKey
}

// PublicKey returns the public half of the identity.
func (id Identity) PublicKey() *ecdsa.PublicKey {
	if id.PrivateKey == nil {
		return nil
	}
	return &id.PrivateKey.PublicKey
}
