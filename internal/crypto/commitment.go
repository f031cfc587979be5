package crypto

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"

	"picoauth/internal/domain"
)

// Commit returns the commitment to a long-term public key: SHA-256 over its
// PKIX encoding.
func Commit(pub *ecdsa.PublicKey) (domain.Commitment, error) {
	der, err := EncodePublicKey(pub)
	if err != nil {
		return domain.Commitment{}, err
	}
	return domain.Commitment(sha256.Sum256(der)), nil
}

// Fingerprint returns a short hex fingerprint of a commitment.
//
// It truncates to 10 bytes (20 hex chars).
func Fingerprint(c domain.Commitment) domain.Fingerprint {
	return domain.Fingerprint(hex.EncodeToString(c[:10]))
}
