package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"io"
)

// GenerateSigningKey returns a new long-term P-256 signing key.
func GenerateSigningKey(r io.Reader) (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(elliptic.P256(), r)
}

// Sign returns an ASN.1 ECDSA signature over SHA-256(msg).
func Sign(r io.Reader, priv *ecdsa.PrivateKey, msg []byte) ([]byte, error) {
	digest := sha256.Sum256(msg)
	return ecdsa.SignASN1(r, priv, digest[:])
}

// Verify reports whether sig is a valid ECDSA-SHA256 signature over msg.
func Verify(pub *ecdsa.PublicKey, msg, sig []byte) bool {
	if pub == nil || len(sig) == 0 {
		return false
	}
	digest := sha256.Sum256(msg)
	return ecdsa.VerifyASN1(pub, digest[:], sig)
}
