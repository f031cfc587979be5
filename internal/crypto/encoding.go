package crypto

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"errors"
	"fmt"
)

// ErrUnsupportedKey is returned for encodings that are not P-256 EC keys.
var ErrUnsupportedKey = errors.New("crypto: unsupported key encoding")

// EncodePublicKey returns the PKIX (SubjectPublicKeyInfo) DER encoding of an
// *ecdsa.PublicKey or *ecdh.PublicKey.
func EncodePublicKey(pub any) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pub)
}

// ParseSigningPublicKey decodes a PKIX P-256 ECDSA public key.
func ParseSigningPublicKey(der []byte) (*ecdsa.PublicKey, error) {
	k, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKey, err)
	}
	pub, ok := k.(*ecdsa.PublicKey)
	if !ok || pub.Curve != elliptic.P256() {
		return nil, ErrUnsupportedKey
	}
	return pub, nil
}

// ParseECDHPublicKey decodes a PKIX P-256 public key for key agreement.
func ParseECDHPublicKey(der []byte) (*ecdh.PublicKey, error) {
	pub, err := ParseSigningPublicKey(der)
	if err != nil {
		return nil, err
	}
	return pub.ECDH()
}

// MarshalSigningKey returns the PKCS#8 DER encoding of priv.
func MarshalSigningKey(priv *ecdsa.PrivateKey) ([]byte, error) {
	return x509.MarshalPKCS8PrivateKey(priv)
}

// ParseSigningKey decodes a PKCS#8 P-256 ECDSA private key.
func ParseSigningKey(der []byte) (*ecdsa.PrivateKey, error) {
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKey, err)
	}
	priv, ok := k.(*ecdsa.PrivateKey)
	if !ok || priv.Curve != elliptic.P256() {
		return nil, ErrUnsupportedKey
	}
	return priv, nil
}

