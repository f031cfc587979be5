// Package crypto exposes the minimal primitives used by picoauth.
//
// Contents
//
//   - P-256 ephemeral key generation and ECDH (GenerateECDH, ECDH)
//   - P-256 ECDSA-SHA256 signing keys (GenerateSigningKey, Sign, Verify)
//   - HMAC-SHA256 (MAC, VerifyMAC)
//   - AES-GCM with a random 12-byte IV (SealGCM, OpenGCM)
//   - PKIX/PKCS#8 key encoding (EncodePublicKey, ParseECDHPublicKey,
//     ParseSigningPublicKey, MarshalSigningKey, ParseSigningKey)
//   - Identity commitments and short fingerprints (Commit, Fingerprint)
//
// # Notes
//
// Only NIST P-256 is accepted anywhere a public key is parsed. Callers own
// every returned secret and should zero it with memzero.Zero when done.
package crypto
