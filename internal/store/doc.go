// Package store provides on-disk persistence for picoauth.
//
// IdentityFileStore keeps the long-term signing key in a single
// passphrase-encrypted file. The passphrase is stretched with scrypt or
// argon2id, the result is expanded with HKDF-SHA256 into an XChaCha20-Poly1305 key, and
// the PKCS#8 key is sealed under a random nonce.
//
// PairingDB keeps service pairings, prover pairings and verifier session
// records in a LevelDB database as JSON values under per-kind key prefixes.
// Writes are synchronous.
//
// All types are safe for concurrent use.
package store
