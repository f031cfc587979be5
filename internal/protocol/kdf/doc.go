// Package kdf implements the NIST SP800-56C extraction-then-expansion key
// derivation that turns a handshake's ECDH secret into session keys.
//
// # Overview
//
// Extraction:
//
//	KDK = HMAC-SHA256(key = nonceA || nonceB, data = secret)
//
// Expansion produces 32-byte blocks on demand:
//
//	block(1) = HMAC-SHA256(KDK, nonceA || nonceB || 0x01)
//	block(k) = HMAC-SHA256(KDK, block(k-1) || nonceA || nonceB || k)
//
// NextKey consumes the keystream strictly in order, so the order in which
// keys are drawn is part of the protocol. DeriveKeyMaterial draws the five
// handshake keys in their fixed order:
//
//  1. prover MAC key (HMAC-SHA256, 256 bit)
//  2. prover encryption key (AES, 128 bit)
//  3. verifier MAC key (HMAC-SHA256, 256 bit)
//  4. verifier encryption key (AES, 128 bit)
//  5. shared key (AES, 128 bit)
//
// # Errors
//
// ErrExhausted is returned past block 255. ErrDestroyed is returned by any
// call after Destroy. Both indicate a programming error.
package kdf
