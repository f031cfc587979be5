// Package sigma implements the SIGMA-I handshake that mutually authenticates
// a prover (credential holder) and a verifier (relying service).
//
// # Overview
//
// Both sides hold a long-term P-256 signing key. The prover also holds a
// commitment to the verifier's long-term key, obtained when the two were
// paired. Each handshake uses fresh ephemeral ECDH keys and 8-byte nonces,
// and ends with five derived keys (see package kdf). The shared key outlives
// the handshake and keys continuous authentication.
//
// # Flows
//
// Prover (Prove, callable once):
//  1. Send StartMessage: version, ephemeral key, nonce.
//  2. Receive EncServiceAuthMessage; derive keys from ECDH and both nonces.
//  3. Decrypt with the verifier encryption key; check the commitment, the
//     signature over proverNonce || sessionId || verifierEphemeralKey and
//     the MAC over the verifier's encoded key.
//  4. Send EncPicoAuthMessage: own key, signature over
//     verifierNonce || sessionId || proverEphemeralKey, MAC, extra data.
//  5. Receive EncStatusMessage: REJECTED, OK_DONE or OK_CONTINUE.
//
// Verifier (Start then Authenticate, each callable once):
//  1. Start answers the StartMessage with EncServiceAuthMessage.
//  2. Authenticate checks the prover's signature and MAC, asks the Client
//     for a decision and answers with EncStatusMessage.
//
// # Errors
//
// Every failure wraps exactly one of ErrTransport, ErrProtocolViolation,
// ErrVerifierAuthFailed or ErrProverAuthFailed (both ErrAuthFailed),
// ErrRejected, ErrConfigFault or ErrInvalidState; KindOf folds an error into
// its Kind. A failed handshake leaves the instance in its FAIL state.
//
// # Security notes
//
// The prover's identity is only sent after the verifier has proven its own,
// and only encrypted. Nonces, ephemeral keys and handshake keys are zeroed
// or dropped as soon as the handshake ends; the shared key is handed to the
// caller, who must Destroy it.
package sigma
