// Package identity manages creation, encryption and loading of the local identity.
//
// It enforces passphrase policy, generates the long-term P-256 signing key,
// and persists it via the domain.IdentityStore. Peers pin an identity by its
// commitment, and humans compare its fingerprint.
package identity
