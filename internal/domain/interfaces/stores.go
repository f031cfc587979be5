package interfaces

import domaintypes "picoauth/internal/domain/types"

// IdentityStore persists your long-term identity key.
type IdentityStore interface {
	SaveIdentity(passphrase string, id domaintypes.Identity) error
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	HasIdentity() (bool, error)
}

// PairingStore records which verifiers a prover trusts and which provers a
// verifier accepts.
type PairingStore interface {
	SaveServicePairing(p domaintypes.ServicePairing) error
	LoadServicePairing(name string) (domaintypes.ServicePairing, bool, error)
	ListServicePairings() ([]domaintypes.ServicePairing, error)
	DeleteServicePairing(name string) error

	SaveProverPairing(p domaintypes.ProverPairing) error
	LoadProverPairing(c domaintypes.Commitment) (domaintypes.ProverPairing, bool, error)
	ListProverPairings() ([]domaintypes.ProverPairing, error)
	DeleteProverPairing(c domaintypes.Commitment) error
}

// SessionStore keeps verifier-side session records.
type SessionStore interface {
	SaveSession(rec domaintypes.SessionRecord) error
	LoadSession(id string) (domaintypes.SessionRecord, bool, error)
	ListSessions() ([]domaintypes.SessionRecord, error)
}
