package interfaces

import domaintypes "picoauth/internal/domain/types"

// IdentityService creates, retrieves, and inspects your identity key.
type IdentityService interface {
	GenerateIdentity(passphrase string) (
		domaintypes.Identity,
		domaintypes.Fingerprint,
		error,
	)
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	Commitment(passphrase string) (domaintypes.Commitment, error)
}

// PairingService manages trust relationships on both sides.
type PairingService interface {
	PairService(name, address string, c domaintypes.Commitment) (domaintypes.ServicePairing, error)
	Service(name string) (domaintypes.ServicePairing, error)
	Services() ([]domaintypes.ServicePairing, error)

	PairProver(name string, c domaintypes.Commitment) (domaintypes.ProverPairing, error)
	Prover(c domaintypes.Commitment) (domaintypes.ProverPairing, bool, error)
	Provers() ([]domaintypes.ProverPairing, error)
}
