package domain

import (
	interfaces "picoauth/internal/domain/interfaces"
	types "picoauth/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Fingerprint    = types.Fingerprint
	Commitment     = types.Commitment
	Nonce          = types.Nonce
	SequenceNumber = types.SequenceNumber
	Algorithm      = types.Algorithm
	SecretKey      = types.SecretKey
	KeyMaterial    = types.KeyMaterial
	Identity       = types.Identity
	ServicePairing = types.ServicePairing
	ProverPairing  = types.ProverPairing
	SessionRecord  = types.SessionRecord
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	IdentityService = interfaces.IdentityService
	PairingService  = interfaces.PairingService
	IdentityStore   = interfaces.IdentityStore
	PairingStore    = interfaces.PairingStore
	SessionStore    = interfaces.SessionStore
)

// Key algorithm tags.
const (
	AlgorithmHMACSHA256 = types.AlgorithmHMACSHA256
	AlgorithmAES        = types.AlgorithmAES
)

// ErrDestroyed is returned when a wiped nonce or key is used.
var ErrDestroyed = types.ErrDestroyed

// Constructors re-exported from the types subpackage.
var (
	NewNonce                = types.NewNonce
	NonceFromBytes          = types.NonceFromBytes
	RandomSequenceNumber    = types.RandomSequenceNumber
	SequenceNumberFromBytes = types.SequenceNumberFromBytes
	NewSecretKey            = types.NewSecretKey
	ParseCommitment         = types.ParseCommitment
)
