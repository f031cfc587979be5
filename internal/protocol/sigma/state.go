package sigma

// ProverState is the prover's handshake state. Prove moves it from
// ProverInitial to ProverOK or ProverFailed exactly once.
type ProverState int

const (
	ProverInitial ProverState = iota
	ProverOK
	ProverFailed
)

// String returns the state name.
func (s ProverState) String() string {
	switch s {
	case ProverInitial:
		return "INITIAL"
	case ProverOK:
		return "OK"
	case ProverFailed:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// VerifierState is the verifier's handshake state:
// INITIAL -> KEYGENERATED -> STARTED -> AUTHENTICATED | FAIL.
type VerifierState int

const (
	VerifierInitial VerifierState = iota
	VerifierKeyGenerated
	VerifierStarted
	VerifierAuthenticated
	VerifierFailed
)

// String returns the state name.
func (s VerifierState) String() string {
	switch s {
	case VerifierInitial:
		return "INITIAL"
	case VerifierKeyGenerated:
		return "KEYGENERATED"
	case VerifierStarted:
		return "STARTED"
	case VerifierAuthenticated:
		return "AUTHENTICATED"
	case VerifierFailed:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}
