package types

import "time"

// ServicePairing is a prover's record of a verifier it trusts: where to reach
// it and the commitment its long-term key must match.
type ServicePairing struct {
	Name       string     `json:"name"`
	Address    string     `json:"address"`
	Commitment Commitment `json:"commitment"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ProverPairing is a verifier's record of a prover it accepts.
type ProverPairing struct {
	Name       string     `json:"name"`
	Commitment Commitment `json:"commitment"`
	CreatedAt  time.Time  `json:"created_at"`
}

// SessionRecord tracks one authenticated session on the verifier side.
type SessionRecord struct {
	ID         string     `json:"id"`
	SessionID  int32      `json:"session_id"`
	Prover     Commitment `json:"prover"`
	Continuous bool       `json:"continuous"`
	State      string     `json:"state"`
	StartedAt  time.Time  `json:"started_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
