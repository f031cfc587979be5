// Package pairing keeps the trust relationships between provers and
// verifiers.
//
// A prover pairs with a service by name, recording its address and the
// commitment its long-term key must match. A verifier pairs with provers by
// commitment; its authorization policy admits only paired provers.
package pairing
