// Package verifier runs the relying-service side of picoauth over TCP.
//
// Each accepted connection carries one handshake. Provers are admitted only
// if their commitment is paired; the verifier then answers OK_DONE, or
// OK_CONTINUE when the prover asked for continuous authentication and the
// service allows it. Continuous sessions are processed on the connection's
// goroutine until they stop, fail or time out, and a SessionRecord tracks
// each one.
//
// The relying service can pause, resume or stop a live session by its id.
package verifier
