// Package prover authenticates the local identity to paired verifiers.
//
// Authenticate dials the service, runs the handshake and, when the verifier
// answers OK_CONTINUE, keeps the session alive with continuous
// authentication driven by a TimerScheduler. The returned Session lets the
// caller pause, resume or stop it and wait for it to end.
package prover
