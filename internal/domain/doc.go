// Package domain defines core data models and interfaces shared across
// picoauth. It contains plain value types (nonces, sequence numbers, key
// handles, pairings) and contracts (stores, services) only; protocol logic
// lives under internal/protocol.
package domain
