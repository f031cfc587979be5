// Package channel carries protocol messages between prover and verifier
// over a stream connection.
//
// Every message is one JSON object in one frame: a 4-byte big-endian length
// followed by that many bytes. Zero-length frames and frames above the
// current limit are rejected with ErrFraming before anything is allocated.
// The limit starts at MaxHandshakeMessage and drops to MaxReauthMessage once
// the handshake is over.
//
// VerifierProxy is the prover's view of a remote verifier: it dials lazily
// on the first Start and then implements both sigma.RemoteVerifier and
// continuous.ServiceLink. ProverProxy is the verifier's view of a connected
// prover, with one typed read or write per protocol step.
//
// Blocking calls honour the context: its deadline becomes the connection
// deadline, and cancellation unblocks a pending read or write.
package channel
