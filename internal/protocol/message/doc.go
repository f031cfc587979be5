// Package message defines every SIGMA-I and continuous-authentication
// message and the codec that pairs each cleartext message with its encrypted
// wire form.
//
// # Overview
//
// A plain message (ServiceAuthMessage, PicoAuthMessage, StatusMessage,
// PicoReauthMessage, ServiceReauthMessage) serializes its hidden fields into a
// buffer where each field is prefixed by its 4-byte big-endian length, then
// seals that buffer with AES-GCM under a fresh random IV. The result is the
// matching Enc* message, which carries the IV, the ciphertext and whatever
// fields must stay readable to bootstrap the protocol (session id, the
// verifier's ephemeral key and nonce). Decrypt reverses the process and
// parses the fields back in exactly the order they were written.
//
// StartMessage is never encrypted.
//
// Every message has a JSON form used on the wire; byte fields are base64.
//
// # Errors
//
//   - ErrMissingField: a cleartext field is absent from an incoming message.
//   - ErrFieldDeserialization: a field is structurally invalid (bad length,
//     bad key encoding, unknown enum value, trailing bytes).
//   - ErrDecryption: the AES-GCM tag, IV or ciphertext did not authenticate.
//   - ErrConfigFault: the key handed to the codec is not an AES key. This is
//     a wiring bug, never a peer fault.
package message
