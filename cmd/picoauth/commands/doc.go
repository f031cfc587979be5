// Package commands defines the picoauth CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init           Create the local identity
//   - fingerprint    Print the identity fingerprint and commitment
//   - pair service   Trust a verifier by name, address and commitment
//   - pair prover    Accept a prover by commitment
//   - unpair         Forget a service or prover
//   - pairings       List both kinds of pairing
//   - sessions       List verifier session records
//   - auth           Authenticate to a paired service
//   - serve          Run the verifier service
//
// # Implementation
//
// The root command loads the configuration and builds the dependency graph
// (stores, services, logger) before any subcommand runs, and releases it
// afterwards.
package commands
