// Command verifierd runs the picoauth verifier service as a daemon.
//
// It reads the same home directory and config.toml as the picoauth CLI.
// The identity passphrase comes from PICOAUTH_PASSPHRASE, directly or via
// <home>/.env. SIGINT or SIGTERM closes the listener and waits for open
// sessions to end.
package main
