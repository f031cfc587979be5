// Package app wires application dependencies for the CLI and the verifier
// daemon.
//
// LoadConfig reads <home>/config.toml, then a <home>/.env file and the
// PICOAUTH_* environment on top of it. NewWire turns the result into the
// concrete stores and services, exposed through the Wire struct for
// commands to use. Serve runs the verifier service until its context ends.
package app
