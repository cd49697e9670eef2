// Package app contains the core application logic. It wires configuration,
// logging, loaders, the validator, the linter and the result cache into the
// operations the command line exposes, decoupled from any specific
// entrypoint like a CLI or an editor connection.
package app
