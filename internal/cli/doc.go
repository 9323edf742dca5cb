// Package cli turns command-line arguments into an app.Config: the command
// to run, where the project and its pipeline file live, logging and the dev
// server port overrides. It also owns process exit codes.
package cli
