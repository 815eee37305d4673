// Package cmd implements the command-line interface of dEBR. It bundles tools
// to exercise the reclamation domain of lib/ebr outside of unit tests.
//
// The package is organized into several subpackages:
//
//   - stress: Runs concurrent writers and readers against a domain and verifies
//     that every retired object is freed exactly once and never early
//   - bench: Benchmarks pin, retire and the lock-free containers
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set through an environment variable with the prefix
// DEBR_ (e.g. DEBR_HIGH_WATER_MARK=128). See debr -help for a list of all commands.
package cmd
