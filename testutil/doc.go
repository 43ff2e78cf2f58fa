// Package testutil provides shared fixtures for fedshard tests.
//
// Tests across the client, server, aggregator and services packages need
// the same kind of setup: a round config over the small test field, a
// budget bound to a client, and sample updates that survive quantization
// exactly. This package centralizes those generators so the per-package
// tests stay focused on behavior.
//
// Not for production use.
package testutil
