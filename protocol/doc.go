// Package protocol defines the round structure and message contracts of
// the fedshard pipeline.
//
// A round has two phases: during the share phase clients distribute signed
// shares and commitments to the n share servers; during the reconstruct
// phase the aggregator collects a t-of-n quorum per client and recovers the
// noisy updates. The package provides:
//
//   - RoundConfig: the parameter set every participant of a round shares
//     (threshold, field order, commitment group, privacy parameters,
//     quantization scale, update dimension)
//   - Round / LocalRoundCoordinator: time-based phase progression
//   - Signed[T]: Ed25519-authenticated JSON message envelopes
//   - ShareMessage, RoundResult: the payloads exchanged between roles
//
// The package defines no transport; services wires these messages over
// HTTP, and the core arithmetic lives in the crypto and dp packages.
package protocol
