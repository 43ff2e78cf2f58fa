// Package crypto provides the arithmetic core of the fedshard pipeline.
//
// This package implements the exact-arithmetic operations that every share
// holder must agree on, including:
//
//   - Finite-field helpers over a fixed prime order (modular inverse via
//     Fermat, uniform coefficient sampling)
//   - Fixed-point quantization between real-valued model updates and field
//     elements
//   - (t,n) Shamir secret sharing of quantized update vectors
//   - Aggregate Feldman-style commitments and share verification
//   - Lagrange interpolation at zero for quorum reconstruction
//   - Digital signatures (Ed25519) for message authentication
//
// Sharing arithmetic happens modulo the share field order p. Commitments
// live in a separate cyclic group of order p (a prime-order subgroup of
// Z_Q^* for a prime Q with p | Q-1), so that exponents are canonical modulo
// p and the verification identity holds exactly for shares reduced modulo
// p. The group parameters are provisioned externally; TestGroup and
// DefaultGroup provide known-good instances.
//
// The commitment scheme is aggregate: each commitment element binds the sum
// of one coefficient index across all vector components. Verification hence
// checks the sum of a share's components against the committed sums, which
// is weaker than per-component Feldman commitments. See VerifyShare.
//
// Note: field and polynomial math is not constant-time.
package crypto
