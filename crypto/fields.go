package crypto

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// Errors returned by the arithmetic core. Callers match with errors.Is.
var (
	// ErrInvalidInput covers degenerate parameters: t/n out of range,
	// non-prime field order, empty or mismatched share vectors.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCommitment indicates a malformed sharing event upstream:
	// the commitment length does not match the threshold.
	ErrInvalidCommitment = errors.New("invalid commitment")

	// ErrInsufficientShares indicates fewer than t distinct server ids
	// were supplied to reconstruction.
	ErrInsufficientShares = errors.New("insufficient shares")
)

// DefaultFieldOrder is the 127-bit prime used for share arithmetic when the
// caller does not provision its own field.
var DefaultFieldOrder *big.Int

// TestFieldOrder is the Mersenne prime 2^31-1, large enough for quantized
// single-precision updates at moderate scales. Used throughout the test
// suite and small deployments.
var TestFieldOrder *big.Int

func init() {
	DefaultFieldOrder, _ = new(big.Int).SetString("141504642401084501264176625615135659301", 10)
	TestFieldOrder = big.NewInt((1 << 31) - 1)
}

// primalityRounds for ProbablyPrime. With the Baillie-PSW pre-test this is
// conservative for adversarially chosen field orders.
const primalityRounds = 20

// ValidFieldOrder reports whether p can serve as a share field order.
func ValidFieldOrder(p *big.Int) bool {
	return p != nil && p.Sign() > 0 && p.ProbablyPrime(primalityRounds)
}

// ModInverse returns a^-1 mod p using Fermat's little theorem. p must be
// prime and a must not be divisible by p.
func ModInverse(a, p *big.Int) *big.Int {
	exp := new(big.Int).Sub(p, big.NewInt(2))
	return new(big.Int).Exp(a, exp, p)
}

// RandCoefficient samples a polynomial coefficient uniformly from [1, p-1].
// Zero is excluded so that no coefficient degenerates the polynomial degree;
// this deviates from textbook Shamir, which allows zero coefficients, and is
// kept for interoperability with existing share holders.
func RandCoefficient(p *big.Int) (*big.Int, error) {
	max := new(big.Int).Sub(p, big.NewInt(1))
	c, err := rand.Int(rand.Reader, max)
	if err != nil {
		return nil, err
	}
	return c.Add(c, big.NewInt(1)), nil
}
