package crypto

import (
	"fmt"
	"math/big"
)

// CommitmentGroup is the cyclic group commitments are published in: the
// order-p subgroup of Z_Q^* generated by Generator, for a prime Q with
// p | Q-1. Group parameters are provisioned externally and must be shared
// by all participants of a round.
type CommitmentGroup struct {
	// Modulus is the prime Q.
	Modulus *big.Int `json:"modulus"`

	// Generator is an element of order p in Z_Q^*.
	Generator *big.Int `json:"generator"`
}

// TestGroup returns the commitment group matching TestFieldOrder:
// Q = 46p+1 with generator 2^46 mod Q.
func TestGroup() *CommitmentGroup {
	q := new(big.Int).Mul(TestFieldOrder, big.NewInt(46))
	q.Add(q, big.NewInt(1))
	g := new(big.Int).Exp(big.NewInt(2), big.NewInt(46), q)
	return &CommitmentGroup{Modulus: q, Generator: g}
}

// DefaultGroup returns the commitment group matching DefaultFieldOrder:
// Q = 72p+1 with generator 2^72 mod Q.
func DefaultGroup() *CommitmentGroup {
	q := new(big.Int).Mul(DefaultFieldOrder, big.NewInt(72))
	q.Add(q, big.NewInt(1))
	g := new(big.Int).Exp(big.NewInt(2), big.NewInt(72), q)
	return &CommitmentGroup{Modulus: q, Generator: g}
}

// Validate checks the group against the share field order p: Q prime,
// p | Q-1, and the generator of order exactly p.
func (cg *CommitmentGroup) Validate(p *big.Int) error {
	if cg == nil || cg.Modulus == nil || cg.Generator == nil {
		return fmt.Errorf("%w: commitment group not provisioned", ErrInvalidInput)
	}
	if !cg.Modulus.ProbablyPrime(primalityRounds) {
		return fmt.Errorf("%w: commitment group modulus is not prime", ErrInvalidInput)
	}
	qm1 := new(big.Int).Sub(cg.Modulus, big.NewInt(1))
	if new(big.Int).Mod(qm1, p).Sign() != 0 {
		return fmt.Errorf("%w: field order does not divide group order", ErrInvalidInput)
	}
	one := big.NewInt(1)
	if cg.Generator.Cmp(one) <= 0 {
		return fmt.Errorf("%w: degenerate generator", ErrInvalidInput)
	}
	if new(big.Int).Exp(cg.Generator, p, cg.Modulus).Cmp(one) != 0 {
		return fmt.Errorf("%w: generator order is not the field order", ErrInvalidInput)
	}
	return nil
}

// Exp returns Generator^e mod Q with the exponent reduced modulo p, the
// group order. All commitment exponents must pass through here so that
// independently computed exponents agree.
func (cg *CommitmentGroup) Exp(e, p *big.Int) *big.Int {
	reduced := new(big.Int).Mod(e, p)
	return reduced.Exp(cg.Generator, reduced, cg.Modulus)
}
