package crypto

import (
	"fmt"
	"math/big"
)

// Share holds one server's evaluation of every component polynomial of a
// sharing event. ServerID is the evaluation point x in [1, n]. Shares are
// immutable once produced.
type Share struct {
	ServerID int        `json:"server_id"`
	Values   []*big.Int `json:"values"`
}

// Clone returns a deep copy of the share.
func (s Share) Clone() Share {
	values := make([]*big.Int, len(s.Values))
	for i, v := range s.Values {
		values[i] = new(big.Int).Set(v)
	}
	return Share{ServerID: s.ServerID, Values: values}
}

// Commitment is the public, aggregate Feldman-style commitment of a sharing
// event: element j binds g^(sum over all components of coefficient j).
// A single commitment is published per sharing event and used by every
// server.
type Commitment []*big.Int

// SplitVector splits a quantized secret vector into n shares of a (t,n)
// threshold scheme and the matching aggregate commitment.
//
// Every component gets its own degree-(t-1) polynomial: coefficient zero is
// the secret component, the remaining t-1 coefficients are drawn uniformly
// from [1, p-1]. Share i is the evaluation of all component polynomials at
// x = i, reduced modulo p.
func SplitVector(secret []*big.Int, t, n int, p *big.Int, group *CommitmentGroup) ([]Share, Commitment, error) {
	if t < 2 || t > n {
		return nil, nil, fmt.Errorf("%w: threshold %d out of range for %d servers", ErrInvalidInput, t, n)
	}
	if !ValidFieldOrder(p) {
		return nil, nil, fmt.Errorf("%w: field order is not prime", ErrInvalidInput)
	}
	if err := group.Validate(p); err != nil {
		return nil, nil, err
	}
	if len(secret) == 0 {
		return nil, nil, fmt.Errorf("%w: empty secret vector", ErrInvalidInput)
	}

	shares := make([]Share, n)
	for i := range shares {
		shares[i] = Share{
			ServerID: i + 1,
			Values:   make([]*big.Int, len(secret)),
		}
	}

	// coeffSums[j] accumulates coefficient j across all components; the
	// commitment binds these sums rather than per-component coefficients.
	coeffSums := make([]*big.Int, t)
	for j := range coeffSums {
		coeffSums[j] = new(big.Int)
	}

	coeffs := make([]*big.Int, t)
	for c := range secret {
		coeffs[0] = new(big.Int).Mod(secret[c], p)
		for j := 1; j < t; j++ {
			r, err := RandCoefficient(p)
			if err != nil {
				return nil, nil, fmt.Errorf("sampling coefficient: %w", err)
			}
			coeffs[j] = r
		}

		for j := 0; j < t; j++ {
			coeffSums[j].Add(coeffSums[j], coeffs[j])
			coeffSums[j].Mod(coeffSums[j], p)
		}

		// Horner evaluation at x = 1..n.
		x := new(big.Int)
		for i := range shares {
			x.SetInt64(int64(i + 1))
			acc := new(big.Int).Set(coeffs[t-1])
			for j := t - 2; j >= 0; j-- {
				acc.Mul(acc, x)
				acc.Add(acc, coeffs[j])
				acc.Mod(acc, p)
			}
			shares[i].Values[c] = acc
		}
	}

	commitment := make(Commitment, t)
	for j := range commitment {
		commitment[j] = group.Exp(coeffSums[j], p)
	}

	return shares, commitment, nil
}

// VerifyShare checks a share against the published aggregate commitment:
//
//	g^(sum of share values)  ==  prod_j commitment[j]^(id^j)
//
// with exponents reduced modulo the group order p. A false result is an
// expected outcome for a tampered or corrupted share, not an error.
//
// Because the commitment aggregates coefficients across components, the
// check binds only the sum of a share's components, not each component
// individually. A tampering that preserves the component sum passes; this
// is the documented trade-off of the aggregate scheme.
func VerifyShare(share Share, commitment Commitment, t int, p *big.Int, group *CommitmentGroup) (bool, error) {
	if len(commitment) != t {
		return false, fmt.Errorf("%w: got %d elements, threshold is %d", ErrInvalidCommitment, len(commitment), t)
	}
	if share.ServerID < 1 {
		return false, fmt.Errorf("%w: server id %d", ErrInvalidInput, share.ServerID)
	}

	sum := new(big.Int)
	for _, v := range share.Values {
		sum.Add(sum, v)
		sum.Mod(sum, p)
	}
	lhs := group.Exp(sum, p)

	x := big.NewInt(int64(share.ServerID))
	xPow := big.NewInt(1)
	rhs := big.NewInt(1)
	for _, cj := range commitment {
		term := new(big.Int).Exp(cj, xPow, group.Modulus)
		rhs.Mul(rhs, term)
		rhs.Mod(rhs, group.Modulus)

		xPow.Mul(xPow, x)
		xPow.Mod(xPow, p)
	}

	return lhs.Cmp(rhs) == 0, nil
}
