package crypto

import (
	"fmt"
	"math/big"
	"sort"
)

// Reconstruct recovers the field-encoded secret vector from at least t
// shares via Lagrange interpolation at x = 0 over the prime field p.
//
// Duplicate server ids count once; fewer than t distinct ids fail with
// ErrInsufficientShares. All distinct shares supplied contribute to the
// interpolation: for honest shares the system is over-determined and the
// result is identical for any t-subset, exactly.
//
// The result is field-encoded; the caller dequantizes it with the scale
// used at sharing time.
func Reconstruct(shares []Share, t int, p *big.Int) ([]*big.Int, error) {
	if t < 2 {
		return nil, fmt.Errorf("%w: threshold %d", ErrInvalidInput, t)
	}
	if !ValidFieldOrder(p) {
		return nil, fmt.Errorf("%w: field order is not prime", ErrInvalidInput)
	}

	distinct := make(map[int]Share, len(shares))
	for _, s := range shares {
		if s.ServerID < 1 {
			return nil, fmt.Errorf("%w: server id %d", ErrInvalidInput, s.ServerID)
		}
		if _, seen := distinct[s.ServerID]; !seen {
			distinct[s.ServerID] = s
		}
	}
	if len(distinct) < t {
		return nil, fmt.Errorf("%w: %d distinct shares, need %d", ErrInsufficientShares, len(distinct), t)
	}

	// Stable contributor order keeps the arithmetic reproducible.
	ids := make([]int, 0, len(distinct))
	for id := range distinct {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	dim := len(distinct[ids[0]].Values)
	for _, id := range ids {
		if len(distinct[id].Values) != dim {
			return nil, fmt.Errorf("%w: share %d has %d components, expected %d",
				ErrInvalidInput, id, len(distinct[id].Values), dim)
		}
	}

	weights := lagrangeWeightsAtZero(ids, p)

	secret := make([]*big.Int, dim)
	term := new(big.Int)
	for c := 0; c < dim; c++ {
		acc := new(big.Int)
		for i, id := range ids {
			term.Mul(weights[i], distinct[id].Values[c])
			acc.Add(acc, term)
			acc.Mod(acc, p)
		}
		secret[c] = acc
	}

	return secret, nil
}

// lagrangeWeightsAtZero computes, for each contributor x_i, the weight
//
//	w_i = prod_{j!=i}(-x_j) * (prod_{j!=i}(x_i - x_j))^-1 mod p
//
// so that f(0) = sum_i w_i * f(x_i). Inverses use Fermat's little theorem.
func lagrangeWeightsAtZero(ids []int, p *big.Int) []*big.Int {
	weights := make([]*big.Int, len(ids))
	num := new(big.Int)
	den := new(big.Int)
	diff := new(big.Int)
	for i, xi := range ids {
		num.SetInt64(1)
		den.SetInt64(1)
		for j, xj := range ids {
			if j == i {
				continue
			}
			diff.SetInt64(int64(-xj))
			num.Mul(num, diff)
			num.Mod(num, p)

			diff.SetInt64(int64(xi - xj))
			den.Mul(den, diff)
			den.Mod(den, p)
		}
		w := new(big.Int).Mul(num, ModInverse(den, p))
		weights[i] = w.Mod(w, p)
	}
	return weights
}
