package crypto

import (
	"math"
	"math/big"
)

// DefaultScale is the fixed-point scale applied to model updates before
// sharing. 2^16 keeps roughly 4-5 decimal digits, which is ample for
// gradient-sized values while leaving headroom below TestFieldOrder.
const DefaultScale int64 = 1 << 16

// Quantize maps real-valued update components into field elements using
// fixed-point encoding: x -> round(x*scale) mod p, with negative values
// mapped into the upper half of the field. Lagrange interpolation is exact
// only over field elements, so this boundary is mandatory before sharing.
//
// Values with |round(x*scale)| >= (p-1)/2 wrap around and dequantize to the
// wrong sign; choosing p and scale so that legitimate updates stay inside
// the representable range is a correctness requirement on the caller.
func Quantize(values []float64, scale int64, p *big.Int) []*big.Int {
	out := make([]*big.Int, len(values))
	fscale := float64(scale)
	for i, v := range values {
		q := big.NewInt(int64(math.Round(v * fscale)))
		out[i] = q.Mod(q, p)
	}
	return out
}

// Dequantize inverts Quantize: field elements above (p-1)/2 decode as
// negative. The scale must match the one used at sharing time.
func Dequantize(elements []*big.Int, scale int64, p *big.Int) []float64 {
	out := make([]float64, len(elements))
	half := new(big.Int).Rsh(p, 1)
	fscale := float64(scale)
	for i, e := range elements {
		v := new(big.Int).Mod(e, p)
		if v.Cmp(half) > 0 {
			v.Sub(v, p)
		}
		f, _ := new(big.Float).SetInt(v).Float64()
		out[i] = f / fscale
	}
	return out
}
