package crypto

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuantizeDequantize(t *testing.T) {
	p := TestFieldOrder

	values := []float64{0, 1, -1, 0.5, -0.5, 123.456, -987.654, 1e-3}
	encoded := Quantize(values, DefaultScale, p)
	decoded := Dequantize(encoded, DefaultScale, p)

	require.Len(t, decoded, len(values))
	for i := range values {
		require.InDelta(t, values[i], decoded[i], 1.0/float64(DefaultScale))
	}
}

func TestQuantizeScaleOne(t *testing.T) {
	encoded := Quantize([]float64{42}, 1, TestFieldOrder)
	require.Zero(t, big.NewInt(42).Cmp(encoded[0]))
}

func TestQuantizeNegativeEncoding(t *testing.T) {
	p := TestFieldOrder
	encoded := Quantize([]float64{-3}, 1, p)

	want := new(big.Int).Sub(p, big.NewInt(3))
	require.Zero(t, want.Cmp(encoded[0]))
	require.Equal(t, []float64{-3}, Dequantize(encoded, 1, p))
}

func FuzzQuantizeRoundTrip(f *testing.F) {
	f.Add(0.0)
	f.Add(1.5)
	f.Add(-273.15)
	f.Add(1e4)

	p := TestFieldOrder
	f.Fuzz(func(t *testing.T, v float64) {
		// Out-of-range values wrap by design; restrict to the representable range.
		if math.IsNaN(v) || math.Abs(v) > 1e4 {
			t.Skip()
		}
		decoded := Dequantize(Quantize([]float64{v}, DefaultScale, p), DefaultScale, p)
		if math.Abs(decoded[0]-v) > 1.0/float64(DefaultScale) {
			t.Fatalf("round trip drifted: %v -> %v", v, decoded[0])
		}
	})
}
