package dp

import (
	"testing"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/require"
)

func TestInjectDimensionAndBudgetLookup(t *testing.T) {
	budget, err := Allocate(map[string]float64{"A": 1}, 1.0, 1e-5)
	require.NoError(t, err)

	inj := NewInjectorWithSeed(budget, 1)

	update := []float64{1, 2, 3, 4}
	noisy, sigma, err := inj.Inject(update, "A")
	require.NoError(t, err)
	require.Len(t, noisy, len(update))
	require.Equal(t, Sigma(1.0, 1e-5), sigma)
	require.Equal(t, []float64{1, 2, 3, 4}, update, "input must not be modified")

	_, _, err = inj.Inject(update, "unknown")
	require.ErrorIs(t, err, ErrUnassignedBudget)
}

func TestInjectEmpiricalSigma(t *testing.T) {
	const (
		trials  = 10000
		epsilon = 0.5
		delta   = 1e-5
	)

	budget, err := Allocate(map[string]float64{"A": 1}, epsilon, delta)
	require.NoError(t, err)

	inj := NewInjectorWithSeed(budget, 42)

	samples := make([]float64, trials)
	for i := 0; i < trials; i++ {
		noisy, _, err := inj.Inject([]float64{0}, "A")
		require.NoError(t, err)
		samples[i] = noisy[0]
	}

	got, err := stats.StandardDeviation(samples)
	require.NoError(t, err)

	want := Sigma(epsilon, delta)
	require.InEpsilon(t, want, got, 0.1, "empirical sigma %v, calibrated %v", got, want)
}

func TestSigmaFormula(t *testing.T) {
	// sqrt(2*ln(1.25/1e-5)) ~ 4.8448
	require.InDelta(t, 4.844805, Sigma(1.0, 1e-5), 1e-4)
	require.InDelta(t, 4.844805/2, Sigma(2.0, 1e-5), 1e-4)
}
