package dp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateProportional(t *testing.T) {
	budget, err := Allocate(map[string]float64{"A": 10, "B": 50, "C": 100}, 1.0, 1e-5)
	require.NoError(t, err)

	require.Equal(t, map[string]float64{"A": 0.1, "B": 0.5, "C": 1.0}, budget.Epsilons())

	// The most sensitive client always receives the full base epsilon.
	eps, ok := budget.Epsilon("C")
	require.True(t, ok)
	require.Equal(t, budget.EpsilonBase(), eps)
}

func TestAllocateInvariant(t *testing.T) {
	budget, err := Allocate(map[string]float64{"a": 3.7, "b": 0.001, "c": 12.5, "d": 12.5}, 0.8, 1e-6)
	require.NoError(t, err)

	for id, eps := range budget.Epsilons() {
		require.Greater(t, eps, 0.0, "client %s", id)
		require.LessOrEqual(t, eps, budget.EpsilonBase(), "client %s", id)
	}
}

func TestAllocateDegenerateInputs(t *testing.T) {
	_, err := Allocate(nil, 1.0, 1e-5)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = Allocate(map[string]float64{"A": 0, "B": 0}, 1.0, 1e-5)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = Allocate(map[string]float64{"A": -1, "B": 2}, 1.0, 1e-5)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = Allocate(map[string]float64{"A": 1}, 0, 1e-5)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = Allocate(map[string]float64{"A": 1}, 1.0, 0)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestAllocateSkipsZeroSensitivity(t *testing.T) {
	budget, err := Allocate(map[string]float64{"A": 0, "B": 5}, 1.0, 1e-5)
	require.NoError(t, err)

	_, ok := budget.Epsilon("A")
	require.False(t, ok)

	eps, ok := budget.Epsilon("B")
	require.True(t, ok)
	require.Equal(t, 1.0, eps)
}

func TestBudgetReplacement(t *testing.T) {
	first, err := Allocate(map[string]float64{"A": 1, "B": 2}, 1.0, 1e-5)
	require.NoError(t, err)

	second, err := Allocate(map[string]float64{"C": 4}, 1.0, 1e-5)
	require.NoError(t, err)

	// A recomputation is a wholesale replacement, never a merge.
	_, ok := second.Epsilon("A")
	require.False(t, ok)
	_, ok = first.Epsilon("A")
	require.True(t, ok)

	// Epsilons hands out copies, not the internal map.
	m := first.Epsilons()
	m["A"] = 99
	eps, _ := first.Epsilon("A")
	require.Equal(t, 0.5, eps)
}
