package crypto

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupParameters(t *testing.T) {
	require.NoError(t, TestGroup().Validate(TestFieldOrder))
	require.NoError(t, DefaultGroup().Validate(DefaultFieldOrder))
}

func TestGroupValidateRejectsMismatch(t *testing.T) {
	// Test group has order TestFieldOrder, not DefaultFieldOrder.
	err := TestGroup().Validate(DefaultFieldOrder)
	require.ErrorIs(t, err, ErrInvalidInput)

	err = (&CommitmentGroup{}).Validate(TestFieldOrder)
	require.ErrorIs(t, err, ErrInvalidInput)

	bad := TestGroup()
	bad.Generator = big.NewInt(1)
	require.ErrorIs(t, bad.Validate(TestFieldOrder), ErrInvalidInput)
}

func TestGroupExpReducesExponent(t *testing.T) {
	p := TestFieldOrder
	group := TestGroup()

	e := big.NewInt(123456789)
	shifted := new(big.Int).Add(e, p)
	require.Zero(t, group.Exp(e, p).Cmp(group.Exp(shifted, p)))
}

func TestModInverse(t *testing.T) {
	p := TestFieldOrder
	for _, v := range []int64{1, 2, 7, 65537, 1<<31 - 2} {
		a := big.NewInt(v)
		inv := ModInverse(a, p)
		prod := new(big.Int).Mul(a, inv)
		require.Zero(t, big.NewInt(1).Cmp(prod.Mod(prod, p)), "inverse of %d", v)
	}
}

func TestRandCoefficientRange(t *testing.T) {
	p := big.NewInt(97)
	for i := 0; i < 500; i++ {
		c, err := RandCoefficient(p)
		require.NoError(t, err)
		require.Positive(t, c.Sign(), "zero coefficient drawn")
		require.Negative(t, c.Cmp(p))
	}
}
