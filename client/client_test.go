package client

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/privfl/fedshard/crypto"
	"github.com/privfl/fedshard/dp"
	"github.com/privfl/fedshard/protocol"
	"github.com/privfl/fedshard/testutil"
)

func testConfig(dim int) *protocol.RoundConfig {
	return testutil.RoundConfig(3, 5, dim)
}

func TestPrepareRound(t *testing.T) {
	cfg := testConfig(4)
	c, err := New(cfg)
	require.NoError(t, err)

	injector, err := testutil.SoloInjector(cfg, c.ID(), 7)
	require.NoError(t, err)

	sub, err := c.PrepareRound(3, testutil.DyadicUpdate(4), injector)
	require.NoError(t, err)
	require.Equal(t, 3, sub.RoundNumber)
	require.Len(t, sub.Messages, cfg.N)
	require.Len(t, sub.Commitment, cfg.T)
	require.Equal(t, dp.Sigma(cfg.EpsilonBase, cfg.Delta), sub.Sigma)

	// Each message carries a verifiable share and the shared commitment,
	// signed by the client.
	for i, signed := range sub.Messages {
		msg, signer, err := signed.Recover()
		require.NoError(t, err)
		require.Equal(t, c.PublicKey().String(), signer.String())
		require.Equal(t, i+1, msg.Share.ServerID)
		require.Equal(t, c.ID(), msg.ClientID)
		require.Len(t, msg.Share.Values, cfg.Dimension)

		ok, err := crypto.VerifyShare(msg.Share, msg.Commitment, cfg.T, cfg.FieldOrder, cfg.Group)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestPrepareRoundDimensionCheck(t *testing.T) {
	cfg := testConfig(4)
	c, err := New(cfg)
	require.NoError(t, err)

	injector, err := testutil.SoloInjector(cfg, c.ID(), 1)
	require.NoError(t, err)

	_, err = c.PrepareRound(0, []float64{1, 2}, injector)
	require.ErrorIs(t, err, crypto.ErrInvalidInput)
}

func TestPrepareRoundUnallocatedClient(t *testing.T) {
	cfg := testConfig(2)
	c, err := New(cfg)
	require.NoError(t, err)

	budget, err := dp.Allocate(map[string]float64{"somebody-else": 1}, cfg.EpsilonBase, cfg.Delta)
	require.NoError(t, err)

	_, err = c.PrepareRound(0, []float64{1, 2}, dp.NewInjectorWithSeed(budget, 1))
	require.ErrorIs(t, err, dp.ErrUnassignedBudget)
}
