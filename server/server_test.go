package server

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/privfl/fedshard/crypto"
	"github.com/privfl/fedshard/protocol"
	"github.com/privfl/fedshard/testutil"
)

func testConfig() *protocol.RoundConfig {
	return testutil.RoundConfig(2, 3, 2)
}

func shareMessages(t *testing.T, cfg *protocol.RoundConfig, round int, clientID string) []*protocol.ShareMessage {
	t.Helper()

	secret := crypto.Quantize([]float64{1.5, -2.5}, cfg.Scale, cfg.FieldOrder)
	shares, commitment, err := crypto.SplitVector(secret, cfg.T, cfg.N, cfg.FieldOrder, cfg.Group)
	require.NoError(t, err)

	msgs := make([]*protocol.ShareMessage, len(shares))
	for i, share := range shares {
		msgs[i] = &protocol.ShareMessage{
			RoundNumber: round,
			ClientID:    clientID,
			Share:       share,
			Commitment:  commitment,
		}
	}
	return msgs
}

func TestReceiveAndServeShare(t *testing.T) {
	cfg := testConfig()
	srv, err := New(cfg, 2)
	require.NoError(t, err)

	msgs := shareMessages(t, cfg, 1, "client-a")
	require.NoError(t, srv.ReceiveShare(msgs[1]))

	stored, ok := srv.ShareFor(1, "client-a")
	require.True(t, ok)
	require.Equal(t, 2, stored.Share.ServerID)

	_, ok = srv.ShareFor(1, "client-b")
	require.False(t, ok)

	require.Equal(t, []string{"client-a"}, srv.ClientsFor(1))
}

func TestReceiveShareWrongServer(t *testing.T) {
	cfg := testConfig()
	srv, err := New(cfg, 2)
	require.NoError(t, err)

	msgs := shareMessages(t, cfg, 1, "client-a")
	require.ErrorIs(t, srv.ReceiveShare(msgs[0]), crypto.ErrInvalidInput)
}

func TestReceiveShareRejectsTampered(t *testing.T) {
	cfg := testConfig()
	srv, err := New(cfg, 1)
	require.NoError(t, err)

	msgs := shareMessages(t, cfg, 1, "client-a")
	msgs[0].Share.Values[0].Add(msgs[0].Share.Values[0], big.NewInt(1))
	msgs[0].Share.Values[0].Mod(msgs[0].Share.Values[0], cfg.FieldOrder)

	require.ErrorIs(t, srv.ReceiveShare(msgs[0]), ErrShareRejected)

	_, ok := srv.ShareFor(1, "client-a")
	require.False(t, ok)
}

func TestReceiveShareRejectsDuplicateAndBadCommitment(t *testing.T) {
	cfg := testConfig()
	srv, err := New(cfg, 1)
	require.NoError(t, err)

	msgs := shareMessages(t, cfg, 1, "client-a")
	require.NoError(t, srv.ReceiveShare(msgs[0]))
	require.Error(t, srv.ReceiveShare(msgs[0]))

	other := shareMessages(t, cfg, 1, "client-b")
	other[0].Commitment = other[0].Commitment[:1]
	require.ErrorIs(t, srv.ReceiveShare(other[0]), crypto.ErrInvalidCommitment)
}

func TestDropRoundsBefore(t *testing.T) {
	cfg := testConfig()
	srv, err := New(cfg, 1)
	require.NoError(t, err)

	require.NoError(t, srv.ReceiveShare(shareMessages(t, cfg, 1, "client-a")[0]))
	require.NoError(t, srv.ReceiveShare(shareMessages(t, cfg, 5, "client-a")[0]))

	srv.DropRoundsBefore(5)

	_, ok := srv.ShareFor(1, "client-a")
	require.False(t, ok)
	_, ok = srv.ShareFor(5, "client-a")
	require.True(t, ok)
}
