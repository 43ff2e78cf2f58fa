package aggregator

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/privfl/fedshard/client"
	"github.com/privfl/fedshard/crypto"
	"github.com/privfl/fedshard/dp"
	"github.com/privfl/fedshard/protocol"
	"github.com/privfl/fedshard/server"
	"github.com/privfl/fedshard/testutil"
)

func testConfig(t, n, dim int) *protocol.RoundConfig {
	return testutil.RoundConfig(t, n, dim)
}

// localSource serves shares straight from an in-process server instance.
type localSource struct {
	srv *server.Server
}

func (s *localSource) FetchShare(_ context.Context, round int, clientID string, _ int) (*protocol.ShareMessage, error) {
	msg, ok := s.srv.ShareFor(round, clientID)
	if !ok {
		return nil, fmt.Errorf("no share for round %d client %s", round, clientID)
	}
	return msg, nil
}

// stalledSource never answers within the caller's deadline.
type stalledSource struct{}

func (stalledSource) FetchShare(ctx context.Context, _ int, _ string, _ int) (*protocol.ShareMessage, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// tamperedSource corrupts one component of every share it serves.
type tamperedSource struct {
	srv   *server.Server
	prime *big.Int
}

func (s *tamperedSource) FetchShare(_ context.Context, round int, clientID string, _ int) (*protocol.ShareMessage, error) {
	msg, ok := s.srv.ShareFor(round, clientID)
	if !ok {
		return nil, fmt.Errorf("no share for round %d client %s", round, clientID)
	}
	bad := *msg
	bad.Share = msg.Share.Clone()
	bad.Share.Values[0].Add(bad.Share.Values[0], big.NewInt(1))
	bad.Share.Values[0].Mod(bad.Share.Values[0], s.prime)
	return &bad, nil
}

func deployRound(t *testing.T, cfg *protocol.RoundConfig, updates map[*client.Client][]float64, budget *dp.Budget) []*server.Server {
	t.Helper()

	servers := make([]*server.Server, cfg.N)
	for i := range servers {
		srv, err := server.New(cfg, i+1)
		require.NoError(t, err)
		servers[i] = srv
	}

	injector := dp.NewInjectorWithSeed(budget, 99)
	for c, update := range updates {
		sub, err := c.PrepareRound(1, update, injector)
		require.NoError(t, err)
		for i, signed := range sub.Messages {
			msg, _, err := signed.Recover()
			require.NoError(t, err)
			require.NoError(t, servers[i].ReceiveShare(msg))
		}
	}
	return servers
}

func TestReconstructRound(t *testing.T) {
	cfg := testConfig(3, 5, 3)
	// Large epsilon keeps the calibrated noise well below the comparison
	// tolerance.
	cfg.EpsilonBase = 1000

	clientA, err := client.New(cfg)
	require.NoError(t, err)
	clientB, err := client.New(cfg)
	require.NoError(t, err)

	budget, err := dp.Allocate(map[string]float64{clientA.ID(): 1, clientB.ID(): 2}, cfg.EpsilonBase, cfg.Delta)
	require.NoError(t, err)

	updates := map[*client.Client][]float64{
		clientA: {0.25, -1.5, 3},
		clientB: {-0.125, 0, 42.5},
	}
	servers := deployRound(t, cfg, updates, budget)

	agg, err := New(cfg)
	require.NoError(t, err)
	for _, srv := range servers {
		require.NoError(t, agg.RegisterServer(srv.ID(), &localSource{srv}))
	}

	telemetry := &RoundTelemetry{
		Epsilons: budget.Epsilons(),
		Weights:  map[string]float64{clientA.ID(): 1, clientB.ID(): 3},
	}
	result, err := agg.ReconstructRound(context.Background(), 1, []string{clientA.ID(), clientB.ID()}, telemetry)
	require.NoError(t, err)
	require.Equal(t, 1, result.RoundNumber)
	require.Len(t, result.Updates, 2)
	require.Equal(t, budget.Epsilons(), result.Epsilons)
	require.Equal(t, telemetry.Weights, result.Weights)

	for c, update := range updates {
		got := result.Updates[c.ID()]
		require.Len(t, got, cfg.Dimension)
		for i := range update {
			require.InDelta(t, update[i], got[i], 0.1, "client %s component %d", c.ID(), i)
		}
	}

	stored, ok := agg.Result(1)
	require.True(t, ok)
	require.Equal(t, result, stored)
}

func TestReconstructClientMatchesDirectReconstruction(t *testing.T) {
	cfg := testConfig(3, 5, 2)

	c, err := client.New(cfg)
	require.NoError(t, err)
	budget, err := dp.Allocate(map[string]float64{c.ID(): 1}, cfg.EpsilonBase, cfg.Delta)
	require.NoError(t, err)

	servers := deployRound(t, cfg, map[*client.Client][]float64{c: {1.5, -7}}, budget)

	agg, err := New(cfg)
	require.NoError(t, err)
	for _, srv := range servers {
		require.NoError(t, agg.RegisterServer(srv.ID(), &localSource{srv}))
	}

	got, err := agg.ReconstructClient(context.Background(), 1, c.ID())
	require.NoError(t, err)

	// Any t stored shares reconstruct to the identical vector.
	quorum := make([]crypto.Share, 0, cfg.T)
	for _, srv := range servers[:cfg.T] {
		msg, ok := srv.ShareFor(1, c.ID())
		require.True(t, ok)
		quorum = append(quorum, msg.Share)
	}
	secret, err := crypto.Reconstruct(quorum, cfg.T, cfg.FieldOrder)
	require.NoError(t, err)
	require.Equal(t, crypto.Dequantize(secret, cfg.Scale, cfg.FieldOrder), got)
}

func TestReconstructClientSkipsTamperedShares(t *testing.T) {
	cfg := testConfig(3, 5, 2)

	c, err := client.New(cfg)
	require.NoError(t, err)
	budget, err := dp.Allocate(map[string]float64{c.ID(): 1}, cfg.EpsilonBase, cfg.Delta)
	require.NoError(t, err)

	servers := deployRound(t, cfg, map[*client.Client][]float64{c: {3.25, 0.5}}, budget)

	agg, err := New(cfg)
	require.NoError(t, err)
	// Two servers serve corrupted shares; the three honest ones still form
	// a quorum.
	require.NoError(t, agg.RegisterServer(1, &tamperedSource{servers[0], cfg.FieldOrder}))
	require.NoError(t, agg.RegisterServer(2, &tamperedSource{servers[1], cfg.FieldOrder}))
	for _, srv := range servers[2:] {
		require.NoError(t, agg.RegisterServer(srv.ID(), &localSource{srv}))
	}

	got, err := agg.ReconstructClient(context.Background(), 1, c.ID())
	require.NoError(t, err)

	quorum := make([]crypto.Share, 0, cfg.T)
	for _, srv := range servers[2:] {
		msg, ok := srv.ShareFor(1, c.ID())
		require.True(t, ok)
		quorum = append(quorum, msg.Share)
	}
	secret, err := crypto.Reconstruct(quorum, cfg.T, cfg.FieldOrder)
	require.NoError(t, err)
	require.Equal(t, crypto.Dequantize(secret, cfg.Scale, cfg.FieldOrder), got)
}

func TestReconstructClientQuorumTimeout(t *testing.T) {
	cfg := testConfig(3, 5, 2)
	cfg.QuorumDeadline = 50 * time.Millisecond

	c, err := client.New(cfg)
	require.NoError(t, err)
	budget, err := dp.Allocate(map[string]float64{c.ID(): 1}, cfg.EpsilonBase, cfg.Delta)
	require.NoError(t, err)

	servers := deployRound(t, cfg, map[*client.Client][]float64{c: {1, 2}}, budget)

	agg, err := New(cfg)
	require.NoError(t, err)
	// Only two servers respond; the rest stall past the deadline.
	require.NoError(t, agg.RegisterServer(1, &localSource{servers[0]}))
	require.NoError(t, agg.RegisterServer(2, &localSource{servers[1]}))
	for id := 3; id <= 5; id++ {
		require.NoError(t, agg.RegisterServer(id, stalledSource{}))
	}

	_, err = agg.ReconstructClient(context.Background(), 1, c.ID())
	require.ErrorIs(t, err, protocol.ErrQuorumTimeout)
}

func TestReconstructClientCancelledIsNotTimeout(t *testing.T) {
	cfg := testConfig(3, 5, 2)

	agg, err := New(cfg)
	require.NoError(t, err)
	for id := 1; id <= 5; id++ {
		require.NoError(t, agg.RegisterServer(id, stalledSource{}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = agg.ReconstructClient(ctx, 1, "client-a")
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, protocol.ErrQuorumTimeout)
}

func TestReconstructClientTooFewServers(t *testing.T) {
	cfg := testConfig(3, 5, 2)

	agg, err := New(cfg)
	require.NoError(t, err)
	srv, err := server.New(cfg, 1)
	require.NoError(t, err)
	require.NoError(t, agg.RegisterServer(1, &localSource{srv}))

	_, err = agg.ReconstructClient(context.Background(), 1, "client-a")
	require.ErrorIs(t, err, crypto.ErrInsufficientShares)
}
