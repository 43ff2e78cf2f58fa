package protocol

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoundAdvance(t *testing.T) {
	r := Round{3, SharePhase}
	r = r.Advance()
	require.Equal(t, Round{3, ReconstructPhase}, r)
	r = r.Advance()
	require.Equal(t, Round{4, SharePhase}, r)
}

func TestRoundIsAfter(t *testing.T) {
	require.True(t, Round{2, SharePhase}.IsAfter(Round{1, ReconstructPhase}))
	require.True(t, Round{1, ReconstructPhase}.IsAfter(Round{1, SharePhase}))
	require.False(t, Round{1, SharePhase}.IsAfter(Round{1, SharePhase}))
	require.False(t, Round{1, SharePhase}.IsAfter(Round{2, SharePhase}))
}

func TestRoundTimeMapping(t *testing.T) {
	duration := 10 * time.Second
	for _, round := range []Round{{0, SharePhase}, {5, ReconstructPhase}, {1234, SharePhase}} {
		start := TimeForRound(round, duration)
		require.Equal(t, round, RoundForTime(start, duration))
		require.Equal(t, round, RoundForTime(start.Add(duration/2-time.Millisecond), duration))
	}
}

// TestCoordinatorConcurrentAccess exercises subscription, reads and
// advancement from concurrent goroutines; run with -race.
func TestCoordinatorConcurrentAccess(t *testing.T) {
	coord := NewLocalRoundCoordinator(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	coord.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := coord.SubscribeToRounds(ctx)
			first := <-ch
			// Rounds only move forward, so the subscription snapshot can
			// never lead the coordinator.
			require.False(t, first.IsAfter(coord.CurrentRound()))
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coord.AdvanceToRound(coord.CurrentRound().Advance())
		}()
	}
	wg.Wait()
}

func TestCoordinatorAdvanceNotifiesSubscribers(t *testing.T) {
	coord := NewLocalRoundCoordinator(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := coord.SubscribeToRounds(ctx)
	require.Equal(t, Round{0, SharePhase}, <-ch)

	coord.AdvanceToRound(Round{1, SharePhase})
	require.Equal(t, Round{0, ReconstructPhase}, <-ch)
	require.Equal(t, Round{1, SharePhase}, <-ch)
	require.Equal(t, Round{1, SharePhase}, coord.CurrentRound())
}
