package protocol

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// RoundPhase splits a round into its two stages.
type RoundPhase int

const (
	// SharePhase: clients distribute shares and commitments to servers.
	SharePhase RoundPhase = iota
	// ReconstructPhase: the aggregator collects quorums and reconstructs.
	ReconstructPhase
)

const phasesPerRound = 2

// Round identifies a protocol round and its current phase.
type Round struct {
	Number int
	Phase  RoundPhase
}

func (r Round) IsAfter(r2 Round) bool {
	return r.Number > r2.Number || (r.Number == r2.Number && r.Phase > r2.Phase)
}

func (r Round) Advance() Round {
	if r.Phase == ReconstructPhase {
		return Round{r.Number + 1, SharePhase}
	}
	return Round{r.Number, r.Phase + 1}
}

// RoundCoordinator manages protocol round transitions.
type RoundCoordinator interface {
	// CurrentRound returns the current protocol round.
	CurrentRound() Round

	// SubscribeToRounds receives round transition notifications.
	SubscribeToRounds(ctx context.Context) <-chan Round

	// Start begins round progression.
	Start(ctx context.Context)

	// AdvanceToRound manually advances to a specific round (for testing).
	AdvanceToRound(round Round)
}

type subscriber struct {
	ctx context.Context
	ch  chan Round
}

// LocalRoundCoordinator advances rounds on a wall-clock schedule shared by
// all participants: each phase owns half of the round duration.
type LocalRoundCoordinator struct {
	mu            sync.RWMutex
	currentRound  Round
	roundDuration time.Duration
	subscribers   []subscriber
	started       *atomic.Bool
}

// NewLocalRoundCoordinator creates a time-based round coordinator.
func NewLocalRoundCoordinator(roundDuration time.Duration) *LocalRoundCoordinator {
	return &LocalRoundCoordinator{
		currentRound:  Round{0, SharePhase},
		roundDuration: roundDuration,
		subscribers:   make([]subscriber, 0),
		started:       atomic.NewBool(false),
	}
}

// CurrentRound returns the current protocol round.
func (c *LocalRoundCoordinator) CurrentRound() Round {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentRound
}

// SubscribeToRounds receives round transition notifications.
func (c *LocalRoundCoordinator) SubscribeToRounds(ctx context.Context) <-chan Round {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Round, 10)
	c.subscribers = append(c.subscribers, subscriber{ctx, ch})

	// Send current round immediately. Captured under the lock so the send
	// does not race with advanceRound.
	current := c.currentRound
	go func() {
		ch <- current
	}()

	return ch
}

// RoundForTime returns the round in effect at the given instant.
func RoundForTime(instant time.Time, roundDuration time.Duration) Round {
	nTicks := instant.UnixMilli() / (roundDuration.Milliseconds() / phasesPerRound)
	return Round{int(nTicks / phasesPerRound), RoundPhase(nTicks % phasesPerRound)}
}

// TimeForRound returns the instant the given round begins.
func TimeForRound(round Round, roundDuration time.Duration) time.Time {
	startTime := time.Unix(0, 0)
	return startTime.Add(time.Duration(round.Number) * roundDuration).
		Add(time.Duration(round.Phase) * roundDuration / phasesPerRound)
}

// Start begins round progression.
func (c *LocalRoundCoordinator) Start(ctx context.Context) {
	if c.started.Swap(true) {
		return
	}

	c.mu.Lock()
	c.currentRound = RoundForTime(time.Now(), c.roundDuration)
	c.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Until(TimeForRound(c.CurrentRound().Advance(), c.roundDuration))):
				c.advanceRound()
			}
		}
	}()
}

// AdvanceToRound manually advances to a specific round.
// Only used in tests.
func (c *LocalRoundCoordinator) AdvanceToRound(round Round) {
	for round.IsAfter(c.CurrentRound()) {
		c.advanceRound()
	}
}

// advanceRound moves to the next round and notifies subscribers.
func (c *LocalRoundCoordinator) advanceRound() {
	c.mu.Lock()
	c.currentRound = c.currentRound.Advance()
	newRound := c.currentRound

	toRemove := []int{}
	for i, sub := range c.subscribers {
		select {
		case <-sub.ctx.Done():
			close(sub.ch)
			toRemove = append(toRemove, i)
		case sub.ch <- newRound:
		default:
			// Skip if channel is full
		}
	}

	slices.Reverse(toRemove)
	for _, i := range toRemove {
		c.subscribers = slices.Delete(c.subscribers, i, i+1)
	}

	c.mu.Unlock()
}
