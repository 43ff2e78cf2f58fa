// Package aggregator implements the reconstruction role of the fedshard
// pipeline.
//
// The aggregator never holds enough information on its own to read an
// update: it solicits shares from the n share servers and needs t verified
// shares from distinct servers before Lagrange interpolation recovers the
// field-encoded noisy update, which it dequantizes for the external
// federated-averaging step. Collection is quorum-based and deadline-bound;
// a round that cannot reach quorum for a client fails that client with
// protocol.ErrQuorumTimeout and returns no partial vector.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/privfl/fedshard/crypto"
	"github.com/privfl/fedshard/protocol"
)

// ShareSource fetches one server's share of a (round, client) sharing
// event. Implementations wrap a transport (HTTP in services) or a local
// server instance in tests.
type ShareSource interface {
	FetchShare(ctx context.Context, round int, clientID string, serverID int) (*protocol.ShareMessage, error)
}

// Aggregator collects share quorums and reconstructs client updates.
type Aggregator struct {
	config *protocol.RoundConfig

	mu      sync.RWMutex
	sources map[int]ShareSource
	results map[int]*protocol.RoundResult
}

// New creates an aggregator for the given round parameters.
func New(config *protocol.RoundConfig) (*Aggregator, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Aggregator{
		config:  config,
		sources: make(map[int]ShareSource),
		results: make(map[int]*protocol.RoundResult),
	}, nil
}

// RegisterServer wires the share source for server id in [1, n].
// Re-registration replaces the previous source (server restart).
func (a *Aggregator) RegisterServer(id int, source ShareSource) error {
	if id < 1 || id > a.config.N {
		return fmt.Errorf("%w: server id %d out of range [1, %d]", crypto.ErrInvalidInput, id, a.config.N)
	}
	if source == nil {
		return fmt.Errorf("%w: nil share source", crypto.ErrInvalidInput)
	}

	a.mu.Lock()
	a.sources[id] = source
	a.mu.Unlock()
	return nil
}

// ReconstructClient collects shares for one client from all registered
// servers concurrently and reconstructs as soon as t verified shares from
// distinct servers have arrived. Unverifiable or foreign shares are
// discarded without failing the collection. If ctx carries no deadline the
// config's QuorumDeadline applies.
func (a *Aggregator) ReconstructClient(ctx context.Context, round int, clientID string) ([]float64, error) {
	a.mu.RLock()
	sources := make(map[int]ShareSource, len(a.sources))
	for id, src := range a.sources {
		sources[id] = src
	}
	a.mu.RUnlock()

	if len(sources) < a.config.T {
		return nil, fmt.Errorf("%w: only %d servers registered, need %d",
			crypto.ErrInsufficientShares, len(sources), a.config.T)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.QuorumDeadline)
		defer cancel()
	}

	shareCh := make(chan crypto.Share, len(sources))
	for id, src := range sources {
		go func(id int, src ShareSource) {
			msg, err := src.FetchShare(ctx, round, clientID, id)
			if err != nil {
				return
			}
			if msg.Share.ServerID != id || msg.ClientID != clientID || msg.RoundNumber != round {
				return
			}
			ok, err := crypto.VerifyShare(msg.Share, msg.Commitment, a.config.T, a.config.FieldOrder, a.config.Group)
			if err != nil || !ok {
				return
			}
			select {
			case shareCh <- msg.Share:
			case <-ctx.Done():
			}
		}(id, src)
	}

	collected := make(map[int]crypto.Share, a.config.T)
	for len(collected) < a.config.T {
		select {
		case share := <-shareCh:
			collected[share.ServerID] = share
		case <-ctx.Done():
			// An externally cancelled collection is a shutdown, not a
			// quorum timeout; callers retry only on the latter.
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, fmt.Errorf("share collection for client %s cancelled: %w", clientID, ctx.Err())
			}
			return nil, fmt.Errorf("%w: %d of %d shares for client %s",
				protocol.ErrQuorumTimeout, len(collected), a.config.T, clientID)
		}
	}

	quorum := make([]crypto.Share, 0, len(collected))
	for _, share := range collected {
		quorum = append(quorum, share)
	}

	secret, err := crypto.Reconstruct(quorum, a.config.T, a.config.FieldOrder)
	if err != nil {
		return nil, err
	}

	return crypto.Dequantize(secret, a.config.Scale, a.config.FieldOrder), nil
}

// RoundTelemetry carries the per-client observability values reported for
// a round: the allocated epsilon map, the sigma each injection used, and
// optional aggregation weights. The aggregator forwards them without
// interpreting.
type RoundTelemetry struct {
	Epsilons map[string]float64 `json:"epsilons,omitempty"`
	Sigmas   map[string]float64 `json:"sigmas,omitempty"`
	Weights  map[string]float64 `json:"weights,omitempty"`
}

// ReconstructRound recovers every listed client's update and stores the
// result. Reconstruction is all-or-nothing per client; a client that fails
// fails the whole round call so the orchestration layer can retry with more
// servers or a longer deadline.
func (a *Aggregator) ReconstructRound(ctx context.Context, round int, clientIDs []string, telemetry *RoundTelemetry) (*protocol.RoundResult, error) {
	result := &protocol.RoundResult{
		RoundNumber: round,
		Updates:     make(map[string][]float64, len(clientIDs)),
	}
	if telemetry != nil {
		result.Epsilons = telemetry.Epsilons
		result.Sigmas = telemetry.Sigmas
		result.Weights = telemetry.Weights
	}

	for _, clientID := range clientIDs {
		update, err := a.ReconstructClient(ctx, round, clientID)
		if err != nil {
			return nil, fmt.Errorf("reconstructing client %s: %w", clientID, err)
		}
		result.Updates[clientID] = update
	}

	a.mu.Lock()
	a.results[round] = result
	a.mu.Unlock()

	return result, nil
}

// Result returns the stored result of a round, if any.
func (a *Aggregator) Result(round int) (*protocol.RoundResult, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result, ok := a.results[round]
	return result, ok
}

// LatestRound returns the highest round number with a stored result.
func (a *Aggregator) LatestRound() (int, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	latest, found := 0, false
	for round := range a.results {
		if !found || round > latest {
			latest, found = round, true
		}
	}
	return latest, found
}
