// Package server implements the share-holder role of the fedshard
// pipeline.
//
// A share server receives one signed share per (round, client) sharing
// event, verifies it against the published commitment before accepting it,
// and serves stored shares back to the aggregator during reconstruction.
// Verification is stateless and independent per server; a server that
// rejects a share simply never contributes it to a quorum.
package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/privfl/fedshard/crypto"
	"github.com/privfl/fedshard/protocol"
)

// ErrShareRejected indicates a received share failed commitment
// verification and was discarded. This is the server acting on a false
// verification outcome, not a fault in the verifier.
var ErrShareRejected = errors.New("share failed verification")

// Server holds verified shares for its server id, keyed by round and
// client. Shares are immutable once stored.
type Server struct {
	config *protocol.RoundConfig
	id     int

	mu     sync.RWMutex
	rounds map[int]map[string]*protocol.ShareMessage
}

// New creates a share server for evaluation point id in [1, n].
func New(config *protocol.RoundConfig, id int) (*Server, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if id < 1 || id > config.N {
		return nil, fmt.Errorf("%w: server id %d out of range [1, %d]", crypto.ErrInvalidInput, id, config.N)
	}

	return &Server{
		config: config,
		id:     id,
		rounds: make(map[int]map[string]*protocol.ShareMessage),
	}, nil
}

// ID returns the server's evaluation point.
func (s *Server) ID() int {
	return s.id
}

// ReceiveShare verifies and stores a share destined for this server.
// Shares addressed to a different server id, malformed commitments,
// duplicates, and shares that fail verification are all rejected.
func (s *Server) ReceiveShare(msg *protocol.ShareMessage) error {
	if msg.Share.ServerID != s.id {
		return fmt.Errorf("%w: share for server %d delivered to server %d",
			crypto.ErrInvalidInput, msg.Share.ServerID, s.id)
	}
	if len(msg.Share.Values) != s.config.Dimension {
		return fmt.Errorf("%w: share has %d components, round dimension is %d",
			crypto.ErrInvalidInput, len(msg.Share.Values), s.config.Dimension)
	}

	ok, err := crypto.VerifyShare(msg.Share, msg.Commitment, s.config.T, s.config.FieldOrder, s.config.Group)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: round %d client %s", ErrShareRejected, msg.RoundNumber, msg.ClientID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clients, exists := s.rounds[msg.RoundNumber]
	if !exists {
		clients = make(map[string]*protocol.ShareMessage)
		s.rounds[msg.RoundNumber] = clients
	}
	if _, exists := clients[msg.ClientID]; exists {
		return fmt.Errorf("duplicate share from client %s in round %d", msg.ClientID, msg.RoundNumber)
	}
	clients[msg.ClientID] = msg

	return nil
}

// ShareFor returns the stored share for a (round, client), if any.
func (s *Server) ShareFor(round int, clientID string) (*protocol.ShareMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.rounds[round][clientID]
	return msg, ok
}

// ClientsFor lists the clients this server holds shares for in a round.
func (s *Server) ClientsFor(round int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]string, 0, len(s.rounds[round]))
	for id := range s.rounds[round] {
		clients = append(clients, id)
	}
	return clients
}

// DropRoundsBefore discards shares of rounds older than the given round.
func (s *Server) DropRoundsBefore(round int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for r := range s.rounds {
		if r < round {
			delete(s.rounds, r)
		}
	}
}
