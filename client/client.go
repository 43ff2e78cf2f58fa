// Package client implements the client role of the fedshard pipeline.
//
// Each round a client takes its raw model update, perturbs it with Gaussian
// noise calibrated to its personalized epsilon, quantizes the noisy update
// into the share field, and splits it into n signed shares plus one
// aggregate commitment. Share i is destined for server i; the commitment is
// delivered to every server alongside its share. No server ever sees the
// plaintext update.
package client

import (
	"errors"
	"fmt"

	"github.com/privfl/fedshard/crypto"
	"github.com/privfl/fedshard/dp"
	"github.com/privfl/fedshard/protocol"
)

// Client prepares per-round sharing events for one federated participant.
type Client struct {
	config     *protocol.RoundConfig
	signingKey crypto.PrivateKey
	publicKey  crypto.PublicKey
	id         string
}

// New creates a client with a fresh signing identity.
func New(config *protocol.RoundConfig) (*Client, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	pub, priv, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generating client keys: %w", err)
	}

	return &Client{
		config:     config,
		signingKey: priv,
		publicKey:  pub,
		id:         pub.ClientID(),
	}, nil
}

// ID returns the client's stable identifier, derived from its public key.
// Budget sensitivities and round results are keyed by this id.
func (c *Client) ID() string {
	return c.id
}

// PublicKey returns the client's signing public key.
func (c *Client) PublicKey() crypto.PublicKey {
	return c.publicKey
}

// RoundSubmission is the output of one sharing event: n signed share
// messages (Messages[i] is destined for server i+1) and the sigma the noise
// was calibrated to, exposed for telemetry.
type RoundSubmission struct {
	RoundNumber int
	Sigma       float64
	Commitment  crypto.Commitment
	Messages    []*protocol.Signed[protocol.ShareMessage]
}

// PrepareRound perturbs, quantizes and splits the update for the given
// round. The injector must be bound to the round's budget; a client whose
// epsilon was never allocated fails with dp.ErrUnassignedBudget.
func (c *Client) PrepareRound(round int, update []float64, injector *dp.Injector) (*RoundSubmission, error) {
	if len(update) != c.config.Dimension {
		return nil, fmt.Errorf("%w: update has %d components, round dimension is %d",
			crypto.ErrInvalidInput, len(update), c.config.Dimension)
	}

	noisy, sigma, err := injector.Inject(update, c.id)
	if err != nil {
		return nil, err
	}

	secret := crypto.Quantize(noisy, c.config.Scale, c.config.FieldOrder)
	shares, commitment, err := crypto.SplitVector(secret, c.config.T, c.config.N, c.config.FieldOrder, c.config.Group)
	if err != nil {
		return nil, err
	}

	messages := make([]*protocol.Signed[protocol.ShareMessage], len(shares))
	for i, share := range shares {
		signed, err := protocol.NewSigned(c.signingKey, &protocol.ShareMessage{
			RoundNumber: round,
			ClientID:    c.id,
			Share:       share,
			Commitment:  commitment,
		})
		if err != nil {
			return nil, fmt.Errorf("signing share for server %d: %w", share.ServerID, err)
		}
		messages[i] = signed
	}

	return &RoundSubmission{
		RoundNumber: round,
		Sigma:       sigma,
		Commitment:  commitment,
		Messages:    messages,
	}, nil
}
