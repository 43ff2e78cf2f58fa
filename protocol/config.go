package protocol

import (
	"fmt"
	"math/big"
	"time"

	"github.com/privfl/fedshard/crypto"
)

// RoundConfig is the shared parameter set of one federated round. Every
// participant (clients, share servers, aggregator) must hold an identical
// config; it is distributed by the orchestrating caller out of band.
type RoundConfig struct {
	// T is the reconstruction threshold: any T of N servers recover an
	// update, fewer learn nothing beyond the commitment.
	T int `json:"t"`

	// N is the number of share servers.
	N int `json:"n"`

	// FieldOrder is the prime p all sharing arithmetic is reduced by.
	FieldOrder *big.Int `json:"field_order"`

	// Group is the externally provisioned commitment group of order p.
	Group *crypto.CommitmentGroup `json:"group"`

	// EpsilonBase and Delta are the round's privacy parameters.
	EpsilonBase float64 `json:"epsilon_base"`
	Delta       float64 `json:"delta"`

	// Scale is the fixed-point quantization factor applied before sharing.
	Scale int64 `json:"scale"`

	// Dimension is the model-update length shared by all clients.
	Dimension int `json:"dimension"`

	// RoundDuration is the wall-clock length of one protocol round.
	RoundDuration time.Duration `json:"round_duration,string"`

	// QuorumDeadline bounds how long the aggregator waits for t valid
	// shares before failing the client's reconstruction for the round.
	QuorumDeadline time.Duration `json:"quorum_deadline,string"`
}

// DefaultRoundConfig returns a config over the default 127-bit field with
// moderate privacy parameters.
func DefaultRoundConfig(t, n, dimension int) *RoundConfig {
	return &RoundConfig{
		T:              t,
		N:              n,
		FieldOrder:     crypto.DefaultFieldOrder,
		Group:          crypto.DefaultGroup(),
		EpsilonBase:    1.0,
		Delta:          1e-5,
		Scale:          crypto.DefaultScale,
		Dimension:      dimension,
		RoundDuration:  10 * time.Second,
		QuorumDeadline: 3 * time.Second,
	}
}

// Validate checks the config for internal consistency.
func (c *RoundConfig) Validate() error {
	if c.T < 2 || c.T > c.N {
		return fmt.Errorf("%w: threshold %d out of range for %d servers", crypto.ErrInvalidInput, c.T, c.N)
	}
	if !crypto.ValidFieldOrder(c.FieldOrder) {
		return fmt.Errorf("%w: field order is not prime", crypto.ErrInvalidInput)
	}
	if err := c.Group.Validate(c.FieldOrder); err != nil {
		return err
	}
	if c.EpsilonBase <= 0 {
		return fmt.Errorf("%w: epsilon base %v", crypto.ErrInvalidInput, c.EpsilonBase)
	}
	if c.Delta <= 0 || c.Delta >= 1 {
		return fmt.Errorf("%w: delta %v", crypto.ErrInvalidInput, c.Delta)
	}
	if c.Scale < 1 {
		return fmt.Errorf("%w: scale %d", crypto.ErrInvalidInput, c.Scale)
	}
	if c.Dimension < 1 {
		return fmt.Errorf("%w: dimension %d", crypto.ErrInvalidInput, c.Dimension)
	}
	return nil
}
