package testutil

import (
	"time"

	"github.com/privfl/fedshard/crypto"
	"github.com/privfl/fedshard/dp"
	"github.com/privfl/fedshard/protocol"
)

// RoundConfig returns a round config over the small 31-bit test field with
// a short quorum deadline. Keeps the big.Int arithmetic in tests fast.
func RoundConfig(t, n, dimension int) *protocol.RoundConfig {
	cfg := protocol.DefaultRoundConfig(t, n, dimension)
	cfg.FieldOrder = crypto.TestFieldOrder
	cfg.Group = crypto.TestGroup()
	cfg.QuorumDeadline = 2 * time.Second
	return cfg
}

// SoloInjector allocates the full base budget to the given client and
// returns a deterministic injector bound to it.
func SoloInjector(cfg *protocol.RoundConfig, clientID string, seed uint64) (*dp.Injector, error) {
	budget, err := dp.Allocate(map[string]float64{clientID: 1}, cfg.EpsilonBase, cfg.Delta)
	if err != nil {
		return nil, err
	}
	return dp.NewInjectorWithSeed(budget, seed), nil
}

// DyadicUpdate returns a dimension-length update whose components are
// exactly representable at the default quantization scale, so noiseless
// share-and-reconstruct round trips compare equal.
func DyadicUpdate(dimension int) []float64 {
	update := make([]float64, dimension)
	for i := range update {
		update[i] = float64(i) - float64(dimension)/2 + 0.25
	}
	return update
}
