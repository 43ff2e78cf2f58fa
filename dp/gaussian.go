package dp

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sigma returns the Gaussian-mechanism standard deviation for the given
// privacy parameters, assuming L2 sensitivity 1:
//
//	sigma = sqrt(2 * ln(1.25/delta)) / epsilon
//
// Extension point: a real deployment should pass the model's actual L2
// sensitivity instead of the unit constant baked in here.
func Sigma(epsilon, delta float64) float64 {
	return math.Sqrt(2*math.Log(1.25/delta)) / epsilon
}

// Injector applies the Gaussian mechanism to client update vectors using
// the epsilons of a per-round Budget. Safe for use from a single goroutine;
// the underlying sample source is not synchronized.
type Injector struct {
	budget *Budget
	src    rand.Source
}

// NewInjector creates an injector bound to the given round budget, seeded
// from crypto/rand.
func NewInjector(budget *Budget) *Injector {
	var seed [8]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic(fmt.Sprintf("reading sampler seed: %v", err))
	}
	return &Injector{
		budget: budget,
		src:    rand.NewSource(binary.LittleEndian.Uint64(seed[:])),
	}
}

// NewInjectorWithSeed creates a deterministically seeded injector.
// Only used in tests.
func NewInjectorWithSeed(budget *Budget, seed uint64) *Injector {
	return &Injector{budget: budget, src: rand.NewSource(seed)}
}

// Inject adds independent N(0, sigma^2) noise to every component of the
// update and returns the noisy vector along with the sigma it was
// calibrated to, for telemetry. The input is not modified; the output has
// the same dimension.
//
// Fails with ErrUnassignedBudget when the budget holds no epsilon for the
// client.
func (inj *Injector) Inject(update []float64, clientID string) ([]float64, float64, error) {
	epsilon, ok := inj.budget.Epsilon(clientID)
	if !ok {
		return nil, 0, fmt.Errorf("%w: client %s", ErrUnassignedBudget, clientID)
	}

	sigma := Sigma(epsilon, inj.budget.Delta())
	dist := distuv.Normal{Mu: 0, Sigma: sigma, Src: inj.src}

	noisy := make([]float64, len(update))
	for i, v := range update {
		noisy[i] = v + dist.Rand()
	}
	return noisy, sigma, nil
}
