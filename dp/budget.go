package dp

import (
	"errors"
	"fmt"
)

// Errors returned by the dp package. Callers match with errors.Is.
var (
	// ErrInvalidInput covers degenerate allocation parameters: an empty
	// sensitivity set, a zero or negative maximum sensitivity, or
	// out-of-range epsilon/delta.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnassignedBudget indicates noise was requested for a client the
	// budget holds no epsilon for.
	ErrUnassignedBudget = errors.New("unassigned privacy budget")
)

// Budget holds the personalized epsilon mapping of one round. It is
// immutable after Allocate; recomputation produces a fresh Budget rather
// than mutating an existing one, so concurrent readers never observe a
// half-replaced mapping.
type Budget struct {
	epsilonBase float64
	delta       float64
	epsilons    map[string]float64
}

// Allocate computes per-client epsilons proportional to sensitivity:
//
//	epsilon_i = epsilonBase * sensitivity_i / max_j sensitivity_j
//
// so the most sensitive client receives the full epsilonBase and every
// other client a strictly smaller (stronger) budget. Pure function of its
// inputs.
func Allocate(sensitivities map[string]float64, epsilonBase, delta float64) (*Budget, error) {
	if epsilonBase <= 0 {
		return nil, fmt.Errorf("%w: epsilon base %v", ErrInvalidInput, epsilonBase)
	}
	if delta <= 0 || delta >= 1 {
		return nil, fmt.Errorf("%w: delta %v", ErrInvalidInput, delta)
	}
	if len(sensitivities) == 0 {
		return nil, fmt.Errorf("%w: empty sensitivity set", ErrInvalidInput)
	}

	max := 0.0
	for id, s := range sensitivities {
		if s < 0 {
			return nil, fmt.Errorf("%w: negative sensitivity for client %s", ErrInvalidInput, id)
		}
		if s > max {
			max = s
		}
	}
	if max == 0 {
		return nil, fmt.Errorf("%w: maximum sensitivity is zero", ErrInvalidInput)
	}

	// Zero-sensitivity clients stay unassigned: an epsilon of zero would
	// violate the 0 < epsilon <= epsilonBase invariant and calibrate an
	// infinite sigma. They fail later with ErrUnassignedBudget.
	epsilons := make(map[string]float64, len(sensitivities))
	for id, s := range sensitivities {
		if s == 0 {
			continue
		}
		epsilons[id] = epsilonBase * s / max
	}

	return &Budget{
		epsilonBase: epsilonBase,
		delta:       delta,
		epsilons:    epsilons,
	}, nil
}

// EpsilonBase returns the global epsilon ceiling of this budget.
func (b *Budget) EpsilonBase() float64 {
	return b.epsilonBase
}

// Delta returns the failure-probability bound of this budget.
func (b *Budget) Delta() float64 {
	return b.delta
}

// Epsilon returns the epsilon assigned to the given client.
func (b *Budget) Epsilon(clientID string) (float64, bool) {
	eps, ok := b.epsilons[clientID]
	return eps, ok
}

// Epsilons returns a copy of the full epsilon map, for telemetry and
// reporting collaborators.
func (b *Budget) Epsilons() map[string]float64 {
	out := make(map[string]float64, len(b.epsilons))
	for id, eps := range b.epsilons {
		out[id] = eps
	}
	return out
}
