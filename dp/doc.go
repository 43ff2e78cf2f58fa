// Package dp implements the differential-privacy side of the fedshard
// pipeline: personalized privacy-budget allocation and Gaussian noise
// injection.
//
// Budgets are immutable values produced once per round by Allocate; callers
// hold and pass them rather than mutating shared state, so a new round
// replaces the mapping wholesale by constructing a new Budget.
package dp
