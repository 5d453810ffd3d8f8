package core

import "fmt"

// MaxDecisionsPerTurn is the hard ceiling on model round trips within one
// ProcessInput call. It is not configurable.
const MaxDecisionsPerTurn = 5

// DecisionLimiter counts model decisions within a single turn. A limiter
// belongs to one turn and is not safe for concurrent use.
type DecisionLimiter struct {
	max   int
	count int
}

// NewDecisionLimiter creates a limiter allowing max decisions. A non-positive
// max falls back to MaxDecisionsPerTurn.
func NewDecisionLimiter(max int) *DecisionLimiter {
	if max <= 0 {
		max = MaxDecisionsPerTurn
	}
	return &DecisionLimiter{max: max}
}

// Increment records one decision and returns an error once the limit is exceeded.
func (dl *DecisionLimiter) Increment() error {
	if dl.count >= dl.max {
		return fmt.Errorf("exceeded max decisions per turn: %d", dl.max)
	}
	dl.count++
	return nil
}

// Count returns the number of decisions recorded so far.
func (dl *DecisionLimiter) Count() int { return dl.count }

// Remaining returns how many decisions are left.
func (dl *DecisionLimiter) Remaining() int { return dl.max - dl.count }
