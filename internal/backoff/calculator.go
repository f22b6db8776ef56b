package backoff

import "time"

// Calculator binds a strategy to fixed base/max parameters so call sites can
// compute delays from an attempt number alone.
type Calculator struct {
	strategy Strategy
	base     time.Duration
	max      time.Duration
}

// NewCalculator creates a calculator with the given strategy and bounds.
func NewCalculator(strategy Strategy, base, max time.Duration) *Calculator {
	return &Calculator{
		strategy: strategy,
		base:     base,
		max:      max,
	}
}

// Delay computes the wait duration before the given 1-based retry attempt.
func (c *Calculator) Delay(attempt int) time.Duration {
	return c.strategy.Delay(attempt, c.base, c.max)
}

// Strategy returns the strategy backing this calculator.
func (c *Calculator) Strategy() Strategy {
	return c.strategy
}

// ForName returns the strategy registered under the given name.
func ForName(name string) (Strategy, bool) {
	switch name {
	case "linear":
		return Linear{}, true
	case "exponential":
		return Exponential{}, true
	default:
		return nil, false
	}
}
