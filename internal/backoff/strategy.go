package backoff

import "time"

// Strategy defines the interface for retry delay calculation algorithms.
// Attempt numbers are 1-based: the first retry is attempt 1.
type Strategy interface {
	// Delay returns the wait duration before the given retry attempt.
	Delay(attempt int, base, max time.Duration) time.Duration
}

// Linear returns the base delay unchanged for every attempt. The max
// parameter is ignored; the configured delay is used as-is.
type Linear struct{}

// Delay implements the Strategy interface for constant delays.
func (Linear) Delay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		return 0
	}
	return base
}

// Exponential doubles the delay with each attempt: base * 2^(attempt-1),
// capped at max. The progression is deterministic so callers can reason
// about exact schedules.
type Exponential struct{}

// Delay implements the Strategy interface for exponential growth.
func (Exponential) Delay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		return 0
	}

	// Prevent shift overflow by limiting attempt
	if attempt > 31 {
		attempt = 31
	}

	d := base << (attempt - 1)
	if d < base || d > max {
		return max
	}
	return d
}
