package callapi

import (
	"context"
	"strings"
	"time"

	"github.com/zayne-labs/callapi-go/internal/backoff"
)

// shouldRetry decides whether a failed attempt qualifies for another try and
// returns the delay to wait before it. Every condition must pass: attempts
// remain, the call was not canceled, the method and status code are
// allow-listed when lists are configured, and the caller's condition (when
// set) approves the error context.
func shouldRetry(ctx context.Context, ec *ErrorContext) (time.Duration, bool) {
	o := ec.Options
	next := ec.Attempt + 1

	if o.RetryAttempts <= 0 || next > o.RetryAttempts {
		return 0, false
	}
	if ctx.Err() != nil {
		return 0, false
	}
	if !retryMethodAllowed(o.RetryMethods, ec.Request.Method) {
		return 0, false
	}
	// The status gate only applies when a response exists; transport errors
	// have no status and always pass this axis.
	if len(o.RetryStatusCodes) > 0 && ec.Response != nil {
		if !containsInt(o.RetryStatusCodes, ec.Response.StatusCode) {
			return 0, false
		}
	}
	if o.RetryCondition != nil && !o.RetryCondition(ec) {
		return 0, false
	}

	return retryDelay(o, next), true
}

// retryDelay computes the backoff before the given 1-based retry attempt.
func retryDelay(o *CallOptions, attempt int) time.Duration {
	if o.RetryDelayFunc != nil {
		return o.RetryDelayFunc(attempt)
	}
	return backoffCalculator(o).Delay(attempt)
}

// backoffCalculator binds the call's retry settings to a delay calculator.
// Unknown strategy names fall back to the constant schedule.
func backoffCalculator(o *CallOptions) *backoff.Calculator {
	strategy, ok := backoff.ForName(string(o.RetryStrategy))
	if !ok {
		strategy = backoff.Linear{}
	}
	return backoff.NewCalculator(strategy, o.RetryDelay, o.RetryMaxDelay)
}

func retryMethodAllowed(allowed []string, method string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, m := range allowed {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, n := range list {
		if n == v {
			return true
		}
	}
	return false
}

// sleepContext waits for d or until ctx ends, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}
