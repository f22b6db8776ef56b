package callapi

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zayne-labs/callapi-go/internal/backoff"
)

func TestRetryDispatchCount(t *testing.T) {
	var calls int32
	client := New(
		WithTransport(func(ctx context.Context, req *Request) (*Response, error) {
			atomic.AddInt32(&calls, 1)
			return jsonResponse(500, `{"message":"upstream down"}`), nil
		}),
		WithRetryAttempts(2),
		WithRetryDelay(time.Millisecond),
	)

	res, err := client.Get(context.Background(), "/flaky")
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("Expected 3 dispatches for 2 retries, got %d", n)
	}
	if res.Err == nil || res.Err.Type != ErrorTypeHTTP {
		t.Errorf("Expected HTTP error after exhausting retries, got %v", res.Err)
	}
	if res.Err.Attempt != 2 {
		t.Errorf("Expected final error from attempt 2, got %d", res.Err.Attempt)
	}
}

func TestRetryEventSequence(t *testing.T) {
	var attempts []int
	client := New(
		WithTransport(func(ctx context.Context, req *Request) (*Response, error) {
			return jsonResponse(503, `{}`), nil
		}),
		WithRetryAttempts(3),
		WithRetryDelay(time.Millisecond),
		WithHooks(Hooks{
			OnRetry: func(ctx context.Context, rc *RetryContext) error {
				attempts = append(attempts, rc.Attempt)
				if rc.Err == nil {
					t.Error("Retry context should carry the triggering error")
				}
				return nil
			},
		}),
	)

	client.Get(context.Background(), "/flaky")

	if len(attempts) != 3 {
		t.Fatalf("Expected 3 retry events, got %d", len(attempts))
	}
	for i, a := range attempts {
		if a != i+1 {
			t.Errorf("Expected retry attempt %d at position %d, got %d", i+1, i, a)
		}
	}
}

func TestRetrySucceedsMidway(t *testing.T) {
	var calls int32
	client := New(
		WithTransport(func(ctx context.Context, req *Request) (*Response, error) {
			if atomic.AddInt32(&calls, 1) < 3 {
				return nil, errors.New("connection reset")
			}
			return jsonResponse(200, `{"ok":true}`), nil
		}),
		WithRetryAttempts(5),
		WithRetryDelay(time.Millisecond),
	)

	res, err := client.Get(context.Background(), "/eventually")
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if res.Err != nil {
		t.Fatalf("Expected recovery, got %v", res.Err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("Expected retries to stop at first success, got %d dispatches", n)
	}
}

func TestPerCallRetryOverride(t *testing.T) {
	var calls int32
	client := New(
		WithTransport(func(ctx context.Context, req *Request) (*Response, error) {
			atomic.AddInt32(&calls, 1)
			return jsonResponse(500, `{}`), nil
		}),
		WithRetryAttempts(3),
		WithRetryDelay(time.Millisecond),
	)

	// A negative per-call value disables retries entirely.
	client.Get(context.Background(), "/once", &CallOptions{RetryAttempts: -1})
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected retries disabled per call, got %d dispatches", n)
	}
}

func TestShouldRetryGates(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		attempt int
		method  string
		options *CallOptions
		resp    *Response
		want    bool
	}{
		{
			name:    "attempts remain",
			ctx:     context.Background(),
			method:  "POST",
			options: &CallOptions{RetryAttempts: 2, RetryDelay: time.Second},
			want:    true,
		},
		{
			name:    "attempts exhausted",
			ctx:     context.Background(),
			attempt: 2,
			method:  "POST",
			options: &CallOptions{RetryAttempts: 2},
			want:    false,
		},
		{
			name:    "retries disabled",
			ctx:     context.Background(),
			method:  "POST",
			options: &CallOptions{RetryAttempts: -1},
			want:    false,
		},
		{
			name:    "context canceled",
			ctx:     canceled,
			method:  "POST",
			options: &CallOptions{RetryAttempts: 2},
			want:    false,
		},
		{
			name:    "method not allow-listed",
			ctx:     context.Background(),
			method:  "DELETE",
			options: &CallOptions{RetryAttempts: 2, RetryMethods: []string{"GET"}},
			want:    false,
		},
		{
			name:    "method allow-listed case-insensitively",
			ctx:     context.Background(),
			method:  "POST",
			options: &CallOptions{RetryAttempts: 2, RetryMethods: []string{"post"}},
			want:    true,
		},
		{
			name:    "status code allow-listed",
			ctx:     context.Background(),
			method:  "POST",
			options: &CallOptions{RetryAttempts: 2, RetryStatusCodes: []int{500, 503}},
			resp:    &Response{StatusCode: 503},
			want:    true,
		},
		{
			name:    "status code not allow-listed",
			ctx:     context.Background(),
			method:  "POST",
			options: &CallOptions{RetryAttempts: 2, RetryStatusCodes: []int{500}},
			resp:    &Response{StatusCode: 404},
			want:    false,
		},
		{
			name:    "transport error passes status gate",
			ctx:     context.Background(),
			method:  "POST",
			options: &CallOptions{RetryAttempts: 2, RetryStatusCodes: []int{500}},
			resp:    nil,
			want:    true,
		},
		{
			name:   "condition rejects",
			ctx:    context.Background(),
			method: "POST",
			options: &CallOptions{
				RetryAttempts:  2,
				RetryCondition: func(ec *ErrorContext) bool { return false },
			},
			want: false,
		},
		{
			name:   "condition approves",
			ctx:    context.Background(),
			method: "POST",
			options: &CallOptions{
				RetryAttempts:  2,
				RetryCondition: func(ec *ErrorContext) bool { return ec.Err.Type == ErrorTypeRequest },
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := &ErrorContext{
				RequestContext: &RequestContext{
					Attempt: tt.attempt,
					Options: tt.options,
					Request: &Request{Method: tt.method},
				},
				Err:      &CallError{Type: ErrorTypeRequest},
				Response: tt.resp,
			}
			_, got := shouldRetry(tt.ctx, ec)
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRetryDelayLinear(t *testing.T) {
	o := &CallOptions{
		RetryStrategy: RetryStrategyLinear,
		RetryDelay:    100 * time.Millisecond,
		RetryMaxDelay: time.Second,
	}

	for attempt := 1; attempt <= 4; attempt++ {
		if d := retryDelay(o, attempt); d != 100*time.Millisecond {
			t.Errorf("Attempt %d: expected 100ms, got %v", attempt, d)
		}
	}
}

func TestRetryDelayExponential(t *testing.T) {
	o := &CallOptions{
		RetryStrategy: RetryStrategyExponential,
		RetryDelay:    100 * time.Millisecond,
		RetryMaxDelay: time.Second,
	}

	expected := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	for i, want := range expected {
		if d := retryDelay(o, i+1); d != want {
			t.Errorf("Attempt %d: expected %v, got %v", i+1, want, d)
		}
	}
}

func TestRetryDelayFuncOverride(t *testing.T) {
	o := &CallOptions{
		RetryStrategy:  RetryStrategyExponential,
		RetryDelay:     time.Hour,
		RetryMaxDelay:  time.Hour,
		RetryDelayFunc: func(attempt int) time.Duration { return time.Duration(attempt) * time.Millisecond },
	}

	if d := retryDelay(o, 3); d != 3*time.Millisecond {
		t.Errorf("Expected delay function to win, got %v", d)
	}
}

func TestBackoffCalculatorBindsOptions(t *testing.T) {
	calc := backoffCalculator(&CallOptions{
		RetryStrategy: RetryStrategyExponential,
		RetryDelay:    100 * time.Millisecond,
		RetryMaxDelay: 300 * time.Millisecond,
	})

	if _, ok := calc.Strategy().(backoff.Exponential); !ok {
		t.Errorf("Expected an exponential strategy, got %T", calc.Strategy())
	}
	if d := calc.Delay(2); d != 200*time.Millisecond {
		t.Errorf("Expected 200ms for attempt 2, got %v", d)
	}
	if d := calc.Delay(4); d != 300*time.Millisecond {
		t.Errorf("Expected the max cap, got %v", d)
	}

	fallback := backoffCalculator(&CallOptions{RetryStrategy: "unknown", RetryDelay: time.Second})
	if _, ok := fallback.Strategy().(backoff.Linear); !ok {
		t.Errorf("Expected unknown strategies to fall back to linear, got %T", fallback.Strategy())
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Errorf("Zero delay should return immediately: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected cancellation to interrupt sleep, got %v", err)
	}

	start := time.Now()
	if err := sleepContext(context.Background(), 5*time.Millisecond); err != nil {
		t.Errorf("Sleep failed: %v", err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Error("Sleep returned before the delay elapsed")
	}
}

func TestRetryStatusCodeGateEndToEnd(t *testing.T) {
	var calls int32
	client := New(
		WithTransport(func(ctx context.Context, req *Request) (*Response, error) {
			atomic.AddInt32(&calls, 1)
			return jsonResponse(404, `{}`), nil
		}),
		WithRetryAttempts(3),
		WithRetryDelay(time.Millisecond),
		WithRetryStatusCodes(500, 502, 503),
	)

	client.Get(context.Background(), "/missing")
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected 404 not to qualify for retry, got %d dispatches", n)
	}
}

func TestRetryStatusCodeGateIgnoresTransportErrors(t *testing.T) {
	var calls int32
	client := New(
		WithTransport(func(ctx context.Context, req *Request) (*Response, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return nil, errors.New("connection reset")
			}
			return jsonResponse(200, `{}`), nil
		}),
		WithRetryAttempts(2),
		WithRetryDelay(time.Millisecond),
		WithRetryStatusCodes(500, 502, 503),
	)

	res, err := client.Get(context.Background(), "/reset")
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if res.Err != nil {
		t.Fatalf("Expected recovery after the transport error, got %v", res.Err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("Expected the transport error to retry under a status allow-list, got %d dispatches", n)
	}
}

func BenchmarkRetryDelayExponential(b *testing.B) {
	o := &CallOptions{
		RetryStrategy: RetryStrategyExponential,
		RetryDelay:    time.Millisecond,
		RetryMaxDelay: time.Second,
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		retryDelay(o, i%10+1)
	}
}
