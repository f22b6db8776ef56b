package callapi

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Hook signatures for the call lifecycle.
type (
	RequestHook  func(ctx context.Context, rc *RequestContext) error
	ResponseHook func(ctx context.Context, rc *ResponseContext) error
	ErrorHook    func(ctx context.Context, rc *ErrorContext) error
	RetryHook    func(ctx context.Context, rc *RetryContext) error
	StreamHook   func(ctx context.Context, rc *StreamContext) error
)

// Hooks groups handlers for the call lifecycle. Any field may be nil. A
// client, a call and each plugin can contribute one Hooks set; all sets
// registered for an event are flattened into a single ordered chain per call.
type Hooks struct {
	// OnRequest fires after options are merged and plugins have run, before
	// validation and dispatch. Handlers may mutate the request context.
	OnRequest RequestHook
	// OnRequestError fires when a call fails before a response is received.
	OnRequestError ErrorHook
	// OnRequestStream fires per chunk while the request body is uploaded.
	OnRequestStream StreamHook
	// OnResponse fires for every received response, success or error.
	OnResponse ResponseHook
	// OnResponseError fires for non-2xx responses and response read failures.
	OnResponseError ErrorHook
	// OnResponseStream fires per chunk while the response body is drained.
	OnResponseStream StreamHook
	// OnRetry fires before each retry attempt's backoff delay.
	OnRetry RetryHook
	// OnSuccess fires after a 2xx response passed validation.
	OnSuccess ResponseHook
	// OnValidationError fires for schema failures on either side of the wire.
	OnValidationError ErrorHook
	// OnError is the catch-all; it fires after any specific error event.
	OnError ErrorHook
}

// hookChain is the flattened, ordered handler set for one call. Exactly one
// chain exists per attempt; it is rebuilt when a retry re-enters the pipeline
// so composition always reflects the current options.
type hookChain struct {
	mode HooksExecutionMode

	onRequest         []RequestHook
	onRequestError    []ErrorHook
	onRequestStream   []StreamHook
	onResponse        []ResponseHook
	onResponseError   []ErrorHook
	onResponseStream  []StreamHook
	onRetry           []RetryHook
	onSuccess         []ResponseHook
	onValidationError []ErrorHook
	onError           []ErrorHook
}

// composeHooks flattens plugin and main (client-then-call) hook sets into
// per-event handler chains. The registration order setting decides whether
// plugin handlers run before or after the main ones; within each group,
// registration order is preserved.
func composeHooks(plugin, main []Hooks, mode HooksExecutionMode, order HooksRegistrationOrder) *hookChain {
	ordered := make([]Hooks, 0, len(plugin)+len(main))
	if order == HooksRegistrationOrderMainFirst {
		ordered = append(append(ordered, main...), plugin...)
	} else {
		ordered = append(append(ordered, plugin...), main...)
	}

	hc := &hookChain{mode: mode}
	for _, h := range ordered {
		if h.OnRequest != nil {
			hc.onRequest = append(hc.onRequest, h.OnRequest)
		}
		if h.OnRequestError != nil {
			hc.onRequestError = append(hc.onRequestError, h.OnRequestError)
		}
		if h.OnRequestStream != nil {
			hc.onRequestStream = append(hc.onRequestStream, h.OnRequestStream)
		}
		if h.OnResponse != nil {
			hc.onResponse = append(hc.onResponse, h.OnResponse)
		}
		if h.OnResponseError != nil {
			hc.onResponseError = append(hc.onResponseError, h.OnResponseError)
		}
		if h.OnResponseStream != nil {
			hc.onResponseStream = append(hc.onResponseStream, h.OnResponseStream)
		}
		if h.OnRetry != nil {
			hc.onRetry = append(hc.onRetry, h.OnRetry)
		}
		if h.OnSuccess != nil {
			hc.onSuccess = append(hc.onSuccess, h.OnSuccess)
		}
		if h.OnValidationError != nil {
			hc.onValidationError = append(hc.onValidationError, h.OnValidationError)
		}
		if h.OnError != nil {
			hc.onError = append(hc.onError, h.OnError)
		}
	}
	return hc
}

func (hc *hookChain) hasRequestStream() bool  { return len(hc.onRequestStream) > 0 }
func (hc *hookChain) hasResponseStream() bool { return len(hc.onResponseStream) > 0 }

func (hc *hookChain) fireRequest(ctx context.Context, rc *RequestContext) error {
	return hc.run(ctx, bindHooks(hc.onRequest, rc))
}

func (hc *hookChain) fireRequestError(ctx context.Context, ec *ErrorContext) error {
	return hc.run(ctx, bindHooks(hc.onRequestError, ec))
}

func (hc *hookChain) fireRequestStream(ctx context.Context, sc *StreamContext) error {
	return hc.run(ctx, bindHooks(hc.onRequestStream, sc))
}

func (hc *hookChain) fireResponse(ctx context.Context, rc *ResponseContext) error {
	return hc.run(ctx, bindHooks(hc.onResponse, rc))
}

func (hc *hookChain) fireResponseError(ctx context.Context, ec *ErrorContext) error {
	return hc.run(ctx, bindHooks(hc.onResponseError, ec))
}

func (hc *hookChain) fireResponseStream(ctx context.Context, sc *StreamContext) error {
	return hc.run(ctx, bindHooks(hc.onResponseStream, sc))
}

func (hc *hookChain) fireRetry(ctx context.Context, rc *RetryContext) error {
	return hc.run(ctx, bindHooks(hc.onRetry, rc))
}

func (hc *hookChain) fireSuccess(ctx context.Context, rc *ResponseContext) error {
	return hc.run(ctx, bindHooks(hc.onSuccess, rc))
}

func (hc *hookChain) fireValidationError(ctx context.Context, ec *ErrorContext) error {
	return hc.run(ctx, bindHooks(hc.onValidationError, ec))
}

func (hc *hookChain) fireError(ctx context.Context, ec *ErrorContext) error {
	return hc.run(ctx, bindHooks(hc.onError, ec))
}

// run executes the bound handlers in the configured mode. Sequential mode
// stops at the first error; parallel mode runs every handler to completion
// under the caller's context and reports the first error observed. A failing
// handler never interrupts its siblings.
func (hc *hookChain) run(ctx context.Context, fns []func(context.Context) error) error {
	switch len(fns) {
	case 0:
		return nil
	case 1:
		return fns[0](ctx)
	}

	if hc.mode == HooksExecutionModeSequential {
		for _, fn := range fns {
			if err := fn(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	for _, fn := range fns {
		fn := fn
		g.Go(func() error {
			return fn(ctx)
		})
	}
	return g.Wait()
}

// bindHooks fixes the event payload into each handler so the runner only
// deals in uniform closures.
func bindHooks[F ~func(context.Context, T) error, T any](hooks []F, arg T) []func(context.Context) error {
	if len(hooks) == 0 {
		return nil
	}
	bound := make([]func(context.Context) error, len(hooks))
	for i, h := range hooks {
		h := h
		bound[i] = func(ctx context.Context) error {
			return h(ctx, arg)
		}
	}
	return bound
}
