package callapi

import (
	"context"
	"time"
)

// Transport dispatches a prepared request and produces a response. The client
// wraps the configured transport with middlewares but never changes this
// contract, so any function with this shape can back a client: net/http,
// a message broker, or an in-memory fake in tests.
type Transport func(ctx context.Context, req *Request) (*Response, error)

// Middleware wraps a transport. Middlewares compose so that the last
// registered one becomes the outermost wrapper and sees the request first.
type Middleware func(next Transport) Transport

// Option is a client construction option.
type Option func(*Client)

// DedupeStrategy controls what happens when a call's dedupe key collides with
// an in-flight call in the same scope.
type DedupeStrategy string

const (
	// DedupeStrategyCancel aborts the in-flight call and lets the new one proceed.
	DedupeStrategyCancel DedupeStrategy = "cancel"
	// DedupeStrategyDefer shares the in-flight call's result with the new caller.
	DedupeStrategyDefer DedupeStrategy = "defer"
	// DedupeStrategyNone disables deduplication.
	DedupeStrategyNone DedupeStrategy = "none"
)

// DedupeScope selects the namespace in which dedupe keys collide.
type DedupeScope string

const (
	// DedupeScopeLocal confines deduplication to a single client.
	DedupeScopeLocal DedupeScope = "local"
	// DedupeScopeGlobal shares a named scope across all clients using the same registry.
	DedupeScopeGlobal DedupeScope = "global"
)

// RetryStrategy selects the delay progression between retry attempts.
type RetryStrategy string

const (
	RetryStrategyLinear      RetryStrategy = "linear"
	RetryStrategyExponential RetryStrategy = "exponential"
)

// HooksExecutionMode controls how multiple handlers for one lifecycle event run.
type HooksExecutionMode string

const (
	// HooksExecutionModeParallel runs an event's handlers concurrently and
	// waits for all of them.
	HooksExecutionModeParallel HooksExecutionMode = "parallel"
	// HooksExecutionModeSequential runs handlers in registration order,
	// stopping at the first error.
	HooksExecutionModeSequential HooksExecutionMode = "sequential"
)

// HooksRegistrationOrder controls whether plugin handlers run before or after
// handlers registered on the client and the call.
type HooksRegistrationOrder string

const (
	HooksRegistrationOrderPluginsFirst HooksRegistrationOrder = "pluginsFirst"
	HooksRegistrationOrderMainFirst    HooksRegistrationOrder = "mainFirst"
)

// ResultMode selects which subset of {Data, Err, Response} a call returns.
type ResultMode string

const (
	// ResultModeAll returns data, error and response.
	ResultModeAll ResultMode = "all"
	// ResultModeOnlySuccess returns data and response on success and an empty
	// result on failure; the error channel is dropped.
	ResultModeOnlySuccess ResultMode = "onlySuccess"
	// ResultModeOnlyData returns only the parsed data.
	ResultModeOnlyData ResultMode = "onlyData"
)

// ResponseType selects how a drained response body is decoded into data.
type ResponseType string

const (
	// ResponseTypeAuto decodes JSON when the body parses as JSON and falls
	// back to the body text otherwise.
	ResponseTypeAuto ResponseType = "auto"
	ResponseTypeJSON ResponseType = "json"
	ResponseTypeText ResponseType = "text"
	// ResponseTypeBytes returns the raw body bytes without decoding.
	ResponseTypeBytes ResponseType = "bytes"
)

// RetryCondition decides whether a failed attempt qualifies for a retry.
type RetryCondition func(ctx *ErrorContext) bool

// RetryDelayFunc overrides the computed delay before a retry attempt.
// Attempt numbers are 1-based.
type RetryDelayFunc func(attempt int) time.Duration

// DedupeKeyFunc derives the identity key for an outgoing call. Returning an
// empty string disables deduplication for that call.
type DedupeKeyFunc func(rc *RequestContext) string

// BodySerializer converts a call body value into wire bytes and a content type.
type BodySerializer func(body any) (data []byte, contentType string, err error)

// ResponseParser overrides response body decoding for both success data and
// error payloads.
type ResponseParser func(body []byte) (any, error)

// ThrowPredicate decides per error whether the error branch is raised instead
// of returned inside the result.
type ThrowPredicate func(err *CallError) bool
