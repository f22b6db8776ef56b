// Package callapi provides a configurable client-side request orchestrator:
//
//   - Option merging: per-call options layer over client defaults, left to right
//   - Plugins bundling hooks, middlewares and route schemas under one identity
//   - Ten lifecycle hook events with parallel or sequential execution
//   - Middleware chain around a pluggable transport
//   - Request deduplication (cancel, defer or none) with local and global scopes
//   - Retries with linear or exponential backoff that re-enter the full pipeline
//   - Route schema validation for request fields and response payloads
//   - Result shaping (all / onlySuccess / onlyData) and opt-in error throwing
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area: functional options configure everything
//   - Every failure classified as exactly one of HTTP, Validation or Request
//   - Safe concurrent use of a single *Client instance
//   - Extensibility via user supplied transports, middleware, plugins and schemas
//
// Typical usage:
//
//	client := callapi.New(
//	    callapi.WithBaseURL("https://api.example.com"),
//	    callapi.WithRetryAttempts(3),
//	    callapi.WithRetryStrategy(callapi.RetryStrategyExponential),
//	    callapi.WithDedupeStrategy(callapi.DedupeStrategyDefer),
//	)
//	res, err := client.Get(ctx, "/users/:id", &callapi.CallOptions{
//	    Params: map[string]any{"id": 42},
//	})
//
// Calls report failures in the result by default; enable WithThrowOnError to
// surface them as Go errors instead. The library avoids opinionated logging:
// provide a Logger (e.g. via WithSimpleLogger) and enable debug flags
// selectively (WithDebug / WithDebugConfig) for insight without noise.
package callapi
