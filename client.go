package callapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client orchestrates calls: it merges per-call options over its defaults,
// runs plugins and lifecycle hooks, validates against route schemas,
// deduplicates concurrent identical calls, dispatches through the middleware
// chain and retries qualifying failures. A Client is safe for concurrent use.
type Client struct {
	defaults CallOptions
	plugins  []*Plugin
	schemas  RouteSchemas

	localDedupe    *dedupeScope
	dedupeRegistry *DedupeRegistry

	metrics *MetricsCollector
	debug   *DebugConfig
	logger  Logger

	validationError error
	envError        error
}

// New constructs a Client using the provided functional options. The
// configuration is validated eagerly; an invalid configuration is reported by
// every subsequent call rather than by New itself.
func New(opts ...Option) *Client {
	c := &Client{
		localDedupe:    newDedupeScope(),
		dedupeRegistry: globalDedupeRegistry,
	}
	c.defaults.Transport = HTTPTransport(&http.Client{Timeout: 30 * time.Second})

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	c.validationError = c.ValidateConfiguration()
	return c
}

// callState carries what must survive retry re-entries of the pipeline: the
// stable request identity, the dedupe record the initial attempt acquired and
// the context dispatch runs under.
type callState struct {
	route     string
	overrides []*CallOptions
	requestID string
	start     time.Time
	attempt   int

	dedupe      *dedupeRecord
	dedupeScope *dedupeScope
	dispatchCtx context.Context
}

// Call performs a request for route with the per-call options layered over
// the client defaults, left to right. The result carries data, error and
// response according to the effective result mode; the error return is
// non-nil only for configuration failures, fatal plugin failures, or when
// throw-on-error is in effect.
func (c *Client) Call(ctx context.Context, route string, opts ...*CallOptions) (*CallResult, error) {
	if c.validationError != nil {
		return nil, c.validationError
	}

	st := &callState{
		route:       route,
		overrides:   opts,
		requestID:   c.newRequestID(),
		start:       time.Now(),
		dispatchCtx: ctx,
	}
	return c.do(ctx, st)
}

// Get performs a GET call.
func (c *Client) Get(ctx context.Context, route string, opts ...*CallOptions) (*CallResult, error) {
	return c.Call(ctx, route, append(opts, &CallOptions{Method: http.MethodGet})...)
}

// Post performs a POST call.
func (c *Client) Post(ctx context.Context, route string, opts ...*CallOptions) (*CallResult, error) {
	return c.Call(ctx, route, append(opts, &CallOptions{Method: http.MethodPost})...)
}

// Put performs a PUT call.
func (c *Client) Put(ctx context.Context, route string, opts ...*CallOptions) (*CallResult, error) {
	return c.Call(ctx, route, append(opts, &CallOptions{Method: http.MethodPut})...)
}

// Patch performs a PATCH call.
func (c *Client) Patch(ctx context.Context, route string, opts ...*CallOptions) (*CallResult, error) {
	return c.Call(ctx, route, append(opts, &CallOptions{Method: http.MethodPatch})...)
}

// Delete performs a DELETE call.
func (c *Client) Delete(ctx context.Context, route string, opts ...*CallOptions) (*CallResult, error) {
	return c.Call(ctx, route, append(opts, &CallOptions{Method: http.MethodDelete})...)
}

// Metrics returns the client's metrics collector, or nil when metrics are
// disabled.
func (c *Client) Metrics() *MetricsCollector {
	return c.metrics
}

// InFlight reports the number of deduplicated calls currently in flight in
// the client's local scope.
func (c *Client) InFlight() int {
	return c.localDedupe.size()
}

// do runs one attempt of the pipeline end to end. Retries re-enter it with
// the attempt counter advanced, so every attempt re-merges options, re-runs
// plugins and hooks and revalidates before dispatch.
func (c *Client) do(ctx context.Context, st *callState) (*CallResult, error) {
	o := resolveCallOptions(&c.defaults, st.overrides)

	method, target := resolveMethod(st.route, o.Method)
	header := o.Headers
	if header == nil {
		header = make(http.Header)
	}

	rc := &RequestContext{
		Route:       st.route,
		Target:      target,
		Attempt:     st.attempt,
		RequestID:   st.requestID,
		BaseOptions: &c.defaults,
		Options:     o,
		Request: &Request{
			Method: method,
			Header: header,
		},
	}

	// Plugins run in registration order. Their failures are fatal: the call
	// is rejected before dispatch and never becomes an error result.
	for _, p := range c.plugins {
		if p == nil {
			continue
		}
		if p.DefineExtraOptions != nil {
			out, err := p.DefineExtraOptions.Validate(ctx, o.Meta)
			if err != nil {
				cerr := c.newError(st, rc, ErrorTypeValidation, fmt.Sprintf("plugin %q rejected call options", p.ID), err)
				cerr.Field = "meta"
				cerr.Issues = issuesFromError(err)
				c.reportValidationFailure("meta", st.route, cerr.Issues)
				return nil, c.fatal(st, cerr)
			}
			if m, ok := out.(map[string]any); ok {
				o.Meta = m
			}
		}
		if p.Setup != nil {
			if err := p.Setup(ctx, rc); err != nil {
				cerr := c.newError(st, rc, ErrorTypeRequest, fmt.Sprintf("plugin %q setup failed", p.ID), err)
				return nil, c.fatal(st, cerr)
			}
		}
	}

	pluginHooks, pluginMWs, pluginSchemas := pluginSurfaces(c.plugins)
	hooks := composeHooks(pluginHooks, o.Hooks, o.HooksExecutionMode, o.HooksRegistrationOrder)
	schemas := mergeSchemaTables(pluginSchemas, c.schemas)
	transport := chainMiddlewares(o.Transport, append(pluginMWs, o.Middlewares...))

	if err := hooks.fireRequest(ctx, rc); err != nil {
		c.reportHookFailure("onRequest", err)
		cerr := c.newError(st, rc, ErrorTypeRequest, "onRequest hook failed", err)
		return c.resolveFailure(ctx, st, rc, hooks, cerr, nil)
	}

	schema, issues := resolveRouteSchema(ctx, schemas, o.SchemaConfig, rc)
	if len(issues) > 0 {
		c.reportValidationFailure("route", st.route, issues)
		cerr := c.newError(st, rc, ErrorTypeValidation, "route schema lookup failed", nil)
		cerr.Field = "route"
		cerr.Issues = issues
		return c.resolveFailure(ctx, st, rc, hooks, cerr, nil)
	}
	if schema != nil {
		if cerr := c.validateRequestSide(ctx, st, rc, schema); cerr != nil {
			return c.resolveFailure(ctx, st, rc, hooks, cerr, nil)
		}
	}

	built := buildURL(o.BaseURL, rc.Target, o.Params, o.Query)
	rc.Target = built
	rc.Request.URL = built

	if o.Body != nil {
		raw, contentType, err := serializeBody(o.Body, o.BodySerializer)
		if err != nil {
			cerr := c.newError(st, rc, ErrorTypeRequest, "failed to serialize request body", err)
			return c.resolveFailure(ctx, st, rc, hooks, cerr, nil)
		}
		rc.Request.Body = raw
		if contentType != "" && rc.Request.Header.Get("Content-Type") == "" {
			rc.Request.Header.Set("Content-Type", contentType)
		}
	}

	if err := applyAuth(rc.Request.Header, o.Auth); err != nil {
		cerr := c.newError(st, rc, ErrorTypeRequest, "failed to resolve auth credential", err)
		return c.resolveFailure(ctx, st, rc, hooks, cerr, nil)
	}

	if st.attempt == 0 {
		c.metrics.RecordCallStart(rc.Request.Method, st.route)
		defer c.metrics.RecordCallEnd(rc.Request.Method, st.route)

		if c.debugEnabled() && c.debug.LogRequests {
			c.logger.Debug("request starting",
				"requestId", st.requestID,
				"method", rc.Request.Method,
				"url", rc.Request.URL,
				"route", st.route,
			)
		}
	}

	// Dedupe admission happens once per call; retries keep the record the
	// initial attempt acquired.
	if st.attempt == 0 && o.DedupeStrategy != DedupeStrategyNone {
		if key := resolveDedupeKey(rc); key != "" {
			scope := c.dedupeScopeFor(o)
			rec, owner, displaced := scope.acquire(ctx, key, o.DedupeStrategy)
			if displaced {
				c.metrics.RecordDedupeCancel(rc.Request.Method, st.route)
				if c.debugEnabled() && c.debug.LogDedupe {
					c.logger.Debug("displaced in-flight duplicate", "requestId", st.requestID, "key", key)
				}
			}
			if !owner {
				c.metrics.RecordDedupeJoin(rc.Request.Method, st.route)
				if c.debugEnabled() && c.debug.LogDedupe {
					c.logger.Debug("joining in-flight duplicate", "requestId", st.requestID, "key", key)
				}
				res, err := rec.Wait(ctx)
				if err != nil {
					cerr := c.newError(st, rc, ErrorTypeRequest, "request canceled", err)
					return c.finish(st, rc, &CallResult{Err: cerr})
				}
				return c.finish(st, rc, res)
			}
			st.dedupe = rec
			st.dedupeScope = scope
			st.dispatchCtx = rec.ctx
		}
	}

	dispatchCtx := st.dispatchCtx
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		dispatchCtx, cancel = context.WithTimeout(dispatchCtx, o.Timeout)
		defer cancel()
	}

	installUploadObserver(dispatchCtx, hooks, rc)

	resp, err := transport(dispatchCtx, rc.Request)
	if err != nil {
		cerr := c.classifyTransportError(dispatchCtx, st, rc, err)
		return c.resolveFailure(ctx, st, rc, hooks, cerr, nil)
	}

	if err := drainResponse(dispatchCtx, hooks, rc, resp); err != nil {
		cerr := c.newError(st, rc, ErrorTypeRequest, "failed to read response body", err)
		cerr.Response = resp
		return c.resolveFailure(ctx, st, rc, hooks, cerr, resp)
	}

	if resp.OK() {
		return c.resolveSuccess(ctx, st, rc, hooks, schema, resp)
	}
	return c.resolveHTTPError(ctx, st, rc, hooks, schema, resp)
}

// validateRequestSide runs the request-facing field validators and writes
// their transformed outputs back onto the call. All fields are checked so the
// error reports every finding, not just the first.
func (c *Client) validateRequestSide(ctx context.Context, st *callState, rc *RequestContext, schema *RouteSchema) *CallError {
	o := rc.Options
	cfg := o.SchemaConfig
	var issues []Issue
	firstField := ""

	check := func(field SchemaFields, v Validator, value any, apply func(out any) bool) {
		if v == nil {
			return
		}
		name := schemaFieldName(field)
		out, fieldIssues := runValidator(ctx, cfg, field, v, value)
		if len(fieldIssues) > 0 {
			if firstField == "" {
				firstField = name
			}
			issues = append(issues, prefixIssues(name, fieldIssues)...)
			return
		}
		if apply != nil && !apply(out) {
			if firstField == "" {
				firstField = name
			}
			issues = append(issues, Issue{Message: "schema output has wrong type", Path: []string{name}})
		}
	}

	check(SchemaFieldMethod, schema.Method, rc.Request.Method, func(out any) bool {
		s, ok := out.(string)
		if ok {
			rc.Request.Method = strings.ToUpper(s)
		}
		return ok
	})
	check(SchemaFieldHeaders, schema.Headers, rc.Request.Header, func(out any) bool {
		if out == nil {
			return true
		}
		h, ok := out.(http.Header)
		if ok {
			rc.Request.Header = h
		}
		return ok
	})
	check(SchemaFieldParams, schema.Params, o.Params, func(out any) bool {
		if out == nil {
			o.Params = nil
			return true
		}
		m, ok := out.(map[string]any)
		if ok {
			o.Params = m
		}
		return ok
	})
	check(SchemaFieldQuery, schema.Query, o.Query, func(out any) bool {
		if out == nil {
			o.Query = nil
			return true
		}
		q, ok := out.(url.Values)
		if ok {
			o.Query = q
		}
		return ok
	})
	check(SchemaFieldMeta, schema.Meta, o.Meta, func(out any) bool {
		if out == nil {
			o.Meta = nil
			return true
		}
		m, ok := out.(map[string]any)
		if ok {
			o.Meta = m
		}
		return ok
	})
	check(SchemaFieldAuth, schema.Auth, o.Auth, func(out any) bool {
		if out == nil {
			o.Auth = nil
			return true
		}
		a, ok := out.(Auth)
		if ok {
			o.Auth = a
		}
		return ok
	})
	check(SchemaFieldBody, schema.Body, o.Body, func(out any) bool {
		o.Body = out
		return true
	})

	if len(issues) == 0 {
		return nil
	}

	c.reportValidationFailure(firstField, rc.Route, issues)
	cerr := c.newError(st, rc, ErrorTypeValidation, "request failed validation", nil)
	cerr.Field = firstField
	cerr.Issues = issues
	return cerr
}

// resolveSuccess finishes a 2xx attempt: parse the body, validate the data,
// fire response and success hooks.
func (c *Client) resolveSuccess(ctx context.Context, st *callState, rc *RequestContext, hooks *hookChain, schema *RouteSchema, resp *Response) (*CallResult, error) {
	o := rc.Options

	data, err := parseResponseData(resp, o.ResponseType, o.ResponseParser)
	if err != nil {
		cerr := c.newError(st, rc, ErrorTypeRequest, "failed to parse response body", err)
		cerr.Response = resp
		return c.resolveFailure(ctx, st, rc, hooks, cerr, resp)
	}

	if schema != nil && schema.Data != nil {
		out, issues := runValidator(ctx, o.SchemaConfig, SchemaFieldData, schema.Data, data)
		if len(issues) > 0 {
			c.reportValidationFailure("data", rc.Route, issues)
			cerr := c.newError(st, rc, ErrorTypeValidation, "response data failed validation", nil)
			cerr.Field = "data"
			cerr.Issues = issues
			cerr.Response = resp
			return c.resolveFailure(ctx, st, rc, hooks, cerr, resp)
		}
		data = out
	}

	resCtx := &ResponseContext{RequestContext: rc, Response: resp, Data: data}
	if err := hooks.fireResponse(ctx, resCtx); err != nil {
		c.reportHookFailure("onResponse", err)
		cerr := c.newError(st, rc, ErrorTypeRequest, "onResponse hook failed", err)
		cerr.Response = resp
		return c.resolveFailure(ctx, st, rc, hooks, cerr, resp)
	}
	if err := hooks.fireSuccess(ctx, resCtx); err != nil {
		c.reportHookFailure("onSuccess", err)
		cerr := c.newError(st, rc, ErrorTypeRequest, "onSuccess hook failed", err)
		cerr.Response = resp
		return c.resolveFailure(ctx, st, rc, hooks, cerr, resp)
	}

	return c.finish(st, rc, &CallResult{Data: data, Response: resp})
}

// resolveHTTPError turns a non-2xx response into an HTTP error result: parse
// the error payload, validate it, fire the response hook, then route through
// the failure path.
func (c *Client) resolveHTTPError(ctx context.Context, st *callState, rc *RequestContext, hooks *hookChain, schema *RouteSchema, resp *Response) (*CallResult, error) {
	o := rc.Options

	errData := parseErrorBody(resp, o.ResponseType, o.ResponseParser)

	if schema != nil && schema.ErrorData != nil {
		out, issues := runValidator(ctx, o.SchemaConfig, SchemaFieldErrorData, schema.ErrorData, errData)
		if len(issues) > 0 {
			c.reportValidationFailure("errorData", rc.Route, issues)
			cerr := c.newError(st, rc, ErrorTypeValidation, "error payload failed validation", nil)
			cerr.Field = "errorData"
			cerr.Issues = issues
			cerr.StatusCode = resp.StatusCode
			cerr.Response = resp
			return c.resolveFailure(ctx, st, rc, hooks, cerr, resp)
		}
		errData = out
	}

	cerr := c.newError(st, rc, ErrorTypeHTTP, errorMessageFrom(errData, o.DefaultErrorMessage), nil)
	cerr.StatusCode = resp.StatusCode
	cerr.ErrorData = errData
	cerr.Response = resp

	resCtx := &ResponseContext{RequestContext: rc, Response: resp, Data: errData}
	if hookErr := hooks.fireResponse(ctx, resCtx); hookErr != nil {
		c.reportHookFailure("onResponse", hookErr)
		hcerr := c.newError(st, rc, ErrorTypeRequest, "onResponse hook failed", hookErr)
		hcerr.Response = resp
		return c.resolveFailure(ctx, st, rc, hooks, hcerr, resp)
	}

	return c.resolveFailure(ctx, st, rc, hooks, cerr, resp)
}

// resolveFailure routes a classified failure through its error hooks, decides
// whether a retry runs, and otherwise finishes the call with an error result.
func (c *Client) resolveFailure(ctx context.Context, st *callState, rc *RequestContext, hooks *hookChain, cerr *CallError, resp *Response) (*CallResult, error) {
	ec := &ErrorContext{RequestContext: rc, Err: cerr, Response: resp}
	c.fireErrorHooks(ctx, hooks, ec)

	if delay, ok := shouldRetry(st.dispatchCtx, ec); ok {
		next := st.attempt + 1
		retryCtx := &RetryContext{RequestContext: rc, Attempt: next, Err: cerr, Response: resp}
		if err := hooks.fireRetry(ctx, retryCtx); err != nil {
			c.reportHookFailure("onRetry", err)
			hcerr := c.newError(st, rc, ErrorTypeRequest, "onRetry hook failed", err)
			return c.finish(st, rc, &CallResult{Err: hcerr, Response: resp})
		}

		c.metrics.RecordRetry(rc.Request.Method, rc.Route, next)
		if c.debugEnabled() && c.debug.LogRetries {
			c.logger.Debug("retry scheduled",
				"requestId", st.requestID,
				"attempt", next,
				"maxAttempts", rc.Options.RetryAttempts,
				"delay", delay,
				"error", cerr.Message,
			)
		}

		if err := sleepContext(st.dispatchCtx, delay); err != nil {
			hcerr := c.newError(st, rc, ErrorTypeRequest, "request canceled", err)
			return c.finish(st, rc, &CallResult{Err: hcerr, Response: resp})
		}

		st.attempt = next
		return c.do(ctx, st)
	}

	return c.finish(st, rc, &CallResult{Err: cerr, Response: resp})
}

// fireErrorHooks dispatches the specific error event then the catch-all.
// Failures here are logged and counted, never escalated, so the error path
// cannot recurse into itself.
func (c *Client) fireErrorHooks(ctx context.Context, hooks *hookChain, ec *ErrorContext) {
	var event string
	var err error
	switch {
	case ec.Err.Type == ErrorTypeValidation:
		event, err = "onValidationError", hooks.fireValidationError(ctx, ec)
	case ec.Err.Type == ErrorTypeHTTP:
		event, err = "onResponseError", hooks.fireResponseError(ctx, ec)
	case ec.Response != nil:
		event, err = "onResponseError", hooks.fireResponseError(ctx, ec)
	default:
		event, err = "onRequestError", hooks.fireRequestError(ctx, ec)
	}
	if err != nil {
		c.reportHookFailure(event, err)
	}
	if err := hooks.fireError(ctx, ec); err != nil {
		c.reportHookFailure("onError", err)
	}
}

// finish settles the dedupe record, records outcome metrics and shapes the
// result per the effective result and throw settings. Every attempt path
// ends here exactly once.
func (c *Client) finish(st *callState, rc *RequestContext, res *CallResult) (*CallResult, error) {
	o := rc.Options

	if res.Err != nil && res.Err.Duration == 0 {
		res.Err.Duration = time.Since(st.start)
	}

	c.settleOwned(st, res)

	status := 0
	if res.Response != nil {
		status = res.Response.StatusCode
	}
	c.metrics.RecordCall(rc.Request.Method, rc.Route, status, time.Since(st.start))
	if res.Err != nil {
		c.metrics.RecordError(res.Err.Type, rc.Request.Method, rc.Route)
	}

	if res.Err != nil && shouldThrow(o, res.Err) {
		return nil, res.Err
	}
	return applyResultMode(o.ResultMode, res), nil
}

// fatal rejects the call before dispatch. A record owned from an earlier
// attempt is settled so deferred waiters are released. The duration is
// stamped before the settle publishes the error; waiters treat a stamped
// error as final and never write to it.
func (c *Client) fatal(st *callState, cerr *CallError) error {
	cerr.Duration = time.Since(st.start)
	c.settleOwned(st, &CallResult{Err: cerr})
	return cerr
}

func (c *Client) settleOwned(st *callState, res *CallResult) {
	if st.dedupe != nil && st.dedupeScope != nil {
		st.dedupeScope.settle(st.dedupe, res)
		st.dedupe = nil
	}
}

// classifyTransportError maps a transport failure onto a message that
// distinguishes timeouts, cancellations and dedupe displacement from plain
// network failures.
func (c *Client) classifyTransportError(ctx context.Context, st *callState, rc *RequestContext, err error) *CallError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return c.newError(st, rc, ErrorTypeRequest, "request timed out", err)
	case errors.Is(err, context.Canceled), errors.Is(err, ErrDeduplicated):
		cause := context.Cause(ctx)
		if cause == nil {
			cause = err
		}
		if errors.Is(cause, ErrDeduplicated) {
			return c.newError(st, rc, ErrorTypeRequest, "request canceled: superseded by a duplicate call", cause)
		}
		return c.newError(st, rc, ErrorTypeRequest, "request canceled", cause)
	default:
		return c.newError(st, rc, ErrorTypeRequest, "request failed", err)
	}
}

// newError builds a CallError stamped with the call's identity and timing.
func (c *Client) newError(st *callState, rc *RequestContext, kind, message string, cause error) *CallError {
	return &CallError{
		Type:       kind,
		Message:    message,
		Cause:      cause,
		RequestID:  st.requestID,
		Method:     rc.Request.Method,
		URL:        rc.Request.URL,
		Route:      rc.Route,
		Attempt:    st.attempt,
		MaxRetries: rc.Options.RetryAttempts,
		Timestamp:  time.Now(),
	}
}

// dedupeScopeFor picks the key namespace for a call: the client-local scope,
// or a named scope in the registry when the call opted into global scope.
func (c *Client) dedupeScopeFor(o *CallOptions) *dedupeScope {
	if o.DedupeScope == DedupeScopeGlobal {
		return c.dedupeRegistry.scope(o.DedupeScopeKey)
	}
	return c.localDedupe
}

// resolveMethod applies method precedence: the explicit option, then a method
// marker in the route, then GET.
func resolveMethod(route, explicit string) (method, target string) {
	marked, path := parseRoute(route)
	method = explicit
	if method == "" {
		method = marked
	}
	if method == "" {
		method = http.MethodGet
	}
	return strings.ToUpper(method), path
}

func shouldThrow(o *CallOptions, err *CallError) bool {
	if o.ThrowOnError {
		return true
	}
	return o.ThrowOnErrorIf != nil && o.ThrowOnErrorIf(err)
}

func prefixIssues(field string, issues []Issue) []Issue {
	out := make([]Issue, len(issues))
	for i, issue := range issues {
		out[i] = Issue{Message: issue.Message, Path: append([]string{field}, issue.Path...)}
	}
	return out
}

func (c *Client) newRequestID() string {
	if c.debug != nil && c.debug.RequestIDGen != nil {
		return c.debug.RequestIDGen()
	}
	return uuid.NewString()
}

func (c *Client) debugEnabled() bool {
	return c.debug != nil && c.debug.Enabled && c.logger != nil
}

func (c *Client) reportHookFailure(event string, err error) {
	c.metrics.RecordHookFailure(event)
	if c.debugEnabled() && c.debug.LogHooks {
		c.logger.Warn("hook failed", "event", event, "error", err)
	}
}

func (c *Client) reportValidationFailure(field, route string, issues []Issue) {
	c.metrics.RecordValidationFailure(field, route)
	if c.debugEnabled() && c.debug.LogValidation {
		c.logger.Warn("validation failed", "field", field, "route", route, "issues", len(issues))
	}
}
