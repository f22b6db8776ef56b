package callapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Masterminds/semver/v3"
)

// WithBaseURL sets the base URL joined with relative call targets
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.defaults.BaseURL = u
	}
}

// WithTransport sets the transport backing all calls
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.defaults.Transport = t
	}
}

// WithHTTPClient sets a custom HTTP client as the transport
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.defaults.Transport = HTTPTransport(hc)
	}
}

// WithTimeout sets the per-attempt timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.defaults.Timeout = d
	}
}

// WithHeader sets a default header on every call
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if c.defaults.Headers == nil {
			c.defaults.Headers = make(http.Header)
		}
		c.defaults.Headers.Set(key, value)
	}
}

// WithHeaders merges default headers into every call
func WithHeaders(h http.Header) Option {
	return func(c *Client) {
		c.defaults.Headers = mergeHeaderValues(c.defaults.Headers, h)
	}
}

// WithHeadersFunc computes call headers from the merged base headers at
// resolution time, layering the result over them
func WithHeadersFunc(fn func(base http.Header) http.Header) Option {
	return func(c *Client) {
		c.defaults.HeadersFunc = fn
	}
}

// WithAuth sets the default Authorization credential
func WithAuth(a Auth) Option {
	return func(c *Client) {
		c.defaults.Auth = a
	}
}

// WithMiddleware adds middleware to the client
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.defaults.Middlewares = append(c.defaults.Middlewares, middleware...)
	}
}

// WithHooks registers a lifecycle hook set on the client
func WithHooks(h Hooks) Option {
	return func(c *Client) {
		c.defaults.Hooks = append(c.defaults.Hooks, h)
	}
}

// WithPlugins registers plugins in the order given
func WithPlugins(plugins ...*Plugin) Option {
	return func(c *Client) {
		c.plugins = append(c.plugins, plugins...)
	}
}

// WithHooksExecutionMode sets how multiple handlers for one event run
func WithHooksExecutionMode(mode HooksExecutionMode) Option {
	return func(c *Client) {
		c.defaults.HooksExecutionMode = mode
	}
}

// WithHooksRegistrationOrder sets plugin handlers before or after main handlers
func WithHooksRegistrationOrder(order HooksRegistrationOrder) Option {
	return func(c *Client) {
		c.defaults.HooksRegistrationOrder = order
	}
}

// WithRetryAttempts sets the maximum number of retry attempts
func WithRetryAttempts(n int) Option {
	return func(c *Client) {
		c.defaults.RetryAttempts = n
	}
}

// WithRetryStrategy sets the delay progression between retries
func WithRetryStrategy(s RetryStrategy) Option {
	return func(c *Client) {
		c.defaults.RetryStrategy = s
	}
}

// WithRetryDelay sets the base retry delay
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.defaults.RetryDelay = d
	}
}

// WithRetryMaxDelay caps the exponential retry delay
func WithRetryMaxDelay(d time.Duration) Option {
	return func(c *Client) {
		c.defaults.RetryMaxDelay = d
	}
}

// WithRetryDelayFunc overrides delay computation entirely
func WithRetryDelayFunc(fn RetryDelayFunc) Option {
	return func(c *Client) {
		c.defaults.RetryDelayFunc = fn
	}
}

// WithRetryCondition sets a custom retry qualification predicate
func WithRetryCondition(fn RetryCondition) Option {
	return func(c *Client) {
		c.defaults.RetryCondition = fn
	}
}

// WithRetryMethods allow-lists HTTP methods eligible for retries
func WithRetryMethods(methods ...string) Option {
	return func(c *Client) {
		c.defaults.RetryMethods = append([]string(nil), methods...)
	}
}

// WithRetryStatusCodes allow-lists response status codes eligible for retries
func WithRetryStatusCodes(codes ...int) Option {
	return func(c *Client) {
		c.defaults.RetryStatusCodes = append([]int(nil), codes...)
	}
}

// WithDedupeStrategy sets the duplicate-call strategy
func WithDedupeStrategy(s DedupeStrategy) Option {
	return func(c *Client) {
		c.defaults.DedupeStrategy = s
	}
}

// WithDedupeScope selects local or global key collision
func WithDedupeScope(s DedupeScope) Option {
	return func(c *Client) {
		c.defaults.DedupeScope = s
	}
}

// WithDedupeScopeKey names the global scope this client shares
func WithDedupeScopeKey(key string) Option {
	return func(c *Client) {
		c.defaults.DedupeScopeKey = key
	}
}

// WithDedupeKeyFunc sets a custom dedupe key derivation
func WithDedupeKeyFunc(fn DedupeKeyFunc) Option {
	return func(c *Client) {
		c.defaults.DedupeKeyFunc = fn
	}
}

// WithDedupeRegistry sets a private registry for global dedupe scopes
func WithDedupeRegistry(r *DedupeRegistry) Option {
	return func(c *Client) {
		c.dedupeRegistry = r
	}
}

// WithSchemas sets the client's route schema table
func WithSchemas(s RouteSchemas) Option {
	return func(c *Client) {
		if c.schemas == nil {
			c.schemas = make(RouteSchemas, len(s))
		}
		for key, entry := range s {
			c.schemas[key] = entry
		}
	}
}

// WithSchemaConfig tunes schema resolution and application
func WithSchemaConfig(cfg SchemaConfig) Option {
	return func(c *Client) {
		c.defaults.SchemaConfig = mergeSchemaConfig(c.defaults.SchemaConfig, &cfg)
	}
}

// WithResultMode selects which subset of the result a call returns
func WithResultMode(mode ResultMode) Option {
	return func(c *Client) {
		c.defaults.ResultMode = mode
	}
}

// WithThrowOnError raises the error branch instead of returning it in the result
func WithThrowOnError(throw bool) Option {
	return func(c *Client) {
		c.defaults.ThrowOnError = throw
	}
}

// WithThrowOnErrorIf raises the error branch when the predicate approves
func WithThrowOnErrorIf(pred ThrowPredicate) Option {
	return func(c *Client) {
		c.defaults.ThrowOnErrorIf = pred
	}
}

// WithResponseType sets how response bodies decode into data
func WithResponseType(t ResponseType) Option {
	return func(c *Client) {
		c.defaults.ResponseType = t
	}
}

// WithResponseParser overrides response body decoding
func WithResponseParser(fn ResponseParser) Option {
	return func(c *Client) {
		c.defaults.ResponseParser = fn
	}
}

// WithBodySerializer overrides structured body serialization
func WithBodySerializer(fn BodySerializer) Option {
	return func(c *Client) {
		c.defaults.BodySerializer = fn
	}
}

// WithDefaultErrorMessage sets the message used when an error body has none
func WithDefaultErrorMessage(msg string) Option {
	return func(c *Client) {
		c.defaults.DefaultErrorMessage = msg
	}
}

// WithMetrics enables Prometheus metrics collection
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithDebug enables debug logging with default configuration
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithLogger sets a custom logger for debug output
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a simple console logger
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// ValidateConfiguration validates the client configuration and returns an error if invalid
func (c *Client) ValidateConfiguration() error {
	var errors []string

	// Validate each configuration section
	errors = append(errors, c.validateTransportConfig()...)
	errors = append(errors, c.validateRetryConfig()...)
	errors = append(errors, c.validateDedupeConfig()...)
	errors = append(errors, c.validateHooksConfig()...)
	errors = append(errors, c.validatePluginConfig()...)
	errors = append(errors, c.validateSchemaConfig()...)
	errors = append(errors, c.validateResultConfig()...)
	errors = append(errors, c.validateDebugConfig()...)
	errors = append(errors, c.validateEnvConfig()...)
	errors = append(errors, c.validateExtremeValues()...)

	if len(errors) > 0 {
		return &CallError{
			Type:    ErrorTypeValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", errors),
		}
	}

	return nil
}

// validateTransportConfig validates the dispatch surface
func (c *Client) validateTransportConfig() []string {
	var errors []string

	if c.defaults.Transport == nil {
		errors = append(errors, "transport cannot be nil")
	}

	for i, mw := range c.defaults.Middlewares {
		if mw == nil {
			errors = append(errors, fmt.Sprintf("middleware[%d] cannot be nil", i))
		}
	}

	if c.defaults.Timeout < 0 {
		errors = append(errors, "timeout must be non-negative")
	}

	return errors
}

// validateRetryConfig validates retry-related configuration
func (c *Client) validateRetryConfig() []string {
	var errors []string

	if c.defaults.RetryAttempts < 0 {
		errors = append(errors, "retryAttempts must be non-negative")
	}

	if c.defaults.RetryDelay < 0 {
		errors = append(errors, "retryDelay must be non-negative")
	}

	if c.defaults.RetryMaxDelay > 0 && c.defaults.RetryDelay > 0 && c.defaults.RetryMaxDelay < c.defaults.RetryDelay {
		errors = append(errors, "retryMaxDelay must be greater than or equal to retryDelay")
	}

	switch c.defaults.RetryStrategy {
	case "", RetryStrategyLinear, RetryStrategyExponential:
	default:
		errors = append(errors, fmt.Sprintf("unknown retry strategy %q", c.defaults.RetryStrategy))
	}

	return errors
}

// validateDedupeConfig validates deduplication configuration
func (c *Client) validateDedupeConfig() []string {
	var errors []string

	switch c.defaults.DedupeStrategy {
	case "", DedupeStrategyCancel, DedupeStrategyDefer, DedupeStrategyNone:
	default:
		errors = append(errors, fmt.Sprintf("unknown dedupe strategy %q", c.defaults.DedupeStrategy))
	}

	switch c.defaults.DedupeScope {
	case "", DedupeScopeLocal, DedupeScopeGlobal:
	default:
		errors = append(errors, fmt.Sprintf("unknown dedupe scope %q", c.defaults.DedupeScope))
	}

	if c.defaults.DedupeScope == DedupeScopeGlobal && c.dedupeRegistry == nil {
		errors = append(errors, "dedupe registry must be set when scope is global")
	}

	return errors
}

// validateHooksConfig validates hook composition configuration
func (c *Client) validateHooksConfig() []string {
	var errors []string

	switch c.defaults.HooksExecutionMode {
	case "", HooksExecutionModeParallel, HooksExecutionModeSequential:
	default:
		errors = append(errors, fmt.Sprintf("unknown hooks execution mode %q", c.defaults.HooksExecutionMode))
	}

	switch c.defaults.HooksRegistrationOrder {
	case "", HooksRegistrationOrderPluginsFirst, HooksRegistrationOrderMainFirst:
	default:
		errors = append(errors, fmt.Sprintf("unknown hooks registration order %q", c.defaults.HooksRegistrationOrder))
	}

	return errors
}

// validatePluginConfig validates plugin identity and versioning
func (c *Client) validatePluginConfig() []string {
	var errors []string

	seen := make(map[string]bool, len(c.plugins))
	for i, p := range c.plugins {
		if p == nil {
			errors = append(errors, fmt.Sprintf("plugin[%d] cannot be nil", i))
			continue
		}
		if p.ID == "" {
			errors = append(errors, fmt.Sprintf("plugin[%d] must have a non-empty id", i))
			continue
		}
		if seen[p.ID] {
			errors = append(errors, fmt.Sprintf("duplicate plugin id %q", p.ID))
		}
		seen[p.ID] = true

		if p.Version != "" {
			if _, err := semver.NewVersion(p.Version); err != nil {
				errors = append(errors, fmt.Sprintf("plugin %q version %q is not valid semver", p.ID, p.Version))
			}
		}
	}

	return errors
}

// validateSchemaConfig validates the route schema table
func (c *Client) validateSchemaConfig() []string {
	var errors []string

	for key, entry := range c.schemas {
		if key == "" {
			errors = append(errors, "schema route key cannot be empty")
		}
		if entry == nil {
			errors = append(errors, fmt.Sprintf("schema entry for route %q cannot be nil", key))
		}
	}

	if cfg := c.defaults.SchemaConfig; cfg != nil && cfg.Strict && len(c.schemas) == 0 && len(c.plugins) == 0 {
		errors = append(errors, "strict schema mode requires a schema table")
	}

	return errors
}

// validateResultConfig validates result shaping configuration
func (c *Client) validateResultConfig() []string {
	var errors []string

	switch c.defaults.ResultMode {
	case "", ResultModeAll, ResultModeOnlySuccess, ResultModeOnlyData:
	default:
		errors = append(errors, fmt.Sprintf("unknown result mode %q", c.defaults.ResultMode))
	}

	switch c.defaults.ResponseType {
	case "", ResponseTypeAuto, ResponseTypeJSON, ResponseTypeText, ResponseTypeBytes:
	default:
		errors = append(errors, fmt.Sprintf("unknown response type %q", c.defaults.ResponseType))
	}

	return errors
}

// validateDebugConfig validates debug configuration
func (c *Client) validateDebugConfig() []string {
	var errors []string

	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			errors = append(errors, "debug RequestIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			errors = append(errors, "logger must be set when debug is enabled")
		}
	}

	return errors
}

// validateEnvConfig surfaces environment parsing failures from FromEnv
func (c *Client) validateEnvConfig() []string {
	var errors []string

	if c.envError != nil {
		errors = append(errors, fmt.Sprintf("environment configuration: %v", c.envError))
	}

	return errors
}

// validateExtremeValues validates that configuration values are within reasonable bounds
func (c *Client) validateExtremeValues() []string {
	var errors []string

	if c.defaults.RetryAttempts > 100 {
		errors = append(errors, "retryAttempts > 100 may cause excessive resource usage")
	}

	if c.defaults.RetryDelay > 10*time.Minute {
		errors = append(errors, "retryDelay > 10m may cause very long delays")
	}
	if c.defaults.RetryMaxDelay > time.Hour {
		errors = append(errors, "retryMaxDelay > 1h may cause extremely long delays")
	}

	if c.defaults.Timeout > 10*time.Minute {
		errors = append(errors, "timeout > 10m may cause requests to hang for too long")
	}

	return errors
}
