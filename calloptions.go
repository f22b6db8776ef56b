package callapi

import (
	"net/http"
	"net/url"
	"time"
)

// CallOptions configures a single call. Every field layers over the client's
// defaults: zero values mean "inherit". Passing several CallOptions to Call
// merges them left to right, so later ones win.
//
// Boolean options are additive when merging: a call can enable Strict or
// ThrowOnError over the client defaults but not disable them. RetryAttempts
// is the exception in the other direction: a negative value disables retries
// for that call even when the client default is positive.
type CallOptions struct {
	// Target shaping
	BaseURL string
	Method  string
	Headers http.Header
	// HeadersFunc computes headers from the merged base headers at resolution
	// time; its result layers over them key by key. Later layers replace an
	// earlier func wholesale.
	HeadersFunc func(base http.Header) http.Header
	Params      map[string]any
	Query       url.Values
	Body        any
	Auth        Auth
	// Meta is an arbitrary bag carried through every lifecycle context, for
	// plugins and hooks to read. See Plugin.DefineExtraOptions.
	Meta map[string]any
	// Timeout bounds each attempt individually, not the whole retry schedule.
	Timeout time.Duration

	// Pipeline surfaces
	Transport              Transport
	Middlewares            []Middleware
	Hooks                  []Hooks
	HooksExecutionMode     HooksExecutionMode
	HooksRegistrationOrder HooksRegistrationOrder

	// Deduplication
	DedupeStrategy DedupeStrategy
	DedupeScope    DedupeScope
	DedupeScopeKey string
	// DedupeKey overrides key derivation with a fixed key.
	DedupeKey     string
	DedupeKeyFunc DedupeKeyFunc

	// Retry
	RetryAttempts    int
	RetryStrategy    RetryStrategy
	RetryDelay       time.Duration
	RetryMaxDelay    time.Duration
	RetryDelayFunc   RetryDelayFunc
	RetryCondition   RetryCondition
	RetryMethods     []string
	RetryStatusCodes []int

	// Response handling
	ResponseType        ResponseType
	ResponseParser      ResponseParser
	BodySerializer      BodySerializer
	DefaultErrorMessage string

	// Result shaping
	ResultMode     ResultMode
	ThrowOnError   bool
	ThrowOnErrorIf ThrowPredicate

	// Schema
	SchemaConfig *SchemaConfig
}

// resolveCallOptions layers the per-call overrides over the client defaults
// into a fresh options value, then fills remaining gaps with the built-in
// defaults. The result owns its maps and slices; mutating it never touches
// the client.
func resolveCallOptions(base *CallOptions, overrides []*CallOptions) *CallOptions {
	merged := &CallOptions{}
	mergeCallOptions(merged, base)
	for _, o := range overrides {
		mergeCallOptions(merged, o)
	}
	if merged.HeadersFunc != nil {
		// The func receives its own copy of the merged headers so mutating the
		// argument cannot leak into the result except through the return value.
		base := mergeHeaderValues(make(http.Header, len(merged.Headers)), merged.Headers)
		merged.Headers = mergeHeaderValues(merged.Headers, merged.HeadersFunc(base))
	}
	applyCallDefaults(merged)
	return merged
}

func mergeCallOptions(dst, src *CallOptions) {
	if src == nil {
		return
	}

	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	if src.Method != "" {
		dst.Method = src.Method
	}
	dst.Headers = mergeHeaderValues(dst.Headers, src.Headers)
	if src.HeadersFunc != nil {
		dst.HeadersFunc = src.HeadersFunc
	}
	dst.Params = mergeAnyMap(dst.Params, src.Params)
	dst.Query = mergeQueryValues(dst.Query, src.Query)
	if src.Body != nil {
		dst.Body = src.Body
	}
	if src.Auth != nil {
		dst.Auth = src.Auth
	}
	dst.Meta = mergeAnyMap(dst.Meta, src.Meta)
	if src.Timeout > 0 {
		dst.Timeout = src.Timeout
	}

	if src.Transport != nil {
		dst.Transport = src.Transport
	}
	dst.Middlewares = append(dst.Middlewares, src.Middlewares...)
	dst.Hooks = append(dst.Hooks, src.Hooks...)
	if src.HooksExecutionMode != "" {
		dst.HooksExecutionMode = src.HooksExecutionMode
	}
	if src.HooksRegistrationOrder != "" {
		dst.HooksRegistrationOrder = src.HooksRegistrationOrder
	}

	if src.DedupeStrategy != "" {
		dst.DedupeStrategy = src.DedupeStrategy
	}
	if src.DedupeScope != "" {
		dst.DedupeScope = src.DedupeScope
	}
	if src.DedupeScopeKey != "" {
		dst.DedupeScopeKey = src.DedupeScopeKey
	}
	if src.DedupeKey != "" {
		dst.DedupeKey = src.DedupeKey
	}
	if src.DedupeKeyFunc != nil {
		dst.DedupeKeyFunc = src.DedupeKeyFunc
	}

	if src.RetryAttempts != 0 {
		dst.RetryAttempts = src.RetryAttempts
	}
	if src.RetryStrategy != "" {
		dst.RetryStrategy = src.RetryStrategy
	}
	if src.RetryDelay > 0 {
		dst.RetryDelay = src.RetryDelay
	}
	if src.RetryMaxDelay > 0 {
		dst.RetryMaxDelay = src.RetryMaxDelay
	}
	if src.RetryDelayFunc != nil {
		dst.RetryDelayFunc = src.RetryDelayFunc
	}
	if src.RetryCondition != nil {
		dst.RetryCondition = src.RetryCondition
	}
	if len(src.RetryMethods) > 0 {
		dst.RetryMethods = append([]string(nil), src.RetryMethods...)
	}
	if len(src.RetryStatusCodes) > 0 {
		dst.RetryStatusCodes = append([]int(nil), src.RetryStatusCodes...)
	}

	if src.ResponseType != "" {
		dst.ResponseType = src.ResponseType
	}
	if src.ResponseParser != nil {
		dst.ResponseParser = src.ResponseParser
	}
	if src.BodySerializer != nil {
		dst.BodySerializer = src.BodySerializer
	}
	if src.DefaultErrorMessage != "" {
		dst.DefaultErrorMessage = src.DefaultErrorMessage
	}

	if src.ResultMode != "" {
		dst.ResultMode = src.ResultMode
	}
	if src.ThrowOnError {
		dst.ThrowOnError = true
	}
	if src.ThrowOnErrorIf != nil {
		dst.ThrowOnErrorIf = src.ThrowOnErrorIf
	}

	if src.SchemaConfig != nil {
		dst.SchemaConfig = mergeSchemaConfig(dst.SchemaConfig, src.SchemaConfig)
	}
}

func applyCallDefaults(o *CallOptions) {
	if o.RetryAttempts < 0 {
		o.RetryAttempts = 0
	}
	if o.RetryStrategy == "" {
		o.RetryStrategy = RetryStrategyLinear
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.RetryMaxDelay <= 0 {
		o.RetryMaxDelay = 10 * time.Second
	}
	if o.DedupeStrategy == "" {
		o.DedupeStrategy = DedupeStrategyCancel
	}
	if o.DedupeScope == "" {
		o.DedupeScope = DedupeScopeLocal
	}
	if o.DedupeScopeKey == "" {
		o.DedupeScopeKey = "default"
	}
	if o.HooksExecutionMode == "" {
		o.HooksExecutionMode = HooksExecutionModeParallel
	}
	if o.HooksRegistrationOrder == "" {
		o.HooksRegistrationOrder = HooksRegistrationOrderPluginsFirst
	}
	if o.ResultMode == "" {
		o.ResultMode = ResultModeAll
	}
	if o.ResponseType == "" {
		o.ResponseType = ResponseTypeAuto
	}
	if o.DefaultErrorMessage == "" {
		o.DefaultErrorMessage = "An unexpected error occurred during the request"
	}
}

func mergeHeaderValues(dst, src http.Header) http.Header {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(http.Header, len(src))
	}
	for k, vs := range src {
		dst[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	return dst
}

func mergeQueryValues(dst, src url.Values) url.Values {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(url.Values, len(src))
	}
	for k, vs := range src {
		dst[k] = append([]string(nil), vs...)
	}
	return dst
}

func mergeAnyMap(dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
