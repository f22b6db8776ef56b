package callapi

import (
	"context"
	"errors"
	"strings"
)

// Validator checks a value and optionally returns a transformed replacement.
// Implementations may be context-aware (remote validation, per-call rules).
type Validator interface {
	Validate(ctx context.Context, value any) (any, error)
}

// ValidatorFunc adapts a plain transform function into a Validator. Errors it
// returns are converted to an issue list.
type ValidatorFunc func(ctx context.Context, value any) (any, error)

func (f ValidatorFunc) Validate(ctx context.Context, value any) (any, error) {
	return f(ctx, value)
}

// Issue is a single structured validation finding.
type Issue struct {
	Message string   `json:"message"`
	Path    []string `json:"path,omitempty"`
}

func (i Issue) String() string {
	if len(i.Path) == 0 {
		return i.Message
	}
	return strings.Join(i.Path, ".") + ": " + i.Message
}

// IssueError carries structured issues out of a Validator. Validators that
// return any other error contribute a single issue built from its text.
type IssueError struct {
	Issues []Issue
}

func (e *IssueError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.String()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func issuesFromError(err error) []Issue {
	var ie *IssueError
	if errors.As(err, &ie) && len(ie.Issues) > 0 {
		return ie.Issues
	}
	return []Issue{{Message: err.Error()}}
}

// SchemaFields is a bitmask selecting validated fields, used to disable
// runtime validation or output application per field.
type SchemaFields uint16

const (
	SchemaFieldBody SchemaFields = 1 << iota
	SchemaFieldHeaders
	SchemaFieldMethod
	SchemaFieldParams
	SchemaFieldQuery
	SchemaFieldMeta
	SchemaFieldAuth
	SchemaFieldData
	SchemaFieldErrorData

	// SchemaFieldsAll selects every field.
	SchemaFieldsAll SchemaFields = 1<<9 - 1
)

// Has reports whether the mask selects the given field.
func (f SchemaFields) Has(field SchemaFields) bool {
	return f&field != 0
}

func schemaFieldName(f SchemaFields) string {
	switch f {
	case SchemaFieldBody:
		return "body"
	case SchemaFieldHeaders:
		return "headers"
	case SchemaFieldMethod:
		return "method"
	case SchemaFieldParams:
		return "params"
	case SchemaFieldQuery:
		return "query"
	case SchemaFieldMeta:
		return "meta"
	case SchemaFieldAuth:
		return "auth"
	case SchemaFieldData:
		return "data"
	case SchemaFieldErrorData:
		return "errorData"
	default:
		return "unknown"
	}
}

// RouteSchema holds the per-field validators for one route: request side
// (body, headers, method), options side (params, query, meta, auth) and
// response side (data, errorData). Any field may be nil.
type RouteSchema struct {
	Body      Validator
	Headers   Validator
	Method    Validator
	Params    Validator
	Query     Validator
	Meta      Validator
	Auth      Validator
	Data      Validator
	ErrorData Validator
}

// RouteSchemas maps route keys to their validator bundles. Keys are matched
// literally against the route passed to Call, after any configured prefix or
// base URL is stripped.
type RouteSchemas map[string]*RouteSchema

// RouteKeyFallback is the reserved key whose entry applies to every route
// without its own entry. A route-specific entry wins field by field.
const RouteKeyFallback = "**"

// SchemaResolver lets a caller replace the table-matched schema per call.
// Returning nil disables validation for the call.
type SchemaResolver func(ctx context.Context, rc *RequestContext, matched *RouteSchema) *RouteSchema

// SchemaConfig tunes how route schemas are resolved and applied.
type SchemaConfig struct {
	// Strict rejects any call whose route key has no route-specific table
	// entry. The fallback entry does not count as a match.
	Strict bool
	// Prefix is stripped from the route before table lookup. When empty,
	// BaseURL is stripped instead.
	Prefix  string
	BaseURL string
	// DisableRuntimeValidation skips validation for the selected fields.
	DisableRuntimeValidation SchemaFields
	// DisableOutputApplication still validates the selected fields but
	// discards the transformed values.
	DisableOutputApplication SchemaFields
	Resolver                 SchemaResolver
}

func mergeSchemaConfig(dst, src *SchemaConfig) *SchemaConfig {
	if src == nil {
		return dst
	}
	if dst == nil {
		cp := *src
		return &cp
	}
	out := *dst
	if src.Strict {
		out.Strict = true
	}
	if src.Prefix != "" {
		out.Prefix = src.Prefix
	}
	if src.BaseURL != "" {
		out.BaseURL = src.BaseURL
	}
	out.DisableRuntimeValidation |= src.DisableRuntimeValidation
	out.DisableOutputApplication |= src.DisableOutputApplication
	if src.Resolver != nil {
		out.Resolver = src.Resolver
	}
	return &out
}

// schemaLookupKey strips the configured prefix or base URL from the route to
// obtain the table key.
func schemaLookupKey(route string, cfg *SchemaConfig) string {
	if cfg == nil {
		return route
	}
	if cfg.Prefix != "" {
		return strings.TrimPrefix(route, cfg.Prefix)
	}
	if cfg.BaseURL != "" {
		return strings.TrimPrefix(route, cfg.BaseURL)
	}
	return route
}

// resolveRouteSchema matches the route against the schema table: the
// route-specific entry merged field-by-field over the fallback entry, then
// optionally overridden by the configured resolver. Strict mode fails the
// lookup when no route-specific entry exists.
func resolveRouteSchema(ctx context.Context, schemas RouteSchemas, cfg *SchemaConfig, rc *RequestContext) (*RouteSchema, []Issue) {
	key := schemaLookupKey(rc.Route, cfg)
	entry := schemas[key]
	if cfg != nil && cfg.Strict && entry == nil {
		return nil, []Issue{{Message: ErrNoRouteSchema.Error() + " " + key}}
	}

	merged := mergeRouteSchema(schemas[RouteKeyFallback], entry)
	if cfg != nil && cfg.Resolver != nil {
		merged = cfg.Resolver(ctx, rc, merged)
	}
	return merged, nil
}

// mergeRouteSchema overlays the route-specific entry on the fallback entry.
func mergeRouteSchema(fallback, entry *RouteSchema) *RouteSchema {
	if fallback == nil {
		return entry
	}
	if entry == nil {
		cp := *fallback
		return &cp
	}
	out := *fallback
	if entry.Body != nil {
		out.Body = entry.Body
	}
	if entry.Headers != nil {
		out.Headers = entry.Headers
	}
	if entry.Method != nil {
		out.Method = entry.Method
	}
	if entry.Params != nil {
		out.Params = entry.Params
	}
	if entry.Query != nil {
		out.Query = entry.Query
	}
	if entry.Meta != nil {
		out.Meta = entry.Meta
	}
	if entry.Auth != nil {
		out.Auth = entry.Auth
	}
	if entry.Data != nil {
		out.Data = entry.Data
	}
	if entry.ErrorData != nil {
		out.ErrorData = entry.ErrorData
	}
	return &out
}

// runValidator applies a single field validator honoring the disable masks.
// A nil issues slice means the field passed; the returned value is the
// transformed replacement unless output application is disabled.
func runValidator(ctx context.Context, cfg *SchemaConfig, field SchemaFields, v Validator, value any) (any, []Issue) {
	if v == nil {
		return value, nil
	}
	if cfg != nil && cfg.DisableRuntimeValidation.Has(field) {
		return value, nil
	}

	out, err := v.Validate(ctx, value)
	if err != nil {
		return value, issuesFromError(err)
	}
	if cfg != nil && cfg.DisableOutputApplication.Has(field) {
		return value, nil
	}
	return out, nil
}
