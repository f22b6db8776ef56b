package callapi

import (
	"errors"
	"fmt"
	"time"
)

// Error type discriminants for CallError.Type. Every surfaced failure is
// tagged with exactly one of these kinds.
const (
	// ErrorTypeHTTP marks a non-2xx response.
	ErrorTypeHTTP = "HTTP"
	// ErrorTypeValidation marks a schema failure on either side of the wire.
	ErrorTypeValidation = "Validation"
	// ErrorTypeRequest marks a generic transport-level failure: network
	// error, timeout, cancellation, hook failure, or body parse failure.
	ErrorTypeRequest = "Request"
)

// Sentinel errors for common failure scenarios
var (
	// ErrDeduplicated is the cancellation cause when a call is superseded by
	// a newer call with the same dedupe key under the cancel strategy.
	ErrDeduplicated = errors.New("callapi: canceled by duplicate call")

	// ErrNoRouteSchema is returned in strict schema mode when a route key has
	// no route-specific entry in the schema table.
	ErrNoRouteSchema = errors.New("callapi: no schema entry for route")
)

// CallError is the classified error surfaced by a call. It carries the kind
// discriminant plus whatever diagnostic context the failing phase had.
type CallError struct {
	Type      string
	Message   string
	Cause     error
	RequestID string
	Method    string
	URL       string
	Route     string

	// StatusCode and ErrorData are set for HTTP errors. ErrorData holds the
	// parsed error body; it is nil for transport errors.
	StatusCode int
	ErrorData  any

	// Field and Issues are set for validation errors.
	Field  string
	Issues []Issue

	Attempt    int
	MaxRetries int
	Timestamp  time.Time
	Duration   time.Duration

	// Response is present when the failure occurred after a response was
	// received (HTTP errors and response-side validation errors).
	Response *Response
}

// IsHTTPError reports whether err is a CallError tagged as an HTTP failure.
func IsHTTPError(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.Type == ErrorTypeHTTP
}

// IsValidationError reports whether err is a CallError tagged as a schema failure.
func IsValidationError(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.Type == ErrorTypeValidation
}

// IsRequestError reports whether err is a CallError tagged as a generic
// transport-level failure.
func IsRequestError(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.Type == ErrorTypeRequest
}

// HTTPStatus extracts the status code from an HTTP-kind CallError, or 0.
func HTTPStatus(err error) int {
	var ce *CallError
	if errors.As(err, &ce) && ce.Type == ErrorTypeHTTP {
		return ce.StatusCode
	}
	return 0
}

// Error implements error interface.
func (e *CallError) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxRetries)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *CallError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error kinds for errors.Is.
func (e *CallError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*CallError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *CallError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.Route != "" {
		info += fmt.Sprintf("Route: %s\n", e.Route)
	}
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.StatusCode)
	}
	if e.Field != "" {
		info += fmt.Sprintf("Field: %s\n", e.Field)
	}
	for _, issue := range e.Issues {
		info += fmt.Sprintf("Issue: %s\n", issue.String())
	}
	if e.Attempt > 0 {
		info += fmt.Sprintf("Attempt: %d/%d\n", e.Attempt, e.MaxRetries)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}
