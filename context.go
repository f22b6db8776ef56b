package callapi

// RequestContext carries the resolved state of one call attempt through
// plugin setup and request-phase hooks. Plugins and hooks may mutate Target,
// Options and Request until the request is dispatched; afterwards the context
// is read-only.
type RequestContext struct {
	// Route is the route key exactly as passed to Call.
	Route string
	// Target is the URL being built for this attempt: the route path before
	// parameter substitution during setup, the final URL once dispatched.
	Target string
	// Attempt is the zero-based attempt index; 0 for the initial call.
	Attempt   int
	RequestID string

	// BaseOptions are the client-level defaults the call options were merged
	// over. Treat as read-only.
	BaseOptions *CallOptions
	// Options are the effective merged options for this call.
	Options *CallOptions
	// Request is the transport-level request under construction.
	Request *Request
}

// ResponseContext is the payload for response-phase events. Data holds the
// parsed body: the decoded success data on 2xx, the parsed error payload
// otherwise.
type ResponseContext struct {
	*RequestContext
	Response *Response
	Data     any
}

// ErrorContext is the payload for error-phase events. Response is nil when
// the failure occurred before a response was received.
type ErrorContext struct {
	*RequestContext
	Err      *CallError
	Response *Response
}

// RetryContext is the payload for the retry event, fired after a qualifying
// failure and before the backoff delay.
type RetryContext struct {
	*RequestContext
	// Attempt is the 1-based number of the retry about to run.
	Attempt int
	// Err is the failure that triggered the retry.
	Err      *CallError
	Response *Response
}

// StreamContext is the payload for body-transfer progress events. Response is
// nil while the request body is being uploaded.
type StreamContext struct {
	*RequestContext
	Event    StreamEvent
	Response *Response
}

// StreamEvent describes one observed chunk of a body transfer.
type StreamEvent struct {
	Chunk            []byte
	TransferredBytes int64
	// TotalBytes is -1 when the total length is unknown.
	TotalBytes int64
	// Progress is TransferredBytes/TotalBytes in [0,1], or 0 when the total
	// is unknown.
	Progress float64
}

func streamProgress(transferred, total int64) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(transferred) / float64(total)
	if p > 1 {
		return 1
	}
	return p
}
