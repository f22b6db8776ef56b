package callapi

import "github.com/google/uuid"

// DebugConfig controls diagnostic logging of the call lifecycle. Individual
// flags narrow output to the phases under investigation.
type DebugConfig struct {
	Enabled bool

	LogRequests   bool
	LogRetries    bool
	LogDedupe     bool
	LogHooks      bool
	LogValidation bool

	// RequestIDGen produces the correlation ID attached to every log line
	// and error for one call.
	RequestIDGen func() string
}

// DefaultDebugConfig returns a disabled configuration with all phase flags on
// and UUID request IDs, so WithDebug turns on full lifecycle logging.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:       false,
		LogRequests:   true,
		LogRetries:    true,
		LogDedupe:     true,
		LogHooks:      true,
		LogValidation: true,
		RequestIDGen:  uuid.NewString,
	}
}
