package callapi

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envOptions mirrors the CALLAPI_* environment variables applied by FromEnv.
type envOptions struct {
	BaseURL        string        `envconfig:"BASE_URL"`
	Timeout        time.Duration `envconfig:"TIMEOUT"`
	RetryAttempts  int           `envconfig:"RETRY_ATTEMPTS"`
	RetryStrategy  string        `envconfig:"RETRY_STRATEGY"`
	RetryDelay     time.Duration `envconfig:"RETRY_DELAY"`
	RetryMaxDelay  time.Duration `envconfig:"RETRY_MAX_DELAY"`
	DedupeStrategy string        `envconfig:"DEDUPE_STRATEGY"`
	DedupeScope    string        `envconfig:"DEDUPE_SCOPE"`
	DedupeScopeKey string        `envconfig:"DEDUPE_SCOPE_KEY"`
	ResultMode     string        `envconfig:"RESULT_MODE"`
	ThrowOnError   bool          `envconfig:"THROW_ON_ERROR"`
}

// FromEnv overlays CALLAPI_* environment variables on the client defaults.
// Unset variables leave the corresponding option untouched; a malformed
// variable is reported through configuration validation.
func FromEnv() Option {
	return func(c *Client) {
		var e envOptions
		if err := envconfig.Process("callapi", &e); err != nil {
			c.envError = err
			return
		}

		if e.BaseURL != "" {
			c.defaults.BaseURL = e.BaseURL
		}
		if e.Timeout > 0 {
			c.defaults.Timeout = e.Timeout
		}
		if e.RetryAttempts != 0 {
			c.defaults.RetryAttempts = e.RetryAttempts
		}
		if e.RetryStrategy != "" {
			c.defaults.RetryStrategy = RetryStrategy(e.RetryStrategy)
		}
		if e.RetryDelay > 0 {
			c.defaults.RetryDelay = e.RetryDelay
		}
		if e.RetryMaxDelay > 0 {
			c.defaults.RetryMaxDelay = e.RetryMaxDelay
		}
		if e.DedupeStrategy != "" {
			c.defaults.DedupeStrategy = DedupeStrategy(e.DedupeStrategy)
		}
		if e.DedupeScope != "" {
			c.defaults.DedupeScope = DedupeScope(e.DedupeScope)
		}
		if e.DedupeScopeKey != "" {
			c.defaults.DedupeScopeKey = e.DedupeScopeKey
		}
		if e.ResultMode != "" {
			c.defaults.ResultMode = ResultMode(e.ResultMode)
		}
		if e.ThrowOnError {
			c.defaults.ThrowOnError = true
		}
	}
}
