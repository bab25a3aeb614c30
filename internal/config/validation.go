package config

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap/zapcore"
)

// InvalidField represents a config key with an unusable value
type InvalidField struct {
	Key    string
	Value  any
	Reason string
}

// ValidationErrors collects all validation errors
type ValidationErrors struct {
	InvalidFields []InvalidField
	Notify        error
}

// HasErrors returns true if any validation errors exist
func (e *ValidationErrors) HasErrors() bool {
	return len(e.InvalidFields) > 0 || e.Notify != nil
}

// Error formats all validation errors into a clear message
func (e *ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")

	if len(e.InvalidFields) > 0 {
		sb.WriteString("\nInvalid settings:\n")
		for _, f := range e.InvalidFields {
			sb.WriteString(fmt.Sprintf("  - %s=%v (%s)\n", f.Key, f.Value, f.Reason))
		}
		sb.WriteString("\nEvery key can also be set as PLURK_<SECTION>_<KEY>, e.g. PLURK_COMET_KNOCK_EVERY\n")
	}

	if e.Notify != nil {
		sb.WriteString(fmt.Sprintf("\nNotify: %v\n", e.Notify))
	}

	return sb.String()
}

func (e *ValidationErrors) add(key string, value any, reason string) {
	e.InvalidFields = append(e.InvalidFields, InvalidField{Key: key, Value: value, Reason: reason})
}

// Validate checks every section and reports all problems at once
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	validateHTTPURL(errs, "api.base_url", c.API.BaseURL)
	if c.API.TimeoutSec < 1 {
		errs.add("api.timeout_sec", c.API.TimeoutSec, "must be >= 1")
	}
	if c.API.RetryCount < 0 {
		errs.add("api.retry_count", c.API.RetryCount, "must be >= 0")
	}
	if c.API.RetryDelay < 0 {
		errs.add("api.retry_delay_sec", c.API.RetryDelay, "must be >= 0")
	}
	if c.API.RatePerSecond < 1 {
		errs.add("api.rate_per_second", c.API.RatePerSecond, "must be >= 1")
	}

	validateHTTPURL(errs, "comet.knock_url", c.Comet.KnockURL)
	if c.Comet.PollTimeoutSec < 1 {
		errs.add("comet.poll_timeout_sec", c.Comet.PollTimeoutSec, "must be >= 1")
	}
	if c.Comet.KnockTimeoutSec < 1 {
		errs.add("comet.knock_timeout_sec", c.Comet.KnockTimeoutSec, "must be >= 1")
	}
	if c.Comet.KnockEvery < 0 {
		errs.add("comet.knock_every", c.Comet.KnockEvery, "must be >= 0")
	}
	if c.Comet.RetryDelayMs < 0 {
		errs.add("comet.retry_delay_ms", c.Comet.RetryDelayMs, "must be >= 0")
	}
	if c.Comet.RetryMaxDelaySec < 0 {
		errs.add("comet.retry_max_delay_sec", c.Comet.RetryMaxDelaySec, "must be >= 0")
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs.add("logging.level", c.Logging.Level, "valid: debug, info, warn, error")
	}
	if c.Logging.Enabled && c.Logging.Directory == "" {
		errs.add("logging.directory", c.Logging.Directory, "required when logging is enabled")
	}

	errs.Notify = c.Notify.Validate()

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateHTTPURL(errs *ValidationErrors, key, raw string) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs.add(key, raw, "must be an absolute http(s) URL")
	}
}
