// Package llmerrors classifies provider-surfaced failures so resilience
// policy (retry counts, backoff) can vary by error type instead of being
// one-size-fits-all.
package llmerrors

import (
	"fmt"
	"time"
)

// ErrorType buckets a provider failure for retry-policy lookup.
type ErrorType int8

const (
	ErrorTypeRateLimit ErrorType = iota
	ErrorTypeTransient
	ErrorTypeEmptyResponse
	ErrorTypeAuth
	ErrorTypeBadPrompt
	ErrorTypeUnknown
	ErrorTypeServiceUnavailable
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeBadPrompt:
		return "bad_prompt"
	case ErrorTypeServiceUnavailable:
		return "service_unavailable"
	default:
		return "unknown"
	}
}

// RetryConfig is the exponential-backoff shape used per error type.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        bool
}

// DefaultRetryConfigs is keyed by ErrorType; unknown types fall back to
// ErrorTypeUnknown's entry.
var DefaultRetryConfigs = map[ErrorType]RetryConfig{ //nolint:gochecknoglobals
	ErrorTypeRateLimit: {
		MaxRetries: 6, InitialDelay: time.Second, MaxDelay: 60 * time.Second, BackoffFactor: 2, Jitter: true,
	},
	ErrorTypeTransient: {
		MaxRetries: 4, InitialDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second, BackoffFactor: 2, Jitter: true,
	},
	ErrorTypeEmptyResponse: {
		MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: 30 * time.Second, BackoffFactor: 2, Jitter: true,
	},
	ErrorTypeAuth: {
		MaxRetries: 0, BackoffFactor: 1,
	},
	ErrorTypeBadPrompt: {
		MaxRetries: 0, BackoffFactor: 1,
	},
	ErrorTypeUnknown: {
		MaxRetries: 1, InitialDelay: time.Second, MaxDelay: 5 * time.Second, BackoffFactor: 2, Jitter: true,
	},
	ErrorTypeServiceUnavailable: {
		MaxRetries: 0, BackoffFactor: 1,
	},
}

// Error is a classified provider failure.
type Error struct {
	Err        error
	Message    string
	Type       ErrorType
	StatusCode int
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider error (%s): %s", e.Type, e.Message)
	}
	return fmt.Sprintf("provider error (%s): %v", e.Type, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether the configured policy allows at least one
// retry for this error's type.
func (e *Error) IsRetryable() bool {
	return e.RetryConfig().MaxRetries > 0
}

// RetryConfig returns this error's retry policy, defaulting to the
// unknown-type policy if the type has no explicit entry.
func (e *Error) RetryConfig() RetryConfig {
	if cfg, ok := DefaultRetryConfigs[e.Type]; ok {
		return cfg
	}
	return DefaultRetryConfigs[ErrorTypeUnknown]
}

// Classify maps an HTTP status code and a flag for empty-but-200 responses
// to an ErrorType. Providers with their own status taxonomy should call
// this after normalizing to a plain status code.
func Classify(statusCode int, emptyResponse bool) ErrorType {
	switch {
	case emptyResponse:
		return ErrorTypeEmptyResponse
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth
	case statusCode == 400 || statusCode == 422:
		return ErrorTypeBadPrompt
	case statusCode >= 500:
		return ErrorTypeTransient
	default:
		return ErrorTypeUnknown
	}
}
