package ai

import (
	"errors"
	"regexp"
)

var (
	// ErrUnavailable means no usable credential is configured; no network
	// attempt was made.
	ErrUnavailable = errors.New("ai provider not configured")
	// ErrTimeout marks a per-attempt deadline hit, distinct from a parent
	// request cancellation.
	ErrTimeout = errors.New("ai generation timed out")
)

// RateLimitError carries the upstream retry-delay hint when one is present
// in the provider's quota error.
type RateLimitError struct {
	RetryAfter string
	Cause      error
}

func (e *RateLimitError) Error() string {
	if e.Cause != nil {
		return "rate limited: " + e.Cause.Error()
	}
	return "rate limited"
}

func (e *RateLimitError) Unwrap() error {
	return e.Cause
}

// Gemini quota errors embed RetryInfo details; the delay shows up in the
// rendered error text as retryDelay:"30s" (quoting varies by version).
var retryDelayRegex = regexp.MustCompile(`retryDelay"?\s*[:=]\s*"?([0-9]+(?:\.[0-9]+)?m?s)`)

func retryDelayFromError(err error) string {
	if err == nil {
		return ""
	}
	match := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(match) < 2 {
		return ""
	}
	return match[1]
}
