package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies a handler failure for retry policy selection.
// The set is closed: every failure maps to exactly one category, with
// CategoryTransient as the fallback.
type ErrorCategory string

const (
	// CategoryRateLimited means the remote service signalled throttling and
	// the worker should back off hard before touching it again.
	CategoryRateLimited ErrorCategory = "rate_limited"

	// CategoryTransient covers network faults, timeouts, malformed payloads,
	// and anything else not otherwise classified.
	CategoryTransient ErrorCategory = "transient"
)

// RateLimitError is returned by extractors when the upstream service
// rejected the request with a throttling signal.
type RateLimitError struct {
	Service string
	Message string
}

func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: rate limited", e.Service)
	}
	return fmt.Sprintf("%s: rate limited: %s", e.Service, e.Message)
}

// Classify maps a handler failure onto exactly one category. It is pure:
// no logging, no retrying, no envelope mutation.
func Classify(err error) ErrorCategory {
	var rateLimit *RateLimitError
	if errors.As(err, &rateLimit) {
		return CategoryRateLimited
	}
	return CategoryTransient
}
