package core

import (
	"time"
)

const (
	Version = "0.3.1"

	TimeFormat = "2006-01-02T15:04:05.000Z"
)

// Broker header keys carried across redeliveries of the same logical message.
const (
	HeaderRetryCount   = "x-retry-count"
	HeaderFirstAttempt = "x-first-attempt"
	HeaderLastError    = "x-last-error"
	HeaderCategory     = "x-error-category"

	// HeaderDelay is consumed by the delayed-message exchange; it is set by
	// the delay router per publish and never carried in the envelope itself.
	HeaderDelay = "x-delay"
)

// MaxErrorLen caps the failure text stored in headers so driver errors
// cannot bloat the message.
const MaxErrorLen = 500

// FormatTime formats a time as ISO 8601 UTC with millisecond precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// Envelope is the unit of work: an opaque payload plus the retry metadata
// the broker carries for it. The broker headers are the only retry state;
// nothing about prior attempts is held in process.
type Envelope struct {
	Payload      []byte
	RetryCount   int
	FirstAttempt time.Time // zero until the first failure
	LastError    string
	Category     ErrorCategory

	// extra preserves inbound headers this worker does not interpret, so
	// they survive the delay hop untouched.
	extra map[string]any
}

// FromDelivery builds an Envelope from a delivery's payload and headers.
// A missing x-retry-count means this is the first attempt.
func FromDelivery(payload []byte, headers map[string]any) *Envelope {
	env := &Envelope{
		Payload: payload,
		extra:   make(map[string]any, len(headers)),
	}

	for k, v := range headers {
		switch k {
		case HeaderRetryCount:
			env.RetryCount = headerInt(v)
		case HeaderFirstAttempt:
			if sec := int64(headerInt(v)); sec > 0 {
				env.FirstAttempt = time.Unix(sec, 0)
			}
		case HeaderLastError:
			if s, ok := v.(string); ok {
				env.LastError = s
			}
		case HeaderCategory:
			if s, ok := v.(string); ok {
				env.Category = ErrorCategory(s)
			}
		case HeaderDelay:
			// Stale scheduling detail from the previous hop; dropped.
		default:
			env.extra[k] = v
		}
	}

	return env
}

// RecordFailure updates the mutable failure fields after a handler error.
// FirstAttempt is set exactly once, on the very first failure.
func (e *Envelope) RecordFailure(cause error, category ErrorCategory, now time.Time) {
	if e.FirstAttempt.IsZero() {
		e.FirstAttempt = now
	}
	e.LastError = TruncateError(cause.Error())
	e.Category = category
}

// Headers renders the envelope's metadata as broker headers for re-publish.
// Uninterpreted inbound headers are passed through unchanged.
func (e *Envelope) Headers() map[string]any {
	headers := make(map[string]any, len(e.extra)+4)
	for k, v := range e.extra {
		headers[k] = v
	}

	headers[HeaderRetryCount] = int32(e.RetryCount)
	if !e.FirstAttempt.IsZero() {
		headers[HeaderFirstAttempt] = e.FirstAttempt.Unix()
	}
	if e.LastError != "" {
		headers[HeaderLastError] = e.LastError
	}
	if e.Category != "" {
		headers[HeaderCategory] = string(e.Category)
	}

	return headers
}

// TruncateError caps an error message at MaxErrorLen bytes.
func TruncateError(s string) string {
	if len(s) > MaxErrorLen {
		return s[:MaxErrorLen]
	}
	return s
}

// headerInt reads an integer header regardless of the wire type the AMQP
// field table decoded it to.
func headerInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
