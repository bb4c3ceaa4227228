package core

import (
	"encoding/json"
	"time"
)

// FailureRecord is the terminal payload written to the failure queue once a
// message has exhausted its retries. Entries are append-only; nothing in
// this worker ever mutates or deletes them.
type FailureRecord struct {
	OriginalMessage json.RawMessage `json:"original_message"`
	Error           string          `json:"error"`
	RetryCount      int             `json:"retry_count"`
	FailedAt        string          `json:"failed_at"`
}

// NewFailureRecord builds the sink payload for an exhausted envelope. A
// payload that is not valid JSON is embedded as a JSON string so the record
// itself always parses.
func NewFailureRecord(env *Envelope, finalError string, now time.Time) FailureRecord {
	original := json.RawMessage(env.Payload)
	if !json.Valid(env.Payload) {
		quoted, err := json.Marshal(string(env.Payload))
		if err == nil {
			original = quoted
		} else {
			original = json.RawMessage(`null`)
		}
	}

	return FailureRecord{
		OriginalMessage: original,
		Error:           TruncateError(finalError),
		RetryCount:      env.RetryCount,
		FailedAt:        FormatTime(now),
	}
}
