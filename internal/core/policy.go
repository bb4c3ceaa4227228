package core

import (
	"fmt"
	"sort"
	"time"
)

// DefaultMaxAttempts is the retry ceiling shared by every category.
const DefaultMaxAttempts = 3

// defaultLadders are the per-category backoff ladders. Rate-limited
// failures wait strictly longer than transient ones at every rung.
var defaultLadders = map[ErrorCategory][]time.Duration{
	CategoryTransient:   {30 * time.Second, 5 * time.Minute, 15 * time.Minute, time.Hour},
	CategoryRateLimited: {5 * time.Minute, 15 * time.Minute, time.Hour},
}

// PolicyTable maps (category, attempt index) to a retry delay and owns the
// give-up ceiling. It is a pure lookup; scheduling is the coordinator's job.
type PolicyTable struct {
	maxAttempts int
	ladders     map[ErrorCategory][]time.Duration
}

// NewPolicyTable builds a table with the default ladders and the given
// ceiling. A non-positive ceiling falls back to DefaultMaxAttempts.
func NewPolicyTable(maxAttempts int) *PolicyTable {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &PolicyTable{
		maxAttempts: maxAttempts,
		ladders:     defaultLadders,
	}
}

// MaxAttempts returns the shared retry ceiling.
func (t *PolicyTable) MaxAttempts() int {
	return t.maxAttempts
}

// GiveUp reports whether a message with the given prior-failure count has
// exhausted its retries and belongs in the failure sink.
func (t *PolicyTable) GiveUp(retryCount int) bool {
	return retryCount >= t.maxAttempts
}

// DelayFor returns the delay before the next attempt. The attempt index is
// clamped to the last rung of its ladder rather than erroring, so a ceiling
// raised past the ladder length cannot crash the coordinator; the give-up
// check happens before this lookup is ever reached. Unknown categories use
// the transient ladder.
func (t *PolicyTable) DelayFor(category ErrorCategory, attempt int) time.Duration {
	ladder, ok := t.ladders[category]
	if !ok {
		ladder = t.ladders[CategoryTransient]
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(ladder) {
		attempt = len(ladder) - 1
	}
	return ladder[attempt]
}

// DistinctDelays returns every delay the table can produce, sorted
// ascending and deduplicated. The ladder delay strategy declares one
// fixed-TTL queue per entry.
func (t *PolicyTable) DistinctDelays() []time.Duration {
	seen := make(map[time.Duration]bool)
	var delays []time.Duration
	for _, ladder := range t.ladders {
		for _, d := range ladder {
			if !seen[d] {
				seen[d] = true
				delays = append(delays, d)
			}
		}
	}
	sort.Slice(delays, func(i, j int) bool { return delays[i] < delays[j] })
	return delays
}

// DelayLabel renders a delay the way operators read it: 30s, 5m, 1h.
func DelayLabel(d time.Duration) string {
	sec := int(d.Seconds())
	switch {
	case sec < 60:
		return fmt.Sprintf("%ds", sec)
	case sec < 3600:
		return fmt.Sprintf("%dm", sec/60)
	default:
		return fmt.Sprintf("%dh", sec/3600)
	}
}
