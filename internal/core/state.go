package core

// Delivery states. Each delivery moves Received -> Processing and exits
// through exactly one terminal state; Failed is the only branching point.
const (
	StateReceived   = "received"
	StateProcessing = "processing"
	StateSucceeded  = "succeeded"
	StateFailed     = "failed"
	StateScheduled  = "scheduled"
	StateGivenUp    = "given_up"
)

// validTransitions defines the allowed state transitions.
var validTransitions = map[string][]string{
	StateReceived:   {StateProcessing},
	StateProcessing: {StateSucceeded, StateFailed},
	StateFailed:     {StateScheduled, StateGivenUp},
	StateSucceeded:  {},
	StateScheduled:  {},
	StateGivenUp:    {},
}

// IsValidTransition checks if a state transition is allowed.
func IsValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, t := range targets {
		if t == to {
			return true
		}
	}
	return false
}

// IsTerminalState returns true if the state ends the delivery's lifecycle.
// Scheduled is terminal for the delivery itself: the re-published message
// arrives later as a new delivery of the same logical envelope.
func IsTerminalState(state string) bool {
	return state == StateSucceeded || state == StateScheduled || state == StateGivenUp
}
