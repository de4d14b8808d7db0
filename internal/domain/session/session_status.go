package session

import "fmt"

// Status is the lifecycle state of a planning session.
type Status string

const (
	StatusCreated  Status = "created"
	StatusFetching Status = "fetching"
	StatusReady    Status = "ready"
	StatusFailed   Status = "failed"
)

// validTransitions defines the session state machine. A fetch may start from
// any state, including while another fetch is running; the generation
// counter decides which result wins.
var validTransitions = map[Status][]Status{
	StatusCreated:  {StatusFetching},
	StatusFetching: {StatusFetching, StatusReady, StatusFailed},
	StatusReady:    {StatusFetching},
	StatusFailed:   {StatusFetching},
}

// IsValid returns true if the status is a recognized session status.
func (s Status) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a string to a Status, returning an error if invalid.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid session status: %s", s)
	}
	return status, nil
}
