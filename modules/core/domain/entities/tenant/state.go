package tenant

import "fmt"

// State is the provisioning state of a tenant. Legal transitions:
//
//	pending -> active -> suspended -> deleted
//	active -> deleted (skipping suspension)
//	suspended -> active (billing reactivation)
//
// Everything else is rejected with ErrInvalidTransition. deleted is terminal.
type State string

const (
	StatePending   State = "pending"
	StateActive    State = "active"
	StateSuspended State = "suspended"
	StateDeleted   State = "deleted"
)

var ErrInvalidTransition = fmt.Errorf("invalid tenant state transition")

var legalTransitions = map[State][]State{
	StatePending:   {StateActive},
	StateActive:    {StateSuspended, StateDeleted},
	StateSuspended: {StateActive, StateDeleted},
	StateDeleted:   {},
}

func ParseState(raw string) (State, error) {
	switch State(raw) {
	case StatePending, StateActive, StateSuspended, StateDeleted:
		return State(raw), nil
	}
	return "", fmt.Errorf("unknown tenant state %q", raw)
}

func (s State) ValidateTransition(to State) error {
	for _, allowed := range legalTransitions[s] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
}
