package reception

// State represents the lifecycle state of a reception
type State string

const (
	StatePending  State = "PENDIENTE"
	StateVerified State = "VERIFICADO"
	StateAccepted State = "ACEPTADO"
	StateRejected State = "RECHAZADO"
	StateAnnulled State = "ANULADO"
)

// AllStates lists every reception state in lifecycle order
var AllStates = []State{StatePending, StateVerified, StateAccepted, StateRejected, StateAnnulled}

// IsValid checks if the state is a known reception state
func (s State) IsValid() bool {
	switch s {
	case StatePending, StateVerified, StateAccepted, StateRejected, StateAnnulled:
		return true
	}
	return false
}

// String returns the string representation of State
func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s State) IsTerminal() bool {
	return s == StateAccepted || s == StateRejected || s == StateAnnulled
}

// CanTransitionTo checks if the state can transition to the target state
func (s State) CanTransitionTo(target State) bool {
	switch s {
	case StatePending:
		return target == StateVerified || target == StateRejected || target == StateAnnulled
	case StateVerified:
		return target == StateAccepted || target == StateRejected || target == StateAnnulled
	case StateAccepted, StateRejected, StateAnnulled:
		return false
	}
	return false
}

// ParseState converts user input into a State
func ParseState(value string) (State, error) {
	s := State(value)
	if !s.IsValid() {
		return "", ErrInvalidState(value)
	}
	return s, nil
}

// LineState represents the per-line outcome of a reception
type LineState string

const (
	LineStatePending  LineState = "PENDIENTE"
	LineStateAccepted LineState = "ACEPTADA"
	LineStateRejected LineState = "RECHAZADA"
)

// IsValid checks if the line state is known
func (s LineState) IsValid() bool {
	switch s {
	case LineStatePending, LineStateAccepted, LineStateRejected:
		return true
	}
	return false
}

// String returns the string representation of LineState
func (s LineState) String() string {
	return string(s)
}
