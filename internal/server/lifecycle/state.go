package lifecycle

// State is a lifecycle phase.
type State int32

const (
	StateInitializing State = iota
	StateReady
	StateRunning
	StateDraining
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Serving reports whether clients are being accepted in this state.
func (s State) Serving() bool {
	return s == StateReady || s == StateRunning
}
