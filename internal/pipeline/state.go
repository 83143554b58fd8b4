package pipeline

// State is the orchestrator lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateValidating
	StateRunning
	StateDraining
	StateCompleted
	StateFailedFatal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateCompleted:
		return "completed"
	case StateFailedFatal:
		return "failed_fatal"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
