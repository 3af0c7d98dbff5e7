package session

// State is a step of the session lifecycle:
//
//	Uninitialized -> Bootstrapped | Resumed -> Ready -> (Recognizing <-> Learning) -> Finalizing -> Closed
type State int

const (
	Uninitialized State = iota
	Bootstrapped
	Resumed
	Ready
	Recognizing
	Learning
	Finalizing
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Bootstrapped:
		return "bootstrapped"
	case Resumed:
		return "resumed"
	case Ready:
		return "ready"
	case Recognizing:
		return "recognizing"
	case Learning:
		return "learning"
	case Finalizing:
		return "finalizing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
