package domain

// State is the protocol position of a session.
type State int

const (
	// StateInit: connected, no nickname yet.
	StateInit State = iota
	// StateOutside: nickname set, not in a room.
	StateOutside
	// StateInside: nickname set and member of exactly one room.
	StateInside
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateOutside:
		return "outside"
	case StateInside:
		return "inside"
	default:
		return "unknown"
	}
}

// Registered reports whether a nickname has been claimed.
func (s State) Registered() bool { return s != StateInit }
