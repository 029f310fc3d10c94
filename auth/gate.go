package auth

import (
	"context"
)

// State is the outcome of the capture-consent check. It is produced at
// most once per process; there is no re-asking within a run.
type State int

const (
	NotDetermined State = iota
	Authorized
	Denied
	Restricted
)

func (s State) String() string {
	switch s {
	case NotDetermined:
		return "not determined"
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	case Restricted:
		return "restricted"
	default:
		return "unknown"
	}
}

// Gate answers whether this process may capture and transcribe audio.
// Request resolves exactly once; later calls return the memoized outcome.
type Gate interface {
	Request(ctx context.Context) (State, error)
}

type staticGate struct {
	state State
}

// Static returns a gate that always resolves to the given state.
func Static(state State) Gate {
	return staticGate{state: state}
}

func (g staticGate) Request(context.Context) (State, error) {
	return g.state, nil
}
