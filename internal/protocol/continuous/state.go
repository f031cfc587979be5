package continuous

import (
	"errors"
	"fmt"

	"picoauth/internal/protocol/message"
)

// State is a continuous session state.
type State int

const (
	StateActive State = iota
	StatePaused
	StateStopped
	StateTimeout
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StatePaused:
		return "PAUSED"
	case StateStopped:
		return "STOPPED"
	case StateTimeout:
		return "TIMEOUT"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further event is accepted.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateTimeout || s == StateError
}

// Event drives Transition.
type Event int

const (
	EventContinue Event = iota
	EventPause
	EventStop
	EventTimeout
	EventError
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventContinue:
		return "continue"
	case EventPause:
		return "pause"
	case EventStop:
		return "stop"
	case EventTimeout:
		return "timeout"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrInvalidEvent is returned for an event the current state does not accept.
var ErrInvalidEvent = errors.New("continuous: invalid event for state")

// Transition returns the state s moves to on e. Terminal states accept
// nothing.
func Transition(s State, e Event) (State, error) {
	if s.Terminal() {
		return s, fmt.Errorf("%w: %s in %s", ErrInvalidEvent, e, s)
	}
	switch e {
	case EventContinue:
		return StateActive, nil
	case EventPause:
		return StatePaused, nil
	case EventStop:
		return StateStopped, nil
	case EventTimeout:
		return StateTimeout, nil
	case EventError:
		return StateError, nil
	default:
		return s, fmt.Errorf("%w: %d", ErrInvalidEvent, int(e))
	}
}

// wireState is the ReauthState a side announces while in s.
func wireState(s State) message.ReauthState {
	switch s {
	case StateActive:
		return message.ReauthContinue
	case StatePaused:
		return message.ReauthPause
	case StateStopped:
		return message.ReauthStop
	default:
		return message.ReauthError
	}
}

// eventFor maps an announced ReauthState onto the event it requests.
func eventFor(rs message.ReauthState) Event {
	switch rs {
	case message.ReauthContinue:
		return EventContinue
	case message.ReauthPause:
		return EventPause
	case message.ReauthStop:
		return EventStop
	default:
		return EventError
	}
}

// initialState maps the state requested in AuthExtra.
func initialState(rs message.ReauthState) (State, error) {
	switch rs {
	case message.ReauthContinue:
		return StateActive, nil
	case message.ReauthPause:
		return StatePaused, nil
	default:
		return StateError, fmt.Errorf("%w: cannot start in %s", ErrInvalidEvent, rs)
	}
}
