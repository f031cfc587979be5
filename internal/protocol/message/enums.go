package message

// Status is the verifier's verdict carried by a StatusMessage.
type Status uint8

const (
	// StatusRejected refuses the authentication.
	StatusRejected Status = 0
	// StatusOKDone accepts it with no continuous phase.
	StatusOKDone Status = 1
	// StatusOKContinue accepts it and starts continuous reauthentication.
	StatusOKContinue Status = 2
)

func (s Status) valid() bool { return s <= StatusOKContinue }

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusRejected:
		return "REJECTED"
	case StatusOKDone:
		return "OK_DONE"
	case StatusOKContinue:
		return "OK_CONTINUE"
	default:
		return "UNKNOWN"
	}
}

// ReauthState is the state a party announces in a reauth message.
type ReauthState uint8

const (
	// ReauthContinue keeps the session active.
	ReauthContinue ReauthState = 0
	// ReauthPause suspends the session.
	ReauthPause ReauthState = 1
	// ReauthStop ends the session.
	ReauthStop ReauthState = 2
	// ReauthError reports a failure; the session is over.
	ReauthError ReauthState = 3
)

func (s ReauthState) valid() bool { return s <= ReauthError }

// String returns the state name.
func (s ReauthState) String() string {
	switch s {
	case ReauthContinue:
		return "CONTINUE"
	case ReauthPause:
		return "PAUSE"
	case ReauthStop:
		return "STOP"
	case ReauthError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
