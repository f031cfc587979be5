package continuous

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionEnded is returned once a session reached a terminal state.
	ErrSessionEnded = errors.New("continuous: session ended")
	// ErrSequence means a reauth message did not carry the expected
	// sequence number.
	ErrSequence = errors.New("continuous: unexpected sequence number")
	// ErrSessionMismatch means a reauth message named another session.
	ErrSessionMismatch = errors.New("continuous: session id mismatch")
	// ErrTimeout means the peer missed its deadline.
	ErrTimeout = errors.New("continuous: timed out")
	// ErrPeerError means the peer announced ERROR.
	ErrPeerError = errors.New("continuous: peer reported error")
	// ErrNotStarted is returned by Reauth before GetServiceReauth.
	ErrNotStarted = errors.New("continuous: session not started")
	// ErrLink wraps failures of the ServiceLink.
	ErrLink = errors.New("continuous: link failure")
)

func linkErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLink, op, err)
}
