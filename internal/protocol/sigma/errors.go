package sigma

import (
	"errors"
	"fmt"

	"picoauth/internal/domain"
	"picoauth/internal/protocol/kdf"
	"picoauth/internal/protocol/message"
)

var (
	ErrTransport         = errors.New("sigma: transport failure")
	ErrProtocolViolation = errors.New("sigma: protocol violation")
	ErrAuthFailed        = errors.New("sigma: authentication failed")
	ErrRejected          = errors.New("sigma: rejected")
	ErrConfigFault       = errors.New("sigma: configuration fault")
	ErrInvalidState      = errors.New("sigma: invalid state for operation")

	// ErrVerifierAuthFailed means the verifier's key, signature or MAC did
	// not check out on the prover side.
	ErrVerifierAuthFailed = fmt.Errorf("%w: verifier", ErrAuthFailed)
	// ErrProverAuthFailed means the prover's signature or MAC did not check
	// out on the verifier side.
	ErrProverAuthFailed = fmt.Errorf("%w: prover", ErrAuthFailed)
)

// Kind is the closed set of handshake failure classes.
type Kind int

const (
	KindNone Kind = iota
	KindTransport
	KindProtocolViolation
	KindAuthFailed
	KindRejected
	KindConfigFault
	KindInvalidState
	KindUnknown
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransport:
		return "transport"
	case KindProtocolViolation:
		return "protocol violation"
	case KindAuthFailed:
		return "authentication failed"
	case KindRejected:
		return "rejected"
	case KindConfigFault:
		return "configuration fault"
	case KindInvalidState:
		return "invalid state"
	default:
		return "unknown"
	}
}

// KindOf classifies err. Transport wins over anything it wraps, since a
// remote's own failure reaches the prover as a transport failure.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrConfigFault):
		return KindConfigFault
	case errors.Is(err, ErrProtocolViolation):
		return KindProtocolViolation
	case errors.Is(err, ErrAuthFailed):
		return KindAuthFailed
	case errors.Is(err, ErrRejected):
		return KindRejected
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	default:
		return KindUnknown
	}
}

func transportErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocolViolation, fmt.Sprintf(format, args...))
}

func configFault(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrConfigFault, op, err)
}

// codecErr maps a message or kdf failure onto the taxonomy: a key the codec
// cannot use is a local fault, everything else is the peer's.
func codecErr(op string, err error) error {
	if errors.Is(err, message.ErrConfigFault) || errors.Is(err, domain.ErrDestroyed) ||
		errors.Is(err, kdf.ErrExhausted) || errors.Is(err, kdf.ErrDestroyed) ||
		errors.Is(err, kdf.ErrKeyLength) {
		return configFault(op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrProtocolViolation, op, err)
}
