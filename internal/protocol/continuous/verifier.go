package continuous

import (
	"crypto/ecdsa"
	"fmt"
	"sync"
	"time"

	"picoauth/internal/domain"
	"picoauth/internal/protocol/message"
)

const (
	ActiveTimeout  = 10 * time.Second
	PausedTimeout  = 50 * time.Second
	VerifierLeeway = 5 * time.Second
)

// Notifier hears about verifier-side state changes. Calls are synchronous
// and made without the verifier's lock held.
type Notifier interface {
	OnPause(peer *ecdsa.PublicKey)
	OnResume(peer *ecdsa.PublicKey)
	OnStop(peer *ecdsa.PublicKey)
	OnError(peer *ecdsa.PublicKey, err error)
}

// NopNotifier ignores every notification.
type NopNotifier struct{}

func (NopNotifier) OnPause(*ecdsa.PublicKey)        {}
func (NopNotifier) OnResume(*ecdsa.PublicKey)       {}
func (NopNotifier) OnStop(*ecdsa.PublicKey)         {}
func (NopNotifier) OnError(*ecdsa.PublicKey, error) {}

// VerifierOption configures a Verifier.
type VerifierOption func(*verifierConfig)

type verifierConfig struct {
	now           func() time.Time
	activeTimeout time.Duration
	pausedTimeout time.Duration
	leeway        time.Duration
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) VerifierOption {
	return func(c *verifierConfig) { c.now = now }
}

// WithTimeouts overrides the timeouts announced for ACTIVE and PAUSED.
// Non-positive values keep the defaults.
func WithTimeouts(active, paused time.Duration) VerifierOption {
	return func(c *verifierConfig) {
		if active > 0 {
			c.activeTimeout = active
		}
		if paused > 0 {
			c.pausedTimeout = paused
		}
	}
}

// WithLeeway overrides the grace period added to every deadline.
func WithLeeway(d time.Duration) VerifierOption {
	return func(c *verifierConfig) {
		if d >= 0 {
			c.leeway = d
		}
	}
}

// Verifier is the verifier side of a continuous session. Reauth is called
// once per incoming message by whoever owns the connection.
type Verifier struct {
	mu  sync.Mutex
	cfg verifierConfig

	sessionID int32
	peer      *ecdsa.PublicKey
	key       *domain.SecretKey
	notifier  Notifier

	state     State
	peerState message.ReauthState
	started   bool
	// stopPending is set by a local Stop until STOP has been sent once.
	stopPending bool
	initial     domain.SequenceNumber
	last        domain.SequenceNumber
	deadline    time.Time
}

// NewVerifier builds the verifier side from the handshake outcome. extra is
// the prover's AuthExtra; its Timeout, if shorter than the configured ACTIVE
// timeout, replaces it.
func NewVerifier(sessionID int32, peer *ecdsa.PublicKey, sharedKey *domain.SecretKey, extra message.AuthExtra, notifier Notifier, opts ...VerifierOption) (*Verifier, error) {
	if sharedKey == nil || sharedKey.Destroyed() {
		return nil, fmt.Errorf("continuous: new verifier: %w", domain.ErrDestroyed)
	}
	state, err := initialState(extra.State)
	if err != nil {
		return nil, err
	}
	cfg := verifierConfig{
		now:           time.Now,
		activeTimeout: ActiveTimeout,
		pausedTimeout: PausedTimeout,
		leeway:        VerifierLeeway,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if extra.Timeout > 0 && extra.Timeout < cfg.activeTimeout {
		cfg.activeTimeout = extra.Timeout
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Verifier{
		cfg:       cfg,
		sessionID: sessionID,
		peer:      peer,
		key:       sharedKey,
		notifier:  notifier,
		state:     state,
		peerState: extra.State,
		initial:   extra.Sequence,
	}, nil
}

// State returns the current state.
func (v *Verifier) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Deadline returns the time by which the next reauth must arrive.
func (v *Verifier) Deadline() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.deadline
}

func (v *Verifier) timeoutFor(s State) time.Duration {
	if s == StatePaused {
		return v.cfg.pausedTimeout
	}
	return v.cfg.activeTimeout
}

// GetServiceReauth builds the first service message of the session. It can
// be called once.
func (v *Verifier) GetServiceReauth() (*message.EncServiceReauthMessage, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.started {
		return nil, fmt.Errorf("%w: already started", ErrInvalidEvent)
	}
	if v.state.Terminal() {
		return nil, ErrSessionEnded
	}
	enc, err := v.reply(v.initial.Next())
	if err != nil {
		return nil, err
	}
	v.started = true
	return enc, nil
}

// reply encrypts the service message for the current state and moves the
// deadline. Caller holds mu.
func (v *Verifier) reply(seq domain.SequenceNumber) (*message.EncServiceReauthMessage, error) {
	timeout := v.timeoutFor(v.state)
	enc, err := (&message.ServiceReauthMessage{
		SessionID: v.sessionID,
		State:     wireState(v.state),
		Timeout:   timeout,
		Sequence:  seq,
	}).Encrypt(v.key)
	if err != nil {
		return nil, err
	}
	v.last = seq
	v.deadline = v.cfg.now().Add(timeout + v.cfg.leeway)
	return enc, nil
}

// Reauth processes one prover message and returns the reply to send.
//
// A late message moves the session to TIMEOUT; a message for another
// session, one that does not decrypt, or one with the wrong sequence number
// moves it to ERROR. In both cases the sequence counter is left alone and an
// error is returned with no reply.
func (v *Verifier) Reauth(enc *message.EncPicoReauthMessage) (*message.EncServiceReauthMessage, error) {
	v.mu.Lock()
	reply, notices, err := v.reauth(enc)
	v.mu.Unlock()

	for _, n := range notices {
		n()
	}
	return reply, err
}

func (v *Verifier) reauth(enc *message.EncPicoReauthMessage) (*message.EncServiceReauthMessage, []func(), error) {
	if !v.started {
		return nil, nil, ErrNotStarted
	}
	if v.state.Terminal() && !(v.state == StateStopped && v.stopPending) {
		return nil, nil, ErrSessionEnded
	}
	if !v.state.Terminal() && v.cfg.now().After(v.deadline) {
		return nil, v.enter(EventTimeout, ErrTimeout), ErrTimeout
	}

	msg, err := v.open(enc)
	if err != nil {
		return nil, v.enter(EventError, err), err
	}

	var notices []func()
	if v.stopPending {
		v.stopPending = false
	} else if msg.State != v.peerState {
		notices = v.enter(eventFor(msg.State), ErrPeerError)
	}
	v.peerState = msg.State

	reply, err := v.reply(msg.Sequence.Next())
	if err != nil {
		v.state = StateError
		notices = append(notices, v.errorNotice(err))
		return nil, notices, err
	}
	return reply, notices, nil
}

func (v *Verifier) open(enc *message.EncPicoReauthMessage) (*message.PicoReauthMessage, error) {
	if enc == nil {
		return nil, fmt.Errorf("%w: missing message", message.ErrMissingField)
	}
	if enc.SessionID != v.sessionID {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSessionMismatch, enc.SessionID, v.sessionID)
	}
	msg, err := enc.Decrypt(v.key)
	if err != nil {
		return nil, err
	}
	if !msg.Sequence.IsResponseTo(v.last) {
		return nil, ErrSequence
	}
	return msg, nil
}

// enter applies e and returns the notifications it causes. cause is
// reported when e lands in ERROR or TIMEOUT. Caller holds mu.
func (v *Verifier) enter(e Event, cause error) []func() {
	from := v.state
	to, err := Transition(from, e)
	if err != nil || to == from {
		return nil
	}
	v.state = to
	peer := v.peer
	switch to {
	case StatePaused:
		return []func(){func() { v.notifier.OnPause(peer) }}
	case StateActive:
		return []func(){func() { v.notifier.OnResume(peer) }}
	case StateStopped:
		return []func(){func() { v.notifier.OnStop(peer) }}
	default:
		return []func(){v.errorNotice(cause)}
	}
}

func (v *Verifier) errorNotice(err error) func() {
	peer := v.peer
	return func() { v.notifier.OnError(peer, err) }
}

// Pause holds the session in PAUSED until Resume. The prover learns of it
// from the next reply.
func (v *Verifier) Pause() error { return v.local(EventPause) }

// Resume returns a paused session to ACTIVE.
func (v *Verifier) Resume() error { return v.local(EventContinue) }

// Stop ends the session. The next valid reauth is answered with STOP.
func (v *Verifier) Stop() error { return v.local(EventStop) }

func (v *Verifier) local(e Event) error {
	v.mu.Lock()
	if v.state.Terminal() {
		s := v.state
		v.mu.Unlock()
		return fmt.Errorf("%w: %s in %s", ErrInvalidEvent, e, s)
	}
	notices := v.enter(e, nil)
	if v.state == StateStopped {
		v.stopPending = v.started
	}
	v.mu.Unlock()

	for _, n := range notices {
		n()
	}
	return nil
}

// Expire applies the lazy timeout check without a message. Callers use it
// once they stop waiting for the prover, e.g. on a read deadline. It
// reports whether the session is now in TIMEOUT.
func (v *Verifier) Expire() bool {
	v.mu.Lock()
	var notices []func()
	if v.started && !v.state.Terminal() && v.cfg.now().After(v.deadline) {
		notices = v.enter(EventTimeout, ErrTimeout)
	}
	timedOut := v.state == StateTimeout
	v.mu.Unlock()

	for _, n := range notices {
		n()
	}
	return timedOut
}

// Destroy wipes the shared key.
func (v *Verifier) Destroy() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.key.Destroy()
}
