package continuous

import (
	"context"
	"fmt"
	"sync"
	"time"

	"picoauth/internal/domain"
	"picoauth/internal/protocol/message"
)

// Callbacks hears about prover-side state changes. Calls are synchronous
// and made without the prover's lock held.
type Callbacks interface {
	SessionPaused()
	SessionContinued()
	SessionStopped()
	SessionError(err error)
	// Tick is called after every completed update.
	Tick()
}

// NopCallbacks ignores every callback.
type NopCallbacks struct{}

func (NopCallbacks) SessionPaused()     {}
func (NopCallbacks) SessionContinued()  {}
func (NopCallbacks) SessionStopped()    {}
func (NopCallbacks) SessionError(error) {}
func (NopCallbacks) Tick()              {}

// Scheduler runs Prover.UpdateVerifier later. SetTimer replaces any timer
// already armed for p.
type Scheduler interface {
	SetTimer(d time.Duration, p *Prover)
	ClearTimer(p *Prover)
}

// ServiceLink is the prover's connection to the verifier after the
// handshake.
type ServiceLink interface {
	Receive(ctx context.Context) (*message.EncServiceReauthMessage, error)
	Send(ctx context.Context, msg *message.EncPicoReauthMessage) error
}

// ProverConfig is what a Prover needs from the handshake.
type ProverConfig struct {
	SessionID int32
	SharedKey *domain.SecretKey
	// Extra is the AuthExtra the prover sent; its State and Sequence seed
	// the session.
	Extra     message.AuthExtra
	Link      ServiceLink
	Callbacks Callbacks
	Scheduler Scheduler
}

// Prover is the prover side of a continuous session. The scheduler drives
// it by calling UpdateVerifier.
type Prover struct {
	// update serializes UpdateVerifier; mu guards the fields below.
	update sync.Mutex
	mu     sync.Mutex

	sessionID int32
	key       *domain.SecretKey
	link      ServiceLink
	callbacks Callbacks
	scheduler Scheduler

	state     State
	peerState message.ReauthState
	stopSent  bool
	lastSent  domain.SequenceNumber
	timeout   time.Duration
	// urgent is set by a local event the verifier has not yet been told of.
	urgent bool
}

// NewProver builds the prover side of a session.
func NewProver(cfg ProverConfig) (*Prover, error) {
	if cfg.SharedKey == nil || cfg.SharedKey.Destroyed() {
		return nil, fmt.Errorf("continuous: new prover: %w", domain.ErrDestroyed)
	}
	if cfg.Link == nil || cfg.Scheduler == nil {
		return nil, fmt.Errorf("continuous: new prover: link and scheduler are required")
	}
	state, err := initialState(cfg.Extra.State)
	if err != nil {
		return nil, err
	}
	cb := cfg.Callbacks
	if cb == nil {
		cb = NopCallbacks{}
	}
	timeout := cfg.Extra.Timeout
	if timeout <= 0 {
		timeout = ActiveTimeout
	}
	return &Prover{
		sessionID: cfg.SessionID,
		key:       cfg.SharedKey,
		link:      cfg.Link,
		callbacks: cb,
		scheduler: cfg.Scheduler,
		state:     state,
		peerState: cfg.Extra.State,
		lastSent:  cfg.Extra.Sequence,
		timeout:   timeout,
	}, nil
}

// Start arms the first update.
func (p *Prover) Start() { p.scheduler.SetTimer(0, p) }

// State returns the current state.
func (p *Prover) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Timeout returns the interval the verifier last asked for.
func (p *Prover) Timeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timeout
}

// UpdateVerifier runs one round: receive the verifier's message, check it,
// answer with the local state, and re-arm the scheduler. Failures end the
// session in ERROR and are reported through Callbacks as well as returned.
func (p *Prover) UpdateVerifier(ctx context.Context) error {
	p.update.Lock()
	defer p.update.Unlock()

	p.mu.Lock()
	ended := p.state.Terminal() && (p.stopSent || p.state != StateStopped)
	p.mu.Unlock()
	if ended {
		p.scheduler.ClearTimer(p)
		return ErrSessionEnded
	}

	enc, err := p.link.Receive(ctx)
	if err != nil {
		return p.fail(linkErr("receive", err))
	}

	p.mu.Lock()
	out, notices, err := p.process(enc)
	p.mu.Unlock()
	p.run(notices)
	if err != nil {
		return p.fail(err)
	}

	if out != nil {
		if err := p.link.Send(ctx, out); err != nil {
			return p.fail(linkErr("send", err))
		}
	}

	p.mu.Lock()
	state, timeout := p.state, p.timeout
	if p.urgent {
		timeout = 0
	}
	p.mu.Unlock()

	p.callbacks.Tick()
	if state.Terminal() {
		p.scheduler.ClearTimer(p)
		return nil
	}
	p.scheduler.SetTimer(timeout, p)

	// A local event since the read above armed its own immediate update,
	// which the SetTimer call may just have replaced.
	p.mu.Lock()
	urgent := p.urgent
	p.mu.Unlock()
	if urgent && timeout != 0 {
		p.scheduler.SetTimer(0, p)
	}
	return nil
}

// process checks the verifier's message and builds the answer, if any.
// Caller holds mu.
func (p *Prover) process(enc *message.EncServiceReauthMessage) (*message.EncPicoReauthMessage, []func(), error) {
	if enc == nil {
		return nil, nil, fmt.Errorf("%w: missing message", message.ErrMissingField)
	}
	if enc.SessionID != p.sessionID {
		return nil, nil, fmt.Errorf("%w: got %d, want %d", ErrSessionMismatch, enc.SessionID, p.sessionID)
	}
	msg, err := enc.Decrypt(p.key)
	if err != nil {
		return nil, nil, err
	}
	p.urgent = false
	if !msg.Sequence.IsResponseTo(p.lastSent) {
		return nil, nil, ErrSequence
	}
	if msg.Timeout > 0 {
		p.timeout = msg.Timeout
	}
	if msg.State == message.ReauthError {
		return nil, nil, ErrPeerError
	}

	var notices []func()
	if msg.State != p.peerState && !p.state.Terminal() {
		notices = p.enter(eventFor(msg.State))
		if p.state == StateStopped {
			// The verifier stopped first; it expects nothing more.
			p.stopSent = true
		}
	}
	p.peerState = msg.State

	switch {
	case p.state == StateStopped && !p.stopSent:
		p.stopSent = true
	case p.state.Terminal():
		return nil, notices, nil
	}

	seq := msg.Sequence.Next()
	out, err := (&message.PicoReauthMessage{
		SessionID: p.sessionID,
		State:     wireState(p.state),
		Sequence:  seq,
	}).Encrypt(p.key)
	if err != nil {
		return nil, notices, err
	}
	p.lastSent = seq
	return out, notices, nil
}

// enter applies e and returns the callbacks it causes. Caller holds mu.
func (p *Prover) enter(e Event) []func() {
	from := p.state
	to, err := Transition(from, e)
	if err != nil || to == from {
		return nil
	}
	p.state = to
	switch to {
	case StatePaused:
		return []func(){p.callbacks.SessionPaused}
	case StateActive:
		return []func(){p.callbacks.SessionContinued}
	case StateStopped:
		return []func(){p.callbacks.SessionStopped}
	default:
		return nil
	}
}

func (p *Prover) run(notices []func()) {
	for _, n := range notices {
		n()
	}
}

// fail moves to ERROR, reports err and stops the timer.
func (p *Prover) fail(err error) error {
	p.mu.Lock()
	if !p.state.Terminal() || (p.state == StateStopped && !p.stopSent) {
		p.state = StateError
	}
	p.mu.Unlock()

	p.callbacks.SessionError(err)
	p.scheduler.ClearTimer(p)
	return err
}

// Pause asks the verifier to pause at the next update, which is brought
// forward.
func (p *Prover) Pause() error { return p.local(EventPause) }

// Resume asks the verifier to continue.
func (p *Prover) Resume() error { return p.local(EventContinue) }

// Stop ends the session after one final STOP message.
func (p *Prover) Stop() error { return p.local(EventStop) }

func (p *Prover) local(e Event) error {
	p.mu.Lock()
	if p.state.Terminal() {
		s := p.state
		p.mu.Unlock()
		return fmt.Errorf("%w: %s in %s", ErrInvalidEvent, e, s)
	}
	notices := p.enter(e)
	p.urgent = true
	p.mu.Unlock()

	p.run(notices)
	p.scheduler.SetTimer(0, p)
	return nil
}

// Destroy wipes the shared key.
func (p *Prover) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.key.Destroy()
}
