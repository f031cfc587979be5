package prover

import (
	"errors"
	"sync"

	"picoauth/internal/channel"
	"picoauth/internal/protocol/continuous"
	"picoauth/internal/protocol/message"
	"picoauth/internal/util/logging"
)

// ErrNotContinuous is returned by Pause, Resume and Stop on a session
// without continuous authentication.
var ErrNotContinuous = errors.New("prover: session is not continuous")

// Session is an authenticated session with a verifier.
type Session struct {
	ID        int32
	Service   string
	Status    message.Status
	ExtraData []byte

	cp    *continuous.Prover
	proxy *channel.VerifierProxy
	log   *logging.Logger

	once sync.Once
	done chan struct{}
	err  error
}

// Continuous reports whether the session is kept alive after the handshake.
func (s *Session) Continuous() bool { return s.cp != nil }

// State returns the continuous state, or STOPPED for a one-shot session.
func (s *Session) State() continuous.State {
	if s.cp == nil {
		return continuous.StateStopped
	}
	return s.cp.State()
}

// Pause asks the verifier to pause the session.
func (s *Session) Pause() error {
	if s.cp == nil {
		return ErrNotContinuous
	}
	return s.cp.Pause()
}

// Resume asks the verifier to continue the session.
func (s *Session) Resume() error {
	if s.cp == nil {
		return ErrNotContinuous
	}
	return s.cp.Resume()
}

// Stop ends the session. Done is closed once STOP has been sent.
func (s *Session) Stop() error {
	if s.cp == nil {
		return ErrNotContinuous
	}
	return s.cp.Stop()
}

// Done is closed when the session ends for any reason.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns why the session ended, or nil for a clean stop. It is only
// meaningful after Done is closed.
func (s *Session) Err() error {
	<-s.done
	return s.err
}

// finish releases the connection and key and closes Done, once.
func (s *Session) finish(err error) {
	s.once.Do(func() {
		s.err = err
		if s.cp != nil {
			s.cp.Destroy()
		}
		_ = s.proxy.Close()
		close(s.done)
	})
}

// sessionCallbacks logs continuous events, forwards them and ends the
// Session when the prover reaches a terminal state.
type sessionCallbacks struct {
	sess *Session
	user continuous.Callbacks
}

func (c *sessionCallbacks) SessionPaused() {
	c.sess.log.Info("session paused")
	if c.user != nil {
		c.user.SessionPaused()
	}
}

func (c *sessionCallbacks) SessionContinued() {
	c.sess.log.Info("session continued")
	if c.user != nil {
		c.user.SessionContinued()
	}
}

func (c *sessionCallbacks) SessionStopped() {
	c.sess.log.Info("session stopped")
	if c.user != nil {
		c.user.SessionStopped()
	}
}

func (c *sessionCallbacks) SessionError(err error) {
	c.sess.log.Warn("session error", "err", err)
	if c.user != nil {
		c.user.SessionError(err)
	}
	c.sess.finish(err)
}

func (c *sessionCallbacks) Tick() {
	if c.user != nil {
		c.user.Tick()
	}
	if c.sess.cp != nil && c.sess.cp.State().Terminal() {
		c.sess.finish(nil)
	}
}
