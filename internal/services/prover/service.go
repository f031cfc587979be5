package prover

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"picoauth/internal/channel"
	"picoauth/internal/crypto"
	"picoauth/internal/domain"
	"picoauth/internal/protocol/continuous"
	"picoauth/internal/protocol/message"
	"picoauth/internal/protocol/sigma"
	"picoauth/internal/util/logging"
)

// DefaultDialTimeout bounds the TCP connect to a verifier.
const DefaultDialTimeout = 10 * time.Second

// Service authenticates the local identity to paired services.
//
// For each request it:
//   - Loads our identity from the identity store.
//   - Looks up the service's address and pinned commitment.
//   - Runs the handshake over a fresh connection.
//   - Starts continuous authentication if the service asks for it.
type Service struct {
	ids      domain.IdentityStore
	pairings domain.PairingService
	sched    *TimerScheduler
	log      *logging.Logger

	dial func(address string) channel.Dialer
}

// Option configures a Service.
type Option func(*Service)

// WithDialTimeout overrides DefaultDialTimeout.
func WithDialTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.dial = func(address string) channel.Dialer { return channel.TCPDialer(address, d) }
	}
}

// WithDialer replaces TCP dialing, e.g. with an in-memory pipe.
func WithDialer(dial func(address string) channel.Dialer) Option {
	return func(s *Service) { s.dial = dial }
}

// New constructs a prover Service.
func New(
	ids domain.IdentityStore,
	pairings domain.PairingService,
	sched *TimerScheduler,
	log *logging.Logger,
	opts ...Option,
) *Service {
	if log == nil {
		log = logging.NewNop()
	}
	s := &Service{
		ids:      ids,
		pairings: pairings,
		sched:    sched,
		log:      log,
		dial: func(address string) channel.Dialer {
			return channel.TCPDialer(address, DefaultDialTimeout)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request describes one authentication.
type Request struct {
	Service    string
	Passphrase string
	// Token is opaque application data for the verifier's policy.
	Token []byte
	// Continuous asks the verifier to keep the session alive.
	Continuous bool
	// Timeout, if set, asks for a shorter reauth interval than the
	// verifier's default.
	Timeout time.Duration
	// Callbacks hears about continuous state changes. May be nil.
	Callbacks continuous.Callbacks
}

// Authenticate runs the handshake against req.Service. The returned Session
// is already finished unless the verifier asked for continuous
// authentication.
func (s *Service) Authenticate(ctx context.Context, req Request) (*Session, error) {
	id, err := s.ids.LoadIdentity(req.Passphrase)
	if err != nil {
		return nil, err
	}
	pairing, err := s.pairings.Service(req.Service)
	if err != nil {
		return nil, err
	}

	extra := message.AuthExtra{
		Token:      req.Token,
		Continuous: req.Continuous,
		State:      message.ReauthContinue,
		Timeout:    req.Timeout,
	}
	if req.Continuous {
		extra.Sequence, err = domain.RandomSequenceNumber(rand.Reader)
		if err != nil {
			return nil, err
		}
	}
	extraBytes, err := extra.Marshal()
	if err != nil {
		return nil, err
	}

	log := s.log.With("service", pairing.Name, "address", pairing.Address)
	proxy := channel.NewVerifierProxy(s.dial(pairing.Address), log)
	p, err := sigma.NewProver(id, pairing.Commitment, extraBytes)
	if err != nil {
		proxy.Close()
		return nil, err
	}

	res, err := p.Prove(ctx, proxy)
	if err != nil {
		proxy.Close()
		log.Warn("authentication failed", "kind", sigma.KindOf(err).String(), "err", err)
		return nil, fmt.Errorf("authenticate to %s: %w", pairing.Name, err)
	}
	log = log.With("session", res.SessionID)
	c, err := crypto.Commit(res.VerifierPublicKey)
	if err != nil {
		res.SharedKey.Destroy()
		proxy.Close()
		return nil, err
	}
	log.Info("authenticated", "status", res.Status.String(), "verifier", crypto.Fingerprint(c).String())

	sess := &Session{
		ID:        res.SessionID,
		Service:   pairing.Name,
		Status:    res.Status,
		ExtraData: res.ExtraData,
		proxy:     proxy,
		log:       log,
		done:      make(chan struct{}),
	}
	if !res.Continue() || !req.Continuous {
		res.SharedKey.Destroy()
		sess.finish(nil)
		return sess, nil
	}

	cb := &sessionCallbacks{sess: sess, user: req.Callbacks}
	cp, err := continuous.NewProver(continuous.ProverConfig{
		SessionID: res.SessionID,
		SharedKey: res.SharedKey,
		Extra:     extra,
		Link:      proxy,
		Callbacks: cb,
		Scheduler: s.sched,
	})
	if err != nil {
		res.SharedKey.Destroy()
		sess.finish(err)
		return nil, err
	}
	sess.cp = cp
	cp.Start()
	return sess, nil
}
