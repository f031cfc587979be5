package verifier

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"picoauth/internal/channel"
	"picoauth/internal/crypto"
	"picoauth/internal/domain"
	"picoauth/internal/protocol/continuous"
	"picoauth/internal/protocol/message"
	"picoauth/internal/protocol/sigma"
	"picoauth/internal/util/logging"
)

// DefaultHandshakeTimeout bounds the whole handshake on one connection.
const DefaultHandshakeTimeout = 15 * time.Second

// Record states beyond the continuous ones.
const (
	StateDone     = "DONE"
	StateRejected = "REJECTED"
	StateLost     = "DISCONNECTED"
)

var (
	ErrNotListening   = errors.New("verifier: not listening")
	ErrUnknownSession = errors.New("verifier: unknown session")
)

// Config tunes the service.
type Config struct {
	Address          string
	AllowContinuous  bool
	ActiveTimeout    time.Duration
	PausedTimeout    time.Duration
	Leeway           time.Duration
	HandshakeTimeout time.Duration
}

// Service accepts prover connections.
type Service struct {
	cfg      Config
	id       domain.Identity
	pairings domain.PairingService
	sessions domain.SessionStore
	log      *logging.Logger
	now      func() time.Time

	mu     sync.Mutex
	ln     net.Listener
	live   map[string]*continuous.Verifier
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a verifier Service.
func New(
	cfg Config,
	id domain.Identity,
	pairings domain.PairingService,
	sessions domain.SessionStore,
	log *logging.Logger,
) *Service {
	if log == nil {
		log = logging.NewNop()
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	return &Service{
		cfg:      cfg,
		id:       id,
		pairings: pairings,
		sessions: sessions,
		log:      log,
		now:      time.Now,
		live:     make(map[string]*continuous.Verifier),
	}
}

// Listen binds the configured TCP address.
func (s *Service) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Service) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until ctx is done or Shutdown is called. It
// returns nil after a clean shutdown.
func (s *Service) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	if ln == nil {
		s.mu.Unlock()
		return ErrNotListening
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.log.Info("verifier listening", "address", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			s.log.Error("accept failed", "err", err)
			cancel()
			s.wg.Wait()
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

// Shutdown stops accepting, ends every connection and waits for them.
func (s *Service) Shutdown() error {
	s.mu.Lock()
	cancel, ln := s.cancel, s.ln
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	} else if ln != nil {
		ln.Close()
	}
	s.wg.Wait()
	return nil
}

// Live returns the ids of the continuous sessions in progress.
func (s *Service) Live() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	return ids
}

// Pause holds a live session in PAUSED.
func (s *Service) Pause(id string) error { return s.control(id, (*continuous.Verifier).Pause) }

// Resume returns a held session to ACTIVE.
func (s *Service) Resume(id string) error { return s.control(id, (*continuous.Verifier).Resume) }

// Stop ends a live session at the prover's next reauth.
func (s *Service) Stop(id string) error { return s.control(id, (*continuous.Verifier).Stop) }

func (s *Service) control(id string, op func(*continuous.Verifier) error) error {
	s.mu.Lock()
	cv, ok := s.live[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return op(cv)
}

// admission is what the authorization callback learned about the prover.
type admission struct {
	extra      message.AuthExtra
	commitment domain.Commitment
	name       string
}

// authorize admits paired provers and decides on continuous mode.
func (s *Service) authorize(log *logging.Logger, adm *admission) sigma.Client {
	return sigma.ClientFunc(func(_ context.Context, prover *ecdsa.PublicKey, extraData []byte) sigma.Decision {
		c, err := crypto.Commit(prover)
		if err != nil {
			return sigma.Reject(nil)
		}
		adm.commitment = c
		extra, err := message.ParseAuthExtra(extraData)
		if err != nil {
			log.Warn("bad auth extra data", "prover", crypto.Fingerprint(c).String(), "err", err)
			return sigma.Reject(nil)
		}
		adm.extra = extra
		p, ok, err := s.pairings.Prover(c)
		if err != nil {
			log.Error("pairing lookup failed", "err", err)
			return sigma.Reject(nil)
		}
		if !ok {
			log.Warn("unpaired prover", "prover", crypto.Fingerprint(c).String())
			return sigma.Reject(nil)
		}
		adm.name = p.Name
		return sigma.Accept(extra.Continuous && s.cfg.AllowContinuous, nil)
	})
}

func (s *Service) handle(ctx context.Context, conn net.Conn) {
	connID := uuid.NewString()
	log := s.log.With("conn", connID, "remote", conn.RemoteAddr().String())
	pp := channel.NewProverProxy(conn)
	defer pp.Close()

	res, adm, ok := s.handshake(ctx, pp, log)
	if !ok {
		return
	}
	log = log.With("session", res.SessionID, "prover", crypto.Fingerprint(adm.commitment).String())

	started := s.now().UTC()
	rec := domain.SessionRecord{
		ID:         connID,
		SessionID:  res.SessionID,
		Prover:     adm.commitment,
		Continuous: res.Continue,
		State:      StateDone,
		StartedAt:  started,
		UpdatedAt:  started,
	}
	if !res.Continue {
		res.SharedKey.Destroy()
		s.saveRecord(log, rec)
		log.Info("authenticated", "name", adm.name)
		return
	}
	log.Info("authenticated, continuous", "name", adm.name)
	s.runContinuous(ctx, pp, log, rec, res, adm.extra)
}

// handshake runs the verifier side of the handshake on pp.
func (s *Service) handshake(ctx context.Context, pp *channel.ProverProxy, log *logging.Logger) (*sigma.VerifierResult, *admission, bool) {
	hctx, cancel := context.WithTimeout(ctx, s.cfg.HandshakeTimeout)
	defer cancel()

	adm := &admission{}
	v, err := sigma.NewVerifier(s.id, s.authorize(log, adm))
	if err != nil {
		log.Error("verifier setup failed", "err", err)
		return nil, nil, false
	}
	defer v.Destroy()

	start, err := pp.ReadStart(hctx)
	if err != nil {
		log.Debug("read start failed", "err", err)
		return nil, nil, false
	}
	sa, err := v.Start(hctx, start)
	if err != nil {
		log.Warn("handshake failed", "kind", sigma.KindOf(err).String(), "err", err)
		return nil, nil, false
	}
	if err := pp.SendServiceAuth(hctx, sa); err != nil {
		log.Debug("send service auth failed", "err", err)
		return nil, nil, false
	}
	pa, err := pp.ReadPicoAuth(hctx)
	if err != nil {
		log.Debug("read pico auth failed", "err", err)
		return nil, nil, false
	}
	status, err := v.Authenticate(hctx, pa)
	if err != nil {
		log.Warn("handshake failed", "kind", sigma.KindOf(err).String(), "err", err)
		if rs := v.RejectStatus(); rs != nil {
			_ = pp.SendStatus(hctx, rs)
		}
		return nil, nil, false
	}
	if err := pp.SendStatus(hctx, status); err != nil {
		log.Debug("send status failed", "err", err)
		return nil, nil, false
	}
	res, err := v.Result()
	if err != nil {
		log.Info("prover rejected")
		if !adm.commitment.IsZero() {
			now := s.now().UTC()
			s.saveRecord(log, domain.SessionRecord{
				ID:        uuid.NewString(),
				SessionID: v.SessionID(),
				Prover:    adm.commitment,
				State:     StateRejected,
				StartedAt: now,
				UpdatedAt: now,
			})
		}
		return nil, nil, false
	}
	return res, adm, true
}

func (s *Service) runContinuous(ctx context.Context, pp *channel.ProverProxy, log *logging.Logger, rec domain.SessionRecord, res *sigma.VerifierResult, extra message.AuthExtra) {
	n := &notifier{svc: s, log: log, rec: rec}
	opts := []continuous.VerifierOption{
		continuous.WithClock(s.now),
		continuous.WithTimeouts(s.cfg.ActiveTimeout, s.cfg.PausedTimeout),
	}
	if s.cfg.Leeway > 0 {
		opts = append(opts, continuous.WithLeeway(s.cfg.Leeway))
	}
	cv, err := continuous.NewVerifier(res.SessionID, res.ProverPublicKey, res.SharedKey, extra, n, opts...)
	if err != nil {
		res.SharedKey.Destroy()
		log.Warn("continuous setup failed", "err", err)
		return
	}
	defer cv.Destroy()

	s.mu.Lock()
	s.live[rec.ID] = cv
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.live, rec.ID)
		s.mu.Unlock()
	}()

	n.update(cv.State().String())
	first, err := cv.GetServiceReauth()
	if err != nil {
		log.Warn("continuous start failed", "err", err)
		return
	}
	if err := pp.SendReauth(ctx, first); err != nil {
		n.update(StateLost)
		return
	}

	for {
		rctx, cancel := context.WithDeadline(ctx, cv.Deadline())
		msg, err := pp.ReadReauth(rctx)
		cancel()
		if err != nil {
			if cv.Expire() || cv.State().Terminal() {
				return
			}
			log.Debug("reauth read failed", "err", err)
			n.update(StateLost)
			return
		}
		reply, err := cv.Reauth(msg)
		if reply != nil {
			// A prover that sent STOP may hang up before the answer.
			if err := pp.SendReauth(ctx, reply); err != nil && !cv.State().Terminal() {
				n.update(StateLost)
				return
			}
		}
		if err != nil || cv.State().Terminal() {
			return
		}
	}
}

func (s *Service) saveRecord(log *logging.Logger, rec domain.SessionRecord) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.SaveSession(rec); err != nil {
		log.Error("saving session record failed", "err", err)
	}
}
