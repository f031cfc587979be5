package prover

import (
	"context"
	"errors"
	"sync"
	"time"

	"picoauth/internal/protocol/continuous"
	"picoauth/internal/util/logging"
)

// DefaultUpdateTimeout bounds one reauth round trip.
const DefaultUpdateTimeout = 30 * time.Second

// TimerScheduler runs continuous provers on time.AfterFunc timers, one per
// prover.
type TimerScheduler struct {
	ctx     context.Context
	log     *logging.Logger
	timeout time.Duration

	mu      sync.Mutex
	timers  map[*continuous.Prover]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

var _ continuous.Scheduler = (*TimerScheduler)(nil)

// NewTimerScheduler returns a scheduler whose updates stop once ctx is done.
func NewTimerScheduler(ctx context.Context, log *logging.Logger) *TimerScheduler {
	if log == nil {
		log = logging.NewNop()
	}
	return &TimerScheduler{
		ctx:     ctx,
		log:     log,
		timeout: DefaultUpdateTimeout,
		timers:  make(map[*continuous.Prover]*time.Timer),
	}
}

// SetTimer arms p's next update after d, replacing any pending one.
func (s *TimerScheduler) SetTimer(d time.Duration, p *continuous.Prover) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.ctx.Err() != nil {
		return
	}
	s.stopLocked(p)
	s.wg.Add(1)
	s.timers[p] = time.AfterFunc(d, func() {
		defer s.wg.Done()
		s.run(p)
	})
}

// stopLocked cancels p's timer; a timer that never fired is done.
func (s *TimerScheduler) stopLocked(p *continuous.Prover) {
	if t, ok := s.timers[p]; ok {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.timers, p)
	}
}

// ClearTimer cancels p's pending update.
func (s *TimerScheduler) ClearTimer(p *continuous.Prover) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(p)
}

func (s *TimerScheduler) run(p *continuous.Prover) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	if err := p.UpdateVerifier(ctx); err != nil && !errors.Is(err, continuous.ErrSessionEnded) {
		s.log.Debug("continuous update failed", "err", err)
	}
}

// Stop cancels every pending timer and waits for running updates.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for p := range s.timers {
		s.stopLocked(p)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
