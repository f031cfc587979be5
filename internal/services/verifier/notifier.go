package verifier

import (
	"crypto/ecdsa"
	"errors"
	"sync"

	"picoauth/internal/domain"
	"picoauth/internal/protocol/continuous"
	"picoauth/internal/util/logging"
)

// notifier logs continuous state changes and keeps the session record
// current.
type notifier struct {
	svc *Service
	log *logging.Logger

	mu  sync.Mutex
	rec domain.SessionRecord
}

var _ continuous.Notifier = (*notifier)(nil)

func (n *notifier) update(state string) {
	n.mu.Lock()
	n.rec.State = state
	n.rec.UpdatedAt = n.svc.now().UTC()
	rec := n.rec
	n.mu.Unlock()
	n.svc.saveRecord(n.log, rec)
}

func (n *notifier) OnPause(*ecdsa.PublicKey) {
	n.log.Info("session paused")
	n.update(continuous.StatePaused.String())
}

func (n *notifier) OnResume(*ecdsa.PublicKey) {
	n.log.Info("session resumed")
	n.update(continuous.StateActive.String())
}

func (n *notifier) OnStop(*ecdsa.PublicKey) {
	n.log.Info("session stopped")
	n.update(continuous.StateStopped.String())
}

func (n *notifier) OnError(_ *ecdsa.PublicKey, err error) {
	state := continuous.StateError
	if errors.Is(err, continuous.ErrTimeout) {
		state = continuous.StateTimeout
	}
	n.log.Warn("session ended", "state", state.String(), "err", err)
	n.update(state.String())
}
