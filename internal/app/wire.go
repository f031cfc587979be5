package app

import (
	"context"
	"os"
	"path/filepath"

	"picoauth/internal/domain"
	"picoauth/internal/services/identity"
	"picoauth/internal/services/pairing"
	"picoauth/internal/services/prover"
	"picoauth/internal/services/verifier"
	"picoauth/internal/store"
	"picoauth/internal/util/logging"
)

// Wire bundles all stores and services for the CLI and the daemon.
type Wire struct {
	Config   Config
	Log      *logging.Logger
	Identity *identity.Service
	Pairings *pairing.Service
	Sessions domain.SessionStore
	Prover   *prover.Service

	ids   domain.IdentityStore
	db    *store.PairingDB
	sched *prover.TimerScheduler
}

// NewWire constructs the dependency graph from cfg. Continuous prover
// sessions stop being updated once ctx is done.
func NewWire(ctx context.Context, cfg Config) (*Wire, error) {
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}
	log, err := logging.NewLogger(cfg.Logger)
	if err != nil {
		return nil, err
	}

	// Stores
	ids := store.NewIdentityFileStore(cfg.Home, store.WithKDF(cfg.Identity.KDF))
	db, err := store.OpenPairingDB(filepath.Join(cfg.Home, dbDir))
	if err != nil {
		return nil, err
	}

	// High-level services
	pairings := pairing.New(db)
	sched := prover.NewTimerScheduler(ctx, log.Named("scheduler"))
	proverSvc := prover.New(ids, pairings, sched, log.Named("prover"),
		prover.WithDialTimeout(cfg.Prover.DialTimeout.Duration))

	return &Wire{
		Config:   cfg,
		Log:      log,
		Identity: identity.New(ids),
		Pairings: pairings,
		Sessions: db,
		Prover:   proverSvc,
		ids:      ids,
		db:       db,
		sched:    sched,
	}, nil
}

// Verifier builds the verifier service for the loaded identity id.
func (w *Wire) Verifier(id domain.Identity) *verifier.Service {
	vc := w.Config.Verifier
	return verifier.New(verifier.Config{
		Address:          vc.Listen,
		AllowContinuous:  vc.AllowContinuous,
		ActiveTimeout:    vc.ActiveTimeout.Duration,
		PausedTimeout:    vc.PausedTimeout.Duration,
		Leeway:           vc.Leeway.Duration,
		HandshakeTimeout: vc.HandshakeTimeout.Duration,
	}, id, w.Pairings, w.Sessions, w.Log.Named("verifier"))
}

// Close stops pending prover updates and releases the database.
func (w *Wire) Close() error {
	w.sched.Stop()
	err := w.db.Close()
	// Sync on stderr fails on some platforms; only the database error counts.
	_ = w.Log.Sync()
	return err
}
