package app

import (
	"context"
	"errors"
	"fmt"

	"picoauth/internal/crypto"
)

// ErrNoPassphrase is returned when a command needs the identity and no
// passphrase was given.
var ErrNoPassphrase = errors.New("passphrase required (-p or " + EnvPassphrase + ")")

// Serve unlocks the identity and runs the verifier service until ctx is
// done. ready, if non-nil, is called with the bound address.
func Serve(ctx context.Context, w *Wire, ready func(addr string)) error {
	if w.Config.Passphrase == "" {
		return ErrNoPassphrase
	}
	id, err := w.Identity.LoadIdentity(w.Config.Passphrase)
	if err != nil {
		return fmt.Errorf("unlock identity: %w", err)
	}
	c, err := crypto.Commit(id.PublicKey())
	if err != nil {
		return err
	}

	svc := w.Verifier(id)
	if err := svc.Listen(); err != nil {
		return err
	}
	addr := svc.Addr().String()
	w.Log.Info("verifier ready", "address", addr, "fingerprint", crypto.Fingerprint(c).String())
	if ready != nil {
		ready(addr)
	}
	return svc.Serve(ctx)
}
