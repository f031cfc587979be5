package pairing_test

import (
	"crypto/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"picoauth/internal/crypto"
	"picoauth/internal/domain"
	"picoauth/internal/services/pairing"
	"picoauth/internal/store"
)

func newService(t *testing.T) *pairing.Service {
	t.Helper()
	db, err := store.OpenPairingDB(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return pairing.New(db)
}

func commitment(t *testing.T) domain.Commitment {
	t.Helper()
	k, err := crypto.GenerateSigningKey(rand.Reader)
	require.NoError(t, err)
	c, err := crypto.Commit(&k.PublicKey)
	require.NoError(t, err)
	return c
}

func TestPairService(t *testing.T) {
	svc := newService(t)
	c := commitment(t)

	p, err := svc.PairService(" bank ", "localhost:7400", c)
	require.NoError(t, err)
	require.Equal(t, "bank", p.Name)

	got, err := svc.Service("bank")
	require.NoError(t, err)
	require.Equal(t, c, got.Commitment)

	// Same key, new address: allowed.
	_, err = svc.PairService("bank", "10.0.0.1:7400", c)
	require.NoError(t, err)

	_, err = svc.PairService("bank", "10.0.0.1:7400", commitment(t))
	require.ErrorIs(t, err, pairing.ErrAlreadyPaired)

	_, err = svc.PairService("shop", "no-port", c)
	require.ErrorIs(t, err, pairing.ErrInvalidPairing)
	_, err = svc.PairService("shop", "localhost:1", domain.Commitment{})
	require.ErrorIs(t, err, pairing.ErrInvalidPairing)

	all, err := svc.Services()
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, svc.UnpairService("bank"))
	_, err = svc.Service("bank")
	require.ErrorIs(t, err, pairing.ErrUnknownService)
	require.ErrorIs(t, svc.UnpairService("bank"), pairing.ErrUnknownService)
}

func TestPairProver(t *testing.T) {
	svc := newService(t)
	c := commitment(t)

	_, err := svc.PairProver("phone", c)
	require.NoError(t, err)

	p, ok, err := svc.Prover(c)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "phone", p.Name)

	_, ok, err = svc.Prover(commitment(t))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, svc.UnpairProver(c))
	require.ErrorIs(t, svc.UnpairProver(c), pairing.ErrUnknownProver)
	provers, err := svc.Provers()
	require.NoError(t, err)
	require.Empty(t, provers)
}
