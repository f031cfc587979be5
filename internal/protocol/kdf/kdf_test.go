package kdf_test

import (
	"encoding/hex"
	"errors"
	"testing"

	"picoauth/internal/domain"
	"picoauth/internal/protocol/kdf"
)

func mustNonce(t *testing.T, h string) *domain.Nonce {
	t.Helper()
	b, err := hex.DecodeString(h)
	if err != nil {
		t.Fatalf("hex: %v", err)
	}
	n, err := domain.NonceFromBytes(b)
	if err != nil {
		t.Fatalf("NonceFromBytes: %v", err)
	}
	return n
}

func keyHex(t *testing.T, k *domain.SecretKey) string {
	t.Helper()
	b, err := k.Material()
	if err != nil {
		t.Fatalf("Material: %v", err)
	}
	return hex.EncodeToString(b)
}

func materialHex(t *testing.T, km *domain.KeyMaterial) []string {
	t.Helper()
	return []string{
		keyHex(t, km.ProverMacKey),
		keyHex(t, km.ProverEncKey),
		keyHex(t, km.VerifierMacKey),
		keyHex(t, km.VerifierEncKey),
		keyHex(t, km.SharedKey),
	}
}

const (
	testProverNonce   = "0102030405060708"
	testVerifierNonce = "1112131415161718"
)

func TestDeriveKeyMaterial_KnownAnswer(t *testing.T) {
	secret := make([]byte, 32)
	km, err := kdf.DeriveKeyMaterial(secret, mustNonce(t, testProverNonce), mustNonce(t, testVerifierNonce))
	if err != nil {
		t.Fatalf("DeriveKeyMaterial: %v", err)
	}
	want := []string{
		"30a1063cf4872e28418e516b297422564924b1c37b20aab99214a2bc08bbbd57",
		"f42cc3301bd95e2a1c253f974d8d6642",
		"737119a77ee838291ff134b732fabf9f3bfcf5107e1523f7ce4c09f052ce8606",
		"aa02511e6b210da8c88d583622abfe1f",
		"70317298977e4a48c2001948f377c6a4",
	}
	got := materialHex(t, km)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("key %d: want %s, got %s", i, want[i], got[i])
		}
	}
	if km.ProverMacKey.Algorithm() != domain.AlgorithmHMACSHA256 || km.SharedKey.Algorithm() != domain.AlgorithmAES {
		t.Fatal("unexpected key algorithms")
	}
}

func TestDeriveKeyMaterial_Deterministic(t *testing.T) {
	secret := make([]byte, 32)
	a, err := kdf.DeriveKeyMaterial(secret, mustNonce(t, testProverNonce), mustNonce(t, testVerifierNonce))
	if err != nil {
		t.Fatalf("first derivation: %v", err)
	}
	b, err := kdf.DeriveKeyMaterial(secret, mustNonce(t, testProverNonce), mustNonce(t, testVerifierNonce))
	if err != nil {
		t.Fatalf("second derivation: %v", err)
	}
	ga, gb := materialHex(t, a), materialHex(t, b)
	for i := range ga {
		if ga[i] != gb[i] {
			t.Fatalf("key %d differs between derivations", i)
		}
	}
}

func TestNextKey_OrderSensitive(t *testing.T) {
	secret := make([]byte, 32)

	inOrder, err := kdf.New(secret, mustNonce(t, testProverNonce), mustNonce(t, testVerifierNonce))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer inOrder.Destroy()
	mac, _ := inOrder.NextKey(domain.AlgorithmHMACSHA256, 256)
	enc, _ := inOrder.NextKey(domain.AlgorithmAES, 128)

	swapped, err := kdf.New(secret, mustNonce(t, testProverNonce), mustNonce(t, testVerifierNonce))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer swapped.Destroy()
	enc2, _ := swapped.NextKey(domain.AlgorithmAES, 128)
	mac2, _ := swapped.NextKey(domain.AlgorithmHMACSHA256, 256)

	if keyHex(t, enc) == keyHex(t, enc2) {
		t.Fatal("encryption key should depend on draw order")
	}
	if keyHex(t, mac) == keyHex(t, mac2) {
		t.Fatal("MAC key should depend on draw order")
	}
}

func TestDeriveKeyMaterial_EveryInputChangesEveryKey(t *testing.T) {
	base := materialHex(t, mustDerive(t, make([]byte, 32), testProverNonce, testVerifierNonce))

	secret := make([]byte, 32)
	secret[31] = 1
	cases := map[string][]string{
		"secret":         materialHex(t, mustDerive(t, secret, testProverNonce, testVerifierNonce)),
		"prover nonce":   materialHex(t, mustDerive(t, make([]byte, 32), "0102030405060709", testVerifierNonce)),
		"verifier nonce": materialHex(t, mustDerive(t, make([]byte, 32), testProverNonce, "1012131415161718")),
	}
	for name, got := range cases {
		for i := range base {
			if got[i] == base[i] {
				t.Fatalf("changing %s left key %d unchanged", name, i)
			}
		}
	}
}

func mustDerive(t *testing.T, secret []byte, pn, vn string) *domain.KeyMaterial {
	t.Helper()
	km, err := kdf.DeriveKeyMaterial(secret, mustNonce(t, pn), mustNonce(t, vn))
	if err != nil {
		t.Fatalf("DeriveKeyMaterial: %v", err)
	}
	return km
}

func TestNextKey_Exhausted(t *testing.T) {
	d, err := kdf.New(make([]byte, 32), mustNonce(t, testProverNonce), mustNonce(t, testVerifierNonce))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Destroy()

	if _, err := d.NextKey(domain.AlgorithmAES, 255*32*8); err != nil {
		t.Fatalf("drawing 255 blocks: %v", err)
	}
	if _, err := d.NextKey(domain.AlgorithmAES, 8); !errors.Is(err, kdf.ErrExhausted) {
		t.Fatalf("want ErrExhausted, got %v", err)
	}
}

func TestNextKey_AfterDestroy(t *testing.T) {
	d, err := kdf.New(make([]byte, 32), mustNonce(t, testProverNonce), mustNonce(t, testVerifierNonce))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d.Destroy()
	if _, err := d.NextKey(domain.AlgorithmAES, 128); !errors.Is(err, kdf.ErrDestroyed) {
		t.Fatalf("want ErrDestroyed, got %v", err)
	}
}

func TestNextKey_BadLength(t *testing.T) {
	d, _ := kdf.New(make([]byte, 32), mustNonce(t, testProverNonce), mustNonce(t, testVerifierNonce))
	defer d.Destroy()
	for _, bits := range []int{0, -8, 12} {
		if _, err := d.NextKey(domain.AlgorithmAES, bits); !errors.Is(err, kdf.ErrKeyLength) {
			t.Fatalf("bits=%d: want ErrKeyLength, got %v", bits, err)
		}
	}
}

func TestNew_DestroyedNonce(t *testing.T) {
	n := mustNonce(t, testProverNonce)
	n.Destroy()
	if _, err := kdf.New(make([]byte, 32), n, mustNonce(t, testVerifierNonce)); !errors.Is(err, domain.ErrDestroyed) {
		t.Fatalf("want ErrDestroyed, got %v", err)
	}
}
