package message_test

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-test/deep"

	"picoauth/internal/crypto"
	"picoauth/internal/domain"
	"picoauth/internal/protocol/message"
)

func aesKey(t *testing.T, size int) *domain.SecretKey {
	t.Helper()
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return domain.NewSecretKey(domain.AlgorithmAES, b)
}

func seq(t *testing.T) domain.SequenceNumber {
	t.Helper()
	s, err := domain.RandomSequenceNumber(rand.Reader)
	if err != nil {
		t.Fatalf("RandomSequenceNumber: %v", err)
	}
	return s
}

func serviceAuth(t *testing.T) *message.ServiceAuthMessage {
	t.Helper()
	eph, err := crypto.GenerateECDH(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateECDH: %v", err)
	}
	id, err := crypto.GenerateSigningKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	n, err := domain.NewNonce(rand.Reader)
	if err != nil {
		t.Fatalf("NewNonce: %v", err)
	}
	return &message.ServiceAuthMessage{
		SessionID:          42,
		EphemeralPublicKey: eph.PublicKey(),
		Nonce:              n,
		PublicKey:          &id.PublicKey,
		Signature:          []byte("signature"),
		MAC:                []byte("mac"),
	}
}

func TestServiceAuth_RoundTrip(t *testing.T) {
	for _, size := range []int{16, 32} {
		key := aesKey(t, size)
		m := serviceAuth(t)

		enc, err := m.Encrypt(key)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		if enc.SessionID != 42 || len(enc.IV) != crypto.GCMNonceSize {
			t.Fatalf("unexpected envelope: id=%d iv=%d", enc.SessionID, len(enc.IV))
		}
		got, err := enc.Decrypt(key)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if got.SessionID != m.SessionID || !got.PublicKey.Equal(m.PublicKey) ||
			!got.EphemeralPublicKey.Equal(m.EphemeralPublicKey) {
			t.Fatal("keys or session id changed in round trip")
		}
		if !bytes.Equal(got.Signature, m.Signature) || !bytes.Equal(got.MAC, m.MAC) {
			t.Fatal("signature or mac changed in round trip")
		}
	}
}

func TestPicoAuth_RoundTrip(t *testing.T) {
	key := aesKey(t, 16)
	id, _ := crypto.GenerateSigningKey(rand.Reader)
	m := &message.PicoAuthMessage{
		SessionID: 7,
		PublicKey: &id.PublicKey,
		Signature: []byte{1, 2, 3},
		MAC:       []byte{4, 5, 6},
		ExtraData: []byte("extra"),
	}
	enc, err := m.Encrypt(key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := enc.Decrypt(key)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !got.PublicKey.Equal(m.PublicKey) {
		t.Fatal("public key changed")
	}
	if diff := deep.Equal([][]byte{got.Signature, got.MAC, got.ExtraData}, [][]byte{m.Signature, m.MAC, m.ExtraData}); diff != nil {
		t.Fatal(diff)
	}
}

func TestStatusAndReauth_RoundTrip(t *testing.T) {
	key := aesKey(t, 16)

	st := &message.StatusMessage{SessionID: 9, Status: message.StatusOKContinue, ExtraData: []byte("welcome")}
	encSt, err := st.Encrypt(key)
	if err != nil {
		t.Fatalf("status Encrypt: %v", err)
	}
	gotSt, err := encSt.Decrypt(key)
	if err != nil {
		t.Fatalf("status Decrypt: %v", err)
	}
	if diff := deep.Equal(gotSt, st); diff != nil {
		t.Fatal(diff)
	}

	pr := &message.PicoReauthMessage{SessionID: 9, State: message.ReauthPause, Sequence: seq(t)}
	encPr, err := pr.Encrypt(key)
	if err != nil {
		t.Fatalf("pico reauth Encrypt: %v", err)
	}
	gotPr, err := encPr.Decrypt(key)
	if err != nil {
		t.Fatalf("pico reauth Decrypt: %v", err)
	}
	if diff := deep.Equal(gotPr, pr); diff != nil {
		t.Fatal(diff)
	}

	sr := &message.ServiceReauthMessage{
		SessionID: 9,
		State:     message.ReauthContinue,
		Timeout:   10 * time.Second,
		Sequence:  seq(t),
		ExtraData: []byte{0},
	}
	encSr, err := sr.Encrypt(key)
	if err != nil {
		t.Fatalf("service reauth Encrypt: %v", err)
	}
	gotSr, err := encSr.Decrypt(key)
	if err != nil {
		t.Fatalf("service reauth Decrypt: %v", err)
	}
	if diff := deep.Equal(gotSr, sr); diff != nil {
		t.Fatal(diff)
	}
}

func TestDecrypt_WrongKey_IsDecryptionError(t *testing.T) {
	key, other := aesKey(t, 16), aesKey(t, 16)

	encSA, err := serviceAuth(t).Encrypt(key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := encSA.Decrypt(other); !errors.Is(err, message.ErrDecryption) {
		t.Fatalf("service auth: want ErrDecryption, got %v", err)
	}

	encSt, _ := (&message.StatusMessage{Status: message.StatusOKDone}).Encrypt(key)
	if _, err := encSt.Decrypt(other); !errors.Is(err, message.ErrDecryption) {
		t.Fatalf("status: want ErrDecryption, got %v", err)
	}

	encPr, _ := (&message.PicoReauthMessage{Sequence: seq(t)}).Encrypt(key)
	if _, err := encPr.Decrypt(other); !errors.Is(err, message.ErrDecryption) {
		t.Fatalf("pico reauth: want ErrDecryption, got %v", err)
	}

	encSr, _ := (&message.ServiceReauthMessage{Sequence: seq(t)}).Encrypt(key)
	if _, err := encSr.Decrypt(other); !errors.Is(err, message.ErrDecryption) {
		t.Fatalf("service reauth: want ErrDecryption, got %v", err)
	}
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	key := aesKey(t, 16)
	enc, err := (&message.StatusMessage{Status: message.StatusOKDone}).Encrypt(key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	enc.EncryptedData[0] ^= 0x01
	if _, err := enc.Decrypt(key); !errors.Is(err, message.ErrDecryption) {
		t.Fatalf("want ErrDecryption, got %v", err)
	}
}

func TestCodec_WrongKeyAlgorithm_IsConfigFault(t *testing.T) {
	macKey := domain.NewSecretKey(domain.AlgorithmHMACSHA256, make([]byte, 32))
	if _, err := (&message.StatusMessage{}).Encrypt(macKey); !errors.Is(err, message.ErrConfigFault) {
		t.Fatalf("encrypt with MAC key: want ErrConfigFault, got %v", err)
	}

	key := aesKey(t, 16)
	enc, _ := (&message.StatusMessage{}).Encrypt(key)
	if _, err := enc.Decrypt(macKey); !errors.Is(err, message.ErrConfigFault) {
		t.Fatalf("decrypt with MAC key: want ErrConfigFault, got %v", err)
	}

	key.Destroy()
	if _, err := enc.Decrypt(key); !errors.Is(err, message.ErrConfigFault) {
		t.Fatalf("decrypt with destroyed key: want ErrConfigFault, got %v", err)
	}

	odd := domain.NewSecretKey(domain.AlgorithmAES, make([]byte, 15))
	if _, err := (&message.StatusMessage{}).Encrypt(odd); !errors.Is(err, message.ErrConfigFault) {
		t.Fatalf("15-byte AES key: want ErrConfigFault, got %v", err)
	}
}

func TestStartMessage_JSON(t *testing.T) {
	eph, _ := crypto.GenerateECDH(rand.Reader)
	n, _ := domain.NewNonce(rand.Reader)
	m := message.StartMessage{Version: message.ProtocolVersion, EphemeralPublicKey: eph.PublicKey(), Nonce: n}

	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got message.StartMessage
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Version != m.Version || !got.EphemeralPublicKey.Equal(m.EphemeralPublicKey) {
		t.Fatal("start message changed in JSON round trip")
	}
	if eq, err := got.Nonce.Equal(n); err != nil || !eq {
		t.Fatal("nonce changed in JSON round trip")
	}
}

func TestStartMessage_JSON_MissingFields(t *testing.T) {
	cases := map[string]string{
		"no version": `{"ephemeralPublicKey":"AQ==","nonce":"AQIDBAUGBwg="}`,
		"no key":     `{"version":2,"nonce":"AQIDBAUGBwg="}`,
		"null nonce": `{"version":2,"ephemeralPublicKey":"AQ==","nonce":null}`,
	}
	for name, in := range cases {
		var m message.StartMessage
		if err := json.Unmarshal([]byte(in), &m); !errors.Is(err, message.ErrMissingField) {
			t.Fatalf("%s: want ErrMissingField, got %v", name, err)
		}
	}

	var m message.StartMessage
	bad := `{"version":2,"ephemeralPublicKey":"AQ==","nonce":"AQIDBAUGBwg="}`
	if err := json.Unmarshal([]byte(bad), &m); !errors.Is(err, message.ErrFieldDeserialization) {
		t.Fatalf("bad key: want ErrFieldDeserialization, got %v", err)
	}
}

func TestEncServiceAuth_JSON(t *testing.T) {
	key := aesKey(t, 16)
	enc, err := serviceAuth(t).Encrypt(key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := json.Marshal(enc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got message.EncServiceAuthMessage
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := deep.Equal(got.Envelope, enc.Envelope); diff != nil {
		t.Fatal(diff)
	}
	if _, err := got.Decrypt(key); err != nil {
		t.Fatalf("Decrypt after JSON: %v", err)
	}
}

func TestEnvelope_JSON_MissingSessionID(t *testing.T) {
	var e message.EncStatusMessage
	err := json.Unmarshal([]byte(`{"iv":"AQ==","encryptedData":"AQ=="}`), &e)
	if !errors.Is(err, message.ErrMissingField) {
		t.Fatalf("want ErrMissingField, got %v", err)
	}
}

func TestAuthExtra_RoundTrip(t *testing.T) {
	a := message.AuthExtra{
		Token:      []byte("token"),
		Continuous: true,
		State:      message.ReauthContinue,
		Sequence:   seq(t),
		Timeout:    15 * time.Second,
	}
	b, err := a.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := message.ParseAuthExtra(b)
	if err != nil {
		t.Fatalf("ParseAuthExtra: %v", err)
	}
	if diff := deep.Equal(got, a); diff != nil {
		t.Fatal(diff)
	}

	empty, err := message.ParseAuthExtra(nil)
	if err != nil || empty.Continuous {
		t.Fatalf("empty extra: %+v, %v", empty, err)
	}

	if _, err := message.ParseAuthExtra(b[:len(b)-1]); !errors.Is(err, message.ErrFieldDeserialization) {
		t.Fatalf("truncated: want ErrFieldDeserialization, got %v", err)
	}
}
