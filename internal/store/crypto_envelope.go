package store

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/scrypt"

	"picoauth/internal/util/memzero"
)

const (
	// The current supported version of the encrypted blob format stored on disk.
	keystoreFormatVersion = 2

	saltSize   = 16
	stretchLen = 32
)

// Passphrase stretching functions for the identity envelope.
const (
	KDFScrypt   = "scrypt"
	KDFArgon2id = "argon2id"
)

// envelopeInfo binds the derived key to this file format.
var envelopeInfo = []byte("picoauth identity envelope v2")

var (
	// ErrWrongPassphrase is returned when the passphrase is incorrect or the
	// ciphertext has been modified.
	ErrWrongPassphrase = errors.New("store: wrong passphrase or corrupted identity")
	// ErrUnknownKDF is returned for a stretching function other than
	// KDFScrypt or KDFArgon2id.
	ErrUnknownKDF = errors.New("store: unknown passphrase kdf")
)

// blob is the on-disk JSON structure holding the ciphertext and KDF parameters.
// A blob without a kdf field was written with scrypt.
type blob struct {
	V       int    `json:"v"`
	KDF     string `json:"kdf,omitempty"`
	Salt    []byte `json:"salt"`
	N       int    `json:"scrypt_N,omitempty"`
	R       int    `json:"scrypt_r,omitempty"`
	P       int    `json:"scrypt_p,omitempty"`
	Time    uint32 `json:"argon2_t,omitempty"`
	Memory  uint32 `json:"argon2_m,omitempty"`
	Threads uint8  `json:"argon2_p,omitempty"`
	Nonce   []byte `json:"nonce"`
	Cipher  []byte `json:"cipher"`
}

// kdfParams selects a stretching function and its cost.
type kdfParams struct {
	kdf     string
	N, r, p int
	time    uint32
	memory  uint32
	threads uint8
}

// defaultParams returns the default cost for kdf; "" means scrypt.
func defaultParams(kdf string) (kdfParams, error) {
	switch kdf {
	case "", KDFScrypt:
		N, r, p := scryptParamsDefault()
		return kdfParams{kdf: KDFScrypt, N: N, r: r, p: p}, nil
	case KDFArgon2id:
		return kdfParams{kdf: KDFArgon2id, time: 1, memory: 64 * 1024, threads: 4}, nil
	default:
		return kdfParams{}, fmt.Errorf("%w: %q", ErrUnknownKDF, kdf)
	}
}

func (k kdfParams) stretch(passphrase string, salt []byte) ([]byte, error) {
	switch k.kdf {
	case KDFScrypt:
		return scrypt.Key([]byte(passphrase), salt, k.N, k.r, k.p, stretchLen)
	case KDFArgon2id:
		if k.time == 0 || k.memory == 0 || k.threads == 0 {
			return nil, fmt.Errorf("store: bad argon2id parameters")
		}
		return argon2.IDKey([]byte(passphrase), salt, k.time, k.memory, k.threads, stretchLen), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKDF, k.kdf)
	}
}

func (k kdfParams) fill(bl *blob) {
	bl.KDF = k.kdf
	bl.N, bl.R, bl.P = k.N, k.r, k.p
	bl.Time, bl.Memory, bl.Threads = k.time, k.memory, k.threads
}

func paramsOf(bl blob) kdfParams {
	kdf := bl.KDF
	if kdf == "" {
		kdf = KDFScrypt
	}
	return kdfParams{
		kdf: kdf, N: bl.N, r: bl.R, p: bl.P,
		time: bl.Time, memory: bl.Memory, threads: bl.Threads,
	}
}

// envelopeKey stretches passphrase and expands the result with HKDF into an
// XChaCha20-Poly1305 key.
func envelopeKey(passphrase string, salt []byte, k kdfParams) ([]byte, error) {
	stretched, err := k.stretch(passphrase, salt)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(stretched)

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, stretched, salt, envelopeInfo), key); err != nil {
		return nil, err
	}
	return key, nil
}

// encrypt derives a key from passphrase and seals raw into a JSON blob.
func encrypt(passphrase string, raw []byte, k kdfParams) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key, err := envelopeKey(passphrase, salt, k)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ct := aead.Seal(nil, nonce, raw, salt)

	bl := blob{
		V:      keystoreFormatVersion,
		Salt:   salt,
		Nonce:  nonce,
		Cipher: ct,
	}
	k.fill(&bl)
	return json.Marshal(bl)
}

// decrypt opens the JSON blob using a key derived from passphrase.
func decrypt(passphrase string, b []byte) ([]byte, error) {
	var bl blob
	if err := json.Unmarshal(b, &bl); err != nil {
		return nil, fmt.Errorf("store: identity file: %w", err)
	}
	if bl.V != keystoreFormatVersion {
		return nil, fmt.Errorf("store: unsupported keystore version %d", bl.V)
	}
	if len(bl.Salt) != saltSize || len(bl.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrWrongPassphrase
	}

	key, err := envelopeKey(passphrase, bl.Salt, paramsOf(bl))
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, bl.Nonce, bl.Cipher, bl.Salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

// Tunables for scrypt key derivation.
func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }
