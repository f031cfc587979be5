package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"picoauth/internal/crypto"
	"picoauth/internal/domain"
	"picoauth/internal/util/memzero"
)

const idFilename = "identity.json.enc"

// ErrNoIdentity is returned by LoadIdentity before an identity was saved.
var ErrNoIdentity = errors.New("store: no identity")

// IdentityFileStore persists the local identity to disk.
type IdentityFileStore struct {
	dir string
	kdf string
	mu  sync.Mutex
}

// IdentityOption configures an IdentityFileStore.
type IdentityOption func(*IdentityFileStore)

// WithKDF selects the passphrase stretching function for new saves,
// KDFScrypt (the default) or KDFArgon2id. Existing files are read with
// whatever they were written with.
func WithKDF(kdf string) IdentityOption {
	return func(s *IdentityFileStore) { s.kdf = kdf }
}

// NewIdentityFileStore returns an IdentityFileStore rooted at dir.
func NewIdentityFileStore(dir string, opts ...IdentityOption) *IdentityFileStore {
	s := &IdentityFileStore{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *IdentityFileStore) path() string { return filepath.Join(s.dir, idFilename) }

// SaveIdentity writes the encrypted identity to disk, replacing any
// previous one.
func (s *IdentityFileStore) SaveIdentity(passphrase string, id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id.PrivateKey == nil {
		return errors.New("store: empty identity")
	}
	raw, err := crypto.MarshalSigningKey(id.PrivateKey)
	if err != nil {
		return err
	}
	defer memzero.Zero(raw)

	params, err := defaultParams(s.kdf)
	if err != nil {
		return err
	}
	ct, err := encrypt(passphrase, raw, params)
	if err != nil {
		return err
	}
	return writeFile(s.path(), ct, 0o600)
}

// LoadIdentity reads and decrypts the identity.
func (s *IdentityFileStore) LoadIdentity(passphrase string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(s.path())
	if err != nil {
		return domain.Identity{}, err
	}
	if b == nil {
		return domain.Identity{}, ErrNoIdentity
	}
	pt, err := decrypt(passphrase, b)
	if err != nil {
		return domain.Identity{}, err
	}
	defer memzero.Zero(pt)

	priv, err := crypto.ParseSigningKey(pt)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{PrivateKey: priv}, nil
}

// HasIdentity reports whether an identity file exists.
func (s *IdentityFileStore) HasIdentity() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := os.Stat(s.path())
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Compile-time assertion that IdentityFileStore implements domain.IdentityStore.
var _ domain.IdentityStore = (*IdentityFileStore)(nil)
