package pairing

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"picoauth/internal/domain"
)

var (
	ErrUnknownService = errors.New("pairing: unknown service")
	ErrInvalidPairing = errors.New("pairing: invalid pairing")
	ErrAlreadyPaired  = errors.New("pairing: already paired")
	ErrUnknownProver  = errors.New("pairing: unknown prover")
)

// Service manages pairings on top of a PairingStore.
type Service struct {
	store domain.PairingStore
	now   func() time.Time
}

// New returns a pairing service backed by s.
func New(s domain.PairingStore) *Service {
	return &Service{store: s, now: time.Now}
}

// PairService records that the verifier reachable at address, whose key
// commits to c, is trusted under name. Re-pairing a name with a different
// commitment is refused; unpair first.
func (s *Service) PairService(name, address string, c domain.Commitment) (domain.ServicePairing, error) {
	name = strings.TrimSpace(name)
	if name == "" || c.IsZero() {
		return domain.ServicePairing{}, fmt.Errorf("%w: name and commitment are required", ErrInvalidPairing)
	}
	if _, _, err := net.SplitHostPort(address); err != nil {
		return domain.ServicePairing{}, fmt.Errorf("%w: address %q: %v", ErrInvalidPairing, address, err)
	}
	old, ok, err := s.store.LoadServicePairing(name)
	if err != nil {
		return domain.ServicePairing{}, err
	}
	if ok && old.Commitment != c {
		return domain.ServicePairing{}, fmt.Errorf("%w: %s", ErrAlreadyPaired, name)
	}

	p := domain.ServicePairing{Name: name, Address: address, Commitment: c, CreatedAt: s.now().UTC()}
	if ok {
		p.CreatedAt = old.CreatedAt
	}
	if err := s.store.SaveServicePairing(p); err != nil {
		return domain.ServicePairing{}, err
	}
	return p, nil
}

// Service returns the pairing for name.
func (s *Service) Service(name string) (domain.ServicePairing, error) {
	p, ok, err := s.store.LoadServicePairing(name)
	if err != nil {
		return domain.ServicePairing{}, err
	}
	if !ok {
		return domain.ServicePairing{}, fmt.Errorf("%w: %s", ErrUnknownService, name)
	}
	return p, nil
}

// Services lists every paired service.
func (s *Service) Services() ([]domain.ServicePairing, error) {
	return s.store.ListServicePairings()
}

// UnpairService forgets name.
func (s *Service) UnpairService(name string) error {
	if _, err := s.Service(name); err != nil {
		return err
	}
	return s.store.DeleteServicePairing(name)
}

// PairProver admits the prover whose key commits to c.
func (s *Service) PairProver(name string, c domain.Commitment) (domain.ProverPairing, error) {
	if c.IsZero() {
		return domain.ProverPairing{}, fmt.Errorf("%w: commitment is required", ErrInvalidPairing)
	}
	p := domain.ProverPairing{Name: strings.TrimSpace(name), Commitment: c, CreatedAt: s.now().UTC()}
	if err := s.store.SaveProverPairing(p); err != nil {
		return domain.ProverPairing{}, err
	}
	return p, nil
}

// Prover looks up the prover pairing for c.
func (s *Service) Prover(c domain.Commitment) (domain.ProverPairing, bool, error) {
	return s.store.LoadProverPairing(c)
}

// Provers lists every admitted prover.
func (s *Service) Provers() ([]domain.ProverPairing, error) {
	return s.store.ListProverPairings()
}

// UnpairProver revokes the prover whose key commits to c.
func (s *Service) UnpairProver(c domain.Commitment) error {
	_, ok, err := s.store.LoadProverPairing(c)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProver, c)
	}
	return s.store.DeleteProverPairing(c)
}

// Compile-time assertion that Service implements domain.PairingService.
var _ domain.PairingService = (*Service)(nil)
