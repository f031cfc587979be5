package store

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"picoauth/internal/domain"
)

const (
	servicePrefix = "svc/"
	proverPrefix  = "prv/"
	sessionPrefix = "ses/"
)

// PairingDB stores pairings and session records in LevelDB.
type PairingDB struct {
	db *leveldb.DB
}

var (
	_ domain.PairingStore = (*PairingDB)(nil)
	_ domain.SessionStore = (*PairingDB)(nil)
)

// OpenPairingDB opens or creates the database at path.
func OpenPairingDB(path string) (*PairingDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &PairingDB{db: db}, nil
}

// Close closes the database.
func (s *PairingDB) Close() error { return s.db.Close() }

func (s *PairingDB) put(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(key), b, &opt.WriteOptions{Sync: true})
}

// get unmarshals key into out and reports whether it existed.
func (s *PairingDB) get(key string, out any) (bool, error) {
	b, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, out)
}

func (s *PairingDB) delete(key string) error {
	return s.db.Delete([]byte(key), &opt.WriteOptions{Sync: true})
}

// list decodes every value under prefix, in key order.
func list[T any](s *PairingDB, prefix string) ([]T, error) {
	it := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer it.Release()

	var out []T
	for it.Next() {
		var v T
		if err := json.Unmarshal(it.Value(), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, it.Error()
}

// ---------- Service pairings (prover side) ----------

func (s *PairingDB) SaveServicePairing(p domain.ServicePairing) error {
	return s.put(servicePrefix+p.Name, p)
}

func (s *PairingDB) LoadServicePairing(name string) (domain.ServicePairing, bool, error) {
	var p domain.ServicePairing
	ok, err := s.get(servicePrefix+name, &p)
	return p, ok, err
}

func (s *PairingDB) ListServicePairings() ([]domain.ServicePairing, error) {
	return list[domain.ServicePairing](s, servicePrefix)
}

func (s *PairingDB) DeleteServicePairing(name string) error {
	return s.delete(servicePrefix + name)
}

// ---------- Prover pairings (verifier side) ----------

func (s *PairingDB) SaveProverPairing(p domain.ProverPairing) error {
	return s.put(proverPrefix+p.Commitment.String(), p)
}

func (s *PairingDB) LoadProverPairing(c domain.Commitment) (domain.ProverPairing, bool, error) {
	var p domain.ProverPairing
	ok, err := s.get(proverPrefix+c.String(), &p)
	return p, ok, err
}

func (s *PairingDB) ListProverPairings() ([]domain.ProverPairing, error) {
	return list[domain.ProverPairing](s, proverPrefix)
}

func (s *PairingDB) DeleteProverPairing(c domain.Commitment) error {
	return s.delete(proverPrefix + c.String())
}

// ---------- Session records ----------

func (s *PairingDB) SaveSession(rec domain.SessionRecord) error {
	if rec.ID == "" {
		return errors.New("store: session record without id")
	}
	return s.put(sessionPrefix+rec.ID, rec)
}

func (s *PairingDB) LoadSession(id string) (domain.SessionRecord, bool, error) {
	var rec domain.SessionRecord
	ok, err := s.get(sessionPrefix+id, &rec)
	return rec, ok, err
}

// ListSessions returns every record, oldest first.
func (s *PairingDB) ListSessions() ([]domain.SessionRecord, error) {
	recs, err := list[domain.SessionRecord](s, sessionPrefix)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].StartedAt.Before(recs[j].StartedAt) })
	return recs, nil
}
