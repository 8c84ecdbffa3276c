package state

import (
	"encoding/json"
	"path/filepath"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/charmed-hpc/slurm-agent/internal/hooks"
)

var (
	bucketUnits  = []byte("units")
	bucketEvents = []byte("events")
)

// Store persists per-unit state and deferred events in an embedded
// bolt database under the unit's data directory.
type Store struct {
	db *bolt.DB
}

func Open(dataDir string) (*Store, error) {
	db, err := bolt.Open(filepath.Join(dataDir, "slurm-agent.db"), 0o600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open state database")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketUnits, bucketEvents} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create state buckets")
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the stored state for the unit, or the initial state if
// the unit has never saved before.
func (s *Store) Load(unit string) (Unit, error) {
	u := NewUnit()
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketUnits).Get([]byte(unit))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &u)
	})
	if err != nil {
		return Unit{}, errors.Wrapf(err, "failed to load state for unit %s", unit)
	}
	return u, nil
}

func (s *Store) Save(unit string, u Unit) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(u)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketUnits).Put([]byte(unit), data)
	})
}

// SaveDeferred records events left over after a dispatch so the next
// process invocation can redeliver them.
func (s *Store) SaveDeferred(unit string, evs []hooks.Event) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(evs)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketEvents).Put([]byte(unit), data)
	})
}

// TakeDeferred returns and clears the events recorded by a previous
// invocation. Redelivered events are enqueued before fresh ones so a
// deferred install still runs ahead of the event that interrupted it.
func (s *Store) TakeDeferred(unit string) ([]hooks.Event, error) {
	var evs []hooks.Event
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		data := b.Get([]byte(unit))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &evs); err != nil {
			return err
		}
		return b.Delete([]byte(unit))
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to restore deferred events for unit %s", unit)
	}
	return evs, nil
}
