package kvstore

import (
	"time"

	bolt "github.com/boltdb/bolt"
)

const markerBucket = "markers"

// BoltStore is a BoltDB-backed Store. All data lives in a single file, so
// markers survive process restarts without an external database.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a BoltDB file at path and ensures the
// marker bucket exists. Calling it on every startup is safe.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(markerBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Get returns the stored value and whether the key exists.
func (s *BoltStore) Get(key string) (string, bool, error) {
	var value string
	var found bool

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(markerBucket)).Get([]byte(key))
		if v != nil {
			value = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

// Set writes value under key.
func (s *BoltStore) Set(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(markerBucket)).Put([]byte(key), []byte(value))
	})
}

// Remove deletes key.
func (s *BoltStore) Remove(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(markerBucket)).Delete([]byte(key))
	})
}
