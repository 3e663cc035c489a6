package storage

import (
	"fmt"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("settlement")

// BoltDB stores every key in a single bbolt bucket.
type BoltDB struct {
	db *bolt.DB
}

// NewBoltDB opens (and initialises) the bbolt file at path.
func NewBoltDB(path string) (*BoltDB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage: bolt path required")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltDB{db: db}, nil
}

func (b *BoltDB) Put(key []byte, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(key, value)
	})
}

func (b *BoltDB) Get(key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(boltBucket).Get(key)
		if value == nil {
			return ErrNotFound
		}
		// bbolt values are only valid for the life of the transaction.
		out = append([]byte(nil), value...)
		return nil
	})
	return out, err
}

func (b *BoltDB) PutBatch(entries []Entry) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		for _, entry := range entries {
			if err := bucket.Put(entry.Key, entry.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BoltDB) Close() error {
	return b.db.Close()
}
