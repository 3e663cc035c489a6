package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"
)

// PebbleDB is a persistent key-value store backed by pebble.
type PebbleDB struct {
	db *pebble.DB
}

// NewPebbleDB opens or creates a pebble store in dir.
func NewPebbleDB(dir string) (*PebbleDB, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage: pebble dir required")
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleDB{db: db}, nil
}

func (p *PebbleDB) Put(key []byte, value []byte) error {
	return p.db.Set(key, value, pebble.Sync)
}

func (p *PebbleDB) Get(key []byte) ([]byte, error) {
	value, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), value...), nil
}

func (p *PebbleDB) PutBatch(entries []Entry) error {
	batch := p.db.NewBatch()
	defer batch.Close()
	for _, entry := range entries {
		if err := batch.Set(entry.Key, entry.Value, nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func (p *PebbleDB) Close() error {
	return p.db.Close()
}
