package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestBackendsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	backends := []struct {
		name string
		open func() (Database, error)
	}{
		{name: BackendMemory, open: func() (Database, error) { return NewMemDB(), nil }},
		{name: BackendLevelDB, open: func() (Database, error) { return NewLevelDB(filepath.Join(dir, "level")) }},
		{name: BackendBolt, open: func() (Database, error) { return NewBoltDB(filepath.Join(dir, "ledger.bolt")) }},
		{name: BackendPebble, open: func() (Database, error) { return NewPebbleDB(filepath.Join(dir, "pebble")) }},
	}
	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			db, err := backend.open()
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer db.Close()

			if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := db.Put([]byte("k"), []byte("v1")); err != nil {
				t.Fatalf("put: %v", err)
			}
			got, err := db.Get([]byte("k"))
			if err != nil || string(got) != "v1" {
				t.Fatalf("unexpected get result %q (%v)", got, err)
			}
			batch := []Entry{
				{Key: []byte("a"), Value: []byte("1")},
				{Key: []byte("k"), Value: []byte("v2")},
			}
			if err := db.PutBatch(batch); err != nil {
				t.Fatalf("batch: %v", err)
			}
			for _, entry := range batch {
				value, err := db.Get(entry.Key)
				if err != nil || string(value) != string(entry.Value) {
					t.Fatalf("batch entry %s mismatch: %q (%v)", entry.Key, value, err)
				}
			}
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("cassandra", ""); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	db, err := Open("", "")
	if err != nil {
		t.Fatalf("default backend: %v", err)
	}
	if _, ok := db.(*MemDB); !ok {
		t.Fatalf("expected memory backend by default, got %T", db)
	}
}

func TestMemDBKeysPrefix(t *testing.T) {
	db := NewMemDB()
	_ = db.Put([]byte("stats/b"), []byte("1"))
	_ = db.Put([]byte("stats/a"), []byte("1"))
	_ = db.Put([]byte("accrual/x"), []byte("1"))
	keys := db.Keys([]byte("stats/"))
	if len(keys) != 2 || string(keys[0]) != "stats/a" {
		t.Fatalf("unexpected keys %q", keys)
	}
}
