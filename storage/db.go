package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
)

// ErrNotFound is returned by Get when the key is absent. Callers decide what an
// absent key means; backends never synthesise default values.
var ErrNotFound = errors.New("storage: key not found")

// Entry is a single key/value pair written as part of a batch.
type Entry struct {
	Key   []byte
	Value []byte
}

// Database is a generic interface for a key-value store.
// This allows the settlement ledger to use any database backend (in-memory or persistent).
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	// PutBatch writes every entry or none of them.
	PutBatch(entries []Entry) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
	BackendPebble  = "pebble"
)

// Open constructs the named backend rooted at path.
func Open(backend, path string) (Database, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendMemory:
		return NewMemDB(), nil
	case BackendLevelDB:
		return NewLevelDB(path)
	case BackendBolt:
		return NewBoltDB(path)
	case BackendPebble:
		return NewPebbleDB(path)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", backend)
	}
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{
		data: make(map[string][]byte),
	}
}

func (db *MemDB) Put(key []byte, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	value, ok := db.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (db *MemDB) PutBatch(entries []Entry) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, entry := range entries {
		db.data[string(entry.Key)] = append([]byte(nil), entry.Value...)
	}
	return nil
}

// Keys lists the stored keys with the given prefix in sorted order.
func (db *MemDB) Keys(prefix []byte) [][]byte {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([][]byte, 0)
	for key := range db.data {
		if strings.HasPrefix(key, string(prefix)) {
			out = append(out, []byte(key))
		}
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i]) < string(out[j]) })
	return out
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() error {
	// Nothing to close for an in-memory database.
	return nil
}

// --- Persistent DB ---

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage: leveldb path required")
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// Put inserts or updates a key-value pair.
func (ldb *LevelDB) Put(key []byte, value []byte) error {
	return ldb.db.Put(key, value, nil)
}

// Get retrieves a value for a given key.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := ldb.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

// PutBatch applies all entries in one leveldb batch.
func (ldb *LevelDB) PutBatch(entries []Entry) error {
	batch := new(leveldb.Batch)
	for _, entry := range entries {
		batch.Put(entry.Key, entry.Value)
	}
	return ldb.db.Write(batch, nil)
}

// Close closes the database connection.
func (ldb *LevelDB) Close() error {
	return ldb.db.Close()
}
