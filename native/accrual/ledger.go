package accrual

import (
	"errors"
	"fmt"

	"drippy/core/types"
	"drippy/storage"
)

var keyPrefix = []byte("accrual/")

// AccountKey returns the storage key of an account record.
func AccountKey(id types.AccountID) []byte {
	key := make([]byte, 0, len(keyPrefix)+len(id))
	key = append(key, keyPrefix...)
	return append(key, id[:]...)
}

// Ledger persists account records in a key-value store.
type Ledger struct {
	db storage.Database
}

// NewLedger wraps db.
func NewLedger(db storage.Database) *Ledger {
	return &Ledger{db: db}
}

// Get loads the record for id. found is false when the account has never
// been written; the returned state is then the zero record.
func (l *Ledger) Get(id types.AccountID) (State, bool, error) {
	raw, err := l.db.Get(AccountKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("%w: %v", ErrLedgerRead, err)
	}
	state, err := decodeState(raw)
	if err != nil {
		return State{}, false, fmt.Errorf("%w: account %s: %d bytes", err, id, len(raw))
	}
	return state, true, nil
}

// Read loads the record for id, returning the zero record for unknown accounts.
func (l *Ledger) Read(id types.AccountID) (State, error) {
	state, _, err := l.Get(id)
	return state, err
}

// Write replaces the full record for id.
func (l *Ledger) Write(id types.AccountID, state State) error {
	if err := l.db.Put(AccountKey(id), encodeState(state)); err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}
	return nil
}
