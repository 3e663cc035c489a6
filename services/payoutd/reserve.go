package payoutd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"drippy/storage"
)

// ErrReserveExhausted is returned when a batch needs more boost funding than
// the reserve holds.
var ErrReserveExhausted = errors.New("payoutd: boost reserve exhausted")

// ReserveStore keeps the per-asset boost reserve in the settlement store.
type ReserveStore struct {
	db storage.Database
}

// NewReserveStore wraps db.
func NewReserveStore(db storage.Database) *ReserveStore {
	return &ReserveStore{db: db}
}

func reserveKey(asset string) []byte {
	return []byte("reserve/" + normalizeAsset(asset))
}

// Balance returns the reserve of asset; found is false if it was never set.
func (r *ReserveStore) Balance(asset string) (uint64, bool, error) {
	raw, err := r.db.Get(reserveKey(asset))
	if errors.Is(err, storage.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("payoutd: read reserve: %w", err)
	}
	if len(raw) != 8 {
		return 0, false, fmt.Errorf("payoutd: reserve %s holds %d bytes", asset, len(raw))
	}
	return binary.BigEndian.Uint64(raw), true, nil
}

// Seed sets the reserve only if it has never been written.
func (r *ReserveStore) Seed(asset string, amount uint64) error {
	_, found, err := r.Balance(asset)
	if err != nil || found {
		return err
	}
	return r.set(asset, amount)
}

// TopUp adds amount and returns the new balance.
func (r *ReserveStore) TopUp(asset string, amount uint64) (uint64, error) {
	balance, _, err := r.Balance(asset)
	if err != nil {
		return 0, err
	}
	if balance > math.MaxUint64-amount {
		return 0, fmt.Errorf("payoutd: reserve overflow")
	}
	balance += amount
	return balance, r.set(asset, balance)
}

// Draw debits the reserves for every asset in draws as one batch.
func (r *ReserveStore) Draw(draws map[string]uint64) (map[string]uint64, error) {
	balances, err := r.check(draws)
	if err != nil {
		return nil, err
	}
	entries := make([]storage.Entry, 0, len(draws))
	for asset, amount := range draws {
		balances[asset] -= amount
		entries = append(entries, storage.Entry{Key: reserveKey(asset), Value: encodeReserve(balances[asset])})
	}
	if err := r.db.PutBatch(entries); err != nil {
		return nil, fmt.Errorf("payoutd: write reserve: %w", err)
	}
	return balances, nil
}

// check verifies every draw is covered.
func (r *ReserveStore) check(draws map[string]uint64) (map[string]uint64, error) {
	balances := make(map[string]uint64, len(draws))
	for asset, amount := range draws {
		balance, _, err := r.Balance(asset)
		if err != nil {
			return nil, err
		}
		if balance < amount {
			return nil, fmt.Errorf("%w: %s needs %d, holds %d", ErrReserveExhausted, asset, amount, balance)
		}
		balances[asset] = balance
	}
	return balances, nil
}

func (r *ReserveStore) set(asset string, amount uint64) error {
	if err := r.db.Put(reserveKey(asset), encodeReserve(amount)); err != nil {
		return fmt.Errorf("payoutd: write reserve: %w", err)
	}
	return nil
}

func encodeReserve(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
