package fees

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"drippy/storage"
)

var (
	keyTotalDistributed = []byte("stats/total_distributed")
	keyDistributions    = []byte("stats/count")
	keyLastDistribution = []byte("stats/last")
	keyTaxCollected     = []byte("stats/tax")
)

func poolKey(id string) []byte {
	return []byte("stats/pool/" + id)
}

// Stats are the running distribution counters.
type Stats struct {
	TotalDistributed uint64            `json:"totalDistributed"`
	Distributions    uint64            `json:"distributions"`
	LastDistribution uint64            `json:"lastDistribution"`
	TaxCollected     uint64            `json:"taxCollected"`
	Pools            map[string]uint64 `json:"pools"`
}

// StatsStore persists Stats as big-endian counters.
type StatsStore struct {
	db storage.Database
}

// NewStatsStore wraps db.
func NewStatsStore(db storage.Database) *StatsStore {
	return &StatsStore{db: db}
}

func (s *StatsStore) counter(key []byte) (uint64, error) {
	raw, err := s.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStatsRead, err)
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("%w: %s holds %d bytes", ErrStatsRead, key, len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

// Load reads the counters for the listed pools.
func (s *StatsStore) Load(poolIDs []string) (Stats, error) {
	stats := Stats{Pools: make(map[string]uint64, len(poolIDs))}
	var err error
	if stats.TotalDistributed, err = s.counter(keyTotalDistributed); err != nil {
		return Stats{}, err
	}
	if stats.Distributions, err = s.counter(keyDistributions); err != nil {
		return Stats{}, err
	}
	if stats.LastDistribution, err = s.counter(keyLastDistribution); err != nil {
		return Stats{}, err
	}
	if stats.TaxCollected, err = s.counter(keyTaxCollected); err != nil {
		return Stats{}, err
	}
	for _, id := range poolIDs {
		value, err := s.counter(poolKey(id))
		if err != nil {
			return Stats{}, err
		}
		stats.Pools[id] = value
	}
	return stats, nil
}

// Record folds one completed distribution into the counters and writes them
// as a single batch.
func (s *StatsStore) Record(plan Plan, tax, now uint64) (Stats, error) {
	ids := make([]string, len(plan.Shares))
	for i, share := range plan.Shares {
		ids[i] = share.PoolID
	}
	stats, err := s.Load(ids)
	if err != nil {
		return Stats{}, err
	}
	stats.TotalDistributed = saturatingAdd(stats.TotalDistributed, plan.TotalAllocated)
	stats.Distributions = saturatingAdd(stats.Distributions, 1)
	stats.LastDistribution = now
	stats.TaxCollected = saturatingAdd(stats.TaxCollected, tax)
	entries := []storage.Entry{
		{Key: keyTotalDistributed, Value: encodeCounter(stats.TotalDistributed)},
		{Key: keyDistributions, Value: encodeCounter(stats.Distributions)},
		{Key: keyLastDistribution, Value: encodeCounter(stats.LastDistribution)},
		{Key: keyTaxCollected, Value: encodeCounter(stats.TaxCollected)},
	}
	for _, share := range plan.Shares {
		stats.Pools[share.PoolID] = saturatingAdd(stats.Pools[share.PoolID], share.Amount)
		entries = append(entries, storage.Entry{Key: poolKey(share.PoolID), Value: encodeCounter(stats.Pools[share.PoolID])})
	}
	if err := s.db.PutBatch(entries); err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrStatsWrite, err)
	}
	return stats, nil
}

func encodeCounter(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
