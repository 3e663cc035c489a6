package fees

import (
	"context"
	"errors"
	"testing"

	coreerrors "drippy/core/errors"
	"drippy/core/payout"
	"drippy/storage"
)

type staticHolders map[string][]Holder

func (s staticHolders) Holders(_ context.Context, poolID string) ([]Holder, error) {
	return s[poolID], nil
}

type failingBatchDB struct {
	*storage.MemDB
}

func (failingBatchDB) PutBatch([]storage.Entry) error { return errors.New("batch rejected") }

func newTestDistributor(t *testing.T, db storage.Database, holders HolderSource, emitter payout.Emitter) *Distributor {
	t.Helper()
	cfg := DistributorConfig{
		Pools:            hookPools(),
		Window:           NewTaxWindow(1_000, 500, DefaultPenaltyRateBps, account(9)),
		PenaltyCollector: account(99),
	}
	d, err := NewDistributor(cfg, holders, NewStatsStore(db), emitter)
	if err != nil {
		t.Fatalf("new distributor: %v", err)
	}
	return d
}

func TestDistributeEmitsTaxAndShares(t *testing.T) {
	db := storage.NewMemDB()
	emitter := &payout.Recorder{}
	d := newTestDistributor(t, db, nil, emitter)

	dist, err := d.Distribute(context.Background(), DistributeInput{Amount: 10_000_000, IsSellSide: true, Actor: account(50), Now: 10})
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if !dist.Tax.Penalty || dist.Tax.Tax != 5_000_000 {
		t.Fatalf("expected penalty tax, got %+v", dist.Tax)
	}
	batches := emitter.Batches()
	if len(batches) != 1 || len(batches[0]) != 5 {
		t.Fatalf("expected a single batch of five transfers, got %+v", batches)
	}
	if batches[0][0].Recipient != account(99) || batches[0][0].Purpose != payout.PurposePenaltyTax {
		t.Fatalf("tax transfer must go to the collector: %+v", batches[0][0])
	}
	if payout.Total(batches[0]) != 10_000_000 {
		t.Fatalf("emitted %d, expected the full gross", payout.Total(batches[0]))
	}
	stats, err := d.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalDistributed != 5_000_000 || stats.TaxCollected != 5_000_000 || stats.Distributions != 1 || stats.LastDistribution != 10 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Pools["nft"] != 2_000_000 || stats.Pools["amm"] != 500_000 {
		t.Fatalf("unexpected pool totals %+v", stats.Pools)
	}
}

func TestDistributeEmissionFailureLeavesStats(t *testing.T) {
	db := storage.NewMemDB()
	emitter := &payout.Recorder{Fail: errors.New("wallet offline")}
	d := newTestDistributor(t, db, nil, emitter)

	dist, err := d.Distribute(context.Background(), DistributeInput{Amount: 1_000_000, Now: 10})
	if !errors.Is(err, coreerrors.ErrEmissionFailed) {
		t.Fatalf("expected emission failure, got %v", err)
	}
	if dist.Emitted() {
		t.Fatalf("failed batch reported as emitted")
	}
	stats, _ := d.Stats()
	if stats.Distributions != 0 || stats.TotalDistributed != 0 {
		t.Fatalf("stats changed after failed emission: %+v", stats)
	}
}

func TestDistributeStatsFailureAfterEmission(t *testing.T) {
	emitter := &payout.Recorder{}
	d := newTestDistributor(t, failingBatchDB{storage.NewMemDB()}, nil, emitter)
	dist, err := d.Distribute(context.Background(), DistributeInput{Amount: 1_000_000, Now: 2_000})
	if !errors.Is(err, ErrStatsWrite) || !coreerrors.Fatal(err) {
		t.Fatalf("expected fatal stats failure, got %v", err)
	}
	if !dist.Emitted() {
		t.Fatalf("emitted batch must be reported for reconciliation")
	}
}

func TestDistributeHolderFanOut(t *testing.T) {
	pools := hookPools()
	pools[1].Holders = true
	holders := staticHolders{"hold": {{Account: account(60), Units: 1}, {Account: account(61), Units: 3}}}
	emitter := &payout.Recorder{}
	cfg := DistributorConfig{
		Pools:      pools,
		Conversion: Conversion{Numerator: 16_966, Denominator: 1_000_000},
	}
	d, err := NewDistributor(cfg, holders, NewStatsStore(storage.NewMemDB()), emitter)
	if err != nil {
		t.Fatalf("new distributor: %v", err)
	}
	if _, err := d.Distribute(context.Background(), DistributeInput{Amount: 100_000_000, Now: 5}); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	var holderTotal uint64
	for _, ins := range emitter.Instructions() {
		if ins.Purpose == payout.PurposeHolder {
			holderTotal += ins.Amount
		}
		if ins.Recipient == account(2) {
			t.Fatalf("holder pool account must not be paid directly")
		}
	}
	// 30% of 100_000_000 converted at 16966/1e6.
	if holderTotal != 508_980 {
		t.Fatalf("holder total %d", holderTotal)
	}
}

func TestDistributeHolderPoolWithoutHolders(t *testing.T) {
	pools := hookPools()
	pools[1].Holders = true
	emitter := &payout.Recorder{}
	d, err := NewDistributor(DistributorConfig{Pools: pools}, staticHolders{}, NewStatsStore(storage.NewMemDB()), emitter)
	if err != nil {
		t.Fatalf("new distributor: %v", err)
	}
	if _, err := d.Distribute(context.Background(), DistributeInput{Amount: 1_000, Now: 5}); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	paid := false
	for _, ins := range emitter.Instructions() {
		if ins.Recipient == account(2) && ins.Amount == 300 {
			paid = true
		}
	}
	if !paid {
		t.Fatalf("pool account should receive the share when no holders are registered")
	}
}

func TestDistributorRequiresCollector(t *testing.T) {
	cfg := DistributorConfig{Pools: hookPools(), Window: NewTaxWindow(0, 100, 0)}
	if _, err := NewDistributor(cfg, nil, NewStatsStore(storage.NewMemDB()), nil); !errors.Is(err, ErrNoCollector) {
		t.Fatalf("expected missing collector error, got %v", err)
	}
}
