package fees

import (
	"context"
	"fmt"

	"drippy/core/payout"
	"drippy/core/types"
)

// DistributorConfig wires the fixed routing of inbound value.
type DistributorConfig struct {
	Pools            []Pool
	Window           TaxWindow
	PenaltyCollector types.AccountID
	// Asset is the currency being distributed.
	Asset types.Asset
	// HolderAsset is what holder pools are paid in after Conversion.
	HolderAsset types.Asset
	Conversion  Conversion
}

// Validate checks pools, conversion and the tax collector.
func (c DistributorConfig) Validate() error {
	if err := ValidatePools(c.Pools); err != nil {
		return err
	}
	if (c.Window.NormalRateBps > 0 || c.Window.PenaltyRateBps > 0) && c.PenaltyCollector.IsZero() {
		return ErrNoCollector
	}
	return c.Conversion.Validate()
}

// DistributeInput is one inbound taxable transfer.
type DistributeInput struct {
	Amount     uint64
	IsSellSide bool
	Actor      types.AccountID
	Now        uint64
	Reference  string
}

// Distribution reports a settled split.
type Distribution struct {
	Tax          TaxResult
	Plan         Plan
	Instructions []payout.Instruction
	Receipts     []payout.Receipt
	Stats        Stats
}

// Emitted reports whether the batch left the system.
func (d Distribution) Emitted() bool {
	return d.Receipts != nil
}

// Distributor taxes, allocates and emits inbound value.
type Distributor struct {
	cfg     DistributorConfig
	holders HolderSource
	stats   *StatsStore
	emitter payout.Emitter
}

// NewDistributor validates cfg. holders may be nil when no pool routes to
// holders.
func NewDistributor(cfg DistributorConfig, holders HolderSource, stats *StatsStore, emitter payout.Emitter) (*Distributor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pools := make([]Pool, len(cfg.Pools))
	copy(pools, cfg.Pools)
	cfg.Pools = pools
	return &Distributor{cfg: cfg, holders: holders, stats: stats, emitter: emitter}, nil
}

// Config returns the distributor configuration.
func (d *Distributor) Config() DistributorConfig { return d.cfg }

// Stats reads the current counters.
func (d *Distributor) Stats() (Stats, error) {
	ids := make([]string, len(d.cfg.Pools))
	for i, pool := range d.cfg.Pools {
		ids[i] = pool.ID
	}
	return d.stats.Load(ids)
}

// Plan computes the tax and allocation for input without emitting.
func (d *Distributor) Plan(ctx context.Context, input DistributeInput) (Distribution, error) {
	tax := Apply(ApplyInput{
		Gross:      input.Amount,
		Now:        input.Now,
		IsSellSide: input.IsSellSide,
		Actor:      input.Actor,
		Window:     d.cfg.Window,
	})
	plan, err := Allocate(tax.Net, d.cfg.Pools)
	if err != nil {
		return Distribution{}, err
	}
	batch, err := d.instructions(ctx, plan, tax, input.Reference)
	if err != nil {
		return Distribution{}, err
	}
	return Distribution{Tax: tax, Plan: plan, Instructions: batch}, nil
}

func (d *Distributor) instructions(ctx context.Context, plan Plan, tax TaxResult, ref string) ([]payout.Instruction, error) {
	batch := make([]payout.Instruction, 0, len(plan.Shares)+1)
	if tax.Tax > 0 {
		batch = append(batch, payout.Instruction{
			Recipient:    d.cfg.PenaltyCollector,
			Asset:        d.cfg.Asset,
			Amount:       tax.Tax,
			LedgerFunded: tax.Tax,
			Purpose:      payout.PurposePenaltyTax,
			Reference:    ref,
		})
	}
	for _, share := range plan.NonZero() {
		if share.Holders && d.holders != nil {
			holderBatch, err := d.holderInstructions(ctx, share, ref)
			if err != nil {
				return nil, err
			}
			if holderBatch != nil {
				batch = append(batch, holderBatch...)
				continue
			}
		}
		batch = append(batch, payout.Instruction{
			Recipient:    share.Account,
			Asset:        d.cfg.Asset,
			Amount:       share.Amount,
			LedgerFunded: share.Amount,
			Purpose:      payout.PurposeShare,
			Reference:    ref,
		})
	}
	return batch, nil
}

// holderInstructions returns nil when the pool has no eligible holders.
func (d *Distributor) holderInstructions(ctx context.Context, share Share, ref string) ([]payout.Instruction, error) {
	holders, err := d.holders.Holders(ctx, share.PoolID)
	if err != nil {
		return nil, fmt.Errorf("%w: pool %s: %v", ErrHolderLookup, share.PoolID, err)
	}
	converted, err := d.cfg.Conversion.Apply(share.Amount)
	if err != nil {
		return nil, err
	}
	parts, err := SplitHolders(converted, holders)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, nil
	}
	asset := d.cfg.HolderAsset
	if d.cfg.Conversion.Identity() {
		asset = d.cfg.Asset
	}
	batch := make([]payout.Instruction, 0, len(parts))
	for _, part := range parts {
		if part.Amount == 0 {
			continue
		}
		batch = append(batch, payout.Instruction{
			Recipient:    part.Account,
			Asset:        asset,
			Amount:       part.Amount,
			LedgerFunded: part.Amount,
			Purpose:      payout.PurposeHolder,
			Reference:    ref + "/" + share.PoolID,
		})
	}
	return batch, nil
}

// Distribute taxes and splits input, emits every transfer as one batch and
// records statistics once the batch is accepted. An emission failure leaves
// statistics untouched.
func (d *Distributor) Distribute(ctx context.Context, input DistributeInput) (Distribution, error) {
	dist, err := d.Plan(ctx, input)
	if err != nil {
		return Distribution{}, err
	}
	if len(dist.Instructions) > 0 {
		if d.emitter == nil {
			return dist, fmt.Errorf("%w: no emitter configured", ErrEmission)
		}
		receipts, err := d.emitter.Emit(ctx, dist.Instructions)
		if err != nil {
			return dist, fmt.Errorf("%w: %v", ErrEmission, err)
		}
		if receipts == nil {
			receipts = []payout.Receipt{}
		}
		dist.Receipts = receipts
	} else {
		dist.Receipts = []payout.Receipt{}
	}
	stats, err := d.stats.Record(dist.Plan, dist.Tax.Tax, input.Now)
	if err != nil {
		return dist, err
	}
	dist.Stats = stats
	return dist, nil
}
