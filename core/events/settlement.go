package events

import (
	"drippy/core/types"
)

const (
	TypeAccrualCredited       = "accrual.credited"
	TypeBoostUpdated          = "accrual.boost_updated"
	TypeClaimPaid             = "claim.paid"
	TypeClaimRejected         = "claim.rejected"
	TypeDistributionCompleted = "distribution.completed"
	TypeDistributionSkipped   = "distribution.skipped"
	TypeTaxApplied            = "distribution.tax_applied"
	TypeLedgerWriteFailed     = "ledger.write_failed"
)

// AccrualCredited records an operator credit to an account's accrual balance.
type AccrualCredited struct {
	Target  types.AccountID
	Amount  uint64
	Accrued uint64
}

func (AccrualCredited) EventType() string { return TypeAccrualCredited }

func (e AccrualCredited) Event() *types.Event {
	return &types.Event{Type: TypeAccrualCredited, Attributes: map[string]string{
		"target":  e.Target.String(),
		"amount":  formatUint(e.Amount),
		"accrued": formatUint(e.Accrued),
	}}
}

// BoostUpdated records a change of an account's payout multiplier.
type BoostUpdated struct {
	Target     types.AccountID
	Requested  uint32
	Multiplier uint32
}

func (BoostUpdated) EventType() string { return TypeBoostUpdated }

func (e BoostUpdated) Event() *types.Event {
	attrs := map[string]string{
		"target":     e.Target.String(),
		"multiplier": formatUint(uint64(e.Multiplier)),
	}
	if e.Requested != e.Multiplier {
		attrs["requested"] = formatUint(uint64(e.Requested))
		attrs["capped"] = "true"
	}
	return &types.Event{Type: TypeBoostUpdated, Attributes: attrs}
}

// ClaimPaid records a successful claim. Deducted is the ledger amount; Emitted
// includes the boost.
type ClaimPaid struct {
	Actor      types.AccountID
	Asset      types.Asset
	Deducted   uint64
	Emitted    uint64
	Multiplier uint32
	Remaining  uint64
	ClaimCount uint32
	Timestamp  uint64
}

func (ClaimPaid) EventType() string { return TypeClaimPaid }

func (e ClaimPaid) Event() *types.Event {
	return &types.Event{Type: TypeClaimPaid, Attributes: map[string]string{
		"actor":      e.Actor.String(),
		"asset":      e.Asset.String(),
		"deducted":   formatUint(e.Deducted),
		"emitted":    formatUint(e.Emitted),
		"multiplier": formatUint(uint64(e.Multiplier)),
		"remaining":  formatUint(e.Remaining),
		"claimCount": formatUint(uint64(e.ClaimCount)),
		"timestamp":  formatUint(e.Timestamp),
	}}
}

// ClaimRejected records a claim that failed one of the guard conditions.
type ClaimRejected struct {
	Actor  types.AccountID
	Reason string
}

func (ClaimRejected) EventType() string { return TypeClaimRejected }

func (e ClaimRejected) Event() *types.Event {
	return &types.Event{Type: TypeClaimRejected, Attributes: map[string]string{
		"actor":  e.Actor.String(),
		"reason": e.Reason,
	}}
}

// PoolShare is the per-pool slice of a completed distribution.
type PoolShare struct {
	PoolID string
	Amount uint64
}

// DistributionCompleted records a fully emitted distribution.
type DistributionCompleted struct {
	Gross     uint64
	Tax       uint64
	Net       uint64
	Shares    []PoolShare
	Count     uint64
	Timestamp uint64
}

func (DistributionCompleted) EventType() string { return TypeDistributionCompleted }

func (e DistributionCompleted) Event() *types.Event {
	attrs := map[string]string{
		"gross":     formatUint(e.Gross),
		"tax":       formatUint(e.Tax),
		"net":       formatUint(e.Net),
		"count":     formatUint(e.Count),
		"timestamp": formatUint(e.Timestamp),
	}
	for _, share := range e.Shares {
		attrs["pool."+share.PoolID] = formatUint(share.Amount)
	}
	return &types.Event{Type: TypeDistributionCompleted, Attributes: attrs}
}

// DistributionSkipped records an inbound amount below the trigger floor.
type DistributionSkipped struct {
	Amount uint64
	Floor  uint64
}

func (DistributionSkipped) EventType() string { return TypeDistributionSkipped }

func (e DistributionSkipped) Event() *types.Event {
	return &types.Event{Type: TypeDistributionSkipped, Attributes: map[string]string{
		"amount": formatUint(e.Amount),
		"floor":  formatUint(e.Floor),
	}}
}

// TaxApplied records the tax withheld from a taxable transfer.
type TaxApplied struct {
	Actor     types.AccountID
	RateBps   uint32
	Penalty   bool
	Tax       uint64
	Collector types.AccountID
}

func (TaxApplied) EventType() string { return TypeTaxApplied }

func (e TaxApplied) Event() *types.Event {
	attrs := map[string]string{
		"actor":   e.Actor.String(),
		"rateBps": formatUint(uint64(e.RateBps)),
		"tax":     formatUint(e.Tax),
	}
	if e.Penalty {
		attrs["penalty"] = "true"
	}
	if !e.Collector.IsZero() {
		attrs["collector"] = e.Collector.String()
	}
	return &types.Event{Type: TypeTaxApplied, Attributes: attrs}
}

// LedgerWriteFailed is raised when a ledger write fails after the payout was
// already emitted. It always requires operator reconciliation.
type LedgerWriteFailed struct {
	Operation string
	Account   types.AccountID
	Amount    uint64
	Error     string
}

func (LedgerWriteFailed) EventType() string { return TypeLedgerWriteFailed }

func (e LedgerWriteFailed) Event() *types.Event {
	attrs := map[string]string{
		"operation": e.Operation,
		"amount":    formatUint(e.Amount),
		"error":     e.Error,
	}
	if !e.Account.IsZero() {
		attrs["account"] = e.Account.String()
	}
	return &types.Event{Type: TypeLedgerWriteFailed, Attributes: attrs}
}
