package accrual

import (
	"context"
	"fmt"
	"math"

	"drippy/core/payout"
	"drippy/core/types"
	"drippy/native/common"
)

// Phase is the lifecycle position of a claim.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseEvaluating
	PhasePaid
	PhaseRejected
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseEvaluating:
		return "evaluating"
	case PhasePaid:
		return "paid"
	case PhaseRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Quote is the outcome of evaluating a claim without emitting it.
type Quote struct {
	Actor types.AccountID
	// State is the loaded record with the day window already rolled.
	State      State
	Payout     uint64
	Boosted    uint64
	Multiplier uint32
}

// ReserveFunded is the part of the boosted payout not backed by the ledger.
func (q Quote) ReserveFunded() uint64 {
	if q.Boosted > q.Payout {
		return q.Boosted - q.Payout
	}
	return 0
}

// ClaimResult describes a finished claim attempt.
type ClaimResult struct {
	Phase    Phase
	Quote    Quote
	After    State
	Receipts []payout.Receipt
}

// Emitted reports whether value left the system. A claim with Emitted set
// and a non-nil error needs operator reconciliation.
func (r ClaimResult) Emitted() bool {
	return r.Receipts != nil
}

// Machine evaluates and settles claims.
type Machine struct {
	ledger  *Ledger
	params  Params
	emitter payout.Emitter
}

// NewMachine builds a claim machine. params are normalized.
func NewMachine(ledger *Ledger, params Params, emitter payout.Emitter) *Machine {
	return &Machine{ledger: ledger, params: params.Normalize(), emitter: emitter}
}

// Params returns the normalized claim rules.
func (m *Machine) Params() Params { return m.params }

// Preview evaluates a claim for actor at now without emitting or writing.
func (m *Machine) Preview(actor types.AccountID, now uint64) (Quote, error) {
	state, err := m.ledger.Read(actor)
	if err != nil {
		return Quote{Actor: actor}, err
	}
	return m.evaluate(actor, state, now)
}

func (m *Machine) evaluate(actor types.AccountID, state State, now uint64) (Quote, error) {
	quote := Quote{Actor: actor, State: state}
	meter := state.meter().Roll(common.DayIndex(now))
	state.DailyClaimed = meter.Used
	quote.State = state

	if state.Accrued == 0 {
		return quote, ErrNoAccrual
	}
	if state.Accrued < m.params.MinClaim {
		return quote, ErrBelowMinimum
	}
	if m.params.Cooldown > 0 && state.LastClaimTime != 0 {
		if now < state.LastClaimTime || now-state.LastClaimTime < m.params.Cooldown {
			return quote, ErrCooldownActive
		}
	}
	amount := state.Accrued
	if m.params.MaxPerClaim > 0 {
		amount = common.MinUint64(amount, m.params.MaxPerClaim)
	}
	if m.params.DailyMax > 0 {
		amount = common.MinUint64(amount, meter.Remaining(m.params.DailyMax))
		if amount == 0 {
			return quote, ErrDailyLimitExceeded
		}
	}
	multiplier := state.EffectiveMultiplier()
	boosted, err := common.ApplyPercent(amount, multiplier)
	if err != nil {
		return quote, ErrPayoutOverflow
	}
	if boosted == 0 {
		return quote, ErrDustPayout
	}
	quote.Payout = amount
	quote.Boosted = boosted
	quote.Multiplier = multiplier
	return quote, nil
}

// Claim settles a claim for actor at now: the boosted payout is emitted first
// and the ledger is written only after the emitter accepted it. An emission
// failure leaves the record untouched.
func (m *Machine) Claim(ctx context.Context, actor types.AccountID, now uint64) (ClaimResult, error) {
	result := ClaimResult{Phase: PhaseEvaluating}
	state, err := m.ledger.Read(actor)
	if err != nil {
		result.Phase = PhaseRejected
		return result, err
	}
	quote, err := m.evaluate(actor, state, now)
	result.Quote = quote
	if err != nil {
		result.Phase = PhaseRejected
		return result, err
	}
	if m.emitter == nil {
		result.Phase = PhaseRejected
		return result, fmt.Errorf("%w: no emitter configured", ErrEmission)
	}

	instruction := payout.Instruction{
		Recipient:     actor,
		Asset:         m.params.Asset,
		Amount:        quote.Boosted,
		LedgerFunded:  quote.Payout,
		ReserveFunded: quote.ReserveFunded(),
		Purpose:       payout.PurposeClaim,
	}
	receipts, err := m.emitter.Emit(ctx, []payout.Instruction{instruction})
	if err != nil {
		result.Phase = PhaseRejected
		return result, fmt.Errorf("%w: %v", ErrEmission, err)
	}
	if receipts == nil {
		receipts = []payout.Receipt{}
	}
	result.Receipts = receipts
	result.Phase = PhasePaid

	after := quote.State
	after.Accrued -= quote.Payout
	after.LastClaimTime = now
	after.ClaimCount++
	if daily, err := common.AddChecked(after.DailyClaimed, quote.Payout); err == nil {
		after.DailyClaimed = daily
	} else {
		after.DailyClaimed = math.MaxUint64
	}
	result.After = after
	if err := m.ledger.Write(actor, after); err != nil {
		return result, err
	}
	return result, nil
}
