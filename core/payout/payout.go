// Package payout defines the outbound transfer boundary shared by the claim
// and distribution paths. Implementations schedule irreversible transfers.
package payout

import (
	"context"
	"sync"

	"drippy/core/types"
)

// Purpose labels why an instruction was produced.
type Purpose string

const (
	PurposeClaim      Purpose = "claim"
	PurposeShare      Purpose = "pool_share"
	PurposeHolder     Purpose = "holder_share"
	PurposePenaltyTax Purpose = "penalty_tax"
)

// Instruction asks the emitter to transfer Amount of Asset to Recipient.
// LedgerFunded is the part backed by ledger bookkeeping; ReserveFunded is the
// part drawn from the boost reserve. For claims LedgerFunded+ReserveFunded may
// exceed Amount only when the boost is below 1.0x (ReserveFunded is then 0).
type Instruction struct {
	Recipient     types.AccountID
	Asset         types.Asset
	Amount        uint64
	LedgerFunded  uint64
	ReserveFunded uint64
	Purpose       Purpose
	Reference     string
}

// Receipt is returned for each scheduled instruction.
type Receipt struct {
	ID        string
	Recipient types.AccountID
	Asset     types.Asset
	Amount    uint64
	TxHash    string
}

// Emitter schedules a batch of transfers. A nil error guarantees every
// instruction was irrevocably scheduled; an error guarantees none was.
type Emitter interface {
	Emit(ctx context.Context, batch []Instruction) ([]Receipt, error)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ctx context.Context, batch []Instruction) ([]Receipt, error)

// Emit implements Emitter.
func (f EmitterFunc) Emit(ctx context.Context, batch []Instruction) ([]Receipt, error) {
	return f(ctx, batch)
}

// Recorder is an in-memory emitter that accepts everything unless Fail is set.
type Recorder struct {
	mu      sync.Mutex
	Fail    error
	batches [][]Instruction
}

// Emit implements Emitter.
func (r *Recorder) Emit(_ context.Context, batch []Instruction) ([]Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return nil, r.Fail
	}
	copied := append([]Instruction(nil), batch...)
	r.batches = append(r.batches, copied)
	receipts := make([]Receipt, 0, len(batch))
	for _, ins := range batch {
		receipts = append(receipts, Receipt{Recipient: ins.Recipient, Asset: ins.Asset, Amount: ins.Amount})
	}
	return receipts, nil
}

// Batches returns the accepted batches.
func (r *Recorder) Batches() [][]Instruction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]Instruction, len(r.batches))
	copy(out, r.batches)
	return out
}

// Instructions flattens all accepted batches.
func (r *Recorder) Instructions() []Instruction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Instruction
	for _, batch := range r.batches {
		out = append(out, batch...)
	}
	return out
}

// Total sums the emitted amounts.
func Total(batch []Instruction) uint64 {
	var sum uint64
	for _, ins := range batch {
		sum += ins.Amount
	}
	return sum
}
