package payoutd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"drippy/core/payout"
	"drippy/services/payoutd/wallet"
)

// ErrProcessorPaused is returned when a batch is submitted while the processor is paused.
var ErrProcessorPaused = errors.New("payoutd: processor paused")

// ErrInvalidBatch reports a malformed instruction.
var ErrInvalidBatch = errors.New("payoutd: invalid batch")

// Journal records accepted batches.
type Journal interface {
	RecordBatch(ctx context.Context, batchID uuid.UUID, batch []payout.Instruction, receipts []payout.Receipt) error
}

// Processor coordinates policy enforcement, the boost reserve and wallet
// submission. It implements payout.Emitter.
type Processor struct {
	wallet   wallet.Wallet
	policies *PolicyEnforcer
	reserve  *ReserveStore
	journal  Journal
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	paused   bool
	accepted int
	failed   int
}

// ProcessorOption customises the processor instance.
type ProcessorOption func(*Processor)

// WithWallet supplies the wallet implementation.
func WithWallet(w wallet.Wallet) ProcessorOption {
	return func(p *Processor) { p.wallet = w }
}

// WithPolicies enforces per-asset daily caps. Without policies no cap applies.
func WithPolicies(policies *PolicyEnforcer) ProcessorOption {
	return func(p *Processor) { p.policies = policies }
}

// WithJournal records accepted batches.
func WithJournal(j Journal) ProcessorOption {
	return func(p *Processor) { p.journal = j }
}

// WithMetrics overrides the default metrics registry.
func WithMetrics(m *Metrics) ProcessorOption {
	return func(p *Processor) { p.metrics = m }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = l }
}

// WithClock sets the function used to derive timestamps.
func WithClock(clock func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = clock }
}

// NewProcessor constructs a processor funding boosts from reserve.
func NewProcessor(reserve *ReserveStore, opts ...ProcessorOption) (*Processor, error) {
	if reserve == nil {
		return nil, fmt.Errorf("payoutd: reserve store required")
	}
	proc := &Processor{
		reserve: reserve,
		metrics: NewMetrics(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(proc)
	}
	if proc.metrics == nil {
		proc.metrics = NewMetrics()
	}
	if proc.logger == nil {
		proc.logger = slog.Default()
	}
	if proc.policies != nil {
		for _, policy := range proc.policies.Policies() {
			if err := reserve.Seed(policy.Asset, policy.Reserve); err != nil {
				return nil, err
			}
			proc.publishReserve(policy.Asset)
		}
	}
	return proc, nil
}

// Emit implements payout.Emitter. The batch is checked in full before the
// wallet sees it, so a returned error means nothing was submitted.
func (p *Processor) Emit(ctx context.Context, batch []payout.Instruction) ([]payout.Receipt, error) {
	if len(batch) == 0 {
		return []payout.Receipt{}, nil
	}
	totals, draws, err := summarize(batch)
	if err != nil {
		p.metrics.RecordError("", "invalid")
		return nil, err
	}

	// Held across submission so caps and reserve checks stay consistent.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		p.metrics.RecordError("", "paused")
		return nil, ErrProcessorPaused
	}
	now := p.now()
	if p.policies != nil {
		if err := p.policies.Validate(totals, now); err != nil {
			p.failed++
			switch {
			case errors.Is(err, ErrDailyCapExceeded):
				p.metrics.RecordError("", "daily_cap")
			default:
				p.metrics.RecordError("", "policy")
			}
			return nil, err
		}
	}
	if len(draws) > 0 {
		if _, err := p.reserve.check(draws); err != nil {
			p.failed++
			p.metrics.RecordError("", "reserve")
			return nil, err
		}
	}
	if p.wallet == nil {
		p.failed++
		return nil, fmt.Errorf("payoutd: wallet not configured")
	}

	transfers := make([]wallet.Transfer, len(batch))
	for i, ins := range batch {
		transfers[i] = toTransfer(ins)
	}
	start := now
	hashes, err := p.wallet.Submit(ctx, transfers)
	if err != nil {
		p.failed++
		p.metrics.RecordError("", "transfer")
		return nil, err
	}

	// From here on the batch is scheduled; bookkeeping failures are logged.
	p.accepted++
	batchID := uuid.New()
	receipts := make([]payout.Receipt, len(batch))
	for i, ins := range batch {
		receipts[i] = payout.Receipt{
			ID:        uuid.NewString(),
			Recipient: ins.Recipient,
			Asset:     ins.Asset,
			Amount:    ins.Amount,
		}
		if i < len(hashes) {
			receipts[i].TxHash = hashes[i]
		}
	}
	if p.policies != nil {
		p.policies.Record(totals, now)
		for asset := range totals {
			p.metrics.RecordCap(asset, p.policies.RemainingCap(asset, now), p.policies.DailyCap(asset))
		}
	}
	if len(draws) > 0 {
		balances, err := p.reserve.Draw(draws)
		if err != nil {
			p.metrics.RecordError("", "reserve_write")
			p.logger.Error("boost reserve not debited after submission",
				slog.String("batch", batchID.String()), slog.Any("error", err))
		}
		for asset, balance := range balances {
			p.metrics.RecordReserve(asset, balance)
		}
	}
	if p.journal != nil {
		if err := p.journal.RecordBatch(ctx, batchID, batch, receipts); err != nil {
			p.metrics.RecordError("", "journal")
			p.logger.Error("journal batch", slog.String("batch", batchID.String()), slog.Any("error", err))
		}
	}
	for asset := range totals {
		p.metrics.ObserveLatency(asset, p.now().Sub(start))
	}
	return receipts, nil
}

func summarize(batch []payout.Instruction) (map[string]uint64, map[string]uint64, error) {
	totals := make(map[string]uint64)
	draws := make(map[string]uint64)
	for i, ins := range batch {
		if ins.Amount == 0 {
			return nil, nil, fmt.Errorf("%w: instruction %d has zero amount", ErrInvalidBatch, i)
		}
		if ins.Recipient.IsZero() {
			return nil, nil, fmt.Errorf("%w: instruction %d has no recipient", ErrInvalidBatch, i)
		}
		asset := normalizeAsset(ins.Asset.Code())
		if totals[asset] > math.MaxUint64-ins.Amount {
			return nil, nil, fmt.Errorf("%w: %s total overflows", ErrInvalidBatch, asset)
		}
		totals[asset] += ins.Amount
		if ins.ReserveFunded > 0 {
			if draws[asset] > math.MaxUint64-ins.ReserveFunded {
				return nil, nil, fmt.Errorf("%w: %s reserve overflows", ErrInvalidBatch, asset)
			}
			draws[asset] += ins.ReserveFunded
		}
	}
	return totals, draws, nil
}

func toTransfer(ins payout.Instruction) wallet.Transfer {
	transfer := wallet.Transfer{
		Recipient: ins.Recipient.String(),
		Currency:  ins.Asset.Code(),
		Amount:    strconv.FormatUint(ins.Amount, 10),
		Memo:      string(ins.Purpose),
	}
	if !ins.Asset.Native() {
		transfer.Issuer = ins.Asset.Issuer.String()
	}
	return transfer
}

// Pause halts new batches.
func (p *Processor) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
	p.metrics.SetPause(true)
}

// Resume re-enables batches.
func (p *Processor) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
	p.metrics.SetPause(false)
}

// TopUpReserve credits the boost reserve of asset.
func (p *Processor) TopUpReserve(asset string, amount uint64) (uint64, error) {
	if normalizeAsset(asset) == "" || amount == 0 {
		return 0, fmt.Errorf("payoutd: asset and positive amount required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	balance, err := p.reserve.TopUp(asset, amount)
	if err != nil {
		return 0, err
	}
	p.metrics.RecordReserve(normalizeAsset(asset), balance)
	return balance, nil
}

// Reserve returns the boost reserve of asset.
func (p *Processor) Reserve(asset string) (uint64, error) {
	balance, _, err := p.reserve.Balance(asset)
	return balance, err
}

func (p *Processor) publishReserve(asset string) {
	if balance, _, err := p.reserve.Balance(asset); err == nil {
		p.metrics.RecordReserve(asset, balance)
	}
}

// Status summarises processor state for administrative endpoints.
type Status struct {
	Paused       bool              `json:"paused"`
	Accepted     int               `json:"accepted"`
	Failed       int               `json:"failed"`
	CapRemaining map[string]string `json:"cap_remaining"`
	Reserve      map[string]string `json:"reserve"`
}

// Status reports the current processor status snapshot.
func (p *Processor) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	status := Status{
		Paused:       p.paused,
		Accepted:     p.accepted,
		Failed:       p.failed,
		CapRemaining: make(map[string]string),
		Reserve:      make(map[string]string),
	}
	if p.policies != nil {
		for asset, remaining := range p.policies.Snapshot(p.now()) {
			status.CapRemaining[asset] = strconv.FormatUint(remaining, 10)
		}
		for _, policy := range p.policies.Policies() {
			if balance, _, err := p.reserve.Balance(policy.Asset); err == nil {
				status.Reserve[policy.Asset] = strconv.FormatUint(balance, 10)
			}
		}
	}
	return status
}

var _ payout.Emitter = (*Processor)(nil)
