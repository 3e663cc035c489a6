// Package engine routes decoded operations to the accrual ledger, the claim
// machine and the fee distributor, and owns their ordering guarantees.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coreerrors "drippy/core/errors"
	"drippy/core/events"
	"drippy/core/payout"
	"drippy/core/types"
	"drippy/native/accrual"
	"drippy/native/common"
	"drippy/native/fees"
	"drippy/observability"
)

// DefaultMinAmount is the distribution trigger floor.
const DefaultMinAmount uint64 = 1_000_000

// Status is the terminal state of an operation.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusIgnored  Status = "ignored"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Reasons reported on non-error outcomes.
const (
	ReasonNoOperation  = "no_operation"
	ReasonBelowTrigger = "below_trigger"
)

// Outcome describes how an operation ended. Reason is empty only for
// accepted operations.
type Outcome struct {
	Kind         Kind               `json:"kind"`
	Status       Status             `json:"status"`
	Reason       string             `json:"reason,omitempty"`
	Payout       uint64             `json:"payout,omitempty,string"`
	Emitted      uint64             `json:"emitted,omitempty,string"`
	State        *accrual.State     `json:"state,omitempty"`
	Distribution *fees.Distribution `json:"distribution,omitempty"`
	Receipts     []payout.Receipt   `json:"receipts,omitempty"`
}

// Alert is raised when value left the system but its bookkeeping failed.
type Alert struct {
	Operation string
	Account   types.AccountID
	Amount    uint64
	Reason    string
	Detail    string
	Receipts  []payout.Receipt
}

// AlertSink records alerts for operator reconciliation.
type AlertSink interface {
	RaiseAlert(ctx context.Context, alert Alert) error
}

// Deps wires an Engine. Ledger, Claims, Authority and Distributor are
// required.
type Deps struct {
	Ledger      *accrual.Ledger
	Authority   *accrual.Authority
	Claims      *accrual.Machine
	Distributor *fees.Distributor
	MinAmount   uint64
	Pauses      common.PauseView
	Events      events.Emitter
	Alerts      AlertSink
	Logger      *slog.Logger
	Metrics     *observability.SettlementMetrics
	Clock       func() time.Time
}

// Engine applies operations.
type Engine struct {
	ledger      *accrual.Ledger
	authority   *accrual.Authority
	claims      *accrual.Machine
	distributor *fees.Distributor
	minAmount   uint64
	pauses      common.PauseView
	events      events.Emitter
	alerts      AlertSink
	logger      *slog.Logger
	metrics     *observability.SettlementMetrics
	tracer      trace.Tracer
	clock       func() time.Time
	locks       *KeyedMutex
}

// New validates deps and returns an engine.
func New(deps Deps) (*Engine, error) {
	if deps.Ledger == nil || deps.Authority == nil || deps.Claims == nil || deps.Distributor == nil {
		return nil, errors.New("engine: ledger, authority, claims and distributor are required")
	}
	e := &Engine{
		ledger:      deps.Ledger,
		authority:   deps.Authority,
		claims:      deps.Claims,
		distributor: deps.Distributor,
		minAmount:   deps.MinAmount,
		pauses:      deps.Pauses,
		events:      deps.Events,
		alerts:      deps.Alerts,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		tracer:      otel.Tracer("drippy/core/engine"),
		clock:       deps.Clock,
		locks:       NewKeyedMutex(),
	}
	if e.minAmount == 0 {
		e.minAmount = DefaultMinAmount
	}
	if e.events == nil {
		e.events = events.NoopEmitter{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	return e, nil
}

// MinAmount is the distribution trigger floor.
func (e *Engine) MinAmount() uint64 { return e.minAmount }

// Now returns the engine clock in epoch seconds.
func (e *Engine) Now() uint64 {
	return uint64(e.clock().Unix())
}

// Account returns the stored record of id.
func (e *Engine) Account(id types.AccountID) (accrual.State, bool, error) {
	return e.ledger.Get(id)
}

// Preview evaluates a claim for id at the current time without emitting.
func (e *Engine) Preview(id types.AccountID) (accrual.Quote, error) {
	return e.claims.Preview(id, e.Now())
}

// Stats returns the distribution counters.
func (e *Engine) Stats() (fees.Stats, error) {
	return e.distributor.Stats()
}

// Distributor exposes the configured distributor.
func (e *Engine) Distributor() *fees.Distributor { return e.distributor }

// Apply executes op. The returned error is nil only for accepted and ignored
// outcomes; the outcome always carries a reason for any other status.
func (e *Engine) Apply(ctx context.Context, op Operation) (Outcome, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "engine."+op.Kind.String(), trace.WithAttributes(
		attribute.String("drippy.kind", op.Kind.String()),
	))
	defer span.End()

	if op.Now == 0 {
		op.Now = e.Now()
	}
	outcome, err := e.apply(ctx, op)
	outcome.Kind = op.Kind
	if err != nil {
		outcome.Reason = coreerrors.Reason(err)
		if outcome.Status == "" {
			outcome.Status = StatusRejected
		}
		if coreerrors.Fatal(err) || errors.Is(err, coreerrors.ErrEmissionFailed) {
			outcome.Status = StatusFailed
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome.Reason)
	}
	span.SetAttributes(
		attribute.String("drippy.status", string(outcome.Status)),
		attribute.String("drippy.reason", outcome.Reason),
	)
	e.metrics.ObserveOperation(op.Kind.String(), string(outcome.Status), outcome.Reason, time.Since(start))
	e.log(op, outcome, err)
	return outcome, err
}

func (e *Engine) apply(ctx context.Context, op Operation) (Outcome, error) {
	if op.Kind == KindNone {
		return Outcome{Status: StatusIgnored, Reason: ReasonNoOperation}, nil
	}
	if err := common.Guard(e.pauses, op.module()); err != nil {
		return Outcome{}, fmt.Errorf("%w: %s", ErrModulePaused, op.module())
	}
	if key := op.lockKey(); key != "" {
		unlock := e.locks.Lock(key)
		defer unlock()
	}
	switch op.Kind {
	case KindClaim:
		return e.claim(ctx, op)
	case KindAccrue:
		return e.accrue(op)
	case KindSetBoost:
		return e.setBoost(op)
	case KindDistribute:
		return e.distribute(ctx, op)
	default:
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownOperation, op.Kind)
	}
}

func (e *Engine) claim(ctx context.Context, op Operation) (Outcome, error) {
	result, err := e.claims.Claim(ctx, op.Actor, op.Now)
	outcome := Outcome{Payout: result.Quote.Payout, Receipts: result.Receipts}
	if result.Emitted() {
		outcome.Emitted = result.Quote.Boosted
		e.metrics.RecordEmitted(e.claims.Params().Asset.Code(), string(payout.PurposeClaim), result.Quote.Boosted)
	}
	if err != nil {
		if result.Emitted() {
			e.raise(ctx, Alert{
				Operation: KindClaim.String(),
				Account:   op.Actor,
				Amount:    result.Quote.Payout,
				Reason:    coreerrors.Reason(err),
				Detail:    err.Error(),
				Receipts:  result.Receipts,
			})
			return outcome, err
		}
		if errors.Is(err, coreerrors.ErrGuardRejected) {
			e.events.Emit(events.ClaimRejected{Actor: op.Actor, Reason: coreerrors.Reason(err)})
		}
		return outcome, err
	}
	after := result.After
	outcome.Status = StatusAccepted
	outcome.State = &after
	e.events.Emit(events.ClaimPaid{
		Actor:      op.Actor,
		Asset:      e.claims.Params().Asset,
		Deducted:   result.Quote.Payout,
		Emitted:    result.Quote.Boosted,
		Multiplier: result.Quote.Multiplier,
		Remaining:  after.Accrued,
		ClaimCount: after.ClaimCount,
		Timestamp:  op.Now,
	})
	return outcome, nil
}

func (e *Engine) accrue(op Operation) (Outcome, error) {
	state, err := e.authority.Accrue(op.Actor, op.Target, op.Amount)
	if err != nil {
		return Outcome{}, err
	}
	e.events.Emit(events.AccrualCredited{Target: op.Target, Amount: op.Amount, Accrued: state.Accrued})
	return Outcome{Status: StatusAccepted, State: &state}, nil
}

func (e *Engine) setBoost(op Operation) (Outcome, error) {
	state, err := e.authority.SetBoost(op.Actor, op.Target, op.Multiplier)
	if err != nil {
		return Outcome{}, err
	}
	e.events.Emit(events.BoostUpdated{Target: op.Target, Requested: op.Multiplier, Multiplier: state.BoostMultiplier})
	return Outcome{Status: StatusAccepted, State: &state}, nil
}

func (e *Engine) distribute(ctx context.Context, op Operation) (Outcome, error) {
	if op.Amount < e.minAmount {
		e.events.Emit(events.DistributionSkipped{Amount: op.Amount, Floor: e.minAmount})
		return Outcome{Status: StatusIgnored, Reason: ReasonBelowTrigger}, nil
	}
	dist, err := e.distributor.Distribute(ctx, fees.DistributeInput{
		Amount:     op.Amount,
		IsSellSide: op.IsSellSide,
		Actor:      op.Actor,
		Now:        op.Now,
		Reference:  op.Reference,
	})
	outcome := Outcome{Receipts: dist.Receipts}
	if dist.Emitted() {
		outcome.Emitted = payout.Total(dist.Instructions)
		for _, ins := range dist.Instructions {
			e.metrics.RecordEmitted(ins.Asset.Code(), string(ins.Purpose), ins.Amount)
		}
	}
	if err != nil {
		if dist.Emitted() {
			e.raise(ctx, Alert{
				Operation: KindDistribute.String(),
				Amount:    outcome.Emitted,
				Reason:    coreerrors.Reason(err),
				Detail:    err.Error(),
				Receipts:  dist.Receipts,
			})
		}
		return outcome, err
	}
	outcome.Status = StatusAccepted
	outcome.Distribution = &dist
	if dist.Tax.Tax > 0 {
		e.events.Emit(events.TaxApplied{
			Actor:     op.Actor,
			RateBps:   dist.Tax.RateBps,
			Penalty:   dist.Tax.Penalty,
			Tax:       dist.Tax.Tax,
			Collector: e.distributor.Config().PenaltyCollector,
		})
	}
	shares := make([]events.PoolShare, 0, len(dist.Plan.Shares))
	for _, share := range dist.Plan.Shares {
		shares = append(shares, events.PoolShare{PoolID: share.PoolID, Amount: share.Amount})
	}
	e.events.Emit(events.DistributionCompleted{
		Gross:     op.Amount,
		Tax:       dist.Tax.Tax,
		Net:       dist.Tax.Net,
		Shares:    shares,
		Count:     dist.Stats.Distributions,
		Timestamp: op.Now,
	})
	return outcome, nil
}

// raise reports a post-emission storage failure through every channel.
func (e *Engine) raise(ctx context.Context, alert Alert) {
	e.metrics.RecordStorageFailure(alert.Operation)
	e.events.Emit(events.LedgerWriteFailed{
		Operation: alert.Operation,
		Account:   alert.Account,
		Amount:    alert.Amount,
		Error:     alert.Detail,
	})
	e.logger.Error("ledger write failed after emission; reconciliation required",
		slog.String("kind", alert.Operation),
		slog.String("account", alert.Account.String()),
		slog.Uint64("amount", alert.Amount),
		slog.String("reason", alert.Reason),
		slog.String("error", alert.Detail),
		slog.Int("receipts", len(alert.Receipts)),
	)
	if e.alerts == nil {
		return
	}
	if err := e.alerts.RaiseAlert(ctx, alert); err != nil {
		e.logger.Error("record reconciliation alert", slog.String("kind", alert.Operation), slog.Any("error", err))
	}
}

func (e *Engine) log(op Operation, outcome Outcome, err error) {
	attrs := []any{
		slog.String("kind", op.Kind.String()),
		slog.String("status", string(outcome.Status)),
	}
	if outcome.Reason != "" {
		attrs = append(attrs, slog.String("reason", outcome.Reason))
	}
	if !op.Actor.IsZero() {
		attrs = append(attrs, slog.String("actor", op.Actor.String()))
	}
	switch {
	case err == nil:
		e.logger.Info("operation applied", attrs...)
	case outcome.Status == StatusFailed:
		e.logger.Error("operation failed", append(attrs, slog.Any("error", err))...)
	default:
		e.logger.Warn("operation rejected", append(attrs, slog.Any("error", err))...)
	}
}
