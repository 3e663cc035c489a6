package accrual

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	coreerrors "drippy/core/errors"
	"drippy/core/payout"
	"drippy/core/types"
	"drippy/storage"
)

const baseTime uint64 = 1_700_000_000

type claimFixture struct {
	db        *flakyDB
	ledger    *Ledger
	authority *Authority
	emitter   *payout.Recorder
	machine   *Machine
}

func newClaimFixture(params Params) *claimFixture {
	db := newFlakyDB()
	ledger := NewLedger(db)
	emitter := &payout.Recorder{}
	return &claimFixture{
		db:        db,
		ledger:    ledger,
		authority: NewAuthority(ledger, AdminOnly(adminID), params.BoostMax),
		emitter:   emitter,
		machine:   NewMachine(ledger, params, emitter),
	}
}

func (f *claimFixture) accrue(t *testing.T, id types.AccountID, amount uint64) {
	t.Helper()
	if _, err := f.authority.Accrue(adminID, id, amount); err != nil {
		t.Fatalf("accrue: %v", err)
	}
}

func TestClaimPaysFullBalance(t *testing.T) {
	f := newClaimFixture(Params{})
	f.accrue(t, targetID, 5_000_000)

	result, err := f.machine.Claim(context.Background(), targetID, baseTime)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if result.Phase != PhasePaid || !result.Emitted() {
		t.Fatalf("expected paid phase, got %s", result.Phase)
	}
	emitted := f.emitter.Instructions()
	if len(emitted) != 1 || emitted[0].Amount != 5_000_000 || emitted[0].Recipient != targetID {
		t.Fatalf("unexpected emission %+v", emitted)
	}
	state, _ := f.ledger.Read(targetID)
	if state.Accrued != 0 || state.ClaimCount != 1 || state.LastClaimTime != baseTime || state.DailyClaimed != 5_000_000 {
		t.Fatalf("unexpected state after claim %+v", state)
	}

	_, err = f.machine.Claim(context.Background(), targetID, baseTime+1)
	if !errors.Is(err, ErrNoAccrual) {
		t.Fatalf("expected no accrual on second claim, got %v", err)
	}
	if len(f.emitter.Instructions()) != 1 {
		t.Fatalf("second claim must not emit")
	}
}

func TestClaimBoostFundedFromReserve(t *testing.T) {
	f := newClaimFixture(Params{MinClaim: 1_000_000})
	f.accrue(t, targetID, 2_000_000)
	if _, err := f.authority.SetBoost(adminID, targetID, 300); err != nil {
		t.Fatalf("set boost: %v", err)
	}
	result, err := f.machine.Claim(context.Background(), targetID, baseTime)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	ins := f.emitter.Instructions()[0]
	if ins.Amount != 6_000_000 || ins.LedgerFunded != 2_000_000 || ins.ReserveFunded != 4_000_000 {
		t.Fatalf("unexpected boosted instruction %+v", ins)
	}
	if result.After.Accrued != 0 || result.Quote.Payout != 2_000_000 {
		t.Fatalf("boost must not inflate the deduction: %+v", result)
	}
}

func TestClaimGuards(t *testing.T) {
	cases := []struct {
		name    string
		params  Params
		prepare func(*claimFixture, *testing.T)
		now     uint64
		want    error
	}{
		{
			name:   "no accrual",
			params: Params{},
			now:    baseTime,
			want:   ErrNoAccrual,
		},
		{
			name:    "below minimum",
			params:  Params{},
			prepare: func(f *claimFixture, t *testing.T) { f.accrue(t, targetID, 999_999) },
			now:     baseTime,
			want:    ErrBelowMinimum,
		},
		{
			name:   "cooldown active",
			params: Params{Cooldown: 3600},
			prepare: func(f *claimFixture, t *testing.T) {
				f.accrue(t, targetID, 4_000_000)
				if err := f.ledger.Write(targetID, State{Accrued: 4_000_000, LastClaimTime: baseTime - 10, ClaimCount: 1}); err != nil {
					t.Fatalf("write: %v", err)
				}
			},
			now:  baseTime,
			want: ErrCooldownActive,
		},
		{
			name:   "daily limit reached",
			params: Params{DailyMax: 3_000_000},
			prepare: func(f *claimFixture, t *testing.T) {
				if err := f.ledger.Write(targetID, State{Accrued: 4_000_000, LastClaimTime: baseTime - 5, DailyClaimed: 3_000_000}); err != nil {
					t.Fatalf("write: %v", err)
				}
			},
			now:  baseTime,
			want: ErrDailyLimitExceeded,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newClaimFixture(tc.params)
			if tc.prepare != nil {
				tc.prepare(f, t)
			}
			before, _ := f.ledger.Read(targetID)
			result, err := f.machine.Claim(context.Background(), targetID, tc.now)
			if !errors.Is(err, tc.want) || !errors.Is(err, coreerrors.ErrGuardRejected) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if result.Phase != PhaseRejected || result.Emitted() {
				t.Fatalf("expected rejected without emission, got %+v", result)
			}
			after, _ := f.ledger.Read(targetID)
			if before != after {
				t.Fatalf("rejected claim changed state: %+v -> %+v", before, after)
			}
			if len(f.emitter.Batches()) != 0 {
				t.Fatalf("rejected claim emitted")
			}
		})
	}
}

func TestClaimClampsToMaxAndDailyRemaining(t *testing.T) {
	f := newClaimFixture(Params{MaxPerClaim: 3_000_000, DailyMax: 4_000_000})
	f.accrue(t, targetID, 10_000_000)

	first, err := f.machine.Claim(context.Background(), targetID, baseTime)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if first.Quote.Payout != 3_000_000 {
		t.Fatalf("expected MaxPerClaim clamp, got %d", first.Quote.Payout)
	}
	second, err := f.machine.Claim(context.Background(), targetID, baseTime+60)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if second.Quote.Payout != 1_000_000 {
		t.Fatalf("expected daily remainder 1000000, got %d", second.Quote.Payout)
	}
	if _, err := f.machine.Claim(context.Background(), targetID, baseTime+120); !errors.Is(err, ErrDailyLimitExceeded) {
		t.Fatalf("expected daily limit, got %v", err)
	}

	nextDay := (baseTime/86_400 + 1) * 86_400
	third, err := f.machine.Claim(context.Background(), targetID, nextDay)
	if err != nil {
		t.Fatalf("claim after reset: %v", err)
	}
	if third.Quote.Payout != 3_000_000 || third.After.DailyClaimed != 3_000_000 {
		t.Fatalf("daily counter did not reset: %+v", third)
	}
}

func TestCooldownElapses(t *testing.T) {
	f := newClaimFixture(Params{Cooldown: 3600})
	f.accrue(t, targetID, 2_000_000)
	if _, err := f.machine.Claim(context.Background(), targetID, baseTime); err != nil {
		t.Fatalf("claim: %v", err)
	}
	f.accrue(t, targetID, 2_000_000)
	if _, err := f.machine.Claim(context.Background(), targetID, baseTime+3599); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected cooldown, got %v", err)
	}
	if _, err := f.machine.Claim(context.Background(), targetID, baseTime+3600); err != nil {
		t.Fatalf("claim after cooldown: %v", err)
	}
}

func TestClaimEmissionFailureLeavesState(t *testing.T) {
	f := newClaimFixture(Params{})
	f.accrue(t, targetID, 5_000_000)
	f.emitter.Fail = errors.New("wallet offline")

	result, err := f.machine.Claim(context.Background(), targetID, baseTime)
	if !errors.Is(err, ErrEmission) || !errors.Is(err, coreerrors.ErrEmissionFailed) {
		t.Fatalf("expected emission failure, got %v", err)
	}
	if result.Emitted() {
		t.Fatalf("failed emission reported as emitted")
	}
	state, _ := f.ledger.Read(targetID)
	if state.Accrued != 5_000_000 || state.ClaimCount != 0 {
		t.Fatalf("state mutated after emission failure: %+v", state)
	}
}

func TestClaimWriteFailureAfterEmission(t *testing.T) {
	f := newClaimFixture(Params{})
	f.accrue(t, targetID, 5_000_000)
	f.db.failPut = true

	result, err := f.machine.Claim(context.Background(), targetID, baseTime)
	if !errors.Is(err, ErrLedgerWrite) || !coreerrors.Fatal(err) {
		t.Fatalf("expected fatal write failure, got %v", err)
	}
	if !result.Emitted() || result.Phase != PhasePaid {
		t.Fatalf("emission must be reported for reconciliation: %+v", result)
	}
}

func TestPreviewDoesNotEmit(t *testing.T) {
	f := newClaimFixture(Params{})
	f.accrue(t, targetID, 1_000_000)
	if _, err := f.authority.SetBoost(adminID, targetID, 150); err != nil {
		t.Fatalf("set boost: %v", err)
	}
	quote, err := f.machine.Preview(targetID, baseTime)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if quote.Payout != 1_000_000 || quote.Boosted != 1_500_000 || quote.ReserveFunded() != 500_000 {
		t.Fatalf("unexpected quote %+v", quote)
	}
	if len(f.emitter.Batches()) != 0 {
		t.Fatalf("preview emitted")
	}
}

func TestClaimAtMostOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		params := Params{
			MaxPerClaim: uint64(rng.Intn(3)) * 1_500_000,
			DailyMax:    uint64(rng.Intn(3)) * 2_500_000,
			Cooldown:    uint64(rng.Intn(2)) * 600,
		}
		f := newClaimFixture(params)
		var credited, deducted uint64
		now := baseTime
		for step := 0; step < 20; step++ {
			now += uint64(rng.Intn(7200))
			if rng.Intn(2) == 0 {
				amount := uint64(rng.Intn(4_000_000) + 1)
				f.accrue(t, targetID, amount)
				credited += amount
				continue
			}
			result, err := f.machine.Claim(context.Background(), targetID, now)
			if err != nil {
				continue
			}
			deducted += result.Quote.Payout
		}
		state, _ := f.ledger.Read(targetID)
		if deducted+state.Accrued != credited {
			t.Fatalf("iteration %d: credited %d != deducted %d + accrued %d", i, credited, deducted, state.Accrued)
		}
		if payout.Total(f.emitter.Instructions()) != deducted {
			t.Fatalf("iteration %d: neutral boost emitted %d, deducted %d", i, payout.Total(f.emitter.Instructions()), deducted)
		}
	}
}

func TestPhaseString(t *testing.T) {
	if PhasePaid.String() != "paid" || Phase(99).String() != "unknown" {
		t.Fatalf("unexpected phase labels")
	}
}

var _ storage.Database = (*flakyDB)(nil)
