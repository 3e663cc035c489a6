package accrual

import (
	"errors"
	"testing"

	coreerrors "drippy/core/errors"
	"drippy/core/types"
	"drippy/storage"
)

var (
	adminID  = testAccount(0xAA)
	targetID = testAccount(0x01)
)

func newTestAuthority(db storage.Database) *Authority {
	return NewAuthority(NewLedger(db), AdminOnly(adminID), 0)
}

func TestAccrueRequiresAdmin(t *testing.T) {
	db := storage.NewMemDB()
	authority := newTestAuthority(db)
	if _, err := authority.Accrue(targetID, targetID, 10); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if !errors.Is(ErrUnauthorized, coreerrors.ErrUnauthorized) {
		t.Fatalf("unauthorized sentinel has wrong class")
	}
	if _, found, _ := NewLedger(db).Get(targetID); found {
		t.Fatalf("rejected accrue must not write")
	}
	if _, err := authority.SetBoost(targetID, targetID, 200); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized boost, got %v", err)
	}
}

func TestZeroAdminAuthorizesNobody(t *testing.T) {
	authority := NewAuthority(NewLedger(storage.NewMemDB()), AdminOnly(testAccount(0)), 0)
	if _, err := authority.Accrue(testAccount(0), targetID, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := NewAuthority(NewLedger(storage.NewMemDB()), nil, 0).Accrue(adminID, targetID, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("nil authorizer should reject, got %v", err)
	}
}

func TestAccrueValidation(t *testing.T) {
	authority := newTestAuthority(storage.NewMemDB())
	cases := []struct {
		name   string
		target types.AccountID
		amount uint64
		want   error
	}{
		{name: "zero amount", target: targetID, amount: 0, want: ErrZeroAmount},
		{name: "zero target", target: testAccount(0), amount: 5, want: ErrInvalidTarget},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := authority.Accrue(adminID, tc.target, tc.amount)
			if !errors.Is(err, tc.want) || !errors.Is(err, coreerrors.ErrInvalidInput) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAccrueAccumulatesAndDetectsOverflow(t *testing.T) {
	db := storage.NewMemDB()
	authority := newTestAuthority(db)
	if _, err := authority.Accrue(adminID, targetID, 1_500_000); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	state, err := authority.Accrue(adminID, targetID, 500_000)
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if state.Accrued != 2_000_000 {
		t.Fatalf("expected 2000000 accrued, got %d", state.Accrued)
	}
	if _, err := authority.Accrue(adminID, targetID, ^uint64(0)); !errors.Is(err, ErrAccrualOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	stored, _ := NewLedger(db).Read(targetID)
	if stored.Accrued != 2_000_000 {
		t.Fatalf("overflowing accrue must not write, got %d", stored.Accrued)
	}
}

func TestSetBoostClampsToMax(t *testing.T) {
	db := storage.NewMemDB()
	authority := newTestAuthority(db)
	state, err := authority.SetBoost(adminID, targetID, 900)
	if err != nil {
		t.Fatalf("set boost: %v", err)
	}
	if state.BoostMultiplier != DefaultBoostMax {
		t.Fatalf("expected boost capped at %d, got %d", DefaultBoostMax, state.BoostMultiplier)
	}
	state, err = authority.SetBoost(adminID, targetID, 0)
	if err != nil {
		t.Fatalf("set boost: %v", err)
	}
	if state.EffectiveMultiplier() != NeutralMultiplier {
		t.Fatalf("zero boost should be neutral, got %d", state.EffectiveMultiplier())
	}
}

func TestAdminWriteFailureIsStorageFailure(t *testing.T) {
	db := newFlakyDB()
	authority := newTestAuthority(db)
	db.failPut = true
	if _, err := authority.Accrue(adminID, targetID, 10); !coreerrors.Fatal(err) {
		t.Fatalf("expected storage failure, got %v", err)
	}
}
