package accrual

import (
	"drippy/core/types"
	"drippy/native/common"
)

// Authorizer decides whether caller may mutate accrual balances.
type Authorizer func(caller types.AccountID) bool

// AdminOnly authorizes exactly admin. A zero admin authorizes nobody.
func AdminOnly(admin types.AccountID) Authorizer {
	return func(caller types.AccountID) bool {
		return !admin.IsZero() && caller == admin
	}
}

// Authority applies operator credits and boost changes.
type Authority struct {
	ledger    *Ledger
	authorize Authorizer
	boostMax  uint32
}

// NewAuthority builds an authority. A nil authorizer rejects every caller.
func NewAuthority(ledger *Ledger, authorize Authorizer, boostMax uint32) *Authority {
	if boostMax == 0 {
		boostMax = DefaultBoostMax
	}
	return &Authority{ledger: ledger, authorize: authorize, boostMax: boostMax}
}

// BoostMax is the multiplier cap in percent.
func (a *Authority) BoostMax() uint32 { return a.boostMax }

func (a *Authority) check(caller, target types.AccountID) error {
	if a.authorize == nil || !a.authorize(caller) {
		return ErrUnauthorized
	}
	if target.IsZero() {
		return ErrInvalidTarget
	}
	return nil
}

// Accrue credits amount to target and returns the updated record.
func (a *Authority) Accrue(caller, target types.AccountID, amount uint64) (State, error) {
	if err := a.check(caller, target); err != nil {
		return State{}, err
	}
	if amount == 0 {
		return State{}, ErrZeroAmount
	}
	state, err := a.ledger.Read(target)
	if err != nil {
		return State{}, err
	}
	accrued, err := common.AddChecked(state.Accrued, amount)
	if err != nil {
		return State{}, ErrAccrualOverflow
	}
	state.Accrued = accrued
	if err := a.ledger.Write(target, state); err != nil {
		return State{}, err
	}
	return state, nil
}

// SetBoost stores the payout multiplier for target, capped at BoostMax. It
// returns the updated record; the stored multiplier may be lower than the
// requested one.
func (a *Authority) SetBoost(caller, target types.AccountID, multiplier uint32) (State, error) {
	if err := a.check(caller, target); err != nil {
		return State{}, err
	}
	if multiplier > a.boostMax {
		multiplier = a.boostMax
	}
	state, err := a.ledger.Read(target)
	if err != nil {
		return State{}, err
	}
	state.BoostMultiplier = multiplier
	if err := a.ledger.Write(target, state); err != nil {
		return State{}, err
	}
	return state, nil
}
