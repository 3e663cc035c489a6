package accrual

import coreerrors "drippy/core/errors"

var (
	ErrUnauthorized = coreerrors.New(coreerrors.ErrUnauthorized, "unauthorized", "accrual: caller is not the admin")

	ErrZeroAmount      = coreerrors.New(coreerrors.ErrInvalidInput, "zero_amount", "accrual: amount must be positive")
	ErrInvalidTarget   = coreerrors.New(coreerrors.ErrInvalidInput, "invalid_target", "accrual: target account is empty")
	ErrAccrualOverflow = coreerrors.New(coreerrors.ErrInvalidInput, "accrual_overflow", "accrual: balance overflow")
	ErrPayoutOverflow  = coreerrors.New(coreerrors.ErrInvalidInput, "payout_overflow", "accrual: boosted payout overflow")

	ErrNoAccrual          = coreerrors.New(coreerrors.ErrGuardRejected, "no_accrual", "accrual: nothing to claim")
	ErrBelowMinimum       = coreerrors.New(coreerrors.ErrGuardRejected, "below_minimum", "accrual: balance below minimum claim")
	ErrCooldownActive     = coreerrors.New(coreerrors.ErrGuardRejected, "cooldown_active", "accrual: claim cooldown active")
	ErrDailyLimitExceeded = coreerrors.New(coreerrors.ErrGuardRejected, "daily_limit_exceeded", "accrual: daily claim limit reached")

	ErrEmission = coreerrors.New(coreerrors.ErrEmissionFailed, "emission_failed", "accrual: payout emission failed")

	ErrLedgerRead    = coreerrors.New(coreerrors.ErrStorageFailure, "ledger_read_failed", "accrual: ledger read failed")
	ErrLedgerWrite   = coreerrors.New(coreerrors.ErrStorageFailure, "ledger_write_failed", "accrual: ledger write failed")
	ErrCorruptRecord = coreerrors.New(coreerrors.ErrStorageFailure, "corrupt_record", "accrual: corrupt account record")
)

// ErrDustPayout rejects a claim whose boosted payout truncates to zero.
var ErrDustPayout = coreerrors.New(coreerrors.ErrGuardRejected, "dust_payout", "accrual: boosted payout rounds to zero")
