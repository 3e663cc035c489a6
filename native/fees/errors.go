package fees

import coreerrors "drippy/core/errors"

var (
	ErrInvalidAllocation = coreerrors.New(coreerrors.ErrInvalidInput, "invalid_allocation", "fees: pool weights must sum to 10000 bps")
	ErrNoPools           = coreerrors.New(coreerrors.ErrInvalidInput, "no_pools", "fees: no distribution pools configured")
	ErrDuplicatePool     = coreerrors.New(coreerrors.ErrInvalidInput, "duplicate_pool", "fees: duplicate pool id")
	ErrNoCollector       = coreerrors.New(coreerrors.ErrInvalidInput, "no_collector", "fees: tax rate set without a penalty collector")
	ErrInvalidConversion = coreerrors.New(coreerrors.ErrInvalidInput, "invalid_conversion", "fees: invalid holder conversion")
	ErrHolderOverflow    = coreerrors.New(coreerrors.ErrInvalidInput, "holder_overflow", "fees: holder units overflow")

	ErrEmission = coreerrors.New(coreerrors.ErrEmissionFailed, "emission_failed", "fees: distribution emission failed")

	ErrHolderLookup = coreerrors.New(coreerrors.ErrStorageFailure, "holder_lookup_failed", "fees: holder snapshot unavailable")
	ErrStatsRead    = coreerrors.New(coreerrors.ErrStorageFailure, "stats_read_failed", "fees: statistics read failed")
	ErrStatsWrite   = coreerrors.New(coreerrors.ErrStorageFailure, "stats_write_failed", "fees: statistics write failed")
)
