package engine

import coreerrors "drippy/core/errors"

var (
	ErrModulePaused     = coreerrors.New(coreerrors.ErrGuardRejected, "module_paused", "engine: module paused")
	ErrUnknownOperation = coreerrors.New(coreerrors.ErrInvalidInput, "unknown_operation", "engine: unknown operation")
)
