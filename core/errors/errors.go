// Package errors classifies settlement failures. Every terminal rejection
// carries one class sentinel and a short snake_case reason string.
package errors

import stderrors "errors"

// Failure classes. Match with errors.Is.
var (
	ErrUnauthorized   = stderrors.New("unauthorized")
	ErrInvalidInput   = stderrors.New("invalid input")
	ErrGuardRejected  = stderrors.New("guard rejected")
	ErrEmissionFailed = stderrors.New("emission failed")
	ErrStorageFailure = stderrors.New("storage failure")
)

// Rejection is a classified, reasoned failure.
type Rejection struct {
	Class   error
	Reason  string
	Message string
}

// New declares a reason sentinel belonging to class.
func New(class error, reason, message string) *Rejection {
	return &Rejection{Class: class, Reason: reason, Message: message}
}

func (r *Rejection) Error() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Reason
}

// Unwrap exposes the class so errors.Is(err, ErrGuardRejected) holds.
func (r *Rejection) Unwrap() error { return r.Class }

// Reason extracts the machine-checkable reason for err. Unclassified errors
// map to their class name or "internal".
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var rejection *Rejection
	if stderrors.As(err, &rejection) {
		return rejection.Reason
	}
	switch {
	case stderrors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case stderrors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case stderrors.Is(err, ErrGuardRejected):
		return "guard_rejected"
	case stderrors.Is(err, ErrEmissionFailed):
		return "emission_failed"
	case stderrors.Is(err, ErrStorageFailure):
		return "storage_failure"
	default:
		return "internal"
	}
}

// Class returns the failure class of err, or nil for unclassified errors.
func Class(err error) error {
	for _, class := range []error{ErrUnauthorized, ErrInvalidInput, ErrGuardRejected, ErrEmissionFailed, ErrStorageFailure} {
		if stderrors.Is(err, class) {
			return class
		}
	}
	return nil
}

// Fatal reports whether err requires operator reconciliation.
func Fatal(err error) bool {
	return stderrors.Is(err, ErrStorageFailure)
}
