package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestRejectionClassification(t *testing.T) {
	errNoAccrual := New(ErrGuardRejected, "no_accrual", "accrual: nothing to claim")
	wrapped := fmt.Errorf("claim r123: %w", errNoAccrual)

	if !stderrors.Is(wrapped, errNoAccrual) {
		t.Fatalf("expected reason sentinel to match")
	}
	if !stderrors.Is(wrapped, ErrGuardRejected) {
		t.Fatalf("expected class to match")
	}
	if stderrors.Is(wrapped, ErrUnauthorized) {
		t.Fatalf("unexpected class match")
	}
	if got := Reason(wrapped); got != "no_accrual" {
		t.Fatalf("unexpected reason %q", got)
	}
	if Class(wrapped) != ErrGuardRejected {
		t.Fatalf("unexpected class %v", Class(wrapped))
	}
}

func TestReasonFallbacks(t *testing.T) {
	if Reason(nil) != "" {
		t.Fatalf("nil error should have empty reason")
	}
	if got := Reason(fmt.Errorf("write: %w", ErrStorageFailure)); got != "storage_failure" {
		t.Fatalf("unexpected reason %q", got)
	}
	if got := Reason(stderrors.New("boom")); got != "internal" {
		t.Fatalf("unexpected reason %q", got)
	}
	if !Fatal(fmt.Errorf("x: %w", ErrStorageFailure)) {
		t.Fatalf("storage failure must be fatal")
	}
}
