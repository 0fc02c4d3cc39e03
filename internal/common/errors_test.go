package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOfWrapped(t *testing.T) {
	base := NewError(CodeConflict, "already applied", nil)
	wrapped := fmt.Errorf("apply: %w", base)
	if !Is(wrapped, CodeConflict) {
		t.Fatalf("expected conflict code, got %s", CodeOf(wrapped))
	}
	if CodeOf(errors.New("boom")) != CodeInternal {
		t.Fatalf("expected foreign errors to map to internal")
	}
	if CodeOf(nil) != "" {
		t.Fatalf("expected empty code for nil error")
	}
}

func TestInternalErrorCapturesStack(t *testing.T) {
	err := NewError(CodeInternal, "failed to load posting", errors.New("connection reset"))
	if len(StackOf(err)) == 0 {
		t.Fatalf("expected stack for internal error")
	}
	if len(StackOf(NewError(CodeNotFound, "posting not found", nil))) != 0 {
		t.Fatalf("expected no stack for not found error")
	}
}
