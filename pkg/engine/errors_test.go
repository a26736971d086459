package engine

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrap_KeepsCode(t *testing.T) {
	inner := NewError(CodeInvalidTransition, "Already started.")
	err := Wrap(inner, "start", "web")

	if err.Error() != "failed to start 'web': Already started." {
		t.Errorf("Unexpected message: %q", err.Error())
	}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Error("Expected wrapped error to match ErrInvalidTransition")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("Expected wrapped error not to match ErrNotFound")
	}
	if CodeOf(err) != CodeInvalidTransition {
		t.Errorf("Expected code %s, got %s", CodeInvalidTransition, CodeOf(err))
	}
}

func TestWrap_PlainError(t *testing.T) {
	err := Wrap(fmt.Errorf("disk full"), "create", "web")

	if err.Error() != "failed to create 'web': disk full" {
		t.Errorf("Unexpected message: %q", err.Error())
	}
	if CodeOf(err) != "" {
		t.Errorf("Expected no code, got %s", CodeOf(err))
	}
	if Wrap(nil, "create", "web") != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestIsConstructionError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrInvalidName, true},
		{NewInvalidConfigError("runtime", "bad"), true},
		{NewPolicyViolationError("max_size_gb", "too big"), true},
		{ErrUnknownResourceKind, true},
		{ErrDuplicateName, false},
		{ErrInvalidTransition, false},
		{errors.New("other"), false},
	}

	for _, tt := range tests {
		if got := IsConstructionError(tt.err); got != tt.want {
			t.Errorf("IsConstructionError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
