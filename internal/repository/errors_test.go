package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestIOError(t *testing.T) {
	err := NewIOError("stat", "a/b.jpg", fs.ErrPermission)

	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected *IOError, got %T", err)
	}
	if ioErr.Op != "stat" || ioErr.Path != "a/b.jpg" {
		t.Errorf("unexpected fields: %+v", ioErr)
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("IOError should unwrap to the cause")
	}
	if got := err.Error(); got != "stat a/b.jpg: permission denied" {
		t.Errorf("Error() = %q", got)
	}
}

func TestNewIOError_KeepsNotFound(t *testing.T) {
	notFound := fmt.Errorf("%w: a.jpg", ErrNotFound)

	err := NewIOError("resolve", "a.jpg", notFound)
	if err != notFound {
		t.Errorf("expected not-found error to pass through, got %v", err)
	}
	if NewIOError("resolve", "a.jpg", nil) != nil {
		t.Error("nil cause should give nil error")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "with value",
			err:  Invalid("order", "sideways", "unknown order"),
			want: "invalid order sideways: unknown order",
		},
		{
			name: "without value",
			err:  Invalid("smart_time", nil, "required by smart order"),
			want: "invalid smart_time: required by smart order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
			}
			if !IsValidation(fmt.Errorf("wrapped: %w", tt.err)) {
				t.Error("IsValidation should see through wrapping")
			}
		})
	}
}
