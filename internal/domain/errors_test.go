package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainErrorString(t *testing.T) {
	e := NewDomainError("api.GetStory", ErrNotFound, "story st_123")
	want := "api.GetStory: story st_123: not found"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}

	bare := NewDomainError("api.Login", ErrAuthInvalid, "")
	if bare.Error() != "api.Login: authentication failed" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	e := NewDomainError("stream.read", ErrStreamProtocol, "bad payload")
	if !errors.Is(e, ErrStreamProtocol) {
		t.Error("expected errors.Is to match the wrapped sentinel")
	}
}

func TestWrapOp(t *testing.T) {
	if WrapOp("op", nil) != nil {
		t.Error("WrapOp(nil) should return nil")
	}
	wrapped := WrapOp("coordinator.start", ErrInvalidInput)
	if !errors.Is(wrapped, ErrInvalidInput) {
		t.Error("expected wrapped sentinel to survive WrapOp")
	}
}

func TestErrorCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
	}{
		{nil, CodeUnknown},
		{ErrAuthInvalid, CodeAuthInvalid},
		{fmt.Errorf("outer: %w", ErrRateLimit), CodeRateLimit},
		{NewDomainError("op", ErrStreamProtocol, ""), CodeStreamProtocol},
		{errors.New("unrelated"), CodeUnknown},
	}
	for _, tt := range tests {
		if got := ErrorCodeOf(tt.err); got != tt.want {
			t.Errorf("ErrorCodeOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
