package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrInvalidInput   = fmt.Errorf("invalid input")
	ErrAuthInvalid    = fmt.Errorf("authentication failed")
	ErrNotFound       = fmt.Errorf("not found")
	ErrRateLimit      = fmt.Errorf("rate limit exceeded")
	ErrServerError    = fmt.Errorf("server error")
	ErrStreamProtocol = fmt.Errorf("stream protocol violation")
	ErrConfigLoad     = fmt.Errorf("failed to load configuration")
	ErrStoryStore     = fmt.Errorf("story store operation failed")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "api.GetStory")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for logs and monitoring.
type ErrorCode string

const (
	CodeUnknown        ErrorCode = "UNKNOWN"
	CodeInvalidInput   ErrorCode = "INVALID_INPUT"
	CodeAuthInvalid    ErrorCode = "AUTH_INVALID"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeRateLimit      ErrorCode = "RATE_LIMIT"
	CodeServerError    ErrorCode = "SERVER_ERROR"
	CodeStreamProtocol ErrorCode = "STREAM_PROTOCOL"
	CodeConfigLoad     ErrorCode = "CONFIG_LOAD"
	CodeStoryStore     ErrorCode = "STORY_STORE"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrInvalidInput:   CodeInvalidInput,
	ErrAuthInvalid:    CodeAuthInvalid,
	ErrNotFound:       CodeNotFound,
	ErrRateLimit:      CodeRateLimit,
	ErrServerError:    CodeServerError,
	ErrStreamProtocol: CodeStreamProtocol,
	ErrConfigLoad:     CodeConfigLoad,
	ErrStoryStore:     CodeStoryStore,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It walks the error chain with errors.Is and returns CodeUnknown when no
// sentinel matches.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	if code, ok := errorCodeMap[err]; ok {
		return code
	}
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeUnknown
}
