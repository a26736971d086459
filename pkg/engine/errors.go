package engine

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an engine error. Every code is permanent: the same
// inputs always fail the same way, so nothing is retried automatically.
type ErrorCode string

const (
	// CodeInvalidName indicates an empty, whitespace-only or over-long name.
	CodeInvalidName ErrorCode = "INVALID_NAME"

	// CodeInvalidConfig indicates a kind-specific field is missing or malformed.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// CodeFamilyPolicyViolation indicates a family-wide bound was violated.
	CodeFamilyPolicyViolation ErrorCode = "FAMILY_POLICY_VIOLATION"

	// CodeUnknownResourceKind indicates no kind is registered under the name.
	CodeUnknownResourceKind ErrorCode = "UNKNOWN_RESOURCE_KIND"

	// CodeDuplicateName indicates the registry already holds the name.
	CodeDuplicateName ErrorCode = "DUPLICATE_NAME"

	// CodeNotFound indicates the registry does not hold the name.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeInvalidTransition indicates the state machine rejected an operation.
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
)

// Sentinels for errors.Is. Matching is by code only.
var (
	ErrInvalidName           = &EngineError{Code: CodeInvalidName}
	ErrInvalidConfig         = &EngineError{Code: CodeInvalidConfig}
	ErrFamilyPolicyViolation = &EngineError{Code: CodeFamilyPolicyViolation}
	ErrUnknownResourceKind   = &EngineError{Code: CodeUnknownResourceKind}
	ErrDuplicateName         = &EngineError{Code: CodeDuplicateName}
	ErrNotFound              = &EngineError{Code: CodeNotFound}
	ErrInvalidTransition     = &EngineError{Code: CodeInvalidTransition}
)

// EngineError represents a classified lifecycle error with context.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	// Code is the error classification.
	Code ErrorCode `json:"code"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Resource is the resource name the error concerns, if any.
	Resource string `json:"resource,omitempty"`

	// Operation is the operation being performed (create, start, stop, delete).
	Operation string `json:"operation,omitempty"`

	// Field is the configuration field that was rejected, if any.
	Field string `json:"field,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Code)
	}
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithResource adds resource context to an error.
func (e *EngineError) WithResource(name string) *EngineError {
	e.Resource = name
	return e
}

// WithOperation adds operation context to an error.
func (e *EngineError) WithOperation(op string) *EngineError {
	e.Operation = op
	return e
}

// WithField records the configuration field that was rejected.
func (e *EngineError) WithField(field string) *EngineError {
	e.Field = field
	return e
}

// NewError creates a new error with the given code and message.
func NewError(code ErrorCode, message string) *EngineError {
	return &EngineError{Code: code, Message: message}
}

// Errorf creates a new error with the given code and a formatted message.
func Errorf(code ErrorCode, format string, args ...interface{}) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewInvalidConfigError reports a rejected configuration field.
func NewInvalidConfigError(field, message string) *EngineError {
	return &EngineError{Code: CodeInvalidConfig, Message: message, Field: field}
}

// NewPolicyViolationError reports a family-wide bound violation.
func NewPolicyViolationError(field, message string) *EngineError {
	return &EngineError{Code: CodeFamilyPolicyViolation, Message: message, Field: field}
}

// Wrap adds outer context to err while keeping its classification. Errors
// that carry no code are wrapped unchanged with fmt.Errorf.
func Wrap(err error, operation, resource string) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf("failed to %s '%s'", operation, resource)

	var inner *EngineError
	if !errors.As(err, &inner) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return &EngineError{
		Code:      inner.Code,
		Message:   msg,
		Resource:  resource,
		Operation: operation,
		Field:     inner.Field,
		Err:       err,
	}
}

// CodeOf returns the code of the outermost EngineError in err's chain, or ""
// when err is not an engine error.
func CodeOf(err error) ErrorCode {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsInvalidTransition returns true if err was raised by the state machine.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsConstructionError returns true if err was raised while building a
// resource (name, config, policy or kind resolution).
func IsConstructionError(err error) bool {
	switch CodeOf(err) {
	case CodeInvalidName, CodeInvalidConfig, CodeFamilyPolicyViolation, CodeUnknownResourceKind:
		return true
	default:
		return false
	}
}
