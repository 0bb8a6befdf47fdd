// Package errors provides centralized error definitions and error handling utilities
// for chalbox. It defines the error taxonomy of the container lifecycle controller,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors map onto the three failure classes a container
// operation can end in:
//   - TransportError: the call itself failed (network failure, unreadable
//     body, malformed JSON). Always rendered as a fixed per-operation message.
//   - BusinessError: the backend answered with an "error" or "message" field.
//     Rendered verbatim.
//   - BusyError: an operation was triggered while another one was in flight.
//
// Semantic errors represent common error conditions:
//   - ValidationError: invalid input or state
//
// # Usage
//
//	err := errors.NewTransportError("request", 12, errors.ErrMalformedReply)
//	if errors.Is(err, errors.ErrMalformedReply) { ... }
//
//	var te *errors.TransportError
//	if errors.As(err, &te) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: transient errors that may succeed when the user retries
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Transport-related sentinel errors
var (
	// ErrMalformedReply indicates the backend reply was not valid JSON.
	ErrMalformedReply = New("malformed reply")
	// ErrUnreadableReply indicates the reply body could not be read.
	ErrUnreadableReply = New("unreadable reply")
	// ErrNoCSRFToken indicates no CSRF token is available for the session.
	ErrNoCSRFToken = New("no csrf token configured")
)

// Lifecycle-related sentinel errors
var (
	// ErrBusy indicates another operation is still in flight.
	ErrBusy = New("operation already in flight")
	// ErrInvalidChallenge indicates a challenge id that is not positive.
	ErrInvalidChallenge = New("invalid challenge id")
	// ErrUnknownOperation indicates an operation outside view/request/renew/stop.
	ErrUnknownOperation = New("unknown operation")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ChalboxError is the base interface for all chalbox errors.
type ChalboxError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed when triggered again.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// TransportError represents a container operation whose HTTP call did not
// produce a usable reply.
//
// Example:
//
//	err := errors.NewTransportError("renew", 7, io.ErrUnexpectedEOF).WithRequestID("3f2a...")
//	fmt.Println(err) // "transport error [op=renew, challenge=7, request=3f2a...]: call failed: unexpected EOF"
type TransportError struct {
	baseError
	Op          string
	ChallengeID int
	RequestID   string
}

// NewTransportError creates a new TransportError.
func NewTransportError(op string, challengeID int, cause error) *TransportError {
	return &TransportError{
		baseError: baseError{
			message:    "call failed",
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: false,
		},
		Op:          op,
		ChallengeID: challengeID,
	}
}

// WithRequestID adds the request id sent to the backend.
func (e *TransportError) WithRequestID(id string) *TransportError {
	e.RequestID = id
	return e
}

// WithMessage replaces the default message.
func (e *TransportError) WithMessage(msg string) *TransportError {
	e.message = msg
	return e
}

// Error returns the formatted error message.
func (e *TransportError) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.ChallengeID != 0 {
		parts = append(parts, fmt.Sprintf("challenge=%d", e.ChallengeID))
	}
	if e.RequestID != "" {
		parts = append(parts, fmt.Sprintf("request=%s", e.RequestID))
	}

	prefix := "transport error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("transport error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *TransportError) Is(target error) bool {
	if _, ok := target.(*TransportError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// BusinessError represents a reply in which the backend reported a failure
// through its "error" or "message" field. The text is shown verbatim.
type BusinessError struct {
	baseError
	Op    string
	Field string
	Text  string
}

// NewBusinessError creates a new BusinessError.
func NewBusinessError(op, field, text string) *BusinessError {
	return &BusinessError{
		baseError: baseError{
			message:    text,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		Op:    op,
		Field: field,
		Text:  text,
	}
}

// Error returns the formatted error message.
func (e *BusinessError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("backend %s: %s", e.Field, e.Text)
	}
	return fmt.Sprintf("backend %s [op=%s]: %s", e.Field, e.Op, e.Text)
}

// Is checks if this error matches the target.
func (e *BusinessError) Is(target error) bool {
	if _, ok := target.(*BusinessError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// BusyError is returned when an operation is triggered while the controls
// are disabled by an in-flight operation.
type BusyError struct {
	baseError
	Requested string
	InFlight  string
}

// NewBusyError creates a new BusyError.
func NewBusyError(requested, inFlight string) *BusyError {
	return &BusyError{
		baseError: baseError{
			message:    "controls disabled",
			cause:      ErrBusy,
			severity:   SeverityDebug,
			retryable:  true,
			userFacing: false,
		},
		Requested: requested,
		InFlight:  inFlight,
	}
}

// Error returns the formatted error message.
func (e *BusyError) Error() string {
	return fmt.Sprintf("busy [requested=%s, in_flight=%s]: %s: %v", e.Requested, e.InFlight, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *BusyError) Is(target error) bool {
	if _, ok := target.(*BusyError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("challenge id must be positive")
//	err = err.WithField("challenge_id").WithValue(0)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if target == ErrInvalidInput {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error is transient and the user may
// succeed by triggering the operation again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var chalboxErr ChalboxError
	if As(err, &chalboxErr) {
		return chalboxErr.IsRetryable()
	}

	return false
}

// IsUserFacing returns true if the error message is safe to display
// to end users verbatim.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var chalboxErr ChalboxError
	if As(err, &chalboxErr) {
		return chalboxErr.IsUserFacing()
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement ChalboxError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var chalboxErr ChalboxError
	if As(err, &chalboxErr) {
		return chalboxErr.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this preserves the ChalboxError interface.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
