package domain

import (
	"errors"
	"fmt"
)

// DomainError is an error carrying a stable, machine-readable code.
//
// Codes follow the pattern MD-<AREA>-<NNNN>, where the last four digits
// mirror the closest HTTP status (4040 not found, 5000 internal, ...).
type DomainError struct {
	Code    string // Error code (e.g., "MD-KEY-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// Wrap returns a copy of the error wrapping the given cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return code == "" || de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Key errors (KEY)
// ============================================================================

var (
	// ErrKeyNotFound indicates the key is not present in the store.
	ErrKeyNotFound = NewDomainError("MD-KEY-4040", "key not found")
)

// ============================================================================
// Protocol errors (PROTO)
// ============================================================================

var (
	// ErrUnknownCommand indicates a line that is not a well-formed command.
	ErrUnknownCommand = NewDomainError("MD-PROTO-4000", "unrecognized command")

	// ErrLineTooLong indicates a request line exceeded the configured limit.
	ErrLineTooLong = NewDomainError("MD-PROTO-4130", "request line too long")
)

// ============================================================================
// Image errors (IMG)
// ============================================================================

var (
	// ErrImageCorrupt indicates a persisted image that cannot be trusted.
	// Startup aborts when this is returned.
	ErrImageCorrupt = NewDomainError("MD-IMG-5000", "persisted image is corrupt")

	// ErrImageWrite indicates the image could not be written.
	ErrImageWrite = NewDomainError("MD-IMG-5001", "persisted image write failed")

	// ErrImageDecrypt indicates the image could not be decrypted with the configured key.
	ErrImageDecrypt = NewDomainError("MD-IMG-5002", "persisted image decryption failed")
)
