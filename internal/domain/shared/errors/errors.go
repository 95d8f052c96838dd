package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorType defines the type of error
type ErrorType string

const (
	// ErrorTypeMalformedBaseURI indicates the page base URI could not be parsed
	ErrorTypeMalformedBaseURI ErrorType = "malformed_base_uri"
	// ErrorTypeInvalidInput indicates invalid input parameters
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	// ErrorTypeNotConnected indicates the session channel is not open
	ErrorTypeNotConnected ErrorType = "not_connected"
	// ErrorTypeNotFound indicates an unknown session
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeRenameFailed indicates the backend refused a rename
	ErrorTypeRenameFailed ErrorType = "rename_failed"
)

// CosmicError is the error type shared by every package of the module.
type CosmicError struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error returns the error message
func (e *CosmicError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause
func (e *CosmicError) Unwrap() error {
	return e.Cause
}

// NewMalformedBaseURIError creates an error for a base URI that does not parse.
func NewMalformedBaseURIError(uri string, cause error) *CosmicError {
	return &CosmicError{
		Type:    ErrorTypeMalformedBaseURI,
		Message: fmt.Sprintf("invalid URL %q", uri),
		Cause:   cause,
	}
}

// NewInvalidInputError creates a new invalid input error
func NewInvalidInputError(message string, cause error) *CosmicError {
	return &CosmicError{
		Type:    ErrorTypeInvalidInput,
		Message: message,
		Cause:   cause,
	}
}

// NewNotConnectedError creates a new not connected error
func NewNotConnectedError(message string) *CosmicError {
	return &CosmicError{
		Type:    ErrorTypeNotConnected,
		Message: message,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *CosmicError {
	return &CosmicError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Cause:   cause,
	}
}

// NewRenameFailedError creates a new rename failure error
func NewRenameFailedError(message string, cause error) *CosmicError {
	return &CosmicError{
		Type:    ErrorTypeRenameFailed,
		Message: message,
		Cause:   cause,
	}
}

// Wrap wraps an error with additional context, keeping the type of a
// wrapped CosmicError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var cosmicErr *CosmicError
	if !errors.As(err, &cosmicErr) {
		return errors.Wrap(err, message)
	}

	return &CosmicError{
		Type:    cosmicErr.Type,
		Message: fmt.Sprintf("%s: %s", message, cosmicErr.Message),
		Cause:   cosmicErr.Cause,
	}
}

func isType(err error, t ErrorType) bool {
	var cosmicErr *CosmicError
	if errors.As(err, &cosmicErr) {
		return cosmicErr.Type == t
	}
	return false
}

// IsMalformedBaseURI checks if an error is a malformed base URI error
func IsMalformedBaseURI(err error) bool {
	return isType(err, ErrorTypeMalformedBaseURI)
}

// IsInvalidInput checks if an error is an invalid input error
func IsInvalidInput(err error) bool {
	return isType(err, ErrorTypeInvalidInput)
}

// IsNotConnected checks if an error is a not connected error
func IsNotConnected(err error) bool {
	return isType(err, ErrorTypeNotConnected)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsRenameFailed checks if an error is a rename failure
func IsRenameFailed(err error) bool {
	return isType(err, ErrorTypeRenameFailed)
}
