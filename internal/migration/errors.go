package migration

import (
	"errors"
	"fmt"
)

// ImportError represents errors that occur during legacy import operations
type ImportError struct {
	Type    ImportErrorType        `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *ImportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *ImportError) Unwrap() error {
	return e.Cause
}

// ImportErrorType represents different types of import errors
type ImportErrorType string

const (
	ImportErrorTypeNoPayloadFound       ImportErrorType = "NO_PAYLOAD_FOUND"
	ImportErrorTypeUnsupportedFormat    ImportErrorType = "UNSUPPORTED_FORMAT"
	ImportErrorTypePartialApplyDegraded ImportErrorType = "PARTIAL_APPLY_DEGRADED"
	ImportErrorTypeInvalid              ImportErrorType = "INVALID"
)

// NewImportError creates a new import error
func NewImportError(errorType ImportErrorType, message string, cause error) *ImportError {
	return &ImportError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *ImportError) WithContext(key string, value interface{}) *ImportError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewNoPayloadFoundError creates an error for a document with no embedded
// data payload
func NewNoPayloadFoundError(message string, cause error) *ImportError {
	return NewImportError(ImportErrorTypeNoPayloadFound, message, cause)
}

// NewUnsupportedFormatError creates an error for an unrecognized payload
// format
func NewUnsupportedFormatError(message string, cause error) *ImportError {
	return NewImportError(ImportErrorTypeUnsupportedFormat, message, cause)
}

// NewPartialApplyDegradedError creates an error recording that a run
// applied without full transactional guarantees
func NewPartialApplyDegradedError(message string, cause error) *ImportError {
	return NewImportError(ImportErrorTypePartialApplyDegraded, message, cause)
}

// NewInvalidError creates a record-level import error
func NewInvalidError(message string, cause error) *ImportError {
	return NewImportError(ImportErrorTypeInvalid, message, cause)
}

// IsNoPayloadFound checks if an error indicates a missing embedded payload
func IsNoPayloadFound(err error) bool {
	var importErr *ImportError
	if errors.As(err, &importErr) {
		return importErr.Type == ImportErrorTypeNoPayloadFound
	}
	return false
}

// IsUnsupportedFormat checks if an error indicates an unrecognized format
func IsUnsupportedFormat(err error) bool {
	var importErr *ImportError
	if errors.As(err, &importErr) {
		return importErr.Type == ImportErrorTypeUnsupportedFormat
	}
	return false
}

// IsPartialApplyDegraded checks if an error indicates a degraded apply
func IsPartialApplyDegraded(err error) bool {
	var importErr *ImportError
	if errors.As(err, &importErr) {
		return importErr.Type == ImportErrorTypePartialApplyDegraded
	}
	return false
}

// IsInvalid checks if an error is a record-level import failure
func IsInvalid(err error) bool {
	var importErr *ImportError
	if errors.As(err, &importErr) {
		return importErr.Type == ImportErrorTypeInvalid
	}
	return false
}
