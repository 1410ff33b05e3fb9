package backup

import (
	"errors"
	"fmt"
	"time"
)

// BackupError is the error type every snapshot, restore, and retention
// operation surfaces. Type drives programmatic handling; Context carries
// operation details for the log line.
type BackupError struct {
	Type    BackupErrorType        `json:"type"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *BackupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *BackupError) Unwrap() error {
	return e.Cause
}

// BackupErrorType buckets snapshot subsystem failures.
type BackupErrorType string

const (
	BackupErrorTypeAlreadyInProgress  BackupErrorType = "ALREADY_IN_PROGRESS"
	BackupErrorTypeNotFound           BackupErrorType = "NOT_FOUND"
	BackupErrorTypeCorrupt            BackupErrorType = "CORRUPT"
	BackupErrorTypeStorageUnavailable BackupErrorType = "STORAGE_UNAVAILABLE"
	BackupErrorTypeValidation         BackupErrorType = "VALIDATION_ERROR"
	BackupErrorTypeCompression        BackupErrorType = "COMPRESSION_ERROR"
	BackupErrorTypeEncryption         BackupErrorType = "ENCRYPTION_ERROR"
	BackupErrorTypeConfiguration      BackupErrorType = "CONFIGURATION_ERROR"
	BackupErrorTypeCatalog            BackupErrorType = "CATALOG_ERROR"
	BackupErrorTypeStore              BackupErrorType = "STORE_ERROR"
	BackupErrorTypeRestore            BackupErrorType = "RESTORE_ERROR"
)

// NewBackupError builds a BackupError with an empty context map ready for
// WithContext calls.
func NewBackupError(errorType BackupErrorType, message string, cause error) *BackupError {
	return &BackupError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]interface{}),
		Cause:   cause,
	}
}

// WithContext attaches a key/value pair to the error and returns it, so
// calls chain.
func (e *BackupError) WithContext(key string, value interface{}) *BackupError {
	if e.Context == nil {
		e.Context = map[string]interface{}{}
	}
	e.Context[key] = value
	return e
}

// NewInProgressError creates an error for a maintenance operation that
// conflicts with one already holding the lock. The holder identity and
// acquisition time travel in the error context.
func NewInProgressError(holder string, since time.Time) *BackupError {
	return NewBackupError(BackupErrorTypeAlreadyInProgress, "maintenance operation already in progress", nil).
		WithContext("holder", holder).
		WithContext("held_since", since.UTC().Format(time.RFC3339))
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeNotFound, message, cause)
}

// NewCorruptError creates an error for a snapshot that failed verification
func NewCorruptError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeCorrupt, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeStorageUnavailable, message, cause)
}

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeValidation, message, cause)
}

// NewCompressionError creates a compression-related error
func NewCompressionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeCompression, message, cause)
}

// NewEncryptionError creates an encryption-related error
func NewEncryptionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeEncryption, message, cause)
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeConfiguration, message, cause)
}

// NewCatalogError creates an error for snapshot catalog operations
func NewCatalogError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeCatalog, message, cause)
}

// NewStoreError creates an error for live store operations
func NewStoreError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeStore, message, cause)
}

// NewRestoreError creates a restore-related error
func NewRestoreError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeRestore, message, cause)
}

// errorType extracts the BackupErrorType from anywhere in err's chain.
// A plain error yields ok == false.
func errorType(err error) (BackupErrorType, bool) {
	var backupErr *BackupError
	if !errors.As(err, &backupErr) {
		return "", false
	}
	return backupErr.Type, true
}

// IsAlreadyInProgress checks if an error indicates a conflicting
// maintenance operation holds the lock
func IsAlreadyInProgress(err error) bool {
	t, ok := errorType(err)
	return ok && t == BackupErrorTypeAlreadyInProgress
}

// IsNotFound checks if an error indicates a missing snapshot or record
func IsNotFound(err error) bool {
	t, ok := errorType(err)
	return ok && t == BackupErrorTypeNotFound
}

// IsCorrupt checks if an error indicates a snapshot that failed verification
func IsCorrupt(err error) bool {
	t, ok := errorType(err)
	return ok && t == BackupErrorTypeCorrupt
}

// IsStorageUnavailable checks if an error indicates the artifact store
// could not be reached or written
func IsStorageUnavailable(err error) bool {
	t, ok := errorType(err)
	return ok && t == BackupErrorTypeStorageUnavailable
}

// IsRetryable determines if an error is retryable
func IsRetryable(err error) bool {
	switch t, _ := errorType(err); t {
	case BackupErrorTypeStorageUnavailable, BackupErrorTypeCatalog:
		return true
	}
	return false
}

// IsPermanent determines if an error is permanent and should not be retried
func IsPermanent(err error) bool {
	switch t, _ := errorType(err); t {
	case BackupErrorTypeValidation, BackupErrorTypeCorrupt,
		BackupErrorTypeConfiguration, BackupErrorTypeNotFound:
		return true
	}
	return false
}

// ValidationError is one field that failed validation.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error renders the field, the complaint, and the offending value.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every failed field from one Validate pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return "no validation errors"
	case 1:
		return e[0].Error()
	}
	return fmt.Sprintf("multiple validation errors: %d errors occurred", len(e))
}

// Add appends one failed field to the collection.
func (e *ValidationErrors) Add(field, message string, value interface{}) {
	*e = append(*e, ValidationError{Field: field, Message: message, Value: value})
}

// HasErrors reports whether any field failed.
func (e ValidationErrors) HasErrors() bool { return len(e) > 0 }

// ErrorOrNil returns the collection as an error, or nil when empty.
// Returning the typed value directly would yield a non-nil interface.
func (e ValidationErrors) ErrorOrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
