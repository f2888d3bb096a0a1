package errors

import (
	stderrors "errors"
	"fmt"
)

// SiftError is the structured error type for sift.
// It carries enough context for logging, HTTP status mapping, and CLI output.
type SiftError struct {
	// Code is the unique error code (e.g., "ERR_404_INDEX_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *SiftError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SiftError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with SiftError.
func (e *SiftError) Is(target error) bool {
	if t, ok := target.(*SiftError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *SiftError) WithDetail(key, value string) *SiftError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *SiftError) WithSuggestion(suggestion string) *SiftError {
	e.Suggestion = suggestion
	return e
}

// New creates a new SiftError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *SiftError {
	return &SiftError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a SiftError from an existing error.
// The error's message becomes the SiftError message.
func Wrap(code string, err error) *SiftError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is checks. Matching is by code only.
var (
	ErrStorageUnavailable = New(ErrCodeStorageUnavailable, "storage unavailable", nil)
	ErrSchemaMismatch     = New(ErrCodeSchemaMismatch, "schema mismatch", nil)
	ErrInsertFailed       = New(ErrCodeInsertFailed, "insert failed", nil)
	ErrQueryFailed        = New(ErrCodeQueryFailed, "query failed", nil)
	ErrNotFound           = New(ErrCodeIndexNotFound, "index not found", nil)
	ErrInvalidDocument    = New(ErrCodeInvalidDocument, "invalid document", nil)
	ErrInvalidIndexName   = New(ErrCodeInvalidIndexName, "invalid index name", nil)
)

// StorageUnavailable reports that an index artifact cannot be opened or created.
func StorageUnavailable(path string, cause error) *SiftError {
	return New(ErrCodeStorageUnavailable, fmt.Sprintf("cannot open index storage at %s", path), cause).
		WithDetail("path", path)
}

// NotFound reports that no index is registered under name.
func NotFound(name string) *SiftError {
	return New(ErrCodeIndexNotFound, fmt.Sprintf("index [%s] not found", name), nil).
		WithDetail("index", name)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *SiftError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a document validation error.
func ValidationError(message string, cause error) *SiftError {
	return New(ErrCodeInvalidDocument, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *SiftError {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	var se *SiftError
	if stderrors.As(err, &se) {
		return se.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from the first SiftError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var se *SiftError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from the first SiftError in the chain.
func GetCategory(err error) Category {
	var se *SiftError
	if stderrors.As(err, &se) {
		return se.Category
	}
	return ""
}
