// Package errors provides structured error handling for sift.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (index artifacts, data directory)
//   - 4XX: Client errors (documents, queries, index names)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates index artifact and data directory errors.
	CategoryStorage Category = "STORAGE"
	// CategoryValidation indicates client input errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeStorageUnavailable = "ERR_201_STORAGE_UNAVAILABLE"
	ErrCodeDataDirLocked      = "ERR_202_DATA_DIR_LOCKED"
	ErrCodeCorruptIndex       = "ERR_205_CORRUPT_INDEX"

	// Client errors (400-499)
	ErrCodeInvalidDocument  = "ERR_401_INVALID_DOCUMENT"
	ErrCodeSchemaMismatch   = "ERR_402_SCHEMA_MISMATCH"
	ErrCodeQueryFailed      = "ERR_403_QUERY_FAILED"
	ErrCodeIndexNotFound    = "ERR_404_INDEX_NOT_FOUND"
	ErrCodeInvalidIndexName = "ERR_405_INVALID_INDEX_NAME"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeInsertFailed = "ERR_502_INSERT_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "201" from "ERR_201_STORAGE_UNAVAILABLE")
	numStr := code[4:7]

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeDataDirLocked:
		return SeverityFatal
	case ErrCodeInsertFailed:
		// A rejected document never damages the index it was aimed at.
		return SeverityWarning
	}
	return SeverityError
}
