package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiftError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("disk I/O error")

	// When: wrapping with SiftError
	siftErr := New(ErrCodeStorageUnavailable, "cannot open books.db", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, siftErr)
	assert.Equal(t, originalErr, errors.Unwrap(siftErr))
	assert.True(t, errors.Is(siftErr, originalErr))
}

func TestSiftError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigInvalid,
			message:  "bad backend",
			expected: "[ERR_102_CONFIG_INVALID] bad backend",
		},
		{
			name:     "not found",
			code:     ErrCodeIndexNotFound,
			message:  "index [missing] not found",
			expected: "[ERR_404_INDEX_NOT_FOUND] index [missing] not found",
		},
		{
			name:     "insert failed",
			code:     ErrCodeInsertFailed,
			message:  "table books has 2 columns but 3 values were supplied",
			expected: "[ERR_502_INSERT_FAILED] table books has 2 columns but 3 values were supplied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestSiftError_Is_MatchesByCode(t *testing.T) {
	// Given: two errors with same code
	err1 := NotFound("a")
	err2 := NotFound("b")

	// Then: they match by code, and match the sentinel
	assert.True(t, errors.Is(err1, err2))
	assert.True(t, errors.Is(err1, ErrNotFound))
	assert.False(t, errors.Is(err1, ErrQueryFailed))
}

func TestSiftError_Is_ThroughFmtWrapping(t *testing.T) {
	// Given: a SiftError wrapped by fmt.Errorf
	err := fmt.Errorf("loading index: %w", StorageUnavailable("/data/x.db", errors.New("boom")))

	// Then: sentinel matching and code extraction still work
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	assert.Equal(t, ErrCodeStorageUnavailable, GetCode(err))
	assert.Equal(t, CategoryStorage, GetCategory(err))
}

func TestSiftError_WithDetails_AddsContext(t *testing.T) {
	// Given: a base error
	err := New(ErrCodeSchemaMismatch, "unknown fields", nil)

	// When: adding details
	err = err.WithDetail("index", "books").WithDetail("fields", "author")

	// Then: details are available
	assert.Equal(t, "books", err.Details["index"])
	assert.Equal(t, "author", err.Details["fields"])
}

func TestSiftError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeStorageUnavailable, CategoryStorage},
		{ErrCodeDataDirLocked, CategoryStorage},
		{ErrCodeCorruptIndex, CategoryStorage},
		{ErrCodeInvalidDocument, CategoryValidation},
		{ErrCodeSchemaMismatch, CategoryValidation},
		{ErrCodeQueryFailed, CategoryValidation},
		{ErrCodeIndexNotFound, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
		{ErrCodeInsertFailed, CategoryInternal},
		{"short", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestSiftError_SeverityFromCode(t *testing.T) {
	assert.Equal(t, SeverityFatal, New(ErrCodeDataDirLocked, "", nil).Severity)
	assert.Equal(t, SeverityWarning, New(ErrCodeInsertFailed, "", nil).Severity)
	assert.Equal(t, SeverityError, New(ErrCodeQueryFailed, "", nil).Severity)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeDataDirLocked, "locked", nil)))
	assert.False(t, IsFatal(NotFound("x")))
	assert.False(t, IsFatal(errors.New("plain")))
	assert.False(t, IsFatal(nil))
}

func TestFormatForCLI_IncludesHintAndCode(t *testing.T) {
	// Given: an error with a suggestion
	err := New(ErrCodeDataDirLocked, "data directory is in use", nil).
		WithSuggestion("stop the running 'sift serve' first")

	// When: formatting for CLI
	out := FormatForCLI(err)

	// Then: message, hint and code are all present
	assert.Contains(t, out, "Error: data directory is in use")
	assert.Contains(t, out, "Hint: stop the running 'sift serve' first")
	assert.Contains(t, out, "Code: ERR_202_DATA_DIR_LOCKED")
}

func TestFormatForCLI_PlainErrorIsInternal(t *testing.T) {
	out := FormatForCLI(errors.New("something went wrong"))

	assert.Contains(t, out, "something went wrong")
	assert.Contains(t, out, ErrCodeInternal)
	assert.Empty(t, FormatForCLI(nil))
}

func TestFormatJSON_RoundTripsFields(t *testing.T) {
	// Given: a detailed error with a cause
	err := StorageUnavailable("/tmp/x.db", errors.New("permission denied"))

	// When: formatting as JSON
	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	// Then: the payload carries code, category and cause
	assert.Contains(t, string(data), `"code":"ERR_201_STORAGE_UNAVAILABLE"`)
	assert.Contains(t, string(data), `"category":"STORAGE"`)
	assert.Contains(t, string(data), `"cause":"permission denied"`)
	assert.Contains(t, string(data), `"path":"/tmp/x.db"`)
}

func TestFormatForLog_ReturnsAttributes(t *testing.T) {
	attrs := FormatForLog(NotFound("books"))

	assert.Equal(t, ErrCodeIndexNotFound, attrs["error_code"])
	assert.Equal(t, "books", attrs["detail_index"])

	plain := FormatForLog(errors.New("x"))
	assert.Equal(t, "x", plain["error"])
	assert.Nil(t, FormatForLog(nil))
}
