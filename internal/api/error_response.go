package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	serrors "github.com/Aman-CERP/sift/internal/errors"
)

// ErrorResponse represents a standard JSON error response
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Code      int               `json:"code"`
	ErrorCode string            `json:"error_code,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// WriteJSONError writes a JSON error response with the given status code and message
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// writeError writes err with the status its error code maps to and
// returns that status.
func writeError(w http.ResponseWriter, err error) int {
	status := StatusForError(err)

	resp := ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
		Code:    status,
	}

	var se *serrors.SiftError
	if errors.As(err, &se) {
		resp.Message = se.Message
		resp.ErrorCode = se.Code
		resp.Details = se.Details
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request_failed", slog.Any("error", serrors.FormatForLog(err)))
	}

	writeJSON(w, status, resp)
	return status
}

// StatusForError maps an error code to an HTTP status. Client mistakes map
// to 4xx; storage and internal faults map to 5xx.
func StatusForError(err error) int {
	switch serrors.GetCode(err) {
	case serrors.ErrCodeIndexNotFound:
		return http.StatusNotFound
	case serrors.ErrCodeInvalidDocument,
		serrors.ErrCodeSchemaMismatch,
		serrors.ErrCodeQueryFailed,
		serrors.ErrCodeInvalidIndexName:
		return http.StatusBadRequest
	case serrors.ErrCodeDataDirLocked:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes body as the JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("response_encode_failed", slog.String("error", err.Error()))
	}
}
