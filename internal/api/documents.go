package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	serrors "github.com/Aman-CERP/sift/internal/errors"
	"github.com/Aman-CERP/sift/internal/schema"
)

// MessageResponse is the response to a document write.
type MessageResponse struct {
	Msg string `json:"msg"`
}

// HandleIndexDocument handles POST /i/{index}: the body is one JSON object,
// created into a new index or appended to an existing one.
func (h *Handler) HandleIndexDocument(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["index"]

	h.stats.IncrementIndexUsage(name)

	body, err := readBody(w, r)
	if err != nil {
		h.countStatus(name, writeError(w, err))
		return
	}

	doc, err := schema.ParseDocument(body)
	if err != nil {
		h.countStatus(name, writeError(w, err))
		return
	}

	msg, err := h.registry.CreateOrAppend(r.Context(), name, doc)
	if err != nil {
		h.countStatus(name, writeError(w, err))
		return
	}

	h.stats.IncrementDocsPerIndex(name)
	slog.Debug("document_indexed",
		slog.String("index", name),
		slog.Int("fields", len(doc)))

	writeJSON(w, http.StatusOK, MessageResponse{Msg: msg})
}

// readBody reads at most MaxBodyBytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, serrors.ValidationError(
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), err)
		}
		return nil, serrors.ValidationError("cannot read request body", err)
	}
	return body, nil
}

// countStatus records an error status against index.
func (h *Handler) countStatus(name string, status int) {
	switch {
	case status >= http.StatusInternalServerError:
		h.stats.Increment5xx(name)
	case status >= http.StatusBadRequest:
		h.stats.Increment4xx(name)
	}
}
