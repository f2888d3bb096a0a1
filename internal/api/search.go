package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	serrors "github.com/Aman-CERP/sift/internal/errors"
	"github.com/Aman-CERP/sift/internal/index"
)

// SearchResponse wraps a search result.
type SearchResponse struct {
	Results *index.SearchResult `json:"results"`
}

// HandleSearch handles GET /i/{index}?q=...
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["index"]

	values := r.URL.Query()
	if !values.Has("q") {
		h.stats.Increment4xx(name)
		writeError(w, serrors.New(serrors.ErrCodeQueryFailed, "missing query parameter q", nil))
		return
	}

	result, ok := h.search(w, r, name, values.Get("q"))
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{Results: result})
}

// search runs the query and records its stats. On failure the error
// response has already been written and ok is false.
func (h *Handler) search(w http.ResponseWriter, r *http.Request, name, query string) (*index.SearchResult, bool) {
	result, err := h.registry.Search(r.Context(), name, query)
	if err != nil {
		h.countStatus(name, writeError(w, err))
		return nil, false
	}

	h.stats.IncrementIndexUsage(name)
	if result.Count > 0 {
		h.stats.IncrementResultCounter(name)
	} else {
		h.stats.IncrementEmptyResultCounter(name)
	}
	h.stats.RecordQuery(name, result.ParsedQuery, result.Count)

	slog.Debug("search_completed",
		slog.String("index", name),
		slog.String("query", result.ParsedQuery),
		slog.Int("hits", result.Count))

	return result, true
}
