package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Aman-CERP/sift/internal/index"
	"github.com/Aman-CERP/sift/internal/stats"
)

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	stats.Snapshot
	Indexes    int                         `json:"indexes"`
	TopQueries map[string]stats.TopQueries `json:"top_queries"`
}

// IndexListResponse is the body of GET /indexes.
type IndexListResponse struct {
	Indexes []index.Description `json:"indexes"`
	Count   int                 `json:"count"`
}

// HandleIndexStats handles GET /stats/{index}: the index description.
func (h *Handler) HandleIndexStats(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["index"]

	desc, err := h.registry.Describe(r.Context(), name)
	if err != nil {
		h.countStatus(name, writeError(w, err))
		return
	}

	writeJSON(w, http.StatusOK, desc)
}

// HandleStats handles GET /stats[?top=n]: every counter plus top queries.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	top := DefaultTopQueries
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteJSONError(w, http.StatusBadRequest, "top must be a non-negative integer")
			return
		}
		top = n
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Snapshot:   h.stats.Dump(),
		Indexes:    h.registry.Len(),
		TopQueries: h.stats.Queries().All(top),
	})
}

// HandleListIndexes handles GET /indexes.
func (h *Handler) HandleListIndexes(w http.ResponseWriter, r *http.Request) {
	all := h.registry.DescribeAll(r.Context())
	writeJSON(w, http.StatusOK, IndexListResponse{Indexes: all, Count: len(all)})
}
