package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	// Document and search operations
	router.HandleFunc("/i/{index}", h.HandleIndexDocument).Methods("POST")
	router.HandleFunc("/i/{index}", h.HandleSearch).Methods("GET")

	// Introspection
	router.HandleFunc("/stats/{index}", h.HandleIndexStats).Methods("GET")
	router.HandleFunc("/stats", h.HandleStats).Methods("GET")
	router.HandleFunc("/indexes", h.HandleListIndexes).Methods("GET")

	// Algolia-compatible operations
	router.HandleFunc("/1/indexes/{index}/query", h.HandleAlgoliaQuery).Methods("POST")
	router.HandleFunc("/1/indexes/{index}/batch", h.HandleAlgoliaBatch).Methods("POST")

	router.HandleFunc("/health", h.HandleHealth).Methods("GET")
}
