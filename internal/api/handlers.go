// Package api exposes the index registry over HTTP.
//
// Routes follow the original REST shape (/i/{index} to write and search,
// /stats to inspect) plus a small Algolia-compatible surface so existing
// InstantSearch clients can talk to sift unchanged.
package api

import (
	"sync/atomic"

	"github.com/Aman-CERP/sift/internal/index"
	"github.com/Aman-CERP/sift/internal/stats"
)

// MaxBodyBytes bounds the size of a request body.
const MaxBodyBytes = 10 << 20

// DefaultTopQueries is how many queries /stats reports per index and kind.
const DefaultTopQueries = 10

// Handler provides HTTP handlers for the registry and stats collector.
type Handler struct {
	registry *index.Registry
	stats    *stats.Collector

	// taskID numbers Algolia batch responses.
	taskID atomic.Int64
}

// NewHandler creates a new API handler.
func NewHandler(registry *index.Registry, collector *stats.Collector) *Handler {
	return &Handler{
		registry: registry,
		stats:    collector,
	}
}
