// Package stats collects per-index search and HTTP statistics in memory.
//
// Every counter is a map from index name to a count with its own mutex.
// Increments insert a missing key at zero and add one to an existing key,
// so the first increment of a key records 0 and k increments record k-1.
// Nothing is ever decremented or persisted.
package stats

import (
	"sync"
	"time"
)

// counter is one independently locked name -> count map.
type counter struct {
	mu     sync.Mutex
	counts map[string]uint64
}

func newCounter() *counter {
	return &counter{counts: make(map[string]uint64)}
}

func (c *counter) increment(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.counts[key]; !ok {
		c.counts[key] = 0
		return
	}
	c.counts[key]++
}

func (c *counter) get(key string) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.counts[key]
	return v, ok
}

func (c *counter) copy() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]uint64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Collector holds the six counters of one sift instance.
// Safe for concurrent use.
type Collector struct {
	instanceID string
	startedAt  time.Time

	results   *counter
	empty     *counter
	usage     *counter
	documents *counter
	http4xx   *counter
	http5xx   *counter

	queries *QueryTracker
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	InstanceID                 string            `json:"instance_id"`
	StartedAt                  time.Time         `json:"started_at"`
	QueryResultCounterPerIndex map[string]uint64 `json:"query_result_counter_per_index"`
	EmptyQueryResultPerIndex   map[string]uint64 `json:"empty_query_result_per_index"`
	IndexUsageCount            map[string]uint64 `json:"index_usage_count"`
	DocumentsCountPerIndex     map[string]uint64 `json:"documents_count_per_index"`
	HTTP4xxErrors              map[string]uint64 `json:"http_4xx_errors"`
	HTTP5xxErrors              map[string]uint64 `json:"http_5xx_errors"`
}

// NewCollector creates a collector for instanceID. topQueries bounds the
// number of distinct queries remembered by the query tracker; zero uses
// DefaultTopQueriesCapacity.
func NewCollector(instanceID string, topQueries int) *Collector {
	return &Collector{
		instanceID: instanceID,
		startedAt:  time.Now().UTC(),
		results:    newCounter(),
		empty:      newCounter(),
		usage:      newCounter(),
		documents:  newCounter(),
		http4xx:    newCounter(),
		http5xx:    newCounter(),
		queries:    NewQueryTracker(topQueries),
	}
}

// InstanceID returns the instance identifier reported in dumps.
func (c *Collector) InstanceID() string { return c.instanceID }

// IncrementResultCounter records a search on index that matched at least one row.
func (c *Collector) IncrementResultCounter(index string) { c.results.increment(index) }

// IncrementEmptyResultCounter records a search on index that matched nothing.
func (c *Collector) IncrementEmptyResultCounter(index string) { c.empty.increment(index) }

// IncrementIndexUsage records a successful request against index.
func (c *Collector) IncrementIndexUsage(index string) { c.usage.increment(index) }

// IncrementDocsPerIndex records a document written to index.
func (c *Collector) IncrementDocsPerIndex(index string) { c.documents.increment(index) }

// Increment4xx records a client error on index.
func (c *Collector) Increment4xx(index string) { c.http4xx.increment(index) }

// Increment5xx records a server error on index.
func (c *Collector) Increment5xx(index string) { c.http5xx.increment(index) }

// IndexUsage returns the usage count of index and whether it has an entry.
func (c *Collector) IndexUsage(index string) (uint64, bool) { return c.usage.get(index) }

// RecordQuery remembers a search for the top-query report.
func (c *Collector) RecordQuery(index, query string, hits int) {
	c.queries.Record(index, query, hits)
}

// Queries returns the query tracker.
func (c *Collector) Queries() *QueryTracker { return c.queries }

// Dump copies every counter. Each map is copied under its own lock, one at a
// time, so mutators are blocked for at most one copy.
func (c *Collector) Dump() Snapshot {
	return Snapshot{
		InstanceID:                 c.instanceID,
		StartedAt:                  c.startedAt,
		QueryResultCounterPerIndex: c.results.copy(),
		EmptyQueryResultPerIndex:   c.empty.copy(),
		IndexUsageCount:            c.usage.copy(),
		DocumentsCountPerIndex:     c.documents.copy(),
		HTTP4xxErrors:              c.http4xx.copy(),
		HTTP5xxErrors:              c.http5xx.copy(),
	}
}
