package stats

import (
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultTopQueriesCapacity is the number of distinct (index, query) pairs
// remembered when no capacity is configured.
const DefaultTopQueriesCapacity = 256

// QueryCount is a query and how often it was run.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// TopQueries is the top-query report for one index.
type TopQueries struct {
	WithResults []QueryCount `json:"with_results"`
	ZeroResults []QueryCount `json:"zero_results"`
}

// QueryTracker counts query frequency per index, split by whether the query
// matched anything. Memory is bounded: once capacity distinct queries are
// tracked, the least recently seen one is evicted.
type QueryTracker struct {
	mu      sync.Mutex
	hits    *lru.Cache[string, int64]
	zero    *lru.Cache[string, int64]
	indexes map[string]struct{}
}

// NewQueryTracker creates a tracker holding up to capacity queries per kind.
func NewQueryTracker(capacity int) *QueryTracker {
	if capacity <= 0 {
		capacity = DefaultTopQueriesCapacity
	}

	hits, _ := lru.New[string, int64](capacity)
	zero, _ := lru.New[string, int64](capacity)

	return &QueryTracker{
		hits:    hits,
		zero:    zero,
		indexes: make(map[string]struct{}),
	}
}

// trackerKey joins index and query with a separator that cannot appear in an
// index name.
func trackerKey(index, query string) string {
	return index + "\x00" + query
}

func splitKey(key string) (string, string) {
	index, query, _ := strings.Cut(key, "\x00")
	return index, query
}

// Record counts one run of query against index. Queries are compared after
// trimming and lowercasing; blank queries are ignored.
func (t *QueryTracker) Record(index, query string, hits int) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return
	}

	cache := t.hits
	if hits == 0 {
		cache = t.zero
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := trackerKey(index, query)
	count, _ := cache.Get(key)
	cache.Add(key, count+1)
	t.indexes[index] = struct{}{}
}

// Top returns the n most frequent queries of index, for both kinds.
// Ties are ordered by query text.
func (t *QueryTracker) Top(index string, n int) TopQueries {
	t.mu.Lock()
	defer t.mu.Unlock()

	return TopQueries{
		WithResults: topOf(t.hits, index, n),
		ZeroResults: topOf(t.zero, index, n),
	}
}

// All returns the top n queries for every index seen so far.
func (t *QueryTracker) All(n int) map[string]TopQueries {
	t.mu.Lock()
	names := make([]string, 0, len(t.indexes))
	for name := range t.indexes {
		names = append(names, name)
	}
	t.mu.Unlock()

	out := make(map[string]TopQueries, len(names))
	for _, name := range names {
		out[name] = t.Top(name, n)
	}
	return out
}

func topOf(cache *lru.Cache[string, int64], index string, n int) []QueryCount {
	out := []QueryCount{}
	for _, key := range cache.Keys() {
		idx, query := splitKey(key)
		if idx != index {
			continue
		}
		count, ok := cache.Peek(key)
		if !ok {
			continue
		}
		out = append(out, QueryCount{Query: query, Count: count})
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].Query < out[b].Query
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
