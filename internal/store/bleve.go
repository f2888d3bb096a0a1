package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	serrors "github.com/Aman-CERP/sift/internal/errors"
)

const (
	// TextAnalyzerName is the analyzer applied to every document field.
	// Unicode word segmentation plus lowercasing, no stop words, so the
	// bleve backend matches the same terms as FTS5's unicode61 tokenizer.
	TextAnalyzerName = "sift_text"

	internalKeyColumns   = "sift_columns"
	internalKeyCreatedAt = "sift_created_at"
)

// BleveBackend stores each index in its own bleve directory.
type BleveBackend struct{}

// Verify interface implementation at compile time
var _ Backend = (*BleveBackend)(nil)

// NewBleveBackend returns the bleve backend.
func NewBleveBackend() *BleveBackend { return &BleveBackend{} }

// Name implements Backend.
func (b *BleveBackend) Name() string { return string(BackendBleve) }

// Ext implements Backend.
func (b *BleveBackend) Ext() string { return ".bleve" }

// IsArtifact implements Backend.
func (b *BleveBackend) IsArtifact(entry os.DirEntry) bool {
	return entry.IsDir() && filepath.Ext(entry.Name()) == b.Ext()
}

// Open implements Backend.
func (b *BleveBackend) Open(path string) (Collection, error) {
	return OpenBleveCollection(path)
}

// BleveCollection implements Collection on a bleve index.
// Rows are stored as documents with zero-padded sequence IDs, so sorting by
// ID returns them in insertion order.
type BleveCollection struct {
	mu      sync.RWMutex
	index   bleve.Index
	path    string
	columns []string
	nextID  uint64
	closed  bool
}

// Verify interface implementation at compile time
var _ Collection = (*BleveCollection)(nil)

// validateBleveIntegrity checks that an existing bleve directory has a
// readable index_meta.json. Returns nil if the directory does not exist.
func validateBleveIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Index doesn't exist, will be created
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

// createTextMapping builds the index mapping used for every collection.
// Fields are mapped dynamically, stored, and folded into _all.
func createTextMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(TextAnalyzerName, map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add text analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = TextAnalyzerName
	indexMapping.StoreDynamic = true
	indexMapping.IndexDynamic = true

	return indexMapping, nil
}

// OpenBleveCollection opens or creates the bleve artifact at path.
// If path is empty, creates an in-memory collection for testing.
func OpenBleveCollection(path string) (*BleveCollection, error) {
	indexMapping, err := createTextMapping()
	if err != nil {
		return nil, serrors.InternalError("failed to create index mapping", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, serrors.StorageUnavailable(path, fmt.Errorf("failed to create directory %s: %w", dir, err))
		}

		if validErr := validateBleveIntegrity(path); validErr != nil {
			slog.Warn("bleve_collection_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))
			return nil, serrors.New(serrors.ErrCodeCorruptIndex,
				fmt.Sprintf("index artifact %s is corrupted", path), validErr).
				WithDetail("path", path).
				WithSuggestion("restore the directory from a backup or move it out of the data directory")
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, serrors.StorageUnavailable(path, err)
	}

	c := &BleveCollection{index: idx, path: path}
	if err := c.init(); err != nil {
		_ = idx.Close()
		return nil, serrors.StorageUnavailable(path, err)
	}
	return c, nil
}

// init restores recorded columns and the row sequence, and stamps the
// creation time on a fresh artifact.
func (c *BleveCollection) init() error {
	raw, err := c.index.GetInternal([]byte(internalKeyColumns))
	if err != nil {
		return fmt.Errorf("failed to read columns: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c.columns); err != nil {
			return fmt.Errorf("recorded columns are corrupt: %w", err)
		}
	}

	created, err := c.index.GetInternal([]byte(internalKeyCreatedAt))
	if err != nil {
		return fmt.Errorf("failed to read creation time: %w", err)
	}
	if len(created) == 0 {
		stamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
		if err := c.index.SetInternal([]byte(internalKeyCreatedAt), []byte(stamp)); err != nil {
			return fmt.Errorf("failed to record creation time: %w", err)
		}
	}

	count, err := c.index.DocCount()
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}
	c.nextID = count
	return nil
}

// CreateCollection implements Collection.
func (c *BleveCollection) CreateCollection(ctx context.Context, columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("a collection needs at least one column")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	encoded, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("failed to encode columns: %w", err)
	}
	if err := c.index.SetInternal([]byte(internalKeyColumns), encoded); err != nil {
		return fmt.Errorf("failed to record columns: %w", err)
	}

	c.columns = append([]string(nil), columns...)
	return nil
}

// InsertRow implements Collection.
func (c *BleveCollection) InsertRow(ctx context.Context, columns, values []string) error {
	if len(columns) != len(values) {
		return fmt.Errorf("%d columns but %d values", len(columns), len(values))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.columns == nil {
		return ErrNoCollection
	}

	doc := make(map[string]any, len(columns))
	for i, col := range columns {
		doc[col] = values[i]
	}

	id := fmt.Sprintf("%012d", c.nextID)
	if err := c.index.Index(id, doc); err != nil {
		return fmt.Errorf("failed to insert row: %w", err)
	}
	c.nextID++
	return nil
}

// Query implements Collection.
// Every term of match must appear somewhere in the row.
func (c *BleveCollection) Query(ctx context.Context, match string) ([]Row, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.columns == nil {
		return nil, ErrNoCollection
	}

	docCount, err := c.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if docCount == 0 {
		return []Row{}, nil
	}

	matchQuery := bleve.NewMatchQuery(match)
	matchQuery.SetOperator(query.MatchQueryOperatorAnd)

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = int(docCount)
	req.Fields = []string{"*"}
	req.SortBy([]string{"_id"})

	result, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	rows := make([]Row, 0, len(result.Hits))
	for _, hit := range result.Hits {
		row := make(Row, len(c.columns))
		for _, col := range c.columns {
			if v, ok := hit.Fields[col].(string); ok {
				row[col] = v
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Columns implements Collection.
func (c *BleveCollection) Columns(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrClosed
	}
	return append([]string(nil), c.columns...), nil
}

// CreatedAt implements Collection.
func (c *BleveCollection) CreatedAt(ctx context.Context) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return time.Time{}, false
	}

	raw, err := c.index.GetInternal([]byte(internalKeyCreatedAt))
	if err != nil || len(raw) == 0 {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Count implements Collection.
func (c *BleveCollection) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return 0, ErrClosed
	}

	n, err := c.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return int(n), nil
}

// Persist implements Collection.
// For bleve this is a no-op as changes are persisted automatically.
func (c *BleveCollection) Persist(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClosed
	}
	return nil
}

// Close implements Collection.
func (c *BleveCollection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	return c.index.Close()
}
