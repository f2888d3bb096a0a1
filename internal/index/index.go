// Package index manages named full-text indexes and the registry that owns them.
//
// An Index wraps one storage collection. Its schema is frozen from the first
// non-empty document it sees and never changes afterwards. The Registry maps
// names to shared Index handles, discovers indexes persisted under
// <root>/data at startup, and is the single entry point for writes.
//
// Locking: the registry holds its RWMutex only around map access and each
// Index holds its own Mutex for the whole of one operation. The two are
// never held together.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	serrors "github.com/Aman-CERP/sift/internal/errors"
	"github.com/Aman-CERP/sift/internal/schema"
	"github.com/Aman-CERP/sift/internal/store"
)

// DataDirName is the subdirectory of the registry root holding index artifacts.
const DataDirName = "data"

// DataDir returns the artifact directory for a registry root.
func DataDir(root string) string {
	return filepath.Join(root, DataDirName)
}

// Index is one named, schema-frozen collection of documents.
type Index struct {
	mu sync.Mutex

	name      string
	path      string
	backend   string
	coll      store.Collection
	schema    schema.Schema
	createdAt time.Time
	version   uuid.UUID
}

// SearchResult is the outcome of one search.
type SearchResult struct {
	Count       int                 `json:"count"`
	Hits        []map[string]string `json:"hits"`
	Query       string              `json:"query"`
	ParsedQuery string              `json:"parsed_query"`
}

// Description is a point-in-time snapshot of an index's metadata.
type Description struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	CreatedAt int64     `json:"created_at"`
	Created   time.Time `json:"created"`
	Schema    []string  `json:"schema"`
	Backend   string    `json:"backend"`
	Documents int       `json:"documents"`
}

// Create opens (or creates) the artifact for name under root and appends
// first. The schema is frozen from first unless it has no fields, in which
// case it stays open until the first non-empty write.
//
// If first cannot be stored the artifact is closed and the error returned;
// the caller must not register the index. An artifact this call created is
// removed again, so it is not discovered on the next start.
func Create(ctx context.Context, backend store.Backend, root, name string, first schema.Document) (*Index, error) {
	if err := schema.ValidateIndexName(name); err != nil {
		return nil, err
	}

	path := store.ArtifactPath(backend, DataDir(root), name)
	_, statErr := os.Stat(path)
	existed := statErr == nil

	idx, err := LoadOrCreate(ctx, backend, path, name)
	if err != nil {
		if !existed {
			discardArtifact(name, path)
		}
		return nil, err
	}

	if err := idx.IndexDocument(ctx, first); err != nil {
		_ = idx.Close()
		if !existed {
			discardArtifact(name, path)
		}
		return nil, err
	}
	return idx, nil
}

func discardArtifact(name, path string) {
	if err := store.RemoveArtifact(path); err != nil {
		slog.Warn("artifact_remove_failed",
			slog.String("index", name),
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// LoadOrCreate opens the artifact at path, creating it if absent.
//
// When the artifact already holds a collection, its recorded column list
// becomes the frozen schema, so an index reloaded after a restart accepts
// and rejects exactly the fields it did before.
func LoadOrCreate(ctx context.Context, backend store.Backend, path, name string) (*Index, error) {
	coll, err := backend.Open(path)
	if err != nil {
		return nil, asStorageError(path, err)
	}

	cols, err := coll.Columns(ctx)
	if err != nil {
		_ = coll.Close()
		return nil, serrors.StorageUnavailable(path, err)
	}

	createdAt, ok := coll.CreatedAt(ctx)
	if !ok {
		createdAt = time.Now()
	}

	idx := &Index{
		name:      name,
		path:      path,
		backend:   backend.Name(),
		coll:      coll,
		schema:    schema.Schema(cols),
		createdAt: createdAt,
		version:   uuid.New(),
	}

	slog.Debug("index_opened",
		slog.String("index", name),
		slog.String("path", path),
		slog.Int("columns", len(cols)))

	return idx, nil
}

// asStorageError keeps coded errors from the backend and wraps everything
// else as StorageUnavailable.
func asStorageError(path string, err error) error {
	var se *serrors.SiftError
	if errors.As(err, &se) {
		return err
	}
	return serrors.StorageUnavailable(path, err)
}

// Name returns the index name.
func (i *Index) Name() string { return i.name }

// Path returns the artifact path.
func (i *Index) Path() string { return i.path }

// Schema returns a copy of the frozen schema, or nil while unfrozen.
func (i *Index) Schema() schema.Schema {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.schema.Clone()
}

// IndexDocument appends doc.
//
// An unfrozen index freezes its schema from doc first. A frozen index
// rejects fields outside the schema with ERR_402 before touching storage and
// pads absent fields with "". A document without fields is ignored.
// Storage rejections are logged and returned as ERR_502; the index stays
// usable.
func (i *Index) IndexDocument(ctx context.Context, doc schema.Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(doc) == 0 {
		return nil
	}

	if i.schema.IsEmpty() {
		if err := i.freeze(ctx, doc); err != nil {
			return err
		}
	}

	values, err := i.schema.Align(doc)
	if err != nil {
		var se *serrors.SiftError
		if errors.As(err, &se) {
			se.WithDetail("index", i.name)
		}
		return err
	}

	if err := i.coll.InsertRow(ctx, i.schema, values); err != nil {
		slog.Warn("insert_failed",
			slog.String("index", i.name),
			slog.String("error", err.Error()))
		return serrors.New(serrors.ErrCodeInsertFailed,
			fmt.Sprintf("index [%s] rejected the document", i.name), err).
			WithDetail("index", i.name)
	}
	return nil
}

// freeze creates the collection from doc's fields. Caller holds i.mu.
func (i *Index) freeze(ctx context.Context, doc schema.Document) error {
	cols := schema.Infer(doc)
	if err := i.coll.CreateCollection(ctx, cols); err != nil {
		var se *serrors.SiftError
		if errors.As(err, &se) {
			// The backend refused the document's field names.
			return se.WithDetail("index", i.name)
		}
		slog.Error("create_collection_failed",
			slog.String("index", i.name),
			slog.String("error", err.Error()))
		return serrors.StorageUnavailable(i.path, err).
			WithDetail("index", i.name)
	}

	i.schema = cols
	slog.Info("schema_frozen",
		slog.String("index", i.name),
		slog.String("schema", strings.Join(cols, ",")))
	return nil
}

// Search runs an already-normalized query and returns every matching row in
// storage order. An empty query, or a query against an index that has
// never received a document, matches nothing.
func (i *Index) Search(ctx context.Context, parsedQuery string) (*SearchResult, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	result := &SearchResult{
		Hits:        []map[string]string{},
		Query:       parsedQuery,
		ParsedQuery: parsedQuery,
	}

	if i.schema.IsEmpty() || strings.TrimSpace(parsedQuery) == "" {
		return result, nil
	}

	rows, err := i.coll.Query(ctx, parsedQuery)
	if err != nil {
		slog.Debug("query_failed",
			slog.String("index", i.name),
			slog.String("query", parsedQuery),
			slog.String("error", err.Error()))
		return nil, serrors.New(serrors.ErrCodeQueryFailed,
			fmt.Sprintf("query %q failed on index [%s]", parsedQuery, i.name), err).
			WithDetail("index", i.name).
			WithDetail("query", parsedQuery)
	}

	for _, row := range rows {
		result.Hits = append(result.Hits, map[string]string(row))
	}
	result.Count = len(result.Hits)
	return result, nil
}

// Describe returns a snapshot of the index metadata.
func (i *Index) Describe(ctx context.Context) Description {
	i.mu.Lock()
	defer i.mu.Unlock()

	docs, err := i.coll.Count(ctx)
	if err != nil {
		slog.Debug("count_failed",
			slog.String("index", i.name),
			slog.String("error", err.Error()))
	}

	cols := i.schema.Clone()
	if cols == nil {
		cols = schema.Schema{}
	}

	return Description{
		Path:      i.path,
		Name:      i.name,
		Version:   i.version.String(),
		CreatedAt: i.createdAt.UnixMilli(),
		Created:   i.createdAt.UTC(),
		Schema:    cols,
		Backend:   i.backend,
		Documents: docs,
	}
}

// Close persists and closes the underlying collection.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.coll.Close()
}
