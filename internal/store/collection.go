// Package store provides the full-text storage engines that back each index.
//
// Every index owns exactly one artifact on disk (a SQLite file or a bleve
// directory) holding a single collection of text columns. The engines know
// nothing about schema inference or naming; they create a collection with
// the columns they are given, append rows, answer match queries, and
// remember their column list so it can be recovered after a restart.
package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoCollection is returned when rows are inserted or queried before
// CreateCollection has run on an artifact.
var ErrNoCollection = errors.New("collection has not been created")

// ErrClosed is returned by any operation on a closed collection.
var ErrClosed = errors.New("collection is closed")

// Row is one stored document, keyed by column name.
type Row map[string]string

// Collection is one durable, searchable set of rows with text columns.
// Implementations are safe for concurrent use, but callers that need
// several calls to appear atomic must serialize them themselves.
type Collection interface {
	// CreateCollection creates the searchable table with the given columns
	// and records the column order. Calling it again is a no-op for the
	// table; the recorded columns are overwritten.
	CreateCollection(ctx context.Context, columns []string) error

	// InsertRow appends one row. len(columns) must equal len(values).
	InsertRow(ctx context.Context, columns, values []string) error

	// Query returns every row matching the match expression, in the
	// engine's native order.
	Query(ctx context.Context, match string) ([]Row, error)

	// Columns returns the recorded column list, or nil if no collection
	// has been created yet.
	Columns(ctx context.Context) ([]string, error)

	// CreatedAt returns the time the artifact was first initialized.
	CreatedAt(ctx context.Context) (time.Time, bool)

	// Count returns the number of stored rows.
	Count(ctx context.Context) (int, error)

	// Persist flushes pending writes to the artifact.
	Persist(ctx context.Context) error

	// Close persists and releases the artifact. Idempotent.
	Close() error
}

// Backend opens collections of one engine type and recognises its artifacts.
type Backend interface {
	// Name is the configuration name of the backend ("sqlite", "bleve").
	Name() string

	// Ext is the artifact extension, including the dot.
	Ext() string

	// Open opens or creates the artifact at path. An empty path opens an
	// in-memory collection.
	Open(path string) (Collection, error)

	// IsArtifact reports whether a directory entry is an artifact of this backend.
	IsArtifact(entry os.DirEntry) bool
}

// ArtifactPath returns the artifact path for name under dir.
func ArtifactPath(b Backend, dir, name string) string {
	return filepath.Join(dir, name+b.Ext())
}

// ArtifactName returns the index name encoded in an artifact file name: its stem.
func ArtifactName(b Backend, fileName string) string {
	return strings.TrimSuffix(filepath.Base(fileName), b.Ext())
}

// RemoveArtifact deletes the artifact at path together with SQLite's
// journal side files. A missing artifact is not an error.
func RemoveArtifact(path string) error {
	var errs []error
	if err := os.RemoveAll(path); err != nil {
		errs = append(errs, err)
	}
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// quoteIdent quotes an SQL identifier.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
