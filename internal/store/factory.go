package store

import (
	"fmt"

	serrors "github.com/Aman-CERP/sift/internal/errors"
)

// BackendType names a storage engine in configuration.
type BackendType string

const (
	// BackendSQLite stores each index as a SQLite file with an FTS5 table (default).
	BackendSQLite BackendType = "sqlite"

	// BackendBleve stores each index as a bleve directory.
	BackendBleve BackendType = "bleve"
)

// NewBackend returns the backend registered under name.
//
// backend options:
//   - "sqlite" (default): SQLite FTS5, one <name>.db file per index
//   - "bleve": Bleve v2, one <name>.bleve directory per index
//
// cacheMB only applies to the SQLite backend.
func NewBackend(name string, cacheMB int) (Backend, error) {
	switch name {
	case string(BackendSQLite), "":
		return NewSQLiteBackend(cacheMB), nil
	case string(BackendBleve):
		return NewBleveBackend(), nil
	default:
		return nil, serrors.ConfigError(
			fmt.Sprintf("unknown storage backend: %s (valid options: sqlite, bleve)", name), nil).
			WithDetail("backend", name)
	}
}
