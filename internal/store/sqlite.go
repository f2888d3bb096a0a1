package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	serrors "github.com/Aman-CERP/sift/internal/errors"
)

const (
	// ftsTable is the FTS5 virtual table holding the documents of an index.
	ftsTable = "sift_documents"

	// metaTable holds the recorded column order and creation time.
	metaTable = "sift_meta"

	metaKeyColumns   = "columns"
	metaKeyCreatedAt = "created_at"
)

// SQLiteBackend stores each index in its own SQLite file with an FTS5 table.
type SQLiteBackend struct {
	// CacheMB is the page cache size per connection, in megabytes.
	CacheMB int
}

// Verify interface implementation at compile time
var _ Backend = (*SQLiteBackend)(nil)

// NewSQLiteBackend returns a backend using the given page cache size.
func NewSQLiteBackend(cacheMB int) *SQLiteBackend {
	if cacheMB <= 0 {
		cacheMB = 64
	}
	return &SQLiteBackend{CacheMB: cacheMB}
}

// Name implements Backend.
func (b *SQLiteBackend) Name() string { return string(BackendSQLite) }

// Ext implements Backend.
func (b *SQLiteBackend) Ext() string { return ".db" }

// IsArtifact implements Backend. Only regular .db files count; WAL and SHM
// side files and directories are skipped.
func (b *SQLiteBackend) IsArtifact(entry os.DirEntry) bool {
	if entry.IsDir() || !entry.Type().IsRegular() {
		return false
	}
	return filepath.Ext(entry.Name()) == b.Ext()
}

// Open implements Backend.
func (b *SQLiteBackend) Open(path string) (Collection, error) {
	return OpenSQLiteCollection(path, b.CacheMB)
}

// SQLiteCollection implements Collection using SQLite FTS5.
type SQLiteCollection struct {
	mu      sync.RWMutex
	db      *sql.DB
	path    string
	columns []string
	closed  bool
}

// Verify interface implementation at compile time
var _ Collection = (*SQLiteCollection)(nil)

// validateSQLiteIntegrity checks an existing database file before opening it.
// Returns nil if the file does not exist or is valid.
func validateSQLiteIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Database doesn't exist, will be created
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// OpenSQLiteCollection opens or creates the SQLite artifact at path.
// If path is empty, creates an in-memory collection for testing.
// Unlike a derived search index, an index artifact is the only copy of its
// documents, so a corrupt file is reported rather than cleared.
func OpenSQLiteCollection(path string, cacheMB int) (*SQLiteCollection, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, serrors.StorageUnavailable(path, fmt.Errorf("failed to create directory %s: %w", dir, err))
		}

		if validErr := validateSQLiteIntegrity(path); validErr != nil {
			slog.Warn("sqlite_collection_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))
			return nil, serrors.New(serrors.ErrCodeCorruptIndex,
				fmt.Sprintf("index artifact %s is corrupted", path), validErr).
				WithDetail("path", path).
				WithSuggestion("restore the file from a backup or move it out of the data directory")
		}

		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, serrors.StorageUnavailable(path, err)
	}

	// Single connection: the owning index serializes every call anyway,
	// and an in-memory database only exists per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// DSN params may be ignored by modernc.org/sqlite, so set them again.
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA cache_size = -%d", cacheMB*1024),
		"PRAGMA temp_store = MEMORY",
	}
	if path != "" {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, serrors.StorageUnavailable(path, fmt.Errorf("failed to set pragma: %w", err))
		}
	}

	c := &SQLiteCollection{db: db, path: path}
	if err := c.initMeta(); err != nil {
		_ = db.Close()
		return nil, serrors.StorageUnavailable(path, fmt.Errorf("failed to initialize metadata: %w", err))
	}

	cols, err := c.loadColumns(context.Background())
	if err != nil {
		_ = db.Close()
		return nil, serrors.StorageUnavailable(path, err)
	}
	c.columns = cols

	return c, nil
}

// initMeta creates the metadata table and stamps the creation time once.
func (c *SQLiteCollection) initMeta() error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`, metaTable)
	if _, err := c.db.Exec(schema); err != nil {
		return err
	}

	_, err := c.db.Exec(
		fmt.Sprintf(`INSERT OR IGNORE INTO %s (key, value) VALUES (?, ?)`, metaTable),
		metaKeyCreatedAt, strconv.FormatInt(time.Now().UnixMilli(), 10))
	return err
}

func (c *SQLiteCollection) loadColumns(ctx context.Context) ([]string, error) {
	var raw string
	err := c.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, metaTable), metaKeyColumns).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var cols []string
	if err := json.Unmarshal([]byte(raw), &cols); err != nil {
		return nil, fmt.Errorf("recorded columns are corrupt: %w", err)
	}
	return cols, nil
}

// reservedColumns are names FTS5 refuses as column names, compared
// case-insensitively.
var reservedColumns = map[string]struct{}{
	"rank":   {},
	"rowid":  {},
	ftsTable: {},
}

// validateColumns rejects column sets FTS5 cannot declare: reserved or empty
// names, and names that differ only by case. The error is a client error
// (ERR_401) since the names come from the submitted document.
func validateColumns(columns []string) error {
	seen := make(map[string]string, len(columns))
	for _, col := range columns {
		if strings.TrimSpace(col) == "" {
			return serrors.New(serrors.ErrCodeInvalidDocument, "field names must not be empty", nil).
				WithSuggestion("give every top-level field a name")
		}
		folded := strings.ToLower(col)
		if _, ok := reservedColumns[folded]; ok {
			return serrors.New(serrors.ErrCodeInvalidDocument,
				fmt.Sprintf("field name %q is reserved by the sqlite backend", col), nil).
				WithDetail("field", col).
				WithSuggestion("rename the field")
		}
		if prev, ok := seen[folded]; ok {
			return serrors.New(serrors.ErrCodeInvalidDocument,
				fmt.Sprintf("fields %q and %q differ only by case", prev, col), nil).
				WithDetail("field", col).
				WithSuggestion("field names must be unique ignoring case")
		}
		seen[folded] = col
	}
	return nil
}

// CreateCollection implements Collection.
func (c *SQLiteCollection) CreateCollection(ctx context.Context, columns []string) error {
	if len(columns) == 0 {
		return fmt.Errorf("a collection needs at least one column")
	}
	if err := validateColumns(columns); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
	}
	encoded, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("failed to encode columns: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	create := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(%s, tokenize='unicode61')`,
		ftsTable, strings.Join(quoted, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT OR REPLACE INTO %s (key, value) VALUES (?, ?)`, metaTable),
		metaKeyColumns, string(encoded)); err != nil {
		return fmt.Errorf("failed to record columns: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit collection: %w", err)
	}

	c.columns = append([]string(nil), columns...)
	return nil
}

// InsertRow implements Collection.
func (c *SQLiteCollection) InsertRow(ctx context.Context, columns, values []string) error {
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

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	args := make([]any, len(values))
	for i := range columns {
		quoted[i] = quoteIdent(columns[i])
		placeholders[i] = "?"
		args[i] = values[i]
	}

	insert := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		ftsTable, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	if _, err := c.db.ExecContext(ctx, insert, args...); err != nil {
		return fmt.Errorf("failed to insert row: %w", err)
	}
	return nil
}

// Query implements Collection.
// FTS5 syntax errors are returned, not swallowed; the caller decides how to
// present a malformed query.
func (c *SQLiteCollection) Query(ctx context.Context, match string) ([]Row, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.columns == nil {
		return nil, ErrNoCollection
	}

	quoted := make([]string, len(c.columns))
	for i, col := range c.columns {
		quoted[i] = quoteIdent(col)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s MATCH ?`,
		strings.Join(quoted, ", "), ftsTable, ftsTable)

	rows, err := c.db.QueryContext(ctx, query, match)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	results := []Row{}
	for rows.Next() {
		vals := make([]sql.NullString, len(c.columns))
		ptrs := make([]any, len(c.columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		row := make(Row, len(c.columns))
		for i, col := range c.columns {
			row[col] = vals[i].String
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return results, nil
}

// Columns implements Collection.
func (c *SQLiteCollection) Columns(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrClosed
	}
	return append([]string(nil), c.columns...), nil
}

// CreatedAt implements Collection.
func (c *SQLiteCollection) CreatedAt(ctx context.Context) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return time.Time{}, false
	}

	var raw string
	err := c.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, metaTable), metaKeyCreatedAt).Scan(&raw)
	if err != nil {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Count implements Collection.
func (c *SQLiteCollection) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return 0, ErrClosed
	}
	if c.columns == nil {
		return 0, nil
	}

	var count int
	if err := c.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, ftsTable)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}

// Persist implements Collection.
// Forces a WAL checkpoint so the main database file holds every row.
func (c *SQLiteCollection) Persist(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.path == "" {
		return nil
	}

	_, err := c.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// Close implements Collection.
// Forces a WAL checkpoint before closing.
func (c *SQLiteCollection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	if c.path != "" {
		_, _ = c.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return c.db.Close()
}
