package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	serrors "github.com/Aman-CERP/sift/internal/errors"
	"github.com/Aman-CERP/sift/internal/schema"
	"github.com/Aman-CERP/sift/internal/store"
)

// DefaultDiscoveryWorkers bounds how many artifacts are opened at once during discovery.
const DefaultDiscoveryWorkers = 4

// Result messages returned by CreateOrAppend.
const (
	MsgCreated = "index created %s"
	MsgUpdated = "index updated %s"
)

// Registry maps index names to shared Index handles.
type Registry struct {
	root    string
	dataDir string
	backend store.Backend
	workers int

	mu      sync.RWMutex
	indexes map[string]*Index

	// group coalesces concurrent construction of the same name, whether
	// from CreateOrAppend or from discovery.
	group singleflight.Group
}

// Option configures a Registry.
type Option func(*Registry)

// WithBackend sets the storage backend. Defaults to SQLite.
func WithBackend(b store.Backend) Option {
	return func(r *Registry) {
		if b != nil {
			r.backend = b
		}
	}
}

// WithDiscoveryWorkers bounds concurrent artifact loading during discovery.
func WithDiscoveryWorkers(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.workers = n
		}
	}
}

// NewRegistry ensures <root>/data exists and loads every index persisted there.
// Failure to create the directory is returned; failures on individual
// artifacts are logged and skipped.
func NewRegistry(ctx context.Context, root string, opts ...Option) (*Registry, error) {
	r := &Registry{
		root:    root,
		dataDir: DataDir(root),
		backend: store.NewSQLiteBackend(0),
		workers: DefaultDiscoveryWorkers,
		indexes: make(map[string]*Index),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := os.MkdirAll(r.dataDir, 0o755); err != nil {
		return nil, serrors.StorageUnavailable(r.dataDir, err).
			WithSuggestion("check that the data directory is writable")
	}

	loaded, err := r.Discover(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("registry_ready",
		slog.String("data_dir", r.dataDir),
		slog.String("backend", r.backend.Name()),
		slog.Int("indexes", loaded))

	return r, nil
}

// Root returns the registry root directory.
func (r *Registry) Root() string { return r.root }

// DataDir returns the directory holding index artifacts.
func (r *Registry) DataDir() string { return r.dataDir }

// Backend returns the storage backend used for new and discovered indexes.
func (r *Registry) Backend() store.Backend { return r.backend }

// CreateOrAppend is the single mutating entry point.
//
// When name is registered, doc is appended and an "updated" message is
// returned. Otherwise exactly one caller constructs the index from its own
// document and gets a "created" message; concurrent callers for the same new
// name wait for that construction and then append to the shared handle.
func (r *Registry) CreateOrAppend(ctx context.Context, name string, doc schema.Document) (string, error) {
	if err := schema.ValidateIndexName(name); err != nil {
		return "", err
	}

	if idx, ok := r.Lookup(name); ok {
		return r.append(ctx, idx, doc)
	}

	created := false
	v, err, _ := r.group.Do(name, func() (any, error) {
		if idx, ok := r.Lookup(name); ok {
			return idx, nil
		}

		idx, err := Create(ctx, r.backend, r.root, name, doc)
		if err != nil {
			slog.Warn("index_create_failed",
				slog.String("index", name),
				slog.String("error", err.Error()))
			return nil, err
		}

		r.register(idx)
		created = true

		slog.Info("index_created",
			slog.String("index", name),
			slog.String("path", idx.Path()))
		return idx, nil
	})
	if err != nil {
		return "", err
	}

	if created {
		return fmt.Sprintf(MsgCreated, name), nil
	}
	idx, _ := v.(*Index)
	if idx == nil {
		// Joined a watcher load that found no artifact; construct it now.
		return r.CreateOrAppend(ctx, name, doc)
	}
	return r.append(ctx, idx, doc)
}

func (r *Registry) append(ctx context.Context, idx *Index, doc schema.Document) (string, error) {
	if err := idx.IndexDocument(ctx, doc); err != nil {
		return "", err
	}
	return fmt.Sprintf(MsgUpdated, idx.Name()), nil
}

// register adds idx under its name. The write lock covers only the map insert.
func (r *Registry) register(idx *Index) {
	r.mu.Lock()
	r.indexes[idx.Name()] = idx
	r.mu.Unlock()
}

// Lookup returns the shared handle registered under name.
func (r *Registry) Lookup(name string) (*Index, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.indexes[name]
	return idx, ok
}

// Search normalizes rawQuery and runs it against the named index.
func (r *Registry) Search(ctx context.Context, name, rawQuery string) (*SearchResult, error) {
	idx, ok := r.Lookup(name)
	if !ok {
		return nil, serrors.NotFound(name)
	}

	parsed := schema.NormalizeQuery(rawQuery)
	result, err := idx.Search(ctx, parsed)
	if err != nil {
		return nil, err
	}
	result.Query = rawQuery
	return result, nil
}

// Describe returns the metadata snapshot of the named index.
func (r *Registry) Describe(ctx context.Context, name string) (Description, error) {
	idx, ok := r.Lookup(name)
	if !ok {
		return Description{}, serrors.NotFound(name)
	}
	return idx.Describe(ctx), nil
}

// DescribeAll returns a snapshot of every index, sorted by name.
func (r *Registry) DescribeAll(ctx context.Context) []Description {
	handles := r.snapshot()

	out := make([]Description, 0, len(handles))
	for _, idx := range handles {
		out = append(out, idx.Describe(ctx))
	}
	return out
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.indexes))
	for name := range r.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered indexes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.indexes)
}

// snapshot copies the handles under the read lock, sorted by name, so callers
// can take index locks without holding the registry lock.
func (r *Registry) snapshot() []*Index {
	r.mu.RLock()
	handles := make([]*Index, 0, len(r.indexes))
	for _, idx := range r.indexes {
		handles = append(handles, idx)
	}
	r.mu.RUnlock()

	sort.Slice(handles, func(a, b int) bool {
		return handles[a].Name() < handles[b].Name()
	})
	return handles
}

// Close closes every registered index. Errors are joined.
func (r *Registry) Close() error {
	var errs []error
	for _, idx := range r.snapshot() {
		if err := idx.Close(); err != nil {
			slog.Warn("index_close_failed",
				slog.String("index", idx.Name()),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("close %s: %w", idx.Name(), err))
		}
	}
	return errors.Join(errs...)
}
