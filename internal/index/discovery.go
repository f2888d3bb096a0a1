package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	serrors "github.com/Aman-CERP/sift/internal/errors"
	"github.com/Aman-CERP/sift/internal/schema"
	"github.com/Aman-CERP/sift/internal/store"
)

// Discover loads every artifact under the data directory that is not yet
// registered and returns how many were loaded.
//
// Entries the backend does not recognise are skipped, as are names that are
// not valid index names. Artifacts open concurrently, bounded by the
// configured worker count; one that fails to open is logged and skipped.
// Running Discover again against an unchanged directory loads nothing.
func (r *Registry) Discover(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(r.dataDir)
	if err != nil {
		return 0, serrors.StorageUnavailable(r.dataDir, err)
	}

	var loaded atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, entry := range entries {
		if !r.backend.IsArtifact(entry) {
			continue
		}
		name := store.ArtifactName(r.backend, entry.Name())
		if schema.ValidateIndexName(name) != nil {
			slog.Debug("discovery_skipped",
				slog.String("entry", entry.Name()),
				slog.String("reason", "invalid index name"))
			continue
		}
		if _, ok := r.Lookup(name); ok {
			continue
		}

		g.Go(func() error {
			ok, err := r.load(gctx, name)
			if err != nil {
				// Per-artifact failures never abort discovery
				slog.Warn("index_load_failed",
					slog.String("index", name),
					slog.String("error", err.Error()))
				return nil
			}
			if ok {
				loaded.Add(1)
			}
			return nil
		})
	}

	_ = g.Wait()

	return int(loaded.Load()), nil
}

// load opens and registers the artifact for name unless the name is already
// registered. Reports whether this call registered it.
func (r *Registry) load(ctx context.Context, name string) (bool, error) {
	loaded := false
	_, err, _ := r.group.Do(name, func() (any, error) {
		if idx, ok := r.Lookup(name); ok {
			return idx, nil
		}

		path := store.ArtifactPath(r.backend, r.dataDir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			// Removed after a failed create; never recreate it here.
			return nil, nil
		}
		idx, err := LoadOrCreate(ctx, r.backend, path, name)
		if err != nil {
			return nil, err
		}

		r.register(idx)
		loaded = true

		slog.Info("index_loaded",
			slog.String("index", name),
			slog.String("path", filepath.Base(path)),
			slog.Int("columns", len(idx.Schema())))
		return idx, nil
	})
	return loaded, err
}
