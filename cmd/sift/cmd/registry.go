package cmd

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/Aman-CERP/sift/internal/config"
	"github.com/Aman-CERP/sift/internal/index"
	"github.com/Aman-CERP/sift/internal/store"
	"github.com/Aman-CERP/sift/internal/ui"
)

// openRegistry locks the data directory and loads every index in it.
// The returned release closes the registry and then drops the lock.
func openRegistry(ctx context.Context, cfg *config.Config) (*index.Registry, func() error, error) {
	lock, err := index.AcquireDataDirLock(cfg.Storage.Root)
	if err != nil {
		return nil, nil, err
	}

	backend, err := store.NewBackend(cfg.Storage.Backend, cfg.Storage.SQLiteCacheMB)
	if err != nil {
		_ = lock.Unlock()
		return nil, nil, err
	}

	registry, err := index.NewRegistry(ctx, cfg.Storage.Root,
		index.WithBackend(backend),
		index.WithDiscoveryWorkers(cfg.Storage.DiscoveryWorkers))
	if err != nil {
		_ = lock.Unlock()
		return nil, nil, err
	}

	release := func() error {
		return errors.Join(registry.Close(), lock.Unlock())
	}
	return registry, release, nil
}

// indexInfo converts a description for display, measuring the artifact on disk.
func indexInfo(d index.Description) ui.IndexInfo {
	return ui.IndexInfo{
		Name:      d.Name,
		Path:      d.Path,
		Backend:   d.Backend,
		Version:   d.Version,
		Created:   d.Created,
		Schema:    d.Schema,
		Documents: d.Documents,
		SizeBytes: artifactSize(d.Path),
	}
}

// artifactSize sums the regular files at path, which is a file for SQLite
// and a directory for bleve. Unreadable entries count as zero.
func artifactSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}
