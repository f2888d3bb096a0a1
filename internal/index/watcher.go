package index

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Aman-CERP/sift/internal/schema"
	"github.com/Aman-CERP/sift/internal/store"
)

// DefaultSettleDelay is how long an artifact must stay quiet before it is loaded.
const DefaultSettleDelay = 500 * time.Millisecond

// Watch loads artifacts that appear in the data directory while the
// registry is running, such as an index restored from a backup. It blocks
// until ctx is cancelled.
//
// Each create or write event restarts a per-name settle timer; the artifact
// is loaded once no event has arrived for settle. Names already registered
// are ignored, so artifacts the registry writes itself are no-ops.
func (r *Registry) Watch(ctx context.Context, settle time.Duration) error {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(r.dataDir); err != nil {
		return fmt.Errorf("watch %s: %w", r.dataDir, err)
	}

	slog.Info("watcher_started", slog.String("data_dir", r.dataDir))

	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
	)
	defer func() {
		mu.Lock()
		for _, t := range pending {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("watcher_stopped", slog.String("data_dir", r.dataDir))
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			name, ok := r.artifactName(event.Name)
			if !ok {
				continue
			}
			if _, registered := r.Lookup(name); registered {
				continue
			}

			mu.Lock()
			if t, exists := pending[name]; exists {
				t.Reset(settle)
			} else {
				pending[name] = time.AfterFunc(settle, func() {
					mu.Lock()
					delete(pending, name)
					mu.Unlock()

					if ctx.Err() != nil {
						return
					}
					if _, err := r.load(ctx, name); err != nil {
						slog.Warn("index_load_failed",
							slog.String("index", name),
							slog.String("error", err.Error()))
					}
				})
			}
			mu.Unlock()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

// artifactName reports the index name for path if it is an artifact of
// the registry's backend with a valid name.
func (r *Registry) artifactName(path string) (string, bool) {
	info, err := os.Lstat(path)
	if err != nil {
		return "", false
	}
	if !r.backend.IsArtifact(fs.FileInfoToDirEntry(info)) {
		return "", false
	}

	name := store.ArtifactName(r.backend, filepath.Base(path))
	if schema.ValidateIndexName(name) != nil {
		return "", false
	}
	return name, true
}
