package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/Aman-CERP/sift/internal/errors"
	"github.com/Aman-CERP/sift/internal/schema"
	"github.com/Aman-CERP/sift/internal/store"
)

func newTestRegistry(t *testing.T, root string, opts ...Option) *Registry {
	t.Helper()
	opts = append([]Option{WithBackend(store.NewSQLiteBackend(8))}, opts...)
	r, err := NewRegistry(context.Background(), root, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestNewRegistry_CreatesDataDir(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "root")

	r := newTestRegistry(t, root)

	info, err := os.Stat(filepath.Join(root, "data"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Zero(t, r.Len())
}

func TestNewRegistry_UncreatableRootFails(t *testing.T) {
	// Given: a root that sits under a regular file
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	// When: constructing a registry there
	_, err := NewRegistry(context.Background(), filepath.Join(file, "root"))

	// Then: construction fails with a storage error
	require.Error(t, err)
	assert.ErrorIs(t, err, serrors.ErrStorageUnavailable)
}

func TestCreateOrAppend_NewNameRegistersOneIndex(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, t.TempDir())

	// When: creating a new index
	msg, err := r.CreateOrAppend(ctx, "books",
		schema.NewDocument("title", "Dune", "body", "desert planet"))
	require.NoError(t, err)

	// Then: exactly one index is registered with the document's field set
	assert.Equal(t, "index created books", msg)
	assert.Equal(t, 1, r.Len())
	idx, ok := r.Lookup("books")
	require.True(t, ok)
	assert.Equal(t, schema.Schema{"title", "body"}, idx.Schema())
}

func TestCreateOrAppend_ExistingNameKeepsInstance(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, t.TempDir())

	_, err := r.CreateOrAppend(ctx, "books", schema.NewDocument("title", "Dune", "body", "desert planet"))
	require.NoError(t, err)
	original, _ := r.Lookup("books")

	// When: appending to the same name
	msg, err := r.CreateOrAppend(ctx, "books", schema.NewDocument("title", "Foo", "body", "bar"))
	require.NoError(t, err)

	// Then: no second index exists and the handle is the same
	assert.Equal(t, "index updated books", msg)
	assert.Equal(t, 1, r.Len())
	current, _ := r.Lookup("books")
	assert.Same(t, original, current)
}

func TestCreateOrAppend_InvalidName(t *testing.T) {
	r := newTestRegistry(t, t.TempDir())

	_, err := r.CreateOrAppend(context.Background(), "no/slashes", schema.NewDocument("a", "b"))
	require.Error(t, err)
	assert.ErrorIs(t, err, serrors.ErrInvalidIndexName)
	assert.Zero(t, r.Len())
}

func TestCreateOrAppend_SchemaMismatchIsReturned(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, t.TempDir())

	_, err := r.CreateOrAppend(ctx, "books", schema.NewDocument("title", "Dune"))
	require.NoError(t, err)

	_, err = r.CreateOrAppend(ctx, "books", schema.NewDocument("isbn", "42"))
	assert.ErrorIs(t, err, serrors.ErrSchemaMismatch)
	assert.Equal(t, 1, r.Len())
}

func TestCreateOrAppend_ConcurrentSameNewName(t *testing.T) {
	for _, b := range testBackends() {
		t.Run(b.Name(), func(t *testing.T) {
			ctx := context.Background()
			r := newTestRegistry(t, t.TempDir(), WithBackend(b))

			const goroutines = 16
			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				messages []string
			)

			// When: T callers race to create the same brand-new name
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					msg, err := r.CreateOrAppend(ctx, "race",
						schema.NewDocument("n", fmt.Sprintf("doc%d", i), "tag", "shared"))
					assert.NoError(t, err)
					mu.Lock()
					messages = append(messages, msg)
					mu.Unlock()
				}(i)
			}
			wg.Wait()

			// Then: exactly one index exists
			assert.Equal(t, 1, r.Len())

			// And: exactly one caller saw "created"
			created := 0
			for _, m := range messages {
				if strings.HasPrefix(m, "index created") {
					created++
				}
			}
			assert.Equal(t, 1, created)

			// And: no document was lost
			res, err := r.Search(ctx, "race", "shared")
			require.NoError(t, err)
			assert.Equal(t, goroutines, res.Count)
		})
	}
}

func TestRegistry_EndToEnd(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, t.TempDir())

	// Given: books created with one document
	_, err := r.CreateOrAppend(ctx, "books",
		schema.NewDocument("title", "Dune", "body", "desert planet"))
	require.NoError(t, err)

	desc, err := r.Describe(ctx, "books")
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "body"}, desc.Schema)

	// When: searching for a body term
	res, err := r.Search(ctx, "books", "desert")
	require.NoError(t, err)

	// Then: Dune is found
	require.GreaterOrEqual(t, res.Count, 1)
	assert.Equal(t, "Dune", res.Hits[0]["title"])
	assert.Equal(t, "desert", res.Query)
	assert.Equal(t, "desert", res.ParsedQuery)

	// When: a second document is appended
	_, err = r.CreateOrAppend(ctx, "books", schema.NewDocument("title", "Foo", "body", "bar"))
	require.NoError(t, err)

	// Then: the index count is unchanged and both documents are stored
	assert.Equal(t, 1, r.Len())
	res, err = r.Search(ctx, "books", "Foo")
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "bar", res.Hits[0]["body"])

	res, err = r.Search(ctx, "books", "Dune")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	desc, err = r.Describe(ctx, "books")
	require.NoError(t, err)
	assert.Equal(t, 2, desc.Documents)
}

func TestRegistry_SearchMissingIndex(t *testing.T) {
	r := newTestRegistry(t, t.TempDir())

	_, err := r.Search(context.Background(), "missing", "x")

	require.Error(t, err)
	assert.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestRegistry_SearchNormalizesQuery(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, t.TempDir())
	_, err := r.CreateOrAppend(ctx, "books", schema.NewDocument("title", "Dune Messiah"))
	require.NoError(t, err)

	// Punctuation is stripped before the storage engine sees the query
	res, err := r.Search(ctx, "books", `"dune" -- messiah!`)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "dune messiah", res.ParsedQuery)
	assert.Equal(t, `"dune" -- messiah!`, res.Query)
}

func TestRegistry_DescribeAllAndNamesAreSorted(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, t.TempDir())

	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := r.CreateOrAppend(ctx, name, schema.NewDocument("f", name))
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())

	all := r.DescribeAll(ctx)
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "zeta", all[2].Name)

	_, err := r.Describe(ctx, "nope")
	assert.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestDiscover_ReloadsPersistedIndexes(t *testing.T) {
	for _, b := range testBackends() {
		t.Run(b.Name(), func(t *testing.T) {
			ctx := context.Background()
			root := t.TempDir()

			// Given: two indexes persisted by a previous registry
			first, err := NewRegistry(ctx, root, WithBackend(b))
			require.NoError(t, err)
			_, err = first.CreateOrAppend(ctx, "books", schema.NewDocument("title", "Dune", "body", "desert"))
			require.NoError(t, err)
			_, err = first.CreateOrAppend(ctx, "films", schema.NewDocument("name", "Alien"))
			require.NoError(t, err)
			require.NoError(t, first.Close())

			// When: a new registry starts on the same root
			second := newTestRegistry(t, root, WithBackend(b))

			// Then: both indexes are registered with their schemas
			assert.Equal(t, []string{"books", "films"}, second.Names())
			idx, ok := second.Lookup("books")
			require.True(t, ok)
			assert.Equal(t, schema.Schema{"title", "body"}, idx.Schema())

			// And: persisted documents are searchable
			res, err := second.Search(ctx, "books", "desert")
			require.NoError(t, err)
			assert.Equal(t, 1, res.Count)
		})
	}
}

func TestCreateOrAppend_FailedCreateIsNotRediscovered(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	// Given: a create whose first document cannot be stored
	first, err := NewRegistry(ctx, root, WithBackend(store.NewSQLiteBackend(8)))
	require.NoError(t, err)
	_, err = first.CreateOrAppend(ctx, "ghost", schema.NewDocument("rank", "1"))
	require.Error(t, err)
	assert.Empty(t, first.Names())
	require.NoError(t, first.Close())

	// When: a new registry starts on the same root
	second := newTestRegistry(t, root)

	// Then: the failed name was never persisted
	assert.Empty(t, second.Names())
	_, err = second.Search(ctx, "ghost", "x")
	assert.ErrorIs(t, err, serrors.ErrNotFound)

	// And: the name can still be created with a valid document
	msg, err := second.CreateOrAppend(ctx, "ghost", schema.NewDocument("title", "Dune"))
	require.NoError(t, err)
	assert.Equal(t, "index created ghost", msg)
}

func TestDiscover_Idempotent(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	first, err := NewRegistry(ctx, root, WithBackend(store.NewSQLiteBackend(8)))
	require.NoError(t, err)
	_, err = first.CreateOrAppend(ctx, "books", schema.NewDocument("title", "Dune"))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	r := newTestRegistry(t, root)
	namesBefore := r.Names()
	handle, _ := r.Lookup("books")

	// When: discovery runs again on the unchanged directory
	loaded, err := r.Discover(ctx)
	require.NoError(t, err)

	// Then: nothing new is loaded and the same indexes remain
	assert.Zero(t, loaded)
	assert.Equal(t, namesBefore, r.Names())
	again, _ := r.Lookup("books")
	assert.Same(t, handle, again)
	assert.Equal(t, schema.Schema{"title"}, again.Schema())
}

func TestDiscover_SkipsNonArtifactsAndBadEntries(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	data := DataDir(root)
	require.NoError(t, os.MkdirAll(data, 0o755))

	// Given: a directory, unrelated files, and one corrupt artifact
	require.NoError(t, os.Mkdir(filepath.Join(data, "subdir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(data, "readme.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(data, "broken.db"), []byte("not sqlite"), 0o644))

	// And: one valid artifact
	good, err := Create(ctx, store.NewSQLiteBackend(8), root, "good", schema.NewDocument("a", "b"))
	require.NoError(t, err)
	require.NoError(t, good.Close())

	// When: a registry starts
	r := newTestRegistry(t, root)

	// Then: only the valid artifact is registered
	assert.Equal(t, []string{"good"}, r.Names())
}

func TestWatch_LoadsArtifactAddedAtRuntime(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root := t.TempDir()
	r := newTestRegistry(t, root)

	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx, 50*time.Millisecond) }()

	// Given: an artifact built elsewhere
	staging := t.TempDir()
	idx, err := Create(ctx, store.NewSQLiteBackend(8), staging, "restored", schema.NewDocument("title", "Dune"))
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	// Give the watcher time to register its watch
	time.Sleep(100 * time.Millisecond)

	// When: it is moved into the data directory
	require.NoError(t, os.Rename(
		filepath.Join(DataDir(staging), "restored.db"),
		filepath.Join(DataDir(root), "restored.db")))

	// Then: the registry picks it up
	require.Eventually(t, func() bool {
		_, ok := r.Lookup("restored")
		return ok
	}, 5*time.Second, 25*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestDataDirLock_Exclusive(t *testing.T) {
	root := t.TempDir()

	// Given: one holder of the lock
	first, err := AcquireDataDirLock(root)
	require.NoError(t, err)
	assert.True(t, first.IsLocked())

	// When: a second acquisition is attempted
	_, err = AcquireDataDirLock(root)

	// Then: it is refused as fatal
	require.Error(t, err)
	assert.Equal(t, serrors.ErrCodeDataDirLocked, serrors.GetCode(err))
	assert.True(t, serrors.IsFatal(err))

	// And: after release it can be taken again
	require.NoError(t, first.Unlock())
	require.NoError(t, first.Unlock())
	second, err := AcquireDataDirLock(root)
	require.NoError(t, err)
	require.NoError(t, second.Unlock())
}
