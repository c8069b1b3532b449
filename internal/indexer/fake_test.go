package indexer

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"media-index/internal/database"
	"media-index/internal/media"
	"media-index/internal/mediatypes"
	"media-index/internal/repository"
)

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeFile is an in-memory file whose metadata is fixed.
type fakeFile struct {
	repo     string
	id       string
	modified time.Time
	tags     []string
	err      error

	// started is closed when extraction begins. Extraction then waits for
	// release or for its context to end.
	started chan struct{}
	release chan struct{}
}

func (f *fakeFile) RepositoryID() string { return f.repo }
func (f *fakeFile) FileID() string { return f.id }
func (f *fakeFile) Name() string { return path.Base(f.id) }
func (f *fakeFile) Kind() mediatypes.Kind { return mediatypes.KindOf(f.id) }
func (f *fakeFile) LastModified() time.Time { return f.modified }

func (f *fakeFile) Source(context.Context) (string, error) {
	return "/nonexistent/" + f.id, nil
}

func (f *fakeFile) ExtractMetadata(ctx context.Context) (*media.Metadata, error) {
	if f.started != nil {
		close(f.started)
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &media.Metadata{
		Width:        300,
		Height:       200,
		Orientation:  mediatypes.OrientationLandscape,
		CreationDate: f.modified,
		Tags:         f.tags,
	}, nil
}

// fakeAdapter lists its files in id order.
type fakeAdapter struct {
	id string

	mu      sync.Mutex
	files   map[string]*fakeFile
	enumErr error

	// onFile runs after each file handed to the builder.
	onFile func(n int)
	calls  int
}

func newFakeAdapter(id string) *fakeAdapter {
	return &fakeAdapter{id: id, files: make(map[string]*fakeFile)}
}

func (a *fakeAdapter) add(fileID string, tags ...string) *fakeFile {
	a.mu.Lock()
	defer a.mu.Unlock()
	f := &fakeFile{repo: a.id, id: fileID, modified: baseTime, tags: tags}
	a.files[fileID] = f
	return f
}

func (a *fakeAdapter) remove(fileID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.files, fileID)
}

func (a *fakeAdapter) enumerations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func (a *fakeAdapter) ID() string { return a.id }

func (a *fakeAdapter) Enumerate(ctx context.Context, fn func(repository.FileHandle) error) error {
	a.mu.Lock()
	a.calls++
	ids := make([]string, 0, len(a.files))
	for id := range a.files {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	files := make([]*fakeFile, 0, len(ids))
	for _, id := range ids {
		files = append(files, a.files[id])
	}
	enumErr, onFile := a.enumErr, a.onFile
	a.mu.Unlock()

	for i, f := range files {
		if err := fn(f); err != nil {
			return err
		}
		if onFile != nil {
			onFile(i + 1)
		}
	}
	return enumErr
}

func (a *fakeAdapter) Resolve(_ context.Context, fileID string) (repository.FileHandle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if f, ok := a.files[fileID]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, fileID)
}

func (a *fakeAdapter) Close() error { return nil }

func setupTestDB(t *testing.T) *database.Database {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// newTestBuilder returns a builder whose seeds are 0.1, 0.2, ...
func newTestBuilder(db *database.Database) *Builder {
	b := NewBuilder(db, 2)
	var mu sync.Mutex
	n := 0
	b.seed = func() float64 {
		mu.Lock()
		defer mu.Unlock()
		n++
		return float64(n) / 10
	}
	return b
}

func mustBuild(t *testing.T, b *Builder, a repository.Adapter, mode Mode) BuildResult {
	t.Helper()
	res, err := b.Build(t.Context(), a, mode)
	if err != nil {
		t.Fatalf("Build(%s, %s) failed: %v", a.ID(), mode, err)
	}
	return res
}

func mustLookup(t *testing.T, db *database.Database, repo, fileID string) *database.Record {
	t.Helper()
	rec, err := db.Lookup(t.Context(), repo, fileID)
	if err != nil {
		t.Fatalf("Lookup(%s/%s) failed: %v", repo, fileID, err)
	}
	return rec
}
