package iterator

import (
	"path/filepath"
	"slices"
	"testing"
	"time"

	"media-index/internal/indexer"
	"media-index/internal/media/mediatest"
	"media-index/internal/mediatypes"
	"media-index/internal/repository"
	"media-index/internal/repository/local"
)

func TestIndexAndIterateLocalRepository(t *testing.T) {
	root := t.TempDir()
	mediatest.WriteJPEG(t, filepath.Join(root, "a.jpg"), mediatest.JPEGOptions{
		Width:    64,
		Height:   48,
		DateTime: time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local),
		Keywords: []string{"x"},
	})
	mediatest.WriteJPEG(t, filepath.Join(root, "b.jpg"), mediatest.JPEGOptions{
		Width:    48,
		Height:   64,
		DateTime: time.Date(2024, 1, 2, 10, 0, 0, 0, time.Local),
		Keywords: []string{"y"},
	})

	f := newFixture(t)
	repo, err := local.New("photos", root)
	if err != nil {
		t.Fatal(err)
	}
	registry := repository.NewRegistry()
	if err := registry.Register(repo); err != nil {
		t.Fatal(err)
	}

	res, err := indexer.NewBuilder(f.db, 2).Build(t.Context(), repo, indexer.ModeUpdate)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if res.Added != 2 || res.Failed != 0 {
		t.Fatalf("Build result = %+v, want 2 added", res)
	}

	it, err := Compile(t.Context(), f.db, registry, Criteria{Tags: []string{"x"}})
	if err != nil {
		t.Fatal(err)
	}
	file, err := it.Next(t.Context())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if file.FileID() != "a.jpg" || file.Name() != "a.jpg" {
		t.Errorf("got %s, want a.jpg", file.FileID())
	}
	if it.Len() != 1 {
		t.Errorf("Len() = %d, want 1", it.Len())
	}

	it, err = Compile(t.Context(), f.db, registry, Criteria{Order: mediatypes.OrderName, Direction: mediatypes.Ascending})
	if err != nil {
		t.Fatal(err)
	}
	if got := drain(t, it); !slices.Equal(got, []string{"a.jpg", "b.jpg"}) {
		t.Errorf("name order = %v, want [a.jpg b.jpg]", got)
	}

	it, err = Compile(t.Context(), f.db, registry, Criteria{Orientation: mediatypes.OrientationPortrait})
	if err != nil {
		t.Fatal(err)
	}
	if got := drain(t, it); !slices.Equal(got, []string{"b.jpg"}) {
		t.Errorf("portrait = %v, want [b.jpg]", got)
	}

	it, err = Compile(t.Context(), f.db, registry, Criteria{Order: mediatypes.OrderDate, Direction: mediatypes.Descending})
	if err != nil {
		t.Fatal(err)
	}
	if got := drain(t, it); !slices.Equal(got, []string{"b.jpg", "a.jpg"}) {
		t.Errorf("date order = %v, want [b.jpg a.jpg]", got)
	}
}
