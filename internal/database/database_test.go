package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"media-index/internal/mediatypes"
)

// setupTestDB creates an index in a temporary directory.
func setupTestDB(t testing.TB) *Database {
	t.Helper()

	db, err := New(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// testRecord returns a minimal record for repository repo.
func testRecord(repo, fileID string, tags ...string) *Record {
	return &Record{
		RepositoryID: repo,
		FileID:       fileID,
		Name:         filepath.Base(fileID),
		Kind:         mediatypes.KindImage,
		Width:        40,
		Height:       20,
		Orientation:  mediatypes.OrientationLandscape,
		CreationDate: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		RandomSeed:   0.5,
		LastModified: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		LastUpdated:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Verified:     true,
		Tags:         tags,
	}
}

func mustUpsert(t *testing.T, db *Database, rec *Record) {
	t.Helper()
	if err := db.Upsert(t.Context(), rec); err != nil {
		t.Fatalf("Upsert(%s/%s) failed: %v", rec.RepositoryID, rec.FileID, err)
	}
}

func TestNew(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")

	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %s, want %s", db.Path(), dbPath)
	}

	var mode string
	if err := db.db.QueryRowContext(t.Context(), "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %s, want wal", mode)
	}

	var fk int
	if err := db.db.QueryRowContext(t.Context(), "PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if fk != 1 {
		t.Error("foreign keys should be enabled")
	}
}

func TestNew_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")

	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatal(err)
	}
	mustUpsert(t, db, testRecord("photos", "a.jpg", "x"))
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	n, err := db.Count(t.Context())
	if err != nil || n != 1 {
		t.Errorf("Count() = %d, %v; want 1", n, err)
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", "index.db"))
	if err == nil {
		t.Error("expected error for missing parent directory")
	}
}

func TestClose_Idempotent(t *testing.T) {
	db, err := New(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}

	if err := db.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

// TestRecordQuery tests the recordQuery helper function.
func TestRecordQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		err       error
	}{
		{name: "successful query", operation: "test_operation", err: nil},
		{name: "failed query", operation: "test_operation", err: errors.New("test error")},
		{name: "empty operation name", operation: "", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Must not panic for any label combination.
			recordQuery(tt.operation, time.Now(), tt.err)
		})
	}
}

func TestLastBuild(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.GetLastBuild(t.Context(), "photos")
	if err != nil {
		t.Fatalf("GetLastBuild failed: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("expected zero time before first build, got %v", got)
	}

	when := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	if err := db.SetLastBuild(t.Context(), "photos", when); err != nil {
		t.Fatalf("SetLastBuild failed: %v", err)
	}
	got, err = db.GetLastBuild(t.Context(), "photos")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(when) {
		t.Errorf("GetLastBuild = %v, want %v", got, when)
	}

	other, _ := db.GetLastBuild(t.Context(), "videos")
	if !other.IsZero() {
		t.Error("last build must be tracked per repository")
	}
}
