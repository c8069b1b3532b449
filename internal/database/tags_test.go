package database

import (
	"testing"
)

func TestUpsertTag_NoDuplicates(t *testing.T) {
	db := setupTestDB(t)

	mustUpsert(t, db, testRecord("photos", "a.jpg", "Beach", "x"))
	mustUpsert(t, db, testRecord("photos", "b.jpg", "Beach"))
	mustUpsert(t, db, testRecord("videos", "c.mp4", "beach", "Beach"))

	tags, err := db.ListTags(t.Context())
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}

	counts := make(map[string]int)
	for _, tag := range tags {
		counts[tag.Name] = tag.ItemCount
	}
	want := map[string]int{"Beach": 3, "beach": 1, "x": 1}
	if len(counts) != len(want) {
		t.Fatalf("tags = %v, want %v", counts, want)
	}
	for name, n := range want {
		if counts[name] != n {
			t.Errorf("tag %q linked %d times, want %d", name, counts[name], n)
		}
	}
}

func TestUpsertTag_SameIDWithinTransaction(t *testing.T) {
	db := setupTestDB(t)

	tx, err := db.db.BeginTx(t.Context(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = tx.Rollback() }()

	first, err := db.UpsertTag(t.Context(), tx, "holiday")
	if err != nil {
		t.Fatalf("UpsertTag failed: %v", err)
	}
	second, err := db.UpsertTag(t.Context(), tx, " holiday ")
	if err != nil {
		t.Fatalf("UpsertTag failed: %v", err)
	}
	if first != second {
		t.Errorf("ids differ: %d vs %d", first, second)
	}

	if _, err := db.UpsertTag(t.Context(), tx, "   "); err == nil {
		t.Error("expected error for empty tag name")
	}
}

func TestDeleteOrphanTags(t *testing.T) {
	db := setupTestDB(t)

	mustUpsert(t, db, testRecord("photos", "a.jpg", "keep", "drop"))
	mustUpsert(t, db, testRecord("photos", "b.jpg", "keep"))

	// Relinking a.jpg without "drop" orphans it.
	mustUpsert(t, db, testRecord("photos", "a.jpg", "keep"))

	n, err := db.DeleteOrphanTags(t.Context())
	if err != nil {
		t.Fatalf("DeleteOrphanTags failed: %v", err)
	}
	if n != 1 {
		t.Errorf("removed %d tags, want 1", n)
	}

	tags, _ := db.ListTags(t.Context())
	if len(tags) != 1 || tags[0].Name != "keep" || tags[0].ItemCount != 2 {
		t.Errorf("remaining tags = %+v", tags)
	}
	if c, _ := db.TagCount(t.Context()); c != 1 {
		t.Errorf("TagCount() = %d, want 1", c)
	}
}
