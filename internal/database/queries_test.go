package database

import (
	"sort"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"

	"media-index/internal/mediatypes"
)

func refIDs(refs []Ref) []string {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.FileID
	}
	sort.Strings(ids)
	return ids
}

func seedSnapshotData(t *testing.T, db *Database) {
	t.Helper()
	a := testRecord("photos", "a.jpg", "Beach")
	b := testRecord("photos", "b.jpg", "city")
	c := testRecord("photos", "c.jpg")
	v := testRecord("videos", "v.mp4", "beach")
	v.Kind = mediatypes.KindVideo
	v.Orientation = mediatypes.OrientationPortrait
	v.CreationDate = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, rec := range []*Record{a, b, c, v} {
		mustUpsert(t, db, rec)
	}
}

func TestSnapshot_Filters(t *testing.T) {
	db := setupTestDB(t)
	seedSnapshotData(t, db)

	tests := []struct {
		name  string
		where sq.Sqlizer
		want  []string
	}{
		{name: "everything", where: sq.Expr("1=1"), want: []string{"a.jpg", "b.jpg", "c.jpg", "v.mp4"}},
		{name: "repository", where: sq.Eq{ColRepositoryID: []string{"videos"}}, want: []string{"v.mp4"}},
		{name: "kind", where: sq.Eq{ColKind: []string{"image"}}, want: []string{"a.jpg", "b.jpg", "c.jpg"}},
		{name: "orientation", where: sq.Eq{ColOrientation: "portrait"}, want: []string{"v.mp4"}},
		{name: "any tag case-insensitive", where: HasAnyTag([]string{"BEACH"}), want: []string{"a.jpg", "v.mp4"}},
		{name: "no tag keeps untagged", where: HasNoTag([]string{"beach"}), want: []string{"b.jpg", "c.jpg"}},
		{
			name:  "conjunction",
			where: sq.And{HasAnyTag([]string{"beach", "city"}), sq.Eq{ColRepositoryID: "photos"}},
			want:  []string{"a.jpg", "b.jpg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs, err := db.Snapshot(t.Context(), SelectRefs().Where(tt.where))
			if err != nil {
				t.Fatalf("Snapshot failed: %v", err)
			}
			got := refIDs(refs)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestSnapshot_RefFields(t *testing.T) {
	db := setupTestDB(t)
	seedSnapshotData(t, db)

	refs, err := db.Snapshot(t.Context(), SelectRefs().Where(sq.Eq{ColFileID: "v.mp4"}))
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1", len(refs))
	}
	ref := refs[0]
	if ref.RepositoryID != "videos" || ref.RandomSeed != 0.5 {
		t.Errorf("unexpected ref %+v", ref)
	}
	if !ref.CreationDate.Equal(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("CreationDate = %v", ref.CreationDate)
	}
}

func TestStats(t *testing.T) {
	db := setupTestDB(t)
	seedSnapshotData(t, db)
	other := testRecord("photos", "notes.txt")
	other.Kind = mediatypes.KindUnknown
	mustUpsert(t, db, other)

	stats, err := db.Stats(t.Context())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalRecords != 5 || stats.TotalImages != 3 || stats.TotalVideos != 1 || stats.TotalOther != 1 {
		t.Errorf("unexpected totals: %+v", stats)
	}
	if stats.TotalTags != 3 {
		t.Errorf("TotalTags = %d, want 3", stats.TotalTags)
	}
	if stats.Repositories["photos"] != 4 || stats.Repositories["videos"] != 1 {
		t.Errorf("per repository = %v", stats.Repositories)
	}

	m := db.GetStats()
	if m.TotalRecords != 5 || m.ImageRecords != 3 || m.VideoRecords != 1 || m.OtherRecords != 1 || m.TotalTags != 3 {
		t.Errorf("GetStats() = %+v", m)
	}
}
