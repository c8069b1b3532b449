package startup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"media-index/internal/repository"
)

const sampleConfig = `
repositories:
  photos:
    type: local
    root: /media/photos
  cloud:
    type: webdav
    url: https://dav.example.com
    user: media
    password: ${TEST_DAV_PASSWORD}
    root: pictures
    index_update_at: "03:30"
  archive:
    type: s3
    endpoint: s3.example.com
    bucket: media
    prefix: archive
    use_ssl: true
    enabled: false
    index_update_interval: 24h
playlists:
  recent:
    most_recent: 100
    order: date
    direction: descending
  beach:
    tags: [beach, sea]
`

func TestParseConfigFile(t *testing.T) {
	t.Setenv("TEST_DAV_PASSWORD", "s3cret")

	repos, playlists, err := parseConfigFile([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("parseConfigFile failed: %v", err)
	}

	if len(repos) != 3 {
		t.Fatalf("got %d repositories, want 3", len(repos))
	}
	ids := []string{repos[0].ID, repos[1].ID, repos[2].ID}
	if ids[0] != "archive" || ids[1] != "cloud" || ids[2] != "photos" {
		t.Errorf("repositories are not sorted by id: %v", ids)
	}

	cloud := repos[1]
	if cloud.Type != TypeWebDAV || cloud.Password != "s3cret" || cloud.User != "media" {
		t.Errorf("cloud = %+v", cloud)
	}
	if got := cloud.Location(); got != "https://dav.example.com/pictures" {
		t.Errorf("Location() = %q", got)
	}

	archive := repos[0]
	if archive.IsEnabled() || !archive.UseSSL || archive.Prefix != "archive" {
		t.Errorf("archive = %+v", archive)
	}
	if !repos[2].IsEnabled() {
		t.Error("repositories without an enabled key should be enabled")
	}

	if len(playlists) != 2 {
		t.Fatalf("got %d playlists, want 2", len(playlists))
	}
	if playlists["recent"]["most_recent"] != 100 {
		t.Errorf("recent = %v", playlists["recent"])
	}
	if tags, ok := playlists["beach"]["tags"].([]interface{}); !ok || len(tags) != 2 {
		t.Errorf("beach tags = %#v", playlists["beach"]["tags"])
	}
}

func TestParseConfigFile_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		field string
	}{
		{
			name:  "no repositories",
			data:  "playlists: {}\n",
			field: "repositories",
		},
		{
			name:  "unknown type",
			data:  "repositories:\n  x:\n    type: ftp\n",
			field: "type",
		},
		{
			name:  "local without root",
			data:  "repositories:\n  x:\n    type: local\n",
			field: "root",
		},
		{
			name:  "webdav without url",
			data:  "repositories:\n  x:\n    type: webdav\n",
			field: "url",
		},
		{
			name:  "bad webdav timeout",
			data:  "repositories:\n  x:\n    type: webdav\n    url: http://h\n    timeout: soon\n",
			field: "timeout",
		},
		{
			name:  "s3 without bucket",
			data:  "repositories:\n  x:\n    type: s3\n    endpoint: h\n",
			field: "endpoint",
		},
		{
			name:  "id too long",
			data:  "repositories:\n  this-repository-id-is-far-too-long-to-use:\n    type: local\n    root: /x\n",
			field: "repository id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseConfigFile([]byte(tt.data))
			var verr *repository.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want validation error", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestParseConfigFile_UnknownKey(t *testing.T) {
	data := "repositories:\n  x:\n    type: local\n    root: /x\n    colour: red\n"
	if _, _, err := parseConfigFile([]byte(data)); err == nil {
		t.Error("expected an error for an unknown key")
	}
}

func TestSchedule(t *testing.T) {
	cfg := &Config{UpdateInterval: 30 * time.Minute, UpdateAt: ""}

	tests := []struct {
		name     string
		repo     RepositoryConfig
		interval time.Duration
		at       string
		wantErr  bool
	}{
		{name: "inherits defaults", repo: RepositoryConfig{ID: "a"}, interval: 30 * time.Minute},
		{name: "own interval", repo: RepositoryConfig{ID: "a", IndexUpdateInterval: "2h"}, interval: 2 * time.Hour},
		{name: "own time replaces interval", repo: RepositoryConfig{ID: "a", IndexUpdateAt: "01:00"}, at: "01:00"},
		{name: "zero interval indexes once", repo: RepositoryConfig{ID: "a", IndexUpdateInterval: "0"}},
		{name: "bad interval", repo: RepositoryConfig{ID: "a", IndexUpdateInterval: "daily"}, wantErr: true},
		{name: "bad time", repo: RepositoryConfig{ID: "a", IndexUpdateAt: "7pm"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := cfg.Schedule(tt.repo)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Schedule() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !repository.IsValidation(err) {
					t.Errorf("expected validation error, got %v", err)
				}
				return
			}
			if s.Interval != tt.interval || s.At != tt.at {
				t.Errorf("Schedule() = %+v, want interval %v at %q", s, tt.interval, tt.at)
			}
		})
	}
}

func TestVolumes(t *testing.T) {
	disabled := false
	cfg := &Config{
		IndexPath: "/var/lib/media-index/index.db",
		CacheDir:  "/var/cache/media-index",
		Repositories: []RepositoryConfig{
			{ID: "photos", Type: TypeLocal, Root: "/srv/photos"},
			{ID: "old", Type: TypeLocal, Root: "/srv/old", Enabled: &disabled},
			{ID: "cloud", Type: TypeWebDAV, URL: "https://dav.example.com", Root: "/photos"},
		},
	}

	got := cfg.Volumes()
	want := map[string]string{
		"photos":   "/srv/photos",
		"cache":    "/var/cache/media-index",
		"database": "/var/lib/media-index",
	}
	if len(got) != len(want) {
		t.Fatalf("Volumes() = %v, want %v", got, want)
	}
	for name, path := range want {
		if got[name] != path {
			t.Errorf("Volumes()[%q] = %q, want %q", name, got[name], path)
		}
	}
}

func TestOpenRepositories(t *testing.T) {
	root := t.TempDir()
	disabled := false
	cfg := &Config{
		CacheDir: t.TempDir(),
		Repositories: []RepositoryConfig{
			{ID: "photos", Type: TypeLocal, Root: root},
			{ID: "old", Type: TypeLocal, Root: root, Enabled: &disabled},
		},
	}

	registry, err := OpenRepositories(t.Context(), cfg)
	if err != nil {
		t.Fatalf("OpenRepositories failed: %v", err)
	}
	t.Cleanup(func() { _ = registry.Close() })

	if ids := registry.IDs(); len(ids) != 1 || ids[0] != "photos" {
		t.Errorf("IDs() = %v, want [photos]", ids)
	}
}

func TestOpenRepositories_Failure(t *testing.T) {
	cfg := &Config{
		CacheDir: t.TempDir(),
		Repositories: []RepositoryConfig{
			{ID: "photos", Type: TypeLocal, Root: t.TempDir()},
			{ID: "gone", Type: TypeLocal, Root: filepath.Join(os.TempDir(), "media-index-does-not-exist")},
		},
	}

	if _, err := OpenRepositories(t.Context(), cfg); err == nil {
		t.Error("expected an error for a missing root")
	}
}

func TestLoadRepositories_FromFile(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "media-index.yaml")
	data := "repositories:\n  photos:\n    type: local\n    root: " + dir + "\n    index_update_interval: 5m\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{ConfigFile: path, UpdateInterval: time.Hour}
	if err := cfg.loadRepositories(); err != nil {
		t.Fatalf("loadRepositories failed: %v", err)
	}
	if len(cfg.Repositories) != 1 {
		t.Fatalf("Repositories = %+v", cfg.Repositories)
	}
	s, err := cfg.Schedule(cfg.Repositories[0])
	if err != nil || s.Interval != 5*time.Minute {
		t.Errorf("Schedule() = %+v, %v", s, err)
	}
}
