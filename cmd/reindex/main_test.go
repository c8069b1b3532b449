package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"media-index/internal/media/mediatest"
	"media-index/internal/startup"
)

// newTestConfig returns a config with two local repositories, photos
// holding one JPEG and an empty archive.
func newTestConfig(t *testing.T) *startup.Config {
	t.Helper()

	dir := t.TempDir()
	photos := filepath.Join(dir, "photos")
	archive := filepath.Join(dir, "archive")
	if err := os.MkdirAll(archive, 0o755); err != nil {
		t.Fatal(err)
	}
	mediatest.WriteJPEG(t, filepath.Join(photos, "a.jpg"), mediatest.JPEGOptions{
		Width:    32,
		Height:   24,
		DateTime: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		Keywords: []string{"beach"},
	})

	disabled := false
	return &startup.Config{
		IndexPath:    filepath.Join(dir, "index.db"),
		CacheDir:     filepath.Join(dir, "cache"),
		IndexWorkers: 1,
		Repositories: []startup.RepositoryConfig{
			{ID: "archive", Type: startup.TypeLocal, Root: archive},
			{ID: "photos", Type: startup.TypeLocal, Root: photos},
			{ID: "old", Type: startup.TypeLocal, Root: filepath.Join(dir, "missing"), Enabled: &disabled},
		},
	}
}

func runCommand(t *testing.T, cfg *startup.Config, command string, ids ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), cfg, command, ids, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf)
	for _, want := range []string{"Usage: reindex", "update", "rebuild", "status", "INDEX_PATH"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("usage does not mention %q", want)
		}
	}
}

func TestSanitizeCommand(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"update", "update"},
		{"re-build_2", "re-build_2"},
		{"rm -rf /", "rm_-rf__"},
		{"status\n\x1b[31m", "status___31m"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeCommand(tt.input); got != tt.want {
			t.Errorf("sanitizeCommand(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	cfg := newTestConfig(t)

	code, _, stderr := runCommand(t, cfg, "purge;ls")
	if code != exitUsage {
		t.Errorf("exit code = %d, want %d", code, exitUsage)
	}
	if !strings.Contains(stderr, "Unknown command: purge_ls") {
		t.Errorf("stderr = %q, want the sanitized command", stderr)
	}
	if _, err := os.Stat(cfg.IndexPath); !os.IsNotExist(err) {
		t.Error("an unknown command should not create the index")
	}
}

func TestRun_UpdateThenStatus(t *testing.T) {
	cfg := newTestConfig(t)

	code, stdout, stderr := runCommand(t, cfg, commandUpdate)
	if code != exitOK {
		t.Fatalf("update exit code = %d, stderr = %q", code, stderr)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected a header and two result rows, got %q", stdout)
	}
	if fields := strings.Fields(lines[2]); fields[0] != "photos" || fields[1] != "update" || fields[3] != "1" {
		t.Errorf("photos row = %q, want 1 added file", lines[2])
	}

	code, stdout, stderr = runCommand(t, cfg, commandStatus)
	if code != exitOK {
		t.Fatalf("status exit code = %d, stderr = %q", code, stderr)
	}
	rows := map[string][]string{}
	for _, line := range strings.Split(stdout, "\n") {
		if f := strings.Fields(line); len(f) >= 5 {
			rows[f[0]] = f
		}
	}
	if r := rows["photos"]; r == nil || r[3] != "1" || r[4] == "never" {
		t.Errorf("photos status = %v, want 1 record and a last build", r)
	}
	if r := rows["old"]; r == nil || r[2] != "disabled" || r[4] != "never" {
		t.Errorf("old status = %v, want disabled and never built", r)
	}
	if !strings.Contains(stdout, "Total: 1 records (1 images, 0 videos, 0 other), 1 tags") {
		t.Errorf("missing totals in %q", stdout)
	}
}

func TestRun_RebuildSelectedRepository(t *testing.T) {
	cfg := newTestConfig(t)

	code, stdout, stderr := runCommand(t, cfg, commandRebuild, "photos")
	if code != exitOK {
		t.Fatalf("rebuild exit code = %d, stderr = %q", code, stderr)
	}
	if strings.Contains(stdout, "archive") {
		t.Errorf("only photos should be rebuilt, got %q", stdout)
	}
	if !strings.Contains(stdout, "rebuild") {
		t.Errorf("expected a rebuild row, got %q", stdout)
	}
}

func TestRun_UnknownRepository(t *testing.T) {
	cfg := newTestConfig(t)

	code, _, stderr := runCommand(t, cfg, commandUpdate, "videos")
	if code != exitError {
		t.Errorf("exit code = %d, want %d", code, exitError)
	}
	if !strings.Contains(stderr, "videos") {
		t.Errorf("stderr = %q, want the unknown id", stderr)
	}
}

func TestRun_Cancelled(t *testing.T) {
	cfg := newTestConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out, errOut bytes.Buffer
	if code := run(ctx, cfg, commandUpdate, nil, &out, &errOut); code != exitError {
		t.Errorf("exit code = %d, want %d for a cancelled run", code, exitError)
	}
}
