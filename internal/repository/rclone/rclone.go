// Package rclone implements a repository on any rclone remote by driving
// the rclone command line tool. Remotes must already be configured in the
// rclone configuration file. The root includes the remote name, for
// example "gdrive:Photos".
package rclone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"media-index/internal/logging"
	"media-index/internal/repository"
)

const backend = "rclone"

// Exit codes documented by rclone.
const (
	exitDirNotFound  = 3
	exitFileNotFound = 4
)

// Config holds the settings of an rclone repository.
type Config struct {
	Root     string
	CacheDir string
	// Binary defaults to "rclone" looked up in PATH.
	Binary string
}

// Repository is an rclone adapter.
type Repository struct {
	id     string
	root   string
	binary string
	cache  *repository.Cache
}

// listEntry is one object of `rclone lsjson` output.
type listEntry struct {
	Path    string `json:"Path"`
	Name    string `json:"Name"`
	Size    int64  `json:"Size"`
	ModTime string `json:"ModTime"`
	IsDir   bool   `json:"IsDir"`
}

// New checks that the binary is available and prepares the cache.
func New(id string, cfg Config) (*Repository, error) {
	if cfg.Root == "" {
		return nil, repository.Invalid("root", nil, "required for rclone repositories")
	}
	if !strings.Contains(cfg.Root, ":") {
		return nil, repository.Invalid("root", cfg.Root, "must include the remote name, e.g. remote:path")
	}

	binary := cfg.Binary
	if binary == "" {
		binary = "rclone"
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("rclone binary not available: %w", err)
	}

	cache, err := repository.NewCache(cfg.CacheDir, id, backend)
	if err != nil {
		return nil, err
	}

	logging.Info("rclone repository %s using %s (root %s)", id, resolved, cfg.Root)
	return &Repository{
		id:     id,
		root:   strings.TrimSuffix(cfg.Root, "/"),
		binary: resolved,
		cache:  cache,
	}, nil
}

// ID returns the repository id.
func (r *Repository) ID() string { return r.id }

// Enumerate lists the remote recursively with a single lsjson call.
func (r *Repository) Enumerate(ctx context.Context, fn func(repository.FileHandle) error) (err error) {
	start := time.Now()
	defer func() { repository.ObserveOperation(backend, "enumerate", start, err) }()

	out, err := r.run(ctx, "lsjson", "-R", "--files-only", r.root)
	if err != nil {
		return repository.NewIOError("lsjson", r.root, err)
	}
	entries, err := parseListing(out)
	if err != nil {
		return repository.NewIOError("lsjson", r.root, err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir || isHidden(e.Path) {
			continue
		}
		if err := fn(r.newFile(e.Path, parseModTime(e.Path, e.ModTime))); err != nil {
			return err
		}
	}
	return nil
}

// Resolve stats a single object.
func (r *Repository) Resolve(ctx context.Context, fileID string) (h repository.FileHandle, err error) {
	start := time.Now()
	defer func() { repository.ObserveOperation(backend, "resolve", start, err) }()

	out, err := r.run(ctx, "lsjson", "--stat", r.remotePath(fileID))
	if err != nil {
		return nil, repository.NewIOError("stat", fileID, err)
	}

	var e listEntry
	if err := json.Unmarshal(out, &e); err != nil {
		return nil, repository.NewIOError("stat", fileID, err)
	}
	if e.IsDir {
		return nil, fmt.Errorf("%w: %s is a directory", repository.ErrNotFound, fileID)
	}
	return r.newFile(fileID, parseModTime(fileID, e.ModTime)), nil
}

// Close removes the download cache.
func (r *Repository) Close() error {
	return r.cache.Close()
}

func (r *Repository) remotePath(fileID string) string {
	fileID = strings.TrimPrefix(fileID, "/")
	if strings.HasSuffix(r.root, ":") {
		return r.root + fileID
	}
	return r.root + "/" + fileID
}

func (r *Repository) newFile(id string, modTime time.Time) *repository.File {
	info := repository.FileInfo{
		RepositoryID: r.id,
		FileID:       id,
		LastModified: modTime,
	}
	return repository.NewFile(info, func(ctx context.Context) (string, error) {
		return r.cache.Fetch(ctx, id, modTime, func(ctx context.Context, dst string) (int64, error) {
			if _, err := r.run(ctx, "copyto", r.remotePath(id), dst); err != nil {
				return 0, err
			}
			return fileSize(dst), nil
		})
	})
}

// run executes rclone and returns stdout. Not-found exit codes are
// mapped to repository.ErrNotFound.
func (r *Repository) run(ctx context.Context, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Debug("rclone %s", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			if code == exitDirNotFound || code == exitFileNotFound || strings.Contains(stderr.String(), "not found") {
				return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, args[len(args)-1])
			}
		}
		return nil, fmt.Errorf("rclone %s failed: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func parseListing(data []byte) ([]listEntry, error) {
	var entries []listEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse rclone listing: %w", err)
	}
	return entries, nil
}

// parseModTime returns the zero time for an unreadable timestamp, which
// makes the builder re-extract the file on every pass.
func parseModTime(p, s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		logging.Warn("rclone reported an invalid modification time %q for %s: %v", s, p, err)
		return time.Time{}
	}
	return t
}

func isHidden(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
