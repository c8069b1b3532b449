// Package local implements a repository backed by a local directory tree.
// File ids are slash-separated paths relative to the root. Hidden files
// and directories are skipped.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"time"

	"media-index/internal/filesystem"
	"media-index/internal/logging"
	"media-index/internal/repository"
)

const backend = "local"

// Repository is a local directory adapter.
type Repository struct {
	id    string
	root  string
	retry filesystem.RetryConfig
}

// New returns an adapter for the directory root.
func New(id, root string) (*Repository, error) {
	if root == "" {
		return nil, repository.Invalid("root", nil, "required for local repositories")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	cfg := filesystem.DefaultRetryConfig()
	info, err := filesystem.StatWithRetry(abs, cfg)
	if err != nil {
		return nil, repository.NewIOError("stat", abs, err)
	}
	if !info.IsDir() {
		return nil, repository.Invalid("root", abs, "not a directory")
	}

	return &Repository{id: id, root: abs, retry: cfg}, nil
}

// ID returns the repository id.
func (r *Repository) ID() string { return r.id }

// Root returns the absolute root directory.
func (r *Repository) Root() string { return r.root }

// Enumerate walks the tree depth first in lexical order.
func (r *Repository) Enumerate(ctx context.Context, fn func(repository.FileHandle) error) (err error) {
	start := time.Now()
	defer func() { repository.ObserveOperation(backend, "enumerate", start, err) }()

	return r.walk(ctx, "", fn)
}

func (r *Repository) walk(ctx context.Context, rel string, fn func(repository.FileHandle) error) error {
	dir := filepath.Join(r.root, filepath.FromSlash(rel))
	entries, err := filesystem.ReadDirWithRetry(dir, r.retry)
	if err != nil {
		return repository.NewIOError("readdir", dir, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		id := path.Join(rel, entry.Name())
		if entry.IsDir() {
			if err := r.walk(ctx, id, fn); err != nil {
				return err
			}
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Removed between listing and stat.
			logging.Debug("Skipping %s: %v", id, err)
			continue
		}
		if err := fn(r.newFile(id, info.ModTime())); err != nil {
			return err
		}
	}
	return nil
}

// Resolve returns the file with the given id.
func (r *Repository) Resolve(_ context.Context, fileID string) (h repository.FileHandle, err error) {
	start := time.Now()
	defer func() { repository.ObserveOperation(backend, "resolve", start, err) }()

	full, err := r.abs(fileID)
	if err != nil {
		return nil, err
	}

	info, err := filesystem.StatWithRetry(full, r.retry)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, fileID)
		}
		return nil, repository.NewIOError("stat", full, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", repository.ErrNotFound, fileID)
	}
	return r.newFile(fileID, info.ModTime()), nil
}

// Close is a no-op.
func (r *Repository) Close() error { return nil }

func (r *Repository) abs(fileID string) (string, error) {
	clean := path.Clean(fileID)
	if fileID == "" || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", repository.ErrNotFound, fileID)
	}
	return filepath.Join(r.root, filepath.FromSlash(clean)), nil
}

func (r *Repository) newFile(id string, modTime time.Time) *repository.File {
	full := filepath.Join(r.root, filepath.FromSlash(id))
	info := repository.FileInfo{
		RepositoryID: r.id,
		FileID:       id,
		LastModified: modTime,
	}
	return repository.NewFile(info, func(context.Context) (string, error) {
		if _, err := filesystem.StatWithRetry(full, r.retry); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("%w: %s", repository.ErrNotFound, id)
			}
			return "", repository.NewIOError("stat", full, err)
		}
		return full, nil
	})
}
