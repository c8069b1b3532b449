// Package webdav implements a repository on a WebDAV share. Files are
// downloaded into a per-repository cache before their metadata is read.
package webdav

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"

	"media-index/internal/logging"
	"media-index/internal/repository"
)

const backend = "webdav"

// Config holds the connection settings of a WebDAV repository.
type Config struct {
	URL      string
	User     string
	Password string
	// Root is the directory on the share that holds the media. Defaults to "/".
	Root     string
	CacheDir string
	Timeout  time.Duration
}

// Repository is a WebDAV adapter.
type Repository struct {
	id     string
	root   string
	client *gowebdav.Client
	cache  *repository.Cache
}

// New connects to the share and prepares the download cache.
func New(ctx context.Context, id string, cfg Config) (*Repository, error) {
	if cfg.URL == "" {
		return nil, repository.Invalid("url", nil, "required for webdav repositories")
	}

	client := gowebdav.NewClient(cfg.URL, cfg.User, cfg.Password)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	root := cleanRoot(cfg.Root)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := client.Stat(root); err != nil {
		return nil, repository.NewIOError("connect", cfg.URL+root, err)
	}

	cache, err := repository.NewCache(cfg.CacheDir, id, backend)
	if err != nil {
		return nil, err
	}

	logging.Info("WebDAV repository %s connected to %s (root %s)", id, cfg.URL, root)
	return &Repository{id: id, root: root, client: client, cache: cache}, nil
}

func cleanRoot(root string) string {
	if root == "" {
		return "/"
	}
	return path.Clean("/" + root)
}

// ID returns the repository id.
func (r *Repository) ID() string { return r.id }

// Enumerate lists the share recursively.
func (r *Repository) Enumerate(ctx context.Context, fn func(repository.FileHandle) error) (err error) {
	start := time.Now()
	defer func() { repository.ObserveOperation(backend, "enumerate", start, err) }()

	return r.walk(ctx, "", fn)
}

func (r *Repository) walk(ctx context.Context, rel string, fn func(repository.FileHandle) error) error {
	dir := path.Join(r.root, rel)
	entries, err := r.client.ReadDir(dir)
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
		if err := fn(r.newFile(id, entry.ModTime())); err != nil {
			return err
		}
	}
	return nil
}

// Resolve stats a single file on the share.
func (r *Repository) Resolve(ctx context.Context, fileID string) (h repository.FileHandle, err error) {
	start := time.Now()
	defer func() { repository.ObserveOperation(backend, "resolve", start, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := r.client.Stat(r.remotePath(fileID))
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, fileID)
		}
		return nil, repository.NewIOError("stat", fileID, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", repository.ErrNotFound, fileID)
	}
	return r.newFile(fileID, info.ModTime()), nil
}

// Close removes the download cache.
func (r *Repository) Close() error {
	return r.cache.Close()
}

func (r *Repository) remotePath(fileID string) string {
	return path.Join(r.root, path.Clean("/"+fileID))
}

func (r *Repository) newFile(id string, modTime time.Time) *repository.File {
	info := repository.FileInfo{
		RepositoryID: r.id,
		FileID:       id,
		LastModified: modTime,
	}
	return repository.NewFile(info, func(ctx context.Context) (string, error) {
		return r.cache.Fetch(ctx, id, modTime, r.download(id))
	})
}

func (r *Repository) download(id string) repository.DownloadFunc {
	return func(ctx context.Context, dst string) (int64, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		stream, err := r.client.ReadStream(r.remotePath(id))
		if err != nil {
			if gowebdav.IsErrNotFound(err) {
				return 0, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
			}
			return 0, err
		}
		defer stream.Close()

		f, err := os.Create(dst)
		if err != nil {
			return 0, err
		}
		n, err := io.Copy(f, stream)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		return n, err
	}
}
