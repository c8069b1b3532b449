package repository

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"media-index/internal/logging"
	"media-index/internal/metrics"
)

// DownloadFunc writes the content of a remote file to dst and returns the
// number of bytes written.
type DownloadFunc func(ctx context.Context, dst string) (int64, error)

// Cache is a per-repository download directory for remote backends. A
// cached copy is reused while its modification time matches the listing.
type Cache struct {
	dir     string
	backend string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCache creates a fresh directory below root for repository id.
func NewCache(root, id, backend string) (*Cache, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache root: %w", err)
	}
	dir, err := os.MkdirTemp(root, id+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	logging.Debug("Cache directory for repository %s: %s", id, dir)
	return &Cache{
		dir:     dir,
		backend: backend,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Path maps a file id to its location in the cache. Ids cannot escape the
// cache directory.
func (c *Cache) Path(fileID string) string {
	clean := path.Clean("/" + fileID)
	return filepath.Join(c.dir, filepath.FromSlash(clean))
}

// Fetch returns the cached path of fileID, calling download when there
// is no copy with the given modification time.
func (c *Cache) Fetch(ctx context.Context, fileID string, modTime time.Time, download DownloadFunc) (string, error) {
	lock := c.lockFor(fileID)
	lock.Lock()
	defer lock.Unlock()

	dst := c.Path(fileID)
	if info, err := os.Stat(dst); err == nil && info.ModTime().Equal(modTime) {
		return dst, nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", NewIOError("download", fileID, err)
	}

	start := time.Now()
	tmp := dst + ".part"
	n, err := download(ctx, tmp)
	ObserveOperation(c.backend, "download", start, err)
	if err != nil {
		_ = os.Remove(tmp)
		return "", NewIOError("download", fileID, err)
	}
	metrics.AdapterDownloadBytes.WithLabelValues(c.backend).Add(float64(n))

	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", NewIOError("download", fileID, err)
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(dst, modTime, modTime); err != nil {
			logging.Warn("Failed to set modification time on %s: %v", dst, err)
		}
	}
	return dst, nil
}

func (c *Cache) lockFor(fileID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[fileID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[fileID] = l
	}
	return l
}

// Close removes the cache directory and its content.
func (c *Cache) Close() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("failed to remove cache directory %s: %w", c.dir, err)
	}
	return nil
}

// ObserveOperation records duration and failure metrics for an adapter
// operation.
func ObserveOperation(backend, operation string, start time.Time, err error) {
	metrics.AdapterOperationDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AdapterOperationErrors.WithLabelValues(backend, operation).Inc()
	}
}
