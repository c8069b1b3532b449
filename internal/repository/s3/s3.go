// Package s3 implements a repository on an S3-compatible bucket using
// minio-go. File ids are object keys relative to the configured prefix.
package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"media-index/internal/logging"
	"media-index/internal/repository"
)

const backend = "s3"

// Config holds the connection settings of an S3 repository.
type Config struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	CacheDir  string
}

// Repository is an S3 adapter.
type Repository struct {
	id     string
	bucket string
	prefix string
	client *minio.Client
	cache  *repository.Cache
}

// New connects to the endpoint and checks that the bucket exists.
func New(ctx context.Context, id string, cfg Config) (*Repository, error) {
	if cfg.Endpoint == "" {
		return nil, repository.Invalid("endpoint", nil, "required for s3 repositories")
	}
	if cfg.Bucket == "" {
		return nil, repository.Invalid("bucket", nil, "required for s3 repositories")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, repository.NewIOError("connect", cfg.Endpoint+"/"+cfg.Bucket, err)
	}
	if !exists {
		return nil, repository.Invalid("bucket", cfg.Bucket, "does not exist")
	}

	cache, err := repository.NewCache(cfg.CacheDir, id, backend)
	if err != nil {
		return nil, err
	}

	logging.Info("S3 repository %s connected to %s/%s", id, cfg.Endpoint, cfg.Bucket)
	return &Repository{
		id:     id,
		bucket: cfg.Bucket,
		prefix: normalizePrefix(cfg.Prefix),
		client: client,
		cache:  cache,
	}, nil
}

// normalizePrefix turns a root path into a key prefix: no leading slash,
// one trailing slash, empty for the bucket root.
func normalizePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// ID returns the repository id.
func (r *Repository) ID() string { return r.id }

// Enumerate lists every object below the prefix.
func (r *Repository) Enumerate(ctx context.Context, fn func(repository.FileHandle) error) (err error) {
	start := time.Now()
	defer func() { repository.ObserveOperation(backend, "enumerate", start, err) }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := r.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{
		Prefix:    r.prefix,
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return repository.NewIOError("list", r.bucket+"/"+r.prefix, obj.Err)
		}

		id, ok := r.fileID(obj.Key)
		if !ok {
			continue
		}
		if err := fn(r.newFile(id, obj.LastModified)); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// fileID maps an object key to a file id. Directory markers and hidden
// objects are skipped.
func (r *Repository) fileID(key string) (string, bool) {
	if !strings.HasPrefix(key, r.prefix) || strings.HasSuffix(key, "/") {
		return "", false
	}
	id := strings.TrimPrefix(key, r.prefix)
	if id == "" {
		return "", false
	}
	for _, part := range strings.Split(id, "/") {
		if strings.HasPrefix(part, ".") {
			return "", false
		}
	}
	return id, true
}

// Resolve stats a single object.
func (r *Repository) Resolve(ctx context.Context, fileID string) (h repository.FileHandle, err error) {
	start := time.Now()
	defer func() { repository.ObserveOperation(backend, "resolve", start, err) }()

	info, err := r.client.StatObject(ctx, r.bucket, r.key(fileID), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, fileID)
		}
		return nil, repository.NewIOError("stat", fileID, err)
	}
	return r.newFile(fileID, info.LastModified), nil
}

// Close removes the download cache.
func (r *Repository) Close() error {
	return r.cache.Close()
}

func (r *Repository) key(fileID string) string {
	return r.prefix + strings.TrimPrefix(fileID, "/")
}

func (r *Repository) newFile(id string, modTime time.Time) *repository.File {
	info := repository.FileInfo{
		RepositoryID: r.id,
		FileID:       id,
		LastModified: modTime,
	}
	return repository.NewFile(info, func(ctx context.Context) (string, error) {
		return r.cache.Fetch(ctx, id, modTime, func(ctx context.Context, dst string) (int64, error) {
			key := r.key(id)
			if err := r.client.FGetObject(ctx, r.bucket, key, dst, minio.GetObjectOptions{}); err != nil {
				if isNotFound(err) {
					return 0, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
				}
				return 0, err
			}
			info, err := os.Stat(dst)
			if err != nil {
				return 0, err
			}
			return info.Size(), nil
		})
	})
}

func isNotFound(err error) bool {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		resp = minio.ToErrorResponse(err)
	}
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
