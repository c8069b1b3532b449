package repository

import (
	"context"
	"time"

	"media-index/internal/media"
	"media-index/internal/mediatypes"
)

// Adapter is a single media repository backend.
type Adapter interface {
	// ID returns the repository id.
	ID() string

	// Enumerate calls fn once for every file of the repository. Returning
	// an error from fn stops the listing and Enumerate returns that error.
	Enumerate(ctx context.Context, fn func(FileHandle) error) error

	// Resolve returns the file with the given id. It returns an error
	// wrapping ErrNotFound when the file does not exist.
	Resolve(ctx context.Context, fileID string) (FileHandle, error)

	// Close releases backend resources such as download caches.
	Close() error
}

// FileHandle is a file as listed by an Adapter.
type FileHandle interface {
	RepositoryID() string
	FileID() string
	Name() string
	Kind() mediatypes.Kind
	LastModified() time.Time

	// ExtractMetadata reads the file content. It may block on network I/O.
	ExtractMetadata(ctx context.Context) (*media.Metadata, error)

	// Source returns a local path to the content, downloading it first
	// when the backend is remote.
	Source(ctx context.Context) (string, error)
}
