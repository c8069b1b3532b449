package repository

import (
	"context"
	"path"
	"time"

	"media-index/internal/media"
	"media-index/internal/mediatypes"
)

// SourceFunc returns a local path to a file's content.
type SourceFunc func(ctx context.Context) (string, error)

// FileInfo is the listing-level information of a file.
type FileInfo struct {
	RepositoryID string
	FileID       string
	LastModified time.Time
}

// File is the FileHandle implementation shared by the adapters. Its name
// and kind are derived from the file id.
type File struct {
	info   FileInfo
	name   string
	kind   mediatypes.Kind
	source SourceFunc
}

// NewFile returns a handle for info whose content is provided by source.
func NewFile(info FileInfo, source SourceFunc) *File {
	name := path.Base(info.FileID)
	return &File{
		info:   info,
		name:   name,
		kind:   mediatypes.KindOf(name),
		source: source,
	}
}

func (f *File) RepositoryID() string { return f.info.RepositoryID }
func (f *File) FileID() string { return f.info.FileID }
func (f *File) Name() string { return f.name }
func (f *File) Kind() mediatypes.Kind { return f.kind }
func (f *File) LastModified() time.Time { return f.info.LastModified }
func (f *File) String() string { return f.info.RepositoryID + ":" + f.info.FileID }

// Source returns the local path of the content.
func (f *File) Source(ctx context.Context) (string, error) {
	return f.source(ctx)
}

// ExtractMetadata fetches the content and reads its metadata. Files
// without a capture date get their modification time instead.
func (f *File) ExtractMetadata(ctx context.Context) (*media.Metadata, error) {
	src, err := f.Source(ctx)
	if err != nil {
		return nil, err
	}

	md, err := media.Extract(ctx, src, f.kind)
	if err != nil {
		return nil, NewIOError("extract", f.String(), err)
	}
	if md.CreationDate.IsZero() {
		md.CreationDate = f.info.LastModified
	}
	return md, nil
}
