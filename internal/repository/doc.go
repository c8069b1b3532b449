// Package repository defines the contract between media sources and the
// index.
//
// An Adapter enumerates the files of one repository and resolves single
// files by id. Listing is cheap: a FileHandle only carries what the
// backend listing already knows (name, kind, modification time). Reading
// the content, and for remote backends downloading it into a local cache,
// happens only when ExtractMetadata or Source is called.
//
// The Registry owns every configured adapter. It is built once at startup,
// passed explicitly to the index builder, the iterator and the playlists,
// and closed on shutdown.
//
// Errors returned by adapters fall into three kinds:
//   - ErrNotFound: the file or repository id does not exist
//   - *IOError: a backend or filesystem operation failed
//   - *ValidationError: configuration or criteria are malformed
package repository
